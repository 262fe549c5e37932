package endpoints

import (
	"github.com/jackzampolin/problembook/internal/api"
	"github.com/jackzampolin/problembook/internal/defra"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	DefraManager *defra.DockerManager
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{DefraManager: cfg.DefraManager},

		// Job endpoints
		&StartOCREndpoint{},
		&StartSolveEndpoint{},
		&StartExportEndpoint{},
		&ListJobsEndpoint{},
		&GetJobEndpoint{},
		&CancelJobEndpoint{},
		&WatchJobEndpoint{},

		// Book endpoints
		&ListBooksEndpoint{},
		&GetBookEndpoint{},
		&IngestEndpoint{},
		&RenderPreviewsEndpoint{},
		&ExportBookEndpoint{},

		// Problem endpoints
		&GetProblemEndpoint{},
		&HintEndpoint{},
		&SolveEndpoint{},
		&SearchFormulasEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{},
		&SwaggerUIEndpoint{},
	}
}
