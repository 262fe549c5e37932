package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/problembook/internal/api"
	"github.com/jackzampolin/problembook/internal/defra"
	"github.com/jackzampolin/problembook/internal/svcctx"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Liveness check
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Router		/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Readiness check
//	@Description	Reports whether storage and the job manager are up. With the defra backend the DefraDB health endpoint is probed too.
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/ready [get]
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := svcctx.ServicesFrom(r.Context())
	if svc == nil || svc.Storage == nil || svc.JobManager == nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Storage: "not_initialized"})
		return
	}

	if client := svc.DefraClient; client != nil {
		if err := client.HealthCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Storage: "unhealthy"})
			return
		}
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Storage: "ok"})
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (includes storage)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			fmt.Printf("Status:  %s\n", resp.Status)
			if resp.Storage != "" {
				fmt.Printf("Storage: %s\n", resp.Storage)
			}
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server    string          `json:"server"`
	Storage   string          `json:"storage"`
	Jobs      int             `json:"jobs"`
	Providers ProvidersStatus `json:"providers"`
	Defra     *DefraStatus    `json:"defra,omitempty"`
}

// ProvidersStatus shows registered OCR and LLM providers.
type ProvidersStatus struct {
	OCR []string `json:"ocr"`
	LLM []string `json:"llm"`
}

// DefraStatus shows DefraDB container and health status.
type DefraStatus struct {
	Container string `json:"container,omitempty"`
	Health    string `json:"health"`
	URL       string `json:"url"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct {
	// DefraManager is set when the server manages a DefraDB container.
	DefraManager *defra.DockerManager
}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Detailed server status
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	StatusResponse
//	@Router		/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Server: "running", Storage: "not_initialized"}

	svc := svcctx.ServicesFrom(r.Context())
	if svc != nil {
		if svc.Storage != nil {
			resp.Storage = svc.StorageBackend
		}
		if svc.JobManager != nil {
			resp.Jobs = len(svc.JobManager.ListJobs())
		}
		if svc.Registry != nil {
			resp.Providers.OCR = svc.Registry.ListOCR()
			resp.Providers.LLM = svc.Registry.ListLLM()
		}
	}

	client := svcctx.DefraClientFrom(r.Context())
	if client != nil || e.DefraManager != nil {
		resp.Defra = &DefraStatus{Health: "not_initialized"}
		if e.DefraManager != nil {
			status, err := e.DefraManager.Status(r.Context())
			if err != nil {
				resp.Defra.Container = "error"
			} else {
				resp.Defra.Container = string(status)
			}
			resp.Defra.URL = e.DefraManager.URL()
		}
		if client != nil {
			resp.Defra.URL = client.URL()
			if err := client.HealthCheck(r.Context()); err != nil {
				resp.Defra.Health = "unhealthy"
			} else {
				resp.Defra.Health = "healthy"
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			fmt.Printf("Server:  %s\n", resp.Server)
			fmt.Printf("Storage: %s\n", resp.Storage)
			fmt.Printf("Jobs:    %d\n", resp.Jobs)
			if resp.Defra != nil {
				fmt.Printf("Defra:\n")
				fmt.Printf("  Container: %s\n", resp.Defra.Container)
				fmt.Printf("  Health:    %s\n", resp.Defra.Health)
				fmt.Printf("  URL:       %s\n", resp.Defra.URL)
			}
			fmt.Printf("Providers:\n")
			fmt.Printf("  LLM: %v\n", resp.Providers.LLM)
			fmt.Printf("  OCR: %v\n", resp.Providers.OCR)
			return nil
		},
	}
}
