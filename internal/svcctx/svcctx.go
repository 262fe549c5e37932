// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/problembook/internal/batch"
	"github.com/jackzampolin/problembook/internal/cache"
	"github.com/jackzampolin/problembook/internal/defra"
	"github.com/jackzampolin/problembook/internal/export"
	"github.com/jackzampolin/problembook/internal/home"
	"github.com/jackzampolin/problembook/internal/ingest"
	"github.com/jackzampolin/problembook/internal/jobs"
	"github.com/jackzampolin/problembook/internal/parser"
	"github.com/jackzampolin/problembook/internal/providers"
	"github.com/jackzampolin/problembook/internal/solve"
	"github.com/jackzampolin/problembook/internal/storage"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Storage        storage.Storage
	StorageBackend string
	DefraClient    *defra.Client // set only for the defra backend
	JobManager     *jobs.Manager
	Registry       *providers.Registry
	Batch          *batch.Processor
	Exporter       *export.Exporter
	Solver         *solve.Solver
	Ingest         *ingest.Service
	Parser         *parser.HybridParser
	FormulaCache   *cache.FormulaSearchCache[[]storage.Problem]
	Home           *home.Dir
	Logger         *slog.Logger
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// StorageFrom extracts the storage backend from context.
func StorageFrom(ctx context.Context) storage.Storage {
	if s := ServicesFrom(ctx); s != nil {
		return s.Storage
	}
	return nil
}

// DefraClientFrom extracts the DefraDB client from context.
func DefraClientFrom(ctx context.Context) *defra.Client {
	if s := ServicesFrom(ctx); s != nil {
		return s.DefraClient
	}
	return nil
}

// JobManagerFrom extracts the job manager from context.
func JobManagerFrom(ctx context.Context) *jobs.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.JobManager
	}
	return nil
}

// RegistryFrom extracts the provider registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// BatchFrom extracts the batch processor from context.
func BatchFrom(ctx context.Context) *batch.Processor {
	if s := ServicesFrom(ctx); s != nil {
		return s.Batch
	}
	return nil
}

// ExporterFrom extracts the exporter from context.
func ExporterFrom(ctx context.Context) *export.Exporter {
	if s := ServicesFrom(ctx); s != nil {
		return s.Exporter
	}
	return nil
}

// SolverFrom extracts the solver from context.
func SolverFrom(ctx context.Context) *solve.Solver {
	if s := ServicesFrom(ctx); s != nil {
		return s.Solver
	}
	return nil
}

// IngestFrom extracts the ingest service from context.
func IngestFrom(ctx context.Context) *ingest.Service {
	if s := ServicesFrom(ctx); s != nil {
		return s.Ingest
	}
	return nil
}

// ParserFrom extracts the page parser from context.
func ParserFrom(ctx context.Context) *parser.HybridParser {
	if s := ServicesFrom(ctx); s != nil {
		return s.Parser
	}
	return nil
}

// FormulaCacheFrom extracts the formula search cache from context.
func FormulaCacheFrom(ctx context.Context) *cache.FormulaSearchCache[[]storage.Problem] {
	if s := ServicesFrom(ctx); s != nil {
		return s.FormulaCache
	}
	return nil
}

// HomeFrom extracts the data directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// LoggerFrom extracts the logger from context, falling back to slog.Default.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
