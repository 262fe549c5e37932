package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackzampolin/problembook/internal/batch"
	"github.com/jackzampolin/problembook/internal/cache"
	"github.com/jackzampolin/problembook/internal/config"
	"github.com/jackzampolin/problembook/internal/defra"
	"github.com/jackzampolin/problembook/internal/export"
	"github.com/jackzampolin/problembook/internal/home"
	"github.com/jackzampolin/problembook/internal/ingest"
	"github.com/jackzampolin/problembook/internal/jobs"
	"github.com/jackzampolin/problembook/internal/ocr"
	"github.com/jackzampolin/problembook/internal/parser"
	"github.com/jackzampolin/problembook/internal/providers"
	"github.com/jackzampolin/problembook/internal/solve"
	"github.com/jackzampolin/problembook/internal/storage"
	"github.com/jackzampolin/problembook/internal/storage/defrastore"
	"github.com/jackzampolin/problembook/internal/storage/memory"
	"github.com/jackzampolin/problembook/internal/storage/sqlite"
	"github.com/jackzampolin/problembook/internal/svcctx"
)

const (
	jobRetention       = 24 * time.Hour
	jobCleanupInterval = 10 * time.Minute
	defraReadyTimeout  = 60 * time.Second
)

// OpenStorage opens the configured storage backend. For the defra backend it
// also returns the DefraDB client.
func OpenStorage(ctx context.Context, cfg *config.Config, dir *home.Dir, logger *slog.Logger) (storage.Storage, *defra.Client, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return memory.New(logger), nil, nil
	case config.BackendDefra:
		store, err := defrastore.Open(ctx, cfg.Storage.DefraURL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open DefraDB storage: %w", err)
		}
		return store, defra.NewClient(cfg.Storage.DefraURL), nil
	case config.BackendSQLite, "":
		path := cfg.Storage.SQLitePath
		if path == "" {
			path = dir.DatabasePath()
		}
		store, err := sqlite.Open(ctx, path, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// NewHome resolves the data directory from config.
func NewHome(homePath string, cfg *config.Config) (*home.Dir, error) {
	return home.New(homePath, home.Layout{
		ResourcesDir: cfg.Paths.ResourcesDir,
		PreviewDir:   cfg.Paths.PreviewDir,
		OCRCacheDir:  cfg.Paths.OCRCacheDir,
	})
}

// NewParser builds the hybrid page parser. The AI stage resolves its chat
// client from the registry on every call so config reloads take effect.
func NewParser(cfg *config.Config, registry *providers.Registry, logger *slog.Logger) *parser.HybridParser {
	hc := parser.HybridConfig{
		Cache:  cache.NewAIParseCache[parser.ParseResult](cache.WithTTL(cfg.Cache.ParseTTL)),
		Logger: logger,
	}
	if cfg.Parser.AIProvider != "" && registry != nil {
		hc.AI = &registryAIParser{
			registry: registry,
			name:     cfg.Parser.AIProvider,
			model:    cfg.Parser.AIModel,
			logger:   logger,
		}
	}
	return parser.NewHybridParser(hc)
}

// BuildServices wires every service the endpoints use on top of an open
// store. The returned job manager is already collecting expired jobs until
// ctx is done.
func BuildServices(ctx context.Context, cfg *config.Config, dir *home.Dir, store storage.Storage, registry *providers.Registry, logger *slog.Logger) *svcctx.Services {
	jm := jobs.NewManager(jobs.ManagerConfig{Logger: logger, Retention: jobRetention})
	jm.StartCleanup(ctx, jobCleanupInterval)

	hybrid := NewParser(cfg, registry, logger)
	solver := solve.NewSolver(solve.Config{Clients: registry, Logger: logger})
	exporter := export.New(export.Config{
		Source: store,
		Cache:  cache.NewExportCache(cache.WithTTL(cfg.Cache.ExportTTL)),
		Logger: logger,
	})
	extractor := ocr.NewService(ocr.Config{
		Providers: registry,
		CacheDir:  dir.OCRCacheDir(),
		Logger:    logger,
	})

	return &svcctx.Services{
		Storage:        store,
		StorageBackend: cfg.Storage.Backend,
		JobManager:     jm,
		Registry:       registry,
		Batch: batch.New(batch.Config{
			Jobs:        jm,
			Storage:     store,
			Extractor:   extractor,
			Parser:      hybrid,
			Solvers:     solver,
			Exporter:    exporter,
			Home:        dir,
			OCRProvider: cfg.OCR.Provider,
			Concurrency: cfg.OCR.Concurrency,
			SolveDelay:  cfg.Batch.SolveDelay,
			Logger:      logger,
		}),
		Exporter: exporter,
		Solver:   solver,
		Ingest: ingest.New(ingest.Config{
			Books:  store,
			Layout: dir,
			Logger: logger,
		}),
		Parser:       hybrid,
		FormulaCache: cache.NewFormulaSearchCache[[]storage.Problem](cache.WithTTL(cfg.Cache.SearchTTL)),
		Home:         dir,
		Logger:       logger,
	}
}

// registryAIParser adapts a named registry client to parser.AITextParser,
// rebuilding the AI parser when the registry swaps the client.
type registryAIParser struct {
	registry *providers.Registry
	name     string
	model    string
	logger   *slog.Logger

	mu     sync.Mutex
	client providers.LLMClient
	parser *providers.AIParser
}

func (p *registryAIParser) Parse(ctx context.Context, text string) (parser.ParseResult, error) {
	ap, err := p.current()
	if err != nil {
		return parser.ParseResult{}, err
	}
	return ap.Parse(ctx, text)
}

func (p *registryAIParser) current() (*providers.AIParser, error) {
	client, err := p.registry.GetLLM(p.name)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.parser != nil && p.client == client {
		return p.parser, nil
	}
	ap, err := providers.NewAIParser(providers.AIParserConfig{Client: client, Model: p.model, Logger: p.logger})
	if err != nil {
		return nil, err
	}
	p.client, p.parser = client, ap
	return ap, nil
}
