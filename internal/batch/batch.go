// Package batch runs multi-page OCR, multi-problem solve and export work as
// background jobs tracked by the job manager.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/problembook/internal/export"
	"github.com/jackzampolin/problembook/internal/jobs"
	"github.com/jackzampolin/problembook/internal/ocr"
	"github.com/jackzampolin/problembook/internal/parser"
	"github.com/jackzampolin/problembook/internal/retry"
	"github.com/jackzampolin/problembook/internal/storage"
)

// ErrInvalidRequest marks a request rejected before any work ran.
var ErrInvalidRequest = errors.New("invalid batch request")

const (
	DefaultConcurrency = 4
	DefaultSolveDelay  = 500 * time.Millisecond
	DefaultOCRProvider = "mistral"
)

// JobTracker is the part of the job manager the pipelines drive.
type JobTracker interface {
	CreateJob(t jobs.JobType) string
	UpdateProgress(id string, percent float64, message string)
	CompleteJob(id string, result any)
	FailJob(id string, errMsg string)
	IsCancelled(id string) bool
}

// PageParser turns one page of OCR text into problems.
type PageParser interface {
	ParseText(ctx context.Context, bookID, text string, pageNum int) (parser.ParseResult, error)
}

// Solver produces an unsaved solution for a problem.
type Solver interface {
	Solve(ctx context.Context, problem *storage.Problem, provider, theory string) (*storage.Solution, error)
}

// Exporter renders books and drops stale renders.
type Exporter interface {
	Export(ctx context.Context, bookID string, format export.Format) ([]byte, error)
	Invalidate(bookID string)
}

// ImageLocator maps a page to its rendered image.
type ImageLocator interface {
	PreviewImagePath(bookID string, pageNum int) string
}

// Config configures a Processor.
type Config struct {
	Jobs      JobTracker
	Storage   storage.Storage
	Extractor ocr.TextExtractor
	Parser    PageParser
	Solvers   Solver
	Exporter  Exporter
	Home      ImageLocator

	// OCRProvider names the provider passed to the extractor.
	OCRProvider string
	// Concurrency bounds in-flight OCR calls.
	Concurrency int
	// SolveDelay separates consecutive solve calls.
	SolveDelay time.Duration
	// OCRRetry wraps each OCR call. Zero value means retry.DefaultPolicy().
	OCRRetry retry.Policy

	Logger *slog.Logger
}

// Processor starts batch jobs. Each Start method registers a job, launches
// the work in a goroutine and returns the job id.
type Processor struct {
	jobs        JobTracker
	store       storage.Storage
	extractor   ocr.TextExtractor
	parser      PageParser
	solver      Solver
	exporter    Exporter
	home        ImageLocator
	ocrProvider string
	concurrency int
	solveDelay  time.Duration
	ocrRetry    retry.Policy
	logger      *slog.Logger
}

// New creates a Processor.
func New(cfg Config) *Processor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.OCRProvider == "" {
		cfg.OCRProvider = DefaultOCRProvider
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.SolveDelay < 0 {
		cfg.SolveDelay = 0
	}
	if cfg.OCRRetry.MaxAttempts == 0 {
		cfg.OCRRetry = retry.DefaultPolicy()
	}
	if cfg.OCRRetry.Logger == nil {
		cfg.OCRRetry.Logger = cfg.Logger
	}
	return &Processor{
		jobs:        cfg.Jobs,
		store:       cfg.Storage,
		extractor:   cfg.Extractor,
		parser:      cfg.Parser,
		solver:      cfg.Solvers,
		exporter:    cfg.Exporter,
		home:        cfg.Home,
		ocrProvider: cfg.OCRProvider,
		concurrency: cfg.Concurrency,
		solveDelay:  cfg.SolveDelay,
		ocrRetry:    cfg.OCRRetry,
		logger:      cfg.Logger,
	}
}

// OCRRequest selects the pages of a batch OCR run.
type OCRRequest struct {
	BookID    string `json:"book_id"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
	ChapterID string `json:"chapter_id"`
	// Incremental skips pages that already have OCR text.
	Incremental bool `json:"incremental"`
	// Force re-runs OCR even when stored text exists.
	Force bool `json:"force"`
}

func (r OCRRequest) validate() error {
	switch {
	case r.BookID == "":
		return fmt.Errorf("%w: book_id is required", ErrInvalidRequest)
	case r.StartPage < 1:
		return fmt.Errorf("%w: start_page must be at least 1", ErrInvalidRequest)
	case r.EndPage < r.StartPage:
		return fmt.Errorf("%w: end_page %d is before start_page %d", ErrInvalidRequest, r.EndPage, r.StartPage)
	}
	return nil
}

// OCRResult is the completed result of a batch OCR job.
type OCRResult struct {
	ProcessedPages int      `json:"processed_pages"`
	ProblemsFound  int      `json:"problems_found"`
	Errors         []string `json:"errors"`
	DurationSecs   float64  `json:"duration_secs"`
}

// SolveResult is the completed result of a batch solve job.
type SolveResult struct {
	Processed    int      `json:"processed"`
	Succeeded    int      `json:"succeeded"`
	Failed       int      `json:"failed"`
	Errors       []string `json:"errors"`
	DurationSecs float64  `json:"duration_secs"`
}

// ExportResult is the completed result of an export job. The rendered
// bytes stay in the export cache under CacheKey.
type ExportResult struct {
	BookID   string `json:"book_id"`
	Format   string `json:"format"`
	Bytes    int    `json:"bytes"`
	CacheKey string `json:"cache_key"`
}

// reject fails a freshly created job and returns the request error.
func (p *Processor) reject(id string, err error) (string, error) {
	p.jobs.FailJob(id, err.Error())
	p.logger.Warn("batch request rejected", "job_id", id, "error", err)
	return id, err
}

// background detaches work from the caller's cancellation; jobs are
// cancelled through the job manager.
func background(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func seconds(d time.Duration) float64 {
	return float64(d.Milliseconds()) / 1000
}
