package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/problembook/internal/cache"
)

// Config configures an Exporter.
type Config struct {
	Source Source
	// Cache defaults to a fresh 24h export cache.
	Cache  *cache.ExportCache
	Logger *slog.Logger
}

// Exporter renders books and caches the rendered bytes per book and format.
type Exporter struct {
	src    Source
	cache  *cache.ExportCache
	logger *slog.Logger
}

// New creates an Exporter.
func New(cfg Config) *Exporter {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewExportCache()
	}
	return &Exporter{src: cfg.Source, cache: cfg.Cache, logger: cfg.Logger}
}

// Export renders bookID in format, serving from cache when possible.
func (e *Exporter) Export(ctx context.Context, bookID string, format Format) ([]byte, error) {
	format, err := ParseFormat(string(format))
	if err != nil {
		return nil, err
	}
	if data, ok := e.cache.Get(bookID, string(format)); ok {
		return data, nil
	}

	start := time.Now()
	doc, err := Load(ctx, e.src, bookID)
	if err != nil {
		return nil, err
	}
	data, err := Render(doc, format)
	if err != nil {
		return nil, err
	}

	e.cache.Set(bookID, string(format), data)
	e.logger.Info("export rendered",
		"book_id", bookID,
		"format", format,
		"bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds())
	return data, nil
}

// Invalidate drops cached exports of a book after its problems change.
func (e *Exporter) Invalidate(bookID string) {
	formats := Formats()
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	e.cache.Invalidate(bookID, names...)
}

// Render renders an already loaded document.
func Render(doc *Document, format Format) ([]byte, error) {
	switch format {
	case Markdown:
		return renderMarkdown(doc), nil
	case LaTeX:
		return renderLaTeX(doc), nil
	case JSON:
		return renderJSON(doc)
	case Anki:
		return renderAnki(doc), nil
	case XLSX:
		return renderXLSX(doc)
	case HTML:
		return renderHTML(doc)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}
