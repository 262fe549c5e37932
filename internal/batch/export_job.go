package batch

import (
	"context"
	"fmt"

	"github.com/jackzampolin/problembook/internal/cache"
	"github.com/jackzampolin/problembook/internal/export"
	"github.com/jackzampolin/problembook/internal/jobs"
)

// StartExport registers a job that renders bookID into format and leaves
// the bytes in the export cache.
func (p *Processor) StartExport(ctx context.Context, bookID, format string) (string, error) {
	id := p.jobs.CreateJob(jobs.Export(bookID, format))
	if bookID == "" {
		return p.reject(id, fmt.Errorf("%w: book_id is required", ErrInvalidRequest))
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return p.reject(id, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
	}
	if p.exporter == nil {
		return p.reject(id, fmt.Errorf("%w: export is not configured", ErrInvalidRequest))
	}

	go p.runExport(background(ctx), id, bookID, f)
	return id, nil
}

func (p *Processor) runExport(ctx context.Context, jobID, bookID string, format export.Format) {
	p.jobs.UpdateProgress(jobID, 0, fmt.Sprintf("Rendering %s export", format))

	data, err := p.exporter.Export(ctx, bookID, format)
	if err != nil {
		p.jobs.FailJob(jobID, err.Error())
		return
	}
	if p.jobs.IsCancelled(jobID) {
		return
	}
	p.jobs.CompleteJob(jobID, ExportResult{
		BookID:   bookID,
		Format:   string(format),
		Bytes:    len(data),
		CacheKey: cache.ExportKey(bookID, string(format)),
	})
}
