package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/jackzampolin/problembook/internal/jobs"
	"github.com/jackzampolin/problembook/internal/parser"
	"github.com/jackzampolin/problembook/internal/reconcile"
	"github.com/jackzampolin/problembook/internal/retry"
	"github.com/jackzampolin/problembook/internal/storage"
)

// pageSlot is the phase 1 outcome for one page, indexed by page offset.
type pageSlot struct {
	text    string
	skipped bool
	err     error
}

// StartBatchOCR registers a batch OCR job over [StartPage, EndPage] and runs
// it in the background. An invalid request yields a failed job and an error
// wrapping ErrInvalidRequest.
func (p *Processor) StartBatchOCR(ctx context.Context, req OCRRequest) (string, error) {
	if req.ChapterID == "" && req.BookID != "" {
		req.ChapterID = storage.ChapterID(req.BookID, 1)
	}
	id := p.jobs.CreateJob(jobs.BatchOCR(req.BookID, req.StartPage, req.EndPage, req.ChapterID))
	if err := req.validate(); err != nil {
		return p.reject(id, err)
	}

	go p.runBatchOCR(background(ctx), id, req)
	return id, nil
}

func (p *Processor) runBatchOCR(ctx context.Context, jobID string, req OCRRequest) {
	start := time.Now()
	logger := p.logger.With("job_id", jobID, "book_id", req.BookID)
	total := req.EndPage - req.StartPage + 1

	if _, err := p.store.GetBook(ctx, req.BookID); err != nil {
		p.jobs.FailJob(jobID, fmt.Sprintf("Book not found: %s", req.BookID))
		return
	}
	chapterNum := storage.ChapterNumber(req.ChapterID)
	if err := p.store.EnsureChapter(ctx, &storage.Chapter{
		ID: req.ChapterID, BookID: req.BookID, Number: chapterNum,
	}); err != nil {
		p.jobs.FailJob(jobID, fmt.Sprintf("Chapter %s unavailable: %v", req.ChapterID, err))
		return
	}

	// Phase 1: bounded parallel OCR into position-indexed slots.
	p.jobs.UpdateProgress(jobID, 0, "Running parallel OCR...")
	slots, ok := p.ocrPages(ctx, jobID, req, logger)
	if !ok {
		logger.Info("batch OCR cancelled during OCR phase")
		return
	}

	// Phase 2: thread trailing chapter headings into the following page.
	texts := make([]string, total)
	carry := ""
	for i, slot := range slots {
		if slot.skipped || slot.err != nil {
			// The page is not rewritten, so a heading carried into it has
			// nowhere to go.
			if strings.TrimSpace(carry) != "" {
				logger.Warn("chapter carryover dropped at unprocessed page",
					"page", req.StartPage+i, "heading", firstLine(carry), "chars", len(carry))
			}
			carry = ""
			continue
		}
		merged := slot.text
		if carry != "" {
			merged = carry + "\n\n" + slot.text
		}
		pageText, next := reconcile.SplitTrailingChapterHeading(merged)
		texts[i] = pageText
		carry = ""
		if next != nil {
			carry = *next
		}
	}
	if strings.TrimSpace(carry) != "" {
		logger.Warn("unconsumed chapter carryover at end of range",
			"heading", firstLine(carry), "chars", len(carry))
	}

	// Phase 3: parse every page before merging so neighbors are available.
	results := make([]*parser.ParseResult, total)
	for i := range total {
		if p.jobs.IsCancelled(jobID) {
			return
		}
		pageNum := req.StartPage + i
		p.jobs.UpdateProgress(jobID, 50+float64(i)/float64(total)*25,
			fmt.Sprintf("Parsing: page %d of %d", pageNum, req.EndPage))
		if slots[i].skipped || slots[i].err != nil {
			continue
		}
		r, err := p.parser.ParseText(ctx, req.BookID, texts[i], pageNum)
		if err != nil {
			logger.Warn("parse failed", "page", pageNum, "error", err)
			continue
		}
		results[i] = &r
	}

	// Phase 4: reconcile against neighbors and persist page by page.
	result := OCRResult{Errors: []string{}}
	var prevLast *parser.ParsedProblem
	var prevTail *string
	for i := range total {
		if p.jobs.IsCancelled(jobID) {
			logger.Info("batch OCR cancelled", "processed_pages", result.ProcessedPages)
			return
		}
		pageNum := req.StartPage + i
		p.jobs.UpdateProgress(jobID, 75+float64(result.ProcessedPages)/float64(total)*25,
			fmt.Sprintf("Processing: page %d of %d", pageNum, req.EndPage))

		found, errs := p.persistPage(ctx, req, chapterNum, pageNum, texts[i], slots[i], results, i, &prevLast, &prevTail)
		result.ProblemsFound += found
		result.Errors = append(result.Errors, errs...)
		result.ProcessedPages++
	}

	if p.exporter != nil {
		p.exporter.Invalidate(req.BookID)
	}
	result.DurationSecs = seconds(time.Since(start))
	logger.Info("batch OCR complete",
		"processed_pages", result.ProcessedPages,
		"problems_found", result.ProblemsFound,
		"errors", len(result.Errors),
		"duration", time.Since(start))
	p.jobs.CompleteJob(jobID, result)
}

// ocrPages runs phase 1. It returns false when the job was cancelled.
func (p *Processor) ocrPages(ctx context.Context, jobID string, req OCRRequest, logger *slog.Logger) ([]pageSlot, bool) {
	total := req.EndPage - req.StartPage + 1
	slots := make([]pageSlot, total)
	sem := semaphore.NewWeighted(int64(p.concurrency))

	var (
		mu   sync.Mutex
		done int
	)
	finished := func(pageNum int) {
		mu.Lock()
		defer mu.Unlock()
		done++
		p.jobs.UpdateProgress(jobID, float64(done)/float64(total)*50,
			fmt.Sprintf("OCR: page %d (%d of %d)", pageNum, done, total))
	}

	// A slot is taken before its goroutine starts, so at most concurrency
	// pages are in flight and a cancel stops the rest from starting.
	var g errgroup.Group
	cancelled := false
	for i := range total {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < total; j++ {
				slots[j].err = err
			}
			break
		}
		if p.jobs.IsCancelled(jobID) {
			sem.Release(1)
			cancelled = true
			break
		}
		pageNum := req.StartPage + i
		g.Go(func() error {
			defer sem.Release(1)
			slots[i] = p.ocrPage(ctx, jobID, req, pageNum, logger)
			finished(pageNum)
			return nil
		})
	}
	_ = g.Wait()

	if cancelled || p.jobs.IsCancelled(jobID) {
		return nil, false
	}

	ok := 0
	for _, s := range slots {
		if s.err == nil && !s.skipped {
			ok++
		}
	}
	logger.Info("parallel OCR done", "pages", ok, "total", total)
	return slots, true
}

func (p *Processor) ocrPage(ctx context.Context, jobID string, req OCRRequest, pageNum int, logger *slog.Logger) pageSlot {
	if !req.Force {
		page, err := p.store.GetPage(ctx, req.BookID, pageNum)
		if err == nil && page.OCRText != "" {
			if req.Incremental {
				logger.Info("skipping page with stored OCR", "page", pageNum)
				return pageSlot{skipped: true}
			}
			return pageSlot{text: page.OCRText}
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			logger.Warn("failed to read stored page", "page", pageNum, "error", err)
		}
	}

	imagePath := p.home.PreviewImagePath(req.BookID, pageNum)
	text, err := retry.DoValueWithClassifier(ctx, p.ocrRetry, fmt.Sprintf("ocr page %d", pageNum), func(ctx context.Context) (string, error) {
		return p.extractor.RunOCR(ctx, imagePath, p.ocrProvider)
	}, retry.Classify)
	if err != nil {
		logger.Warn("OCR failed", "page", pageNum, "error", err)
		return pageSlot{err: err}
	}
	if p.jobs.IsCancelled(jobID) {
		logger.Debug("discarding OCR text of cancelled job", "page", pageNum)
		return pageSlot{text: text}
	}

	page, err := p.store.GetOrCreatePage(ctx, req.BookID, pageNum)
	if err == nil {
		err = p.store.UpdatePageOCR(ctx, page.ID, text, 0)
	}
	if err != nil {
		logger.Warn("failed to store OCR text", "page", pageNum, "error", err)
	}
	return pageSlot{text: text}
}

// persistPage runs phase 4 for one page and returns the number of
// top-level problems written and any error lines for the job result.
func (p *Processor) persistPage(
	ctx context.Context,
	req OCRRequest,
	chapterNum, pageNum int,
	pageText string,
	slot pageSlot,
	results []*parser.ParseResult,
	i int,
	prevLast **parser.ParsedProblem,
	prevTail **string,
) (int, []string) {
	if slot.skipped {
		*prevLast, *prevTail = nil, nil
		return 0, nil
	}
	if slot.err != nil {
		*prevLast, *prevTail = nil, nil
		return 0, []string{fmt.Sprintf("Page %d: OCR failed - %v", pageNum, slot.err)}
	}
	if results[i] == nil {
		*prevLast, *prevTail = nil, nil
		return 0, []string{fmt.Sprintf("Page %d: No parse result", pageNum)}
	}

	current := results[i].Clone().Problems
	var next []parser.ParsedProblem
	if i+1 < len(results) && results[i+1] != nil {
		next = results[i+1].Problems
	}
	reconcile.ProcessCrossPage(*prevLast, *prevTail, current, next)

	if n := len(current); n > 0 {
		last := current[n-1]
		*prevLast = &last
		*prevTail = reconcile.ExtractContinuationTail(last)
	} else {
		*prevLast, *prevTail = nil, nil
	}

	page, err := p.store.GetOrCreatePage(ctx, req.BookID, pageNum)
	if err != nil {
		return 0, []string{fmt.Sprintf("Page %d: Failed to create page - %v", pageNum, err)}
	}

	var errs []string
	if _, err := p.store.DeleteProblemsByPage(ctx, page.ID); err != nil {
		p.logger.Warn("failed to delete old problems", "page", pageNum, "error", err)
		errs = append(errs, fmt.Sprintf("Page %d: failed to delete old problems - %v", pageNum, err))
	}
	if err := p.store.UpdatePageOCR(ctx, page.ID, pageText, len(current)); err != nil {
		p.logger.Warn("failed to update page OCR", "page", pageNum, "error", err)
		errs = append(errs, fmt.Sprintf("Page %d: failed to update page OCR - %v", pageNum, err))
	}

	rows := buildProblems(req.BookID, req.ChapterID, chapterNum, page.ID, pageNum, current)
	if _, err := p.store.CreateOrUpdateProblems(ctx, rows); err != nil {
		errs = append(errs, fmt.Sprintf("Page %d: Failed to save problems - %v", pageNum, err))
	}
	return len(current), errs
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

// buildProblems converts parsed problems into rows, each parent followed by
// its sub-problems.
func buildProblems(bookID, chapterID string, chapterNum int, pageID string, pageNum int, parsed []parser.ParsedProblem) []storage.Problem {
	var rows []storage.Problem
	for _, pp := range parsed {
		id := storage.ProblemID(bookID, chapterNum, pp.Number)
		main := storage.Problem{
			ID:            id,
			ChapterID:     chapterID,
			PageID:        pageID,
			Number:        pp.Number,
			DisplayName:   "Задача " + pp.Number,
			Content:       pp.Content,
			LatexFormulas: formulas(pp.Content),
			PageNumber:    pageNum,
			IsCrossPage:   pp.ContinuesFromPrev || pp.ContinuesToNext,
		}
		if pp.ContinuesFromPrev {
			prev := max(pageNum-1, 0)
			main.ContinuesFromPage = &prev
		}
		if pp.ContinuesToNext {
			next := pageNum + 1
			main.ContinuesToPage = &next
		}
		rows = append(rows, main)

		for _, sub := range pp.SubProblems {
			rows = append(rows, storage.Problem{
				ID:            storage.SubProblemID(id, sub.Letter),
				ChapterID:     chapterID,
				PageID:        pageID,
				ParentID:      id,
				Number:        sub.Letter,
				DisplayName:   sub.Letter + ")",
				Content:       sub.Content,
				LatexFormulas: formulas(sub.Content),
				PageNumber:    pageNum,
			})
		}
	}
	return rows
}

func formulas(text string) []string {
	f := parser.ExtractFormulas(text)
	if f == nil {
		return []string{}
	}
	return f
}
