package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackzampolin/problembook/internal/export"
	"github.com/jackzampolin/problembook/internal/home"
	"github.com/jackzampolin/problembook/internal/jobs"
	"github.com/jackzampolin/problembook/internal/parser"
	"github.com/jackzampolin/problembook/internal/retry"
	"github.com/jackzampolin/problembook/internal/storage"
	"github.com/jackzampolin/problembook/internal/storage/memory"
)

const bookID = "algebra-7"

type fakeExtractor struct {
	mu    sync.Mutex
	pages map[string]string
	calls int
	gate  chan struct{}
	// entered receives one value per call before the gate is waited on.
	entered chan struct{}
}

func (f *fakeExtractor) RunOCR(ctx context.Context, imagePath, provider string) (string, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	text, ok := f.pages[imagePath]
	if !ok {
		return "", fmt.Errorf("no image at %s: %w", imagePath, fs.ErrNotExist)
	}
	return text, nil
}

func (f *fakeExtractor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSolver struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (f *fakeSolver) Solve(ctx context.Context, problem *storage.Problem, provider, theory string) (*storage.Solution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, problem.ID)
	if f.fail[problem.ID] {
		return nil, errors.New("provider unavailable")
	}
	return &storage.Solution{
		ID:        storage.NewSolutionID(problem.ID),
		ProblemID: problem.ID,
		Provider:  provider,
		Content:   "Ответ: $4$",
	}, nil
}

// failingStore fails selected writes on top of the memory store.
type failingStore struct {
	*memory.Store
	failDelete     bool
	failPageUpdate bool
	failSolvedFlag bool
}

var errDiskFull = errors.New("disk full")

func (s *failingStore) DeleteProblemsByPage(ctx context.Context, pageID string) (int, error) {
	if s.failDelete {
		return 0, errDiskFull
	}
	return s.Store.DeleteProblemsByPage(ctx, pageID)
}

// UpdatePageOCR only fails the phase 4 write, which carries a problem count.
func (s *failingStore) UpdatePageOCR(ctx context.Context, pageID, text string, problemCount int) error {
	if s.failPageUpdate && problemCount > 0 {
		return errDiskFull
	}
	return s.Store.UpdatePageOCR(ctx, pageID, text, problemCount)
}

func (s *failingStore) UpdateProblemSolutionStatus(ctx context.Context, problemID string, hasSolution bool) error {
	if s.failSolvedFlag {
		return errDiskFull
	}
	return s.Store.UpdateProblemSolutionStatus(ctx, problemID, hasSolution)
}

// syncBuffer collects log output written from job goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	cfg       Config
	proc      *Processor
	jobs      *jobs.Manager
	store     *memory.Store
	home      *home.Dir
	extractor *fakeExtractor
	solver    *fakeSolver
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	m := jobs.NewManager(jobs.ManagerConfig{})
	t.Cleanup(m.Shutdown)

	store := memory.New(nil)
	if err := store.CreateBook(context.Background(), &storage.Book{ID: bookID, Title: "Алгебра 7"}); err != nil {
		t.Fatal(err)
	}
	dir, err := home.New(t.TempDir(), home.Layout{PreviewDir: "/previews"})
	if err != nil {
		t.Fatal(err)
	}

	h := &harness{
		jobs:      m,
		store:     store,
		home:      dir,
		extractor: &fakeExtractor{pages: map[string]string{}},
		solver:    &fakeSolver{fail: map[string]bool{}},
	}
	h.cfg = Config{
		Jobs:      m,
		Storage:   store,
		Extractor: h.extractor,
		Parser:    parser.NewHybridParser(parser.HybridConfig{}),
		Solvers:   h.solver,
		Exporter:  export.New(export.Config{Source: store}),
		Home:      dir,
		OCRRetry:  retry.Policy{MaxAttempts: 1},
	}
	h.proc = New(h.cfg)
	return h
}

// configure rebuilds the processor after fn adjusts its config.
func (h *harness) configure(fn func(*Config)) {
	fn(&h.cfg)
	h.proc = New(h.cfg)
}

func (h *harness) page(n int, text string) {
	h.extractor.pages[h.home.PreviewImagePath(bookID, n)] = text
}

func waitTerminal(t *testing.T, m *jobs.Manager, id string) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := m.Flush(context.Background()); err != nil {
			t.Fatal(err)
		}
		if j, ok := m.GetJob(id); ok && j.Status.State.IsTerminal() {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return nil
}

func ocrResult(t *testing.T, j *jobs.Job) OCRResult {
	t.Helper()
	if j.Status.State != jobs.StateCompleted {
		t.Fatalf("job state = %s (error %q), want completed", j.Status.State, j.Status.Error)
	}
	r, ok := j.Status.Result.(OCRResult)
	if !ok {
		t.Fatalf("result type = %T", j.Status.Result)
	}
	return r
}

func TestStartBatchOCR_Pipeline(t *testing.T) {
	h := newHarness(t)
	h.page(1, "101. Вычислите:\nа) $2+2$;\nб) $3+3$;\n102. Найдите значение выражения\nпри x = 5")
	h.page(2, "102. $x + 1$.\n103. Решите уравнение.\nГлава 2. Дроби")
	h.page(3, "104. Упростите.")

	id, err := h.proc.StartBatchOCR(context.Background(), OCRRequest{BookID: bookID, StartPage: 1, EndPage: 3})
	if err != nil {
		t.Fatal(err)
	}
	r := ocrResult(t, waitTerminal(t, h.jobs, id))

	if r.ProcessedPages != 3 {
		t.Errorf("processed_pages = %d, want 3", r.ProcessedPages)
	}
	if r.ProblemsFound != 5 {
		t.Errorf("problems_found = %d, want 5", r.ProblemsFound)
	}
	if len(r.Errors) != 0 {
		t.Errorf("errors = %v", r.Errors)
	}

	ctx := context.Background()
	p102, err := h.store.GetProblem(ctx, storage.ProblemID(bookID, 1, "102"))
	if err != nil {
		t.Fatal(err)
	}
	if p102.Content != "при x = 5\n\n$x + 1$." {
		t.Errorf("102 content = %q", p102.Content)
	}
	if p102.ContinuesFromPage == nil || *p102.ContinuesFromPage != 1 || !p102.IsCrossPage {
		t.Errorf("102 continuation = %v cross=%v", p102.ContinuesFromPage, p102.IsCrossPage)
	}

	sub, err := h.store.GetProblem(ctx, storage.SubProblemID(storage.ProblemID(bookID, 1, "101"), "а"))
	if err != nil {
		t.Fatal(err)
	}
	if sub.DisplayName != "а)" || len(sub.LatexFormulas) != 1 || sub.LatexFormulas[0] != "2+2" {
		t.Errorf("sub-problem = %+v", sub)
	}

	page2, _ := h.store.GetPage(ctx, bookID, 2)
	if page2.OCRText != "102. $x + 1$.\n103. Решите уравнение." || page2.ProblemCount != 2 {
		t.Errorf("page 2 = %q (%d problems)", page2.OCRText, page2.ProblemCount)
	}
	page3, _ := h.store.GetPage(ctx, bookID, 3)
	if !strings.HasPrefix(page3.OCRText, "Глава 2. Дроби\n\n104.") {
		t.Errorf("page 3 should start with the carried heading, got %q", page3.OCRText)
	}
}

func TestStartBatchOCR_RerunIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.page(1, "1. Вычислите $1+1$.\n2. Вычислите $2+2$.")

	for range 2 {
		id, _ := h.proc.StartBatchOCR(context.Background(), OCRRequest{BookID: bookID, StartPage: 1, EndPage: 1, Force: true})
		ocrResult(t, waitTerminal(t, h.jobs, id))
	}
	problems, err := h.store.ListProblemsByChapter(context.Background(), storage.ChapterID(bookID, 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(problems) != 2 {
		t.Errorf("problems = %d, want 2", len(problems))
	}
	if h.extractor.Calls() != 2 {
		t.Errorf("force should OCR every run, calls = %d", h.extractor.Calls())
	}
}

func TestStartBatchOCR_StoredText(t *testing.T) {
	seed := func(t *testing.T, h *harness) {
		t.Helper()
		ctx := context.Background()
		page, err := h.store.GetOrCreatePage(ctx, bookID, 1)
		if err != nil {
			t.Fatal(err)
		}
		if err := h.store.UpdatePageOCR(ctx, page.ID, "7. Найдите $x$.", 0); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("reused", func(t *testing.T) {
		h := newHarness(t)
		seed(t, h)
		id, _ := h.proc.StartBatchOCR(context.Background(), OCRRequest{BookID: bookID, StartPage: 1, EndPage: 1})
		r := ocrResult(t, waitTerminal(t, h.jobs, id))
		if h.extractor.Calls() != 0 {
			t.Errorf("stored text should be reused, calls = %d", h.extractor.Calls())
		}
		if r.ProblemsFound != 1 {
			t.Errorf("problems_found = %d", r.ProblemsFound)
		}
	})

	t.Run("incremental skips", func(t *testing.T) {
		h := newHarness(t)
		seed(t, h)
		h.page(2, "8. Упростите.")
		id, _ := h.proc.StartBatchOCR(context.Background(), OCRRequest{BookID: bookID, StartPage: 1, EndPage: 2, Incremental: true})
		r := ocrResult(t, waitTerminal(t, h.jobs, id))
		if r.ProcessedPages != 2 || r.ProblemsFound != 1 {
			t.Errorf("result = %+v", r)
		}
		if h.extractor.Calls() != 1 {
			t.Errorf("calls = %d, want 1", h.extractor.Calls())
		}
		if _, err := h.store.GetProblem(context.Background(), storage.ProblemID(bookID, 1, "7")); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("skipped page should not be parsed, got %v", err)
		}
	})
}

func TestStartBatchOCR_OCRFailureRecorded(t *testing.T) {
	h := newHarness(t)
	h.page(1, "1. Вычислите.")
	h.page(3, "3. Вычислите.")

	id, _ := h.proc.StartBatchOCR(context.Background(), OCRRequest{BookID: bookID, StartPage: 1, EndPage: 3})
	r := ocrResult(t, waitTerminal(t, h.jobs, id))
	if r.ProcessedPages != 3 {
		t.Errorf("processed_pages = %d, want 3", r.ProcessedPages)
	}
	if len(r.Errors) != 1 || !strings.HasPrefix(r.Errors[0], "Page 2: OCR failed") {
		t.Errorf("errors = %v", r.Errors)
	}
	if r.ProblemsFound != 2 {
		t.Errorf("problems_found = %d, want 2", r.ProblemsFound)
	}
}

func TestStartBatchOCR_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		req     OCRRequest
		wantErr error
		wantMsg string
	}{
		{"empty book", OCRRequest{StartPage: 1, EndPage: 1}, ErrInvalidRequest, ""},
		{"start below one", OCRRequest{BookID: bookID, StartPage: 0, EndPage: 1}, ErrInvalidRequest, ""},
		{"end before start", OCRRequest{BookID: bookID, StartPage: 5, EndPage: 4}, ErrInvalidRequest, ""},
		{"unknown book", OCRRequest{BookID: "geometry-9", StartPage: 1, EndPage: 1}, nil, "Book not found: geometry-9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			id, err := h.proc.StartBatchOCR(context.Background(), tt.req)
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error %v", err)
			}
			j := waitTerminal(t, h.jobs, id)
			if j.Status.State != jobs.StateFailed {
				t.Errorf("state = %s, want failed", j.Status.State)
			}
			if tt.wantMsg != "" && j.Status.Error != tt.wantMsg {
				t.Errorf("error message = %q, want %q", j.Status.Error, tt.wantMsg)
			}
		})
	}
}

func TestStartBatchOCR_Cancel(t *testing.T) {
	const pages = 20
	h := newHarness(t)
	h.extractor.gate = make(chan struct{})
	h.extractor.entered = make(chan struct{}, pages)
	for n := 1; n <= pages; n++ {
		h.page(n, fmt.Sprintf("%d. Вычислите.", n))
	}

	id, err := h.proc.StartBatchOCR(context.Background(), OCRRequest{BookID: bookID, StartPage: 1, EndPage: pages})
	if err != nil {
		t.Fatal(err)
	}
	for range DefaultConcurrency {
		select {
		case <-h.extractor.entered:
		case <-time.After(5 * time.Second):
			t.Fatal("OCR calls did not start")
		}
	}
	h.jobs.CancelJob(id)
	if err := h.jobs.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	close(h.extractor.gate)

	j := waitTerminal(t, h.jobs, id)
	if j.Status.State != jobs.StateCancelled {
		t.Fatalf("state = %s, want cancelled", j.Status.State)
	}

	time.Sleep(100 * time.Millisecond)
	if err := h.jobs.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if j, _ := h.jobs.GetJob(id); j.Status.State != jobs.StateCancelled {
		t.Errorf("state changed after cancel: %s", j.Status.State)
	}
	if calls := h.extractor.Calls(); calls > DefaultConcurrency {
		t.Errorf("OCR calls = %d, want at most the %d in flight at cancel", calls, DefaultConcurrency)
	}

	ctx := context.Background()
	for n := 1; n <= pages; n++ {
		page, err := h.store.GetPage(ctx, bookID, n)
		if err == nil && page.OCRText != "" {
			t.Errorf("page %d stored OCR text after cancel: %q", n, page.OCRText)
		}
	}
	problems, _ := h.store.ListProblemsByChapter(ctx, storage.ChapterID(bookID, 1))
	if len(problems) != 0 {
		t.Errorf("cancelled job persisted %d problems", len(problems))
	}
}

func TestStartBatchOCR_StorageErrorsRecorded(t *testing.T) {
	h := newHarness(t)
	store := &failingStore{Store: h.store, failDelete: true, failPageUpdate: true}
	h.configure(func(c *Config) { c.Storage = store })
	h.page(1, "1. Вычислите $1+1$.")

	id, _ := h.proc.StartBatchOCR(context.Background(), OCRRequest{BookID: bookID, StartPage: 1, EndPage: 1})
	r := ocrResult(t, waitTerminal(t, h.jobs, id))

	want := []string{
		"Page 1: failed to delete old problems - disk full",
		"Page 1: failed to update page OCR - disk full",
	}
	if strings.Join(r.Errors, "|") != strings.Join(want, "|") {
		t.Errorf("errors = %q, want %q", r.Errors, want)
	}
	if r.ProblemsFound != 1 || r.ProcessedPages != 1 {
		t.Errorf("result = %+v", r)
	}
}

func TestStartBatchOCR_MissingImageNotRetried(t *testing.T) {
	h := newHarness(t)
	h.configure(func(c *Config) {
		c.OCRRetry = retry.Policy{MaxAttempts: 3, BaseDelay: time.Second, ExponentialBase: 2}
	})

	start := time.Now()
	id, _ := h.proc.StartBatchOCR(context.Background(), OCRRequest{BookID: bookID, StartPage: 1, EndPage: 1})
	r := ocrResult(t, waitTerminal(t, h.jobs, id))
	if h.extractor.Calls() != 1 {
		t.Errorf("OCR calls = %d, want 1", h.extractor.Calls())
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("took %s, want no backoff for a missing image", elapsed)
	}
	if len(r.Errors) != 1 || !strings.HasPrefix(r.Errors[0], "Page 1: OCR failed") {
		t.Errorf("errors = %v", r.Errors)
	}
}

func TestStartBatchOCR_CarryoverIntoFailedPageLogged(t *testing.T) {
	h := newHarness(t)
	var logs syncBuffer
	h.configure(func(c *Config) { c.Logger = slog.New(slog.NewTextHandler(&logs, nil)) })
	h.page(1, "1. Вычислите.\nГлава 2. Дроби")
	h.page(3, "3. Упростите.")

	id, _ := h.proc.StartBatchOCR(context.Background(), OCRRequest{BookID: bookID, StartPage: 1, EndPage: 3})
	ocrResult(t, waitTerminal(t, h.jobs, id))

	out := logs.String()
	if !strings.Contains(out, "chapter carryover dropped at unprocessed page") ||
		!strings.Contains(out, "page=2") || !strings.Contains(out, "Глава 2. Дроби") {
		t.Errorf("missing carryover warning in logs:\n%s", out)
	}

	ctx := context.Background()
	page3, _ := h.store.GetPage(ctx, bookID, 3)
	if strings.Contains(page3.OCRText, "Глава 2") {
		t.Errorf("heading jumped past the failed page: %q", page3.OCRText)
	}
	page1, _ := h.store.GetPage(ctx, bookID, 1)
	if strings.Contains(page1.OCRText, "Глава 2") {
		t.Errorf("heading left on page 1: %q", page1.OCRText)
	}
}

func seedProblems(t *testing.T, h *harness, numbers ...string) []string {
	t.Helper()
	ctx := context.Background()
	ch := &storage.Chapter{ID: storage.ChapterID(bookID, 1), BookID: bookID, Number: 1}
	if err := h.store.EnsureChapter(ctx, ch); err != nil {
		t.Fatal(err)
	}
	var rows []storage.Problem
	var ids []string
	for _, n := range numbers {
		id := storage.ProblemID(bookID, 1, n)
		ids = append(ids, id)
		rows = append(rows, storage.Problem{ID: id, ChapterID: ch.ID, Number: n, Content: "Вычислите " + n})
	}
	if _, err := h.store.CreateOrUpdateProblems(ctx, rows); err != nil {
		t.Fatal(err)
	}
	return ids
}

func TestStartBatchSolve(t *testing.T) {
	h := newHarness(t)
	ids := seedProblems(t, h, "1", "2", "3")
	ctx := context.Background()
	if err := h.store.UpdateProblemSolutionStatus(ctx, ids[0], true); err != nil {
		t.Fatal(err)
	}
	h.solver.fail[ids[2]] = true
	h.proc.solveDelay = time.Millisecond

	request := append(ids, storage.ProblemID(bookID, 1, "404"))
	id, err := h.proc.StartBatchSolve(ctx, request, "claude")
	if err != nil {
		t.Fatal(err)
	}
	j := waitTerminal(t, h.jobs, id)
	r, ok := j.Status.Result.(SolveResult)
	if !ok {
		t.Fatalf("result = %#v", j.Status.Result)
	}
	if r.Processed != 4 || r.Succeeded != 2 || r.Failed != 2 || len(r.Errors) != 2 {
		t.Errorf("result = %+v", r)
	}

	h.solver.mu.Lock()
	calls := append([]string(nil), h.solver.calls...)
	h.solver.mu.Unlock()
	if len(calls) != 2 {
		t.Errorf("solver calls = %v, want already-solved and missing problems skipped", calls)
	}
	p2, _ := h.store.GetProblem(ctx, ids[1])
	if !p2.HasSolution {
		t.Error("solved problem should be flagged")
	}
	sol, err := h.store.GetSolutionForProblem(ctx, ids[1])
	if err != nil || sol.Provider != "claude" {
		t.Errorf("solution = %+v, %v", sol, err)
	}
	p3, _ := h.store.GetProblem(ctx, ids[2])
	if p3.HasSolution {
		t.Error("failed problem should not be flagged")
	}
}

func TestStartBatchSolve_FlagFailureCounted(t *testing.T) {
	h := newHarness(t)
	ids := seedProblems(t, h, "1")
	h.configure(func(c *Config) {
		c.Storage = &failingStore{Store: h.store, failSolvedFlag: true}
		c.SolveDelay = 0
	})

	id, err := h.proc.StartBatchSolve(context.Background(), ids, "claude")
	if err != nil {
		t.Fatal(err)
	}
	r, ok := waitTerminal(t, h.jobs, id).Status.Result.(SolveResult)
	if !ok {
		t.Fatal("missing solve result")
	}
	if r.Succeeded != 0 || r.Failed != 1 {
		t.Errorf("result = %+v", r)
	}
	if len(r.Errors) != 1 || !strings.Contains(r.Errors[0], "failed to update solution status - disk full") {
		t.Errorf("errors = %v", r.Errors)
	}
}

func TestStartBatchSolve_Empty(t *testing.T) {
	h := newHarness(t)
	id, err := h.proc.StartBatchSolve(context.Background(), nil, "")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("error = %v", err)
	}
	if j := waitTerminal(t, h.jobs, id); j.Status.State != jobs.StateFailed {
		t.Errorf("state = %s", j.Status.State)
	}
}

func TestStartExport(t *testing.T) {
	h := newHarness(t)
	seedProblems(t, h, "1")

	t.Run("completes", func(t *testing.T) {
		id, err := h.proc.StartExport(context.Background(), bookID, "md")
		if err != nil {
			t.Fatal(err)
		}
		j := waitTerminal(t, h.jobs, id)
		r, ok := j.Status.Result.(ExportResult)
		if !ok {
			t.Fatalf("state = %s, result = %#v", j.Status.State, j.Status.Result)
		}
		if r.Format != "markdown" || r.Bytes == 0 || r.CacheKey != "algebra-7:markdown" {
			t.Errorf("result = %+v", r)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		id, err := h.proc.StartExport(context.Background(), bookID, "pdf")
		if !errors.Is(err, ErrInvalidRequest) || !errors.Is(err, export.ErrUnsupportedFormat) {
			t.Errorf("error = %v", err)
		}
		if j := waitTerminal(t, h.jobs, id); j.Status.State != jobs.StateFailed {
			t.Errorf("state = %s", j.Status.State)
		}
	})

	t.Run("unknown book", func(t *testing.T) {
		id, _ := h.proc.StartExport(context.Background(), "geometry-9", "json")
		if j := waitTerminal(t, h.jobs, id); j.Status.State != jobs.StateFailed {
			t.Errorf("state = %s", j.Status.State)
		}
	})
}

func TestBuildProblems(t *testing.T) {
	rows := buildProblems(bookID, "algebra-7:2", 2, "algebra-7:page:9", 9, []parser.ParsedProblem{
		{Number: "5", Content: "Найдите $y$", ContinuesToNext: true, SubProblems: []parser.SubProblem{{Letter: "а", Content: "1"}}},
		{Number: "6", Content: "x", ContinuesFromPrev: true},
	})
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0].ID != "algebra-7:2:5" || rows[0].DisplayName != "Задача 5" || *rows[0].ContinuesToPage != 10 {
		t.Errorf("main row = %+v", rows[0])
	}
	if rows[1].ID != "algebra-7:2:5:а" || rows[1].ParentID != "algebra-7:2:5" || rows[1].DisplayName != "а)" {
		t.Errorf("sub row = %+v", rows[1])
	}
	if *rows[2].ContinuesFromPage != 8 || rows[2].ContinuesToPage != nil {
		t.Errorf("continuation row = %+v", rows[2])
	}
}
