// Package defrastore implements storage.Storage on DefraDB. Documents carry
// the application id in a key field; uniqueness rules that SQL expresses as
// indexes are checked here before writing.
package defrastore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jackzampolin/problembook/internal/defra"
	"github.com/jackzampolin/problembook/internal/storage"
)

// Backend is the document API the store needs. *defra.Client satisfies it.
type Backend interface {
	Find(ctx context.Context, collection string, filter map[string]any, fields []string) ([]map[string]any, error)
	Upsert(ctx context.Context, collection string, filter, createInput, updateInput map[string]any) (string, error)
	UpdateWhere(ctx context.Context, collection string, filter, input map[string]any) (int, error)
	DeleteWhere(ctx context.Context, collection string, filter map[string]any) (int, error)
}

var _ Backend = (*defra.Client)(nil)

// Store is a DefraDB-backed storage.Storage.
type Store struct {
	db     Backend
	logger *slog.Logger
	now    func() time.Time

	// mu serializes problem writes so uniqueness checks and upserts do not
	// interleave.
	mu      sync.Mutex
	lastSeq int64
}

var _ storage.Storage = (*Store)(nil)

// Open connects to DefraDB at url, waits for it to answer and registers the
// collections.
func Open(ctx context.Context, url string, logger *slog.Logger) (*Store, error) {
	c := defra.NewClient(url)
	if err := c.HealthCheck(ctx); err != nil {
		return nil, err
	}
	for _, sdl := range schemas {
		if err := c.AddSchema(ctx, sdl); err != nil {
			return nil, fmt.Errorf("failed to register schema: %w", err)
		}
	}
	s := New(c, logger)
	s.logger.Info("defra storage ready", "url", url)
	return s, nil
}

// New wraps a backend without registering schemas.
func New(db Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger, now: time.Now}
}

func (s *Store) Close() error { return nil }

func eq(v any) map[string]any { return map[string]any{"_eq": v} }

func byKey(key string) map[string]any { return map[string]any{"key": eq(key)} }

func (s *Store) findOne(ctx context.Context, collection, key string, fields []string) (map[string]any, error) {
	docs, err := s.db.Find(ctx, collection, byKey(key), fields)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", collection, key, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s %s: %w", collection, key, storage.ErrNotFound)
	}
	return docs[0], nil
}

// === Books ===

func (s *Store) GetBook(ctx context.Context, id string) (*storage.Book, error) {
	doc, err := s.findOne(ctx, colBook, id, bookFields)
	if err != nil {
		return nil, err
	}
	b := toBook(doc)
	return &b, nil
}

func (s *Store) CreateBook(ctx context.Context, b *storage.Book) error {
	created := b.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	update := map[string]any{
		"title":       b.Title,
		"author":      b.Author,
		"subject":     b.Subject,
		"total_pages": b.TotalPages,
	}
	create := map[string]any{"key": b.ID, "file_path": b.FilePath, "created_at": formatTime(created)}
	for k, v := range update {
		create[k] = v
	}
	if _, err := s.db.Upsert(ctx, colBook, byKey(b.ID), create, update); err != nil {
		return fmt.Errorf("failed to save book %s: %w", b.ID, err)
	}
	return nil
}

func (s *Store) ListBooks(ctx context.Context) ([]storage.Book, error) {
	docs, err := s.db.Find(ctx, colBook, nil, bookFields)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	out := make([]storage.Book, 0, len(docs))
	for _, d := range docs {
		out = append(out, toBook(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// === Chapters ===

func (s *Store) EnsureChapter(ctx context.Context, ch *storage.Chapter) error {
	if _, err := s.GetBook(ctx, ch.BookID); err != nil {
		return fmt.Errorf("chapter %s: %w", ch.ID, err)
	}
	same, err := s.db.Find(ctx, colChapter,
		map[string]any{"book_id": eq(ch.BookID), "number": eq(ch.Number)}, []string{"key"})
	if err != nil {
		return fmt.Errorf("failed to check chapter %s: %w", ch.ID, err)
	}
	for _, d := range same {
		if str(d, "key") != ch.ID {
			return fmt.Errorf("chapter %d of %s already exists as %s", ch.Number, ch.BookID, str(d, "key"))
		}
	}

	update := map[string]any{"book_id": ch.BookID}
	if ch.Title != "" {
		update["title"] = ch.Title
	}
	if ch.Description != "" {
		update["description"] = ch.Description
	}
	create := map[string]any{
		"key":         ch.ID,
		"book_id":     ch.BookID,
		"number":      ch.Number,
		"title":       ch.Title,
		"description": ch.Description,
	}
	if _, err := s.db.Upsert(ctx, colChapter, byKey(ch.ID), create, update); err != nil {
		return fmt.Errorf("failed to save chapter %s: %w", ch.ID, err)
	}
	return nil
}

func (s *Store) ListChapters(ctx context.Context, bookID string) ([]storage.Chapter, error) {
	docs, err := s.db.Find(ctx, colChapter, map[string]any{"book_id": eq(bookID)}, chapterFields)
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	out := make([]storage.Chapter, 0, len(docs))
	for _, d := range docs {
		out = append(out, storage.Chapter{
			ID:          str(d, "key"),
			BookID:      str(d, "book_id"),
			Number:      num(d, "number"),
			Title:       str(d, "title"),
			Description: str(d, "description"),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// === Pages ===

func (s *Store) GetPage(ctx context.Context, bookID string, pageNumber int) (*storage.Page, error) {
	doc, err := s.findOne(ctx, colPage, storage.PageID(bookID, pageNumber), pageFields)
	if err != nil {
		return nil, err
	}
	p := toPage(doc)
	return &p, nil
}

func (s *Store) GetOrCreatePage(ctx context.Context, bookID string, pageNumber int) (*storage.Page, error) {
	if p, err := s.GetPage(ctx, bookID, pageNumber); err == nil {
		return p, nil
	}

	if _, err := s.GetBook(ctx, bookID); err != nil {
		book := &storage.Book{ID: bookID, Title: bookID, FilePath: "resources/" + bookID + ".pdf"}
		if err := s.CreateBook(ctx, book); err != nil {
			return nil, err
		}
	}

	now := s.now()
	page := &storage.Page{
		ID:         storage.PageID(bookID, pageNumber),
		BookID:     bookID,
		PageNumber: pageNumber,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	create := map[string]any{
		"key":           page.ID,
		"book_id":       bookID,
		"page_number":   pageNumber,
		"ocr_text":      "",
		"has_problems":  false,
		"problem_count": 0,
		"created_at":    formatTime(now),
		"updated_at":    formatTime(now),
	}
	if _, err := s.db.Upsert(ctx, colPage, byKey(page.ID), create, map[string]any{"book_id": bookID}); err != nil {
		return nil, fmt.Errorf("failed to create page %s: %w", page.ID, err)
	}
	return page, nil
}

func (s *Store) UpdatePageOCR(ctx context.Context, pageID, text string, problemCount int) error {
	_, err := s.db.UpdateWhere(ctx, colPage, byKey(pageID), map[string]any{
		"ocr_text":      text,
		"has_problems":  problemCount > 0,
		"problem_count": problemCount,
		"updated_at":    formatTime(s.now()),
	})
	if err != nil {
		return fmt.Errorf("failed to update page %s: %w", pageID, err)
	}
	return nil
}

// === Problems ===

func (s *Store) DeleteProblemsByPage(ctx context.Context, pageID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parents, err := s.db.Find(ctx, colProblem, map[string]any{"page_id": eq(pageID)}, []string{"key"})
	if err != nil {
		return 0, fmt.Errorf("failed to list problems of page %s: %w", pageID, err)
	}
	if len(parents) == 0 {
		return 0, nil
	}
	parentKeys := keys(parents)

	subs, err := s.db.Find(ctx, colProblem, map[string]any{"parent_id": map[string]any{"_in": parentKeys}}, []string{"key"})
	if err != nil {
		return 0, fmt.Errorf("failed to list sub-problems of page %s: %w", pageID, err)
	}
	all := append(keys(subs), parentKeys...)
	if _, err := s.db.DeleteWhere(ctx, colSolution, map[string]any{"problem_id": map[string]any{"_in": all}}); err != nil {
		return 0, fmt.Errorf("failed to delete solutions of page %s: %w", pageID, err)
	}

	removed := 0
	if len(subs) > 0 {
		n, err := s.db.DeleteWhere(ctx, colProblem, map[string]any{"parent_id": map[string]any{"_in": parentKeys}})
		if err != nil {
			return 0, fmt.Errorf("failed to delete sub-problems of page %s: %w", pageID, err)
		}
		removed += n
	}
	n, err := s.db.DeleteWhere(ctx, colProblem, map[string]any{"page_id": eq(pageID)})
	if err != nil {
		return removed, fmt.Errorf("failed to delete problems of page %s: %w", pageID, err)
	}
	return removed + n, nil
}

func (s *Store) CreateOrUpdateProblems(ctx context.Context, problems []storage.Problem) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for i := range problems {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		if err := s.upsertProblem(ctx, &problems[i]); err != nil {
			s.logger.Warn("skipping problem", "id", problems[i].ID, "error", err)
			continue
		}
		count++
	}
	return count, nil
}

func (s *Store) upsertProblem(ctx context.Context, p *storage.Problem) error {
	if _, err := s.findOne(ctx, colChapter, p.ChapterID, []string{"key"}); err != nil {
		return err
	}
	if p.ParentID != "" {
		if _, err := s.findOne(ctx, colProblem, p.ParentID, []string{"key"}); err != nil {
			return err
		}
	}

	clash := map[string]any{"number": eq(p.Number), "parent_id": eq(p.ParentID)}
	if p.ParentID == "" {
		clash["chapter_id"] = eq(p.ChapterID)
	}
	same, err := s.db.Find(ctx, colProblem, clash, []string{"key"})
	if err != nil {
		return err
	}
	for _, d := range same {
		if str(d, "key") != p.ID {
			return fmt.Errorf("problem %s already stored as %s", p.Number, str(d, "key"))
		}
	}

	formulas, err := json.Marshal(nonNil(p.LatexFormulas))
	if err != nil {
		return err
	}
	update := map[string]any{
		"chapter_id":          p.ChapterID,
		"page_id":             p.PageID,
		"parent_id":           p.ParentID,
		"number":              p.Number,
		"display_name":        p.DisplayName,
		"content":             p.Content,
		"latex_formulas":      string(formulas),
		"page_number":         p.PageNumber,
		"difficulty":          p.Difficulty,
		"continues_from_page": optional(p.ContinuesFromPage),
		"continues_to_page":   optional(p.ContinuesToPage),
		"is_cross_page":       p.ContinuesFromPage != nil || p.ContinuesToPage != nil,
	}
	created := p.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	create := map[string]any{
		"key":          p.ID,
		"has_solution": p.HasSolution,
		"seq":          s.nextSeq(),
		"created_at":   formatTime(created),
	}
	for k, v := range update {
		create[k] = v
	}
	_, err = s.db.Upsert(ctx, colProblem, byKey(p.ID), create, update)
	return err
}

// nextSeq returns a strictly increasing insertion counter that survives
// restarts.
func (s *Store) nextSeq() int64 {
	n := s.now().UnixMicro()
	if n <= s.lastSeq {
		n = s.lastSeq + 1
	}
	s.lastSeq = n
	return n
}

func (s *Store) GetProblem(ctx context.Context, id string) (*storage.Problem, error) {
	doc, err := s.findOne(ctx, colProblem, id, problemFields)
	if err != nil {
		return nil, err
	}
	p := toProblem(doc)
	return &p, nil
}

func (s *Store) ListProblemsByChapter(ctx context.Context, chapterID string) ([]storage.Problem, error) {
	docs, err := s.db.Find(ctx, colProblem, map[string]any{"chapter_id": eq(chapterID)}, problemFields)
	if err != nil {
		return nil, fmt.Errorf("failed to list problems: %w", err)
	}
	return sortProblems(docs), nil
}

func (s *Store) SearchByFormula(ctx context.Context, query string, limit int) ([]storage.Problem, error) {
	docs, err := s.db.Find(ctx, colProblem,
		map[string]any{"latex_formulas": map[string]any{"_like": "%" + query + "%"}}, problemFields)
	if err != nil {
		return nil, fmt.Errorf("failed to search problems: %w", err)
	}
	out := sortProblems(docs)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortProblems(docs []map[string]any) []storage.Problem {
	seqs := make(map[string]int, len(docs))
	out := make([]storage.Problem, 0, len(docs))
	for _, d := range docs {
		p := toProblem(d)
		seqs[p.ID] = num(d, "seq")
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PageNumber != out[j].PageNumber {
			return out[i].PageNumber < out[j].PageNumber
		}
		return seqs[out[i].ID] < seqs[out[j].ID]
	})
	return out
}

func (s *Store) UpdateProblemSolutionStatus(ctx context.Context, problemID string, hasSolution bool) error {
	if _, err := s.db.UpdateWhere(ctx, colProblem, byKey(problemID), map[string]any{"has_solution": hasSolution}); err != nil {
		return fmt.Errorf("failed to update solution status of %s: %w", problemID, err)
	}
	return nil
}

// === Solutions ===

func (s *Store) SaveSolution(ctx context.Context, sol *storage.Solution) error {
	if _, err := s.findOne(ctx, colProblem, sol.ProblemID, []string{"key"}); err != nil {
		return err
	}
	formulas, err := json.Marshal(nonNil(sol.LatexFormulas))
	if err != nil {
		return err
	}
	now := s.now()
	created := sol.CreatedAt
	if created.IsZero() {
		created = now
	}

	key := sol.ProblemID + "|" + sol.Provider
	update := map[string]any{
		"content":        sol.Content,
		"latex_formulas": string(formulas),
		"updated_at":     formatTime(now),
	}
	create := map[string]any{
		"key":         key,
		"solution_id": sol.ID,
		"problem_id":  sol.ProblemID,
		"provider":    sol.Provider,
		"is_verified": sol.IsVerified,
		"rating":      optional(sol.Rating),
		"created_at":  formatTime(created),
	}
	for k, v := range update {
		create[k] = v
	}
	if _, err := s.db.Upsert(ctx, colSolution, byKey(key), create, update); err != nil {
		return fmt.Errorf("failed to save solution for %s: %w", sol.ProblemID, err)
	}
	return nil
}

func (s *Store) GetSolutionForProblem(ctx context.Context, problemID string) (*storage.Solution, error) {
	docs, err := s.db.Find(ctx, colSolution, map[string]any{"problem_id": eq(problemID)}, solutionFields)
	if err != nil {
		return nil, fmt.Errorf("failed to load solutions of %s: %w", problemID, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("solution for %s: %w", problemID, storage.ErrNotFound)
	}

	sols := make([]storage.Solution, 0, len(docs))
	for _, d := range docs {
		sols = append(sols, storage.Solution{
			ID:            str(d, "solution_id"),
			ProblemID:     str(d, "problem_id"),
			Provider:      str(d, "provider"),
			Content:       str(d, "content"),
			LatexFormulas: decodeFormulas(str(d, "latex_formulas")),
			IsVerified:    flag(d, "is_verified"),
			Rating:        optNum(d, "rating"),
			CreatedAt:     parseTime(str(d, "created_at")),
			UpdatedAt:     parseTime(str(d, "updated_at")),
		})
	}
	sort.SliceStable(sols, func(i, j int) bool {
		a, b := sols[i], sols[j]
		if a.IsVerified != b.IsVerified {
			return a.IsVerified
		}
		ra, rb := -1, -1
		if a.Rating != nil {
			ra = *a.Rating
		}
		if b.Rating != nil {
			rb = *b.Rating
		}
		if ra != rb {
			return ra > rb
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return &sols[0], nil
}
