// Package memory is an in-process Storage used by tests and by the server
// when no database is configured.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackzampolin/problembook/internal/storage"
)

type problemRow struct {
	storage.Problem
	seq int64
}

// Store keeps every record in maps guarded by one mutex. It enforces the same
// uniqueness rules as the SQL backend.
type Store struct {
	logger *slog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	seq       int64
	books     map[string]storage.Book
	chapters  map[string]storage.Chapter
	pages     map[string]storage.Page
	problems  map[string]*problemRow
	solutions map[string]storage.Solution // keyed by problem id + provider
}

var _ storage.Storage = (*Store)(nil)

// New creates an empty store.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger:    logger,
		now:       time.Now,
		books:     make(map[string]storage.Book),
		chapters:  make(map[string]storage.Chapter),
		pages:     make(map[string]storage.Page),
		problems:  make(map[string]*problemRow),
		solutions: make(map[string]storage.Solution),
	}
}

func (s *Store) GetBook(ctx context.Context, id string) (*storage.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &b, nil
}

func (s *Store) CreateBook(ctx context.Context, book *storage.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createBookLocked(*book)
	return nil
}

func (s *Store) createBookLocked(book storage.Book) {
	if existing, ok := s.books[book.ID]; ok {
		existing.Title = book.Title
		existing.Author = book.Author
		existing.Subject = book.Subject
		existing.TotalPages = book.TotalPages
		s.books[book.ID] = existing
		return
	}
	if book.CreatedAt.IsZero() {
		book.CreatedAt = s.now()
	}
	s.books[book.ID] = book
}

func (s *Store) ListBooks(ctx context.Context) ([]storage.Book, error) {
	s.mu.RLock()
	out := make([]storage.Book, 0, len(s.books))
	for _, b := range s.books {
		out = append(out, b)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) EnsureChapter(ctx context.Context, ch *storage.Chapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[ch.BookID]; !ok {
		return fmt.Errorf("chapter %s: book %s: %w", ch.ID, ch.BookID, storage.ErrNotFound)
	}
	if existing, ok := s.chapters[ch.ID]; ok {
		if ch.Title != "" {
			existing.Title = ch.Title
		}
		if ch.Description != "" {
			existing.Description = ch.Description
		}
		s.chapters[ch.ID] = existing
		return nil
	}
	for _, other := range s.chapters {
		if other.BookID == ch.BookID && other.Number == ch.Number {
			return fmt.Errorf("chapter %d of %s already exists as %s", ch.Number, ch.BookID, other.ID)
		}
	}
	s.chapters[ch.ID] = *ch
	return nil
}

func (s *Store) ListChapters(ctx context.Context, bookID string) ([]storage.Chapter, error) {
	s.mu.RLock()
	var out []storage.Chapter
	for _, c := range s.chapters {
		if c.BookID == bookID {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *Store) GetPage(ctx context.Context, bookID string, pageNumber int) (*storage.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pages[storage.PageID(bookID, pageNumber)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

func (s *Store) GetOrCreatePage(ctx context.Context, bookID string, pageNumber int) (*storage.Page, error) {
	id := storage.PageID(bookID, pageNumber)

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pages[id]; ok {
		return &p, nil
	}
	if _, ok := s.books[bookID]; !ok {
		s.createBookLocked(storage.Book{ID: bookID, Title: bookID, FilePath: "resources/" + bookID + ".pdf"})
	}
	now := s.now()
	p := storage.Page{ID: id, BookID: bookID, PageNumber: pageNumber, CreatedAt: now, UpdatedAt: now}
	s.pages[id] = p
	return &p, nil
}

func (s *Store) UpdatePageOCR(ctx context.Context, pageID, text string, problemCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[pageID]
	if !ok {
		return nil
	}
	p.OCRText = text
	p.ProblemCount = problemCount
	p.HasProblems = problemCount > 0
	p.UpdatedAt = s.now()
	s.pages[pageID] = p
	return nil
}

func (s *Store) DeleteProblemsByPage(ctx context.Context, pageID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parents := make(map[string]bool)
	for id, p := range s.problems {
		if p.PageID == pageID {
			parents[id] = true
		}
	}
	removed := 0
	for id, p := range s.problems {
		if p.ParentID != "" && parents[p.ParentID] {
			s.deleteProblemLocked(id)
			removed++
		}
	}
	for id, p := range s.problems {
		if p.PageID == pageID {
			s.deleteProblemLocked(id)
			removed++
		}
	}
	return removed, nil
}

// deleteProblemLocked cascades to solutions, mirroring the SQL foreign keys.
func (s *Store) deleteProblemLocked(id string) {
	delete(s.problems, id)
	for key, sol := range s.solutions {
		if sol.ProblemID == id {
			delete(s.solutions, key)
		}
	}
}

func (s *Store) CreateOrUpdateProblems(ctx context.Context, problems []storage.Problem) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, p := range problems {
		if err := s.upsertProblemLocked(p); err != nil {
			s.logger.Warn("skipping problem", "id", p.ID, "error", err)
			continue
		}
		count++
	}
	return count, nil
}

func (s *Store) upsertProblemLocked(p storage.Problem) error {
	if _, ok := s.chapters[p.ChapterID]; !ok {
		return fmt.Errorf("chapter %s: %w", p.ChapterID, storage.ErrNotFound)
	}
	if p.ParentID != "" {
		if _, ok := s.problems[p.ParentID]; !ok {
			return fmt.Errorf("parent %s: %w", p.ParentID, storage.ErrNotFound)
		}
	}
	for id, other := range s.problems {
		if id == p.ID || other.Number != p.Number {
			continue
		}
		if p.ParentID == "" && other.ParentID == "" && other.ChapterID == p.ChapterID {
			return fmt.Errorf("problem %s already exists in chapter %s as %s", p.Number, p.ChapterID, id)
		}
		if p.ParentID != "" && other.ParentID == p.ParentID {
			return fmt.Errorf("sub-problem %s already exists under %s as %s", p.Number, p.ParentID, id)
		}
	}

	p.LatexFormulas = append([]string(nil), p.LatexFormulas...)
	p.IsCrossPage = p.ContinuesFromPage != nil || p.ContinuesToPage != nil
	if existing, ok := s.problems[p.ID]; ok {
		p.HasSolution = existing.HasSolution
		p.CreatedAt = existing.CreatedAt
		existing.Problem = p
		return nil
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.seq++
	s.problems[p.ID] = &problemRow{Problem: p, seq: s.seq}
	return nil
}

func (s *Store) GetProblem(ctx context.Context, id string) (*storage.Problem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.problems[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := p.Problem
	return &out, nil
}

func (s *Store) ListProblemsByChapter(ctx context.Context, chapterID string) ([]storage.Problem, error) {
	s.mu.RLock()
	var rows []*problemRow
	for _, p := range s.problems {
		if p.ChapterID == chapterID {
			rows = append(rows, p)
		}
	}
	s.mu.RUnlock()
	return sortRows(rows), nil
}

func (s *Store) SearchByFormula(ctx context.Context, query string, limit int) ([]storage.Problem, error) {
	query = strings.TrimSpace(query)
	s.mu.RLock()
	var rows []*problemRow
	for _, p := range s.problems {
		for _, f := range p.LatexFormulas {
			if strings.Contains(f, query) {
				rows = append(rows, p)
				break
			}
		}
	}
	s.mu.RUnlock()

	out := sortRows(rows)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortRows(rows []*problemRow) []storage.Problem {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].PageNumber != rows[j].PageNumber {
			return rows[i].PageNumber < rows[j].PageNumber
		}
		return rows[i].seq < rows[j].seq
	})
	out := make([]storage.Problem, len(rows))
	for i, r := range rows {
		out[i] = r.Problem
	}
	return out
}

func (s *Store) UpdateProblemSolutionStatus(ctx context.Context, problemID string, hasSolution bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.problems[problemID]; ok {
		p.HasSolution = hasSolution
	}
	return nil
}

func (s *Store) SaveSolution(ctx context.Context, sol *storage.Solution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.problems[sol.ProblemID]; !ok {
		return fmt.Errorf("problem %s: %w", sol.ProblemID, storage.ErrNotFound)
	}

	key := sol.ProblemID + "\x00" + sol.Provider
	now := s.now()
	if existing, ok := s.solutions[key]; ok {
		existing.Content = sol.Content
		existing.LatexFormulas = append([]string(nil), sol.LatexFormulas...)
		existing.UpdatedAt = now
		s.solutions[key] = existing
		return nil
	}
	stored := *sol
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = now
	}
	s.solutions[key] = stored
	return nil
}

func (s *Store) GetSolutionForProblem(ctx context.Context, problemID string) (*storage.Solution, error) {
	s.mu.RLock()
	var candidates []storage.Solution
	for _, sol := range s.solutions {
		if sol.ProblemID == problemID {
			candidates = append(candidates, sol)
		}
	}
	s.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, storage.ErrNotFound
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
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
	return &candidates[0], nil
}

func (s *Store) Close() error { return nil }
