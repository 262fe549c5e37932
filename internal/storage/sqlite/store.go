// Package sqlite implements storage.Storage on SQLite through the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jackzampolin/problembook/internal/storage"
)

// Store is a SQLite-backed storage.Storage.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ storage.Storage = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	s := New(db, logger)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s.logger.Info("database opened", "path", path)
	return s, nil
}

// New wraps an existing handle without touching the schema.
func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger, now: time.Now}
}

// Migrate applies the schema.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// === Books ===

const bookColumns = "id, title, author, subject, file_path, total_pages, created_at"

func (s *Store) GetBook(ctx context.Context, id string) (*storage.Book, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+bookColumns+" FROM books WHERE id = ?", id)
	b, err := scanBook(row)
	if err != nil {
		return nil, notFound(err, "book "+id)
	}
	return b, nil
}

func (s *Store) CreateBook(ctx context.Context, b *storage.Book) error {
	created := b.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (id, title, author, subject, file_path, total_pages, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			subject = excluded.subject,
			total_pages = excluded.total_pages`,
		b.ID, b.Title, nullString(b.Author), nullString(b.Subject), b.FilePath, b.TotalPages, formatTime(created))
	if err != nil {
		return fmt.Errorf("failed to save book %s: %w", b.ID, err)
	}
	return nil
}

func (s *Store) ListBooks(ctx context.Context) ([]storage.Book, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+bookColumns+" FROM books ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var out []storage.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// === Chapters ===

func (s *Store) EnsureChapter(ctx context.Context, ch *storage.Chapter) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chapters (id, book_id, number, title, description)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = CASE WHEN excluded.title = '' THEN chapters.title ELSE excluded.title END,
			description = COALESCE(excluded.description, chapters.description)`,
		ch.ID, ch.BookID, ch.Number, ch.Title, nullString(ch.Description))
	if err != nil {
		return fmt.Errorf("failed to save chapter %s: %w", ch.ID, err)
	}
	return nil
}

func (s *Store) ListChapters(ctx context.Context, bookID string) ([]storage.Chapter, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, book_id, number, title, description FROM chapters WHERE book_id = ? ORDER BY number", bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	defer rows.Close()

	var out []storage.Chapter
	for rows.Next() {
		var c storage.Chapter
		var desc sql.NullString
		if err := rows.Scan(&c.ID, &c.BookID, &c.Number, &c.Title, &desc); err != nil {
			return nil, fmt.Errorf("failed to scan chapter: %w", err)
		}
		c.Description = desc.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// === Pages ===

const pageColumns = "id, book_id, page_number, ocr_text, has_problems, problem_count, created_at, updated_at"

func (s *Store) GetPage(ctx context.Context, bookID string, pageNumber int) (*storage.Page, error) {
	id := storage.PageID(bookID, pageNumber)
	row := s.db.QueryRowContext(ctx, "SELECT "+pageColumns+" FROM pages WHERE id = ?", id)
	p, err := scanPage(row)
	if err != nil {
		return nil, notFound(err, "page "+id)
	}
	return p, nil
}

func (s *Store) GetOrCreatePage(ctx context.Context, bookID string, pageNumber int) (*storage.Page, error) {
	p, err := s.GetPage(ctx, bookID, pageNumber)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	if _, err := s.GetBook(ctx, bookID); errors.Is(err, storage.ErrNotFound) {
		book := &storage.Book{ID: bookID, Title: bookID, FilePath: "resources/" + bookID + ".pdf"}
		if err := s.CreateBook(ctx, book); err != nil {
			s.logger.Debug("book may already exist", "book_id", bookID, "error", err)
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
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pages (id, book_id, page_number, ocr_text, has_problems, problem_count, created_at, updated_at)
		VALUES (?, ?, ?, NULL, FALSE, 0, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		page.ID, bookID, pageNumber, formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to create page %s: %w", page.ID, err)
	}
	return page, nil
}

func (s *Store) UpdatePageOCR(ctx context.Context, pageID, text string, problemCount int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE pages SET ocr_text = ?, has_problems = ?, problem_count = ?, updated_at = ? WHERE id = ?",
		text, problemCount > 0, problemCount, formatTime(s.now()), pageID)
	if err != nil {
		return fmt.Errorf("failed to update page %s: %w", pageID, err)
	}
	return nil
}

// === Problems ===

const problemColumns = `id, chapter_id, page_id, parent_id, number, display_name, content, latex_formulas,
	page_number, difficulty, has_solution, continues_from_page, continues_to_page, is_cross_page, created_at`

func (s *Store) DeleteProblemsByPage(ctx context.Context, pageID string) (int, error) {
	// Sub-problems reference their parents, so they go first.
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM problems WHERE parent_id IN (SELECT id FROM problems WHERE page_id = ?)", pageID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sub-problems of page %s: %w", pageID, err)
	}
	subs, _ := res.RowsAffected()

	res, err = s.db.ExecContext(ctx, "DELETE FROM problems WHERE page_id = ?", pageID)
	if err != nil {
		return int(subs), fmt.Errorf("failed to delete problems of page %s: %w", pageID, err)
	}
	parents, _ := res.RowsAffected()
	return int(subs + parents), nil
}

func (s *Store) CreateOrUpdateProblems(ctx context.Context, problems []storage.Problem) (int, error) {
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
	formulas, err := json.Marshal(nonNil(p.LatexFormulas))
	if err != nil {
		return fmt.Errorf("failed to encode formulas: %w", err)
	}
	created := p.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	cross := p.ContinuesFromPage != nil || p.ContinuesToPage != nil

	// has_solution and created_at survive re-parsing.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO problems (`+problemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			chapter_id = excluded.chapter_id,
			page_id = excluded.page_id,
			parent_id = excluded.parent_id,
			number = excluded.number,
			display_name = excluded.display_name,
			content = excluded.content,
			latex_formulas = excluded.latex_formulas,
			page_number = excluded.page_number,
			difficulty = excluded.difficulty,
			continues_from_page = excluded.continues_from_page,
			continues_to_page = excluded.continues_to_page,
			is_cross_page = excluded.is_cross_page`,
		p.ID, p.ChapterID, nullString(p.PageID), nullString(p.ParentID), p.Number, p.DisplayName, p.Content,
		string(formulas), nullInt(p.PageNumber), nullInt(p.Difficulty), p.HasSolution,
		nullIntPtr(p.ContinuesFromPage), nullIntPtr(p.ContinuesToPage), cross, formatTime(created))
	return err
}

func (s *Store) GetProblem(ctx context.Context, id string) (*storage.Problem, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+problemColumns+" FROM problems WHERE id = ?", id)
	p, err := scanProblem(row)
	if err != nil {
		return nil, notFound(err, "problem "+id)
	}
	return p, nil
}

func (s *Store) ListProblemsByChapter(ctx context.Context, chapterID string) ([]storage.Problem, error) {
	return s.queryProblems(ctx,
		"SELECT "+problemColumns+" FROM problems WHERE chapter_id = ? ORDER BY COALESCE(page_number, 0), rowid",
		chapterID)
}

func (s *Store) SearchByFormula(ctx context.Context, query string, limit int) ([]storage.Problem, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryProblems(ctx,
		"SELECT "+problemColumns+" FROM problems WHERE latex_formulas LIKE ? ORDER BY COALESCE(page_number, 0), rowid LIMIT ?",
		"%"+query+"%", limit)
}

func (s *Store) queryProblems(ctx context.Context, q string, args ...any) ([]storage.Problem, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query problems: %w", err)
	}
	defer rows.Close()

	var out []storage.Problem
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateProblemSolutionStatus(ctx context.Context, problemID string, hasSolution bool) error {
	_, err := s.db.ExecContext(ctx, "UPDATE problems SET has_solution = ? WHERE id = ?", hasSolution, problemID)
	if err != nil {
		return fmt.Errorf("failed to update solution status of %s: %w", problemID, err)
	}
	return nil
}

// === Solutions ===

func (s *Store) SaveSolution(ctx context.Context, sol *storage.Solution) error {
	formulas, err := json.Marshal(nonNil(sol.LatexFormulas))
	if err != nil {
		return fmt.Errorf("failed to encode formulas: %w", err)
	}
	now := s.now()
	created, updated := sol.CreatedAt, sol.UpdatedAt
	if created.IsZero() {
		created = now
	}
	if updated.IsZero() {
		updated = now
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO solutions (id, problem_id, provider, content, latex_formulas, is_verified, rating, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(problem_id, provider) DO UPDATE SET
			content = excluded.content,
			latex_formulas = excluded.latex_formulas,
			updated_at = excluded.updated_at`,
		sol.ID, sol.ProblemID, sol.Provider, sol.Content, string(formulas), sol.IsVerified,
		nullIntPtr(sol.Rating), formatTime(created), formatTime(updated))
	if err != nil {
		return fmt.Errorf("failed to save solution for %s: %w", sol.ProblemID, err)
	}
	return nil
}

func (s *Store) GetSolutionForProblem(ctx context.Context, problemID string) (*storage.Solution, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, problem_id, provider, content, latex_formulas, is_verified, rating, created_at, updated_at
		FROM solutions
		WHERE problem_id = ?
		ORDER BY is_verified DESC, rating DESC NULLS LAST, created_at DESC
		LIMIT 1`, problemID)

	var sol storage.Solution
	var formulas sql.NullString
	var rating sql.NullInt64
	var created, updated string
	err := row.Scan(&sol.ID, &sol.ProblemID, &sol.Provider, &sol.Content, &formulas,
		&sol.IsVerified, &rating, &created, &updated)
	if err != nil {
		return nil, notFound(err, "solution for "+problemID)
	}
	sol.LatexFormulas = decodeFormulas(formulas)
	if rating.Valid {
		r := int(rating.Int64)
		sol.Rating = &r
	}
	sol.CreatedAt = parseTime(created)
	sol.UpdatedAt = parseTime(updated)
	return &sol, nil
}

// === Scanning ===

type scanner interface {
	Scan(dest ...any) error
}

func scanBook(row scanner) (*storage.Book, error) {
	var b storage.Book
	var author, subject sql.NullString
	var created string
	if err := row.Scan(&b.ID, &b.Title, &author, &subject, &b.FilePath, &b.TotalPages, &created); err != nil {
		return nil, err
	}
	b.Author, b.Subject = author.String, subject.String
	b.CreatedAt = parseTime(created)
	return &b, nil
}

func scanPage(row scanner) (*storage.Page, error) {
	var p storage.Page
	var text sql.NullString
	var created, updated string
	if err := row.Scan(&p.ID, &p.BookID, &p.PageNumber, &text, &p.HasProblems, &p.ProblemCount, &created, &updated); err != nil {
		return nil, err
	}
	p.OCRText = text.String
	p.CreatedAt, p.UpdatedAt = parseTime(created), parseTime(updated)
	return &p, nil
}

func scanProblem(row scanner) (*storage.Problem, error) {
	var p storage.Problem
	var pageID, parentID, formulas sql.NullString
	var pageNum, difficulty, from, to sql.NullInt64
	var created string
	err := row.Scan(&p.ID, &p.ChapterID, &pageID, &parentID, &p.Number, &p.DisplayName, &p.Content, &formulas,
		&pageNum, &difficulty, &p.HasSolution, &from, &to, &p.IsCrossPage, &created)
	if err != nil {
		return nil, err
	}
	p.PageID, p.ParentID = pageID.String, parentID.String
	p.LatexFormulas = decodeFormulas(formulas)
	p.PageNumber, p.Difficulty = int(pageNum.Int64), int(difficulty.Int64)
	p.ContinuesFromPage, p.ContinuesToPage = intPtr(from), intPtr(to)
	p.CreatedAt = parseTime(created)
	return &p, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

func decodeFormulas(v sql.NullString) []string {
	out := []string{}
	if v.Valid && v.String != "" {
		_ = json.Unmarshal([]byte(v.String), &out)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func nullIntPtr(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
