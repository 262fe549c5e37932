// Package storage defines the persistence contract for books, pages,
// problems and solutions, plus the identifier scheme shared by every backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Book is a registered textbook.
type Book struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	FilePath   string    `json:"file_path"`
	TotalPages int       `json:"total_pages"`
	CreatedAt  time.Time `json:"created_at"`
}

// Chapter groups problems inside a book.
type Chapter struct {
	ID          string `json:"id"`
	BookID      string `json:"book_id"`
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Page is the stored OCR record for one page of a book.
type Page struct {
	ID           string    `json:"id"`
	BookID       string    `json:"book_id"`
	PageNumber   int       `json:"page_number"`
	OCRText      string    `json:"ocr_text"`
	HasProblems  bool      `json:"has_problems"`
	ProblemCount int       `json:"problem_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Problem is a persisted exercise. Sub-problems carry ParentID and use their
// letter as Number.
type Problem struct {
	ID                string    `json:"id"`
	ChapterID         string    `json:"chapter_id"`
	PageID            string    `json:"page_id,omitempty"`
	ParentID          string    `json:"parent_id,omitempty"`
	Number            string    `json:"number"`
	DisplayName       string    `json:"display_name"`
	Content           string    `json:"content"`
	LatexFormulas     []string  `json:"latex_formulas"`
	PageNumber        int       `json:"page_number,omitempty"`
	Difficulty        int       `json:"difficulty,omitempty"`
	HasSolution       bool      `json:"has_solution"`
	ContinuesFromPage *int      `json:"continues_from_page,omitempty"`
	ContinuesToPage   *int      `json:"continues_to_page,omitempty"`
	IsCrossPage       bool      `json:"is_cross_page"`
	CreatedAt         time.Time `json:"created_at"`
}

// IsSubProblem reports whether p belongs to a parent problem.
func (p *Problem) IsSubProblem() bool { return p.ParentID != "" }

// Solution is an AI or user provided answer to a problem. At most one
// solution is kept per (problem, provider).
type Solution struct {
	ID            string    `json:"id"`
	ProblemID     string    `json:"problem_id"`
	Provider      string    `json:"provider"`
	Content       string    `json:"content"`
	LatexFormulas []string  `json:"latex_formulas"`
	IsVerified    bool      `json:"is_verified"`
	Rating        *int      `json:"rating,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Storage is the persistence contract consumed by the batch pipelines,
// export and the HTTP surface.
type Storage interface {
	GetBook(ctx context.Context, id string) (*Book, error)
	CreateBook(ctx context.Context, book *Book) error
	ListBooks(ctx context.Context) ([]Book, error)

	EnsureChapter(ctx context.Context, chapter *Chapter) error
	ListChapters(ctx context.Context, bookID string) ([]Chapter, error)

	// GetPage returns ErrNotFound when the page was never created.
	GetPage(ctx context.Context, bookID string, pageNumber int) (*Page, error)
	// GetOrCreatePage creates the owning book on demand.
	GetOrCreatePage(ctx context.Context, bookID string, pageNumber int) (*Page, error)
	UpdatePageOCR(ctx context.Context, pageID, text string, problemCount int) error

	// DeleteProblemsByPage removes every problem attributed to the page,
	// sub-problems included, and returns how many rows were removed.
	DeleteProblemsByPage(ctx context.Context, pageID string) (int, error)
	// CreateOrUpdateProblems upserts by id and returns how many rows were
	// written. A conflicting row is logged and skipped.
	CreateOrUpdateProblems(ctx context.Context, problems []Problem) (int, error)
	GetProblem(ctx context.Context, id string) (*Problem, error)
	// ListProblemsByChapter returns top-level problems and sub-problems in
	// insertion order, each sub-problem after its parent.
	ListProblemsByChapter(ctx context.Context, chapterID string) ([]Problem, error)
	SearchByFormula(ctx context.Context, query string, limit int) ([]Problem, error)
	UpdateProblemSolutionStatus(ctx context.Context, problemID string, hasSolution bool) error

	SaveSolution(ctx context.Context, solution *Solution) error
	// GetSolutionForProblem prefers verified, then highest rated, then newest.
	GetSolutionForProblem(ctx context.Context, problemID string) (*Solution, error)

	Close() error
}

// PageID returns the identifier of a book page.
func PageID(bookID string, pageNumber int) string {
	return fmt.Sprintf("%s:page:%d", bookID, pageNumber)
}

// ProblemID returns the identifier of a top-level problem.
func ProblemID(bookID string, chapterNumber int, number string) string {
	return fmt.Sprintf("%s:%d:%s", bookID, chapterNumber, number)
}

// SubProblemID returns the identifier of a lettered sub-problem.
func SubProblemID(parentID, letter string) string {
	return parentID + ":" + letter
}

// NewSolutionID returns a fresh solution identifier for the problem.
func NewSolutionID(problemID string) string {
	return problemID + ":S:" + uuid.New().String()
}

// ChapterNumber extracts the chapter number from the last ':' segment of a
// chapter id, defaulting to 1.
func ChapterNumber(chapterID string) int {
	seg := chapterID
	if i := strings.LastIndex(chapterID, ":"); i >= 0 {
		seg = chapterID[i+1:]
	}
	n, err := strconv.Atoi(strings.TrimSpace(seg))
	if err != nil || n < 0 {
		return 1
	}
	return n
}

// ChapterID returns the conventional chapter identifier.
func ChapterID(bookID string, number int) string {
	return fmt.Sprintf("%s:%d", bookID, number)
}
