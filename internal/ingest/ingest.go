// Package ingest registers textbook PDFs as books and renders the page
// preview images that OCR reads.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/problembook/internal/storage"
)

// ErrInvalidRequest marks an ingest request rejected before any work ran.
var ErrInvalidRequest = errors.New("invalid ingest request")

// BookStore is the part of storage ingest writes to.
type BookStore interface {
	GetBook(ctx context.Context, id string) (*storage.Book, error)
	CreateBook(ctx context.Context, book *storage.Book) error
}

// Layout resolves where book files live.
type Layout interface {
	PreviewDir() string
	BookPDFPath(bookID string) string
	PreviewImagePath(bookID string, pageNum int) string
}

// PageRenderer renders one PDF page to a PNG file.
type PageRenderer interface {
	RenderPage(ctx context.Context, pdfPath string, page int, dst string) error
}

// Config configures a Service.
type Config struct {
	Books  BookStore
	Layout Layout
	// Renderer defaults to pdftoppm at 300 DPI.
	Renderer PageRenderer
	// CountPages defaults to pdfcpu.
	CountPages func(pdfPath string) (int, error)
	// Concurrency bounds parallel renders. Defaults to the CPU count.
	Concurrency int
	Logger      *slog.Logger
}

// Service ingests PDFs and renders previews.
type Service struct {
	books       BookStore
	layout      Layout
	renderer    PageRenderer
	countPages  func(string) (int, error)
	concurrency int
	logger      *slog.Logger
}

// New creates a Service.
func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Renderer == nil {
		cfg.Renderer = Pdftoppm{}
	}
	if cfg.CountPages == nil {
		cfg.CountPages = pdfPageCount
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	return &Service{
		books:       cfg.Books,
		layout:      cfg.Layout,
		renderer:    cfg.Renderer,
		countPages:  cfg.CountPages,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}
}

// Request contains the parameters for ingesting a textbook.
type Request struct {
	PDFPath string `json:"pdf_path"`
	BookID  string `json:"book_id,omitempty"` // derived from the filename if empty
	Title   string `json:"title,omitempty"`   // derived from the book id if empty
	Author  string `json:"author,omitempty"`
	Subject string `json:"subject,omitempty"`
	// RenderPreviews renders every page after registering the book.
	RenderPreviews bool `json:"render_previews,omitempty"`
}

// Result describes an ingested book.
type Result struct {
	BookID    string `json:"book_id"`
	Title     string `json:"title"`
	Author    string `json:"author,omitempty"`
	FilePath  string `json:"file_path"`
	PageCount int    `json:"page_count"`
	Rendered  int    `json:"rendered"`
}

// Ingest copies the PDF into the resources directory, counts its pages and
// registers the book. Re-ingesting an existing id updates the record.
func (s *Service) Ingest(ctx context.Context, req Request) (*Result, error) {
	if req.PDFPath == "" {
		return nil, fmt.Errorf("%w: pdf_path is required", ErrInvalidRequest)
	}
	if _, err := os.Stat(req.PDFPath); err != nil {
		return nil, fmt.Errorf("%w: PDF not found: %s", ErrInvalidRequest, req.PDFPath)
	}

	bookID := req.BookID
	if bookID == "" {
		bookID = deriveBookID(req.PDFPath)
	}
	if bookID == "" || strings.ContainsAny(bookID, ":/\\") {
		return nil, fmt.Errorf("%w: invalid book id %q", ErrInvalidRequest, bookID)
	}
	title := req.Title
	if title == "" {
		title = deriveTitle(bookID)
	}
	log := s.logger.With("book_id", bookID)

	pageCount, err := s.countPages(req.PDFPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("%w: PDF has no pages", ErrInvalidRequest)
	}

	dst := s.layout.BookPDFPath(bookID)
	if err := copyIfDifferent(req.PDFPath, dst); err != nil {
		return nil, fmt.Errorf("failed to store PDF: %w", err)
	}

	book := &storage.Book{
		ID:         bookID,
		Title:      title,
		Author:     req.Author,
		Subject:    req.Subject,
		FilePath:   dst,
		TotalPages: pageCount,
	}
	if err := s.books.CreateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to create book record: %w", err)
	}
	log.Info("book registered", "pages", pageCount, "file", dst)

	res := &Result{
		BookID:    bookID,
		Title:     title,
		Author:    req.Author,
		FilePath:  dst,
		PageCount: pageCount,
	}
	if req.RenderPreviews {
		n, err := s.RenderPreviews(ctx, bookID, 1, pageCount, false)
		res.Rendered = n
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// RenderPreviews renders pages [start, end] of a registered book into the
// preview directory and returns how many images were written. Existing
// images are kept unless force is set. The range is clamped to the book.
func (s *Service) RenderPreviews(ctx context.Context, bookID string, start, end int, force bool) (int, error) {
	book, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		return 0, fmt.Errorf("book %s: %w", bookID, err)
	}
	start = max(start, 1)
	if book.TotalPages > 0 {
		end = min(end, book.TotalPages)
	}
	if end < start {
		return 0, fmt.Errorf("%w: empty page range %d-%d", ErrInvalidRequest, start, end)
	}
	if err := os.MkdirAll(s.layout.PreviewDir(), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create preview directory: %w", err)
	}

	var rendered atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for page := start; page <= end; page++ {
		dst := s.layout.PreviewImagePath(bookID, page)
		if !force {
			if _, err := os.Stat(dst); err == nil {
				continue
			}
		}
		g.Go(func() error {
			if err := s.renderer.RenderPage(gctx, book.FilePath, page, dst); err != nil {
				return fmt.Errorf("failed to render page %d: %w", page, err)
			}
			rendered.Add(1)
			return nil
		})
	}
	err = g.Wait()

	n := int(rendered.Load())
	s.logger.Info("previews rendered", "book_id", bookID, "start", start, "end", end, "rendered", n)
	return n, err
}

func pdfPageCount(pdfPath string) (int, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()
	return api.PageCount(f, nil)
}

func copyIfDifferent(src, dst string) error {
	srcAbs, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	dstAbs, err := filepath.Abs(dst)
	if err != nil {
		return err
	}
	if srcAbs == dstAbs {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

// deriveBookID extracts a book id from a PDF filename.
// e.g., "algebra-7.pdf" -> "algebra-7"
// e.g., "/books/Geometry 9.pdf" -> "geometry-9"
func deriveBookID(pdfPath string) string {
	base := filepath.Base(pdfPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.Join(strings.Fields(name), "-")
	return strings.Trim(name, "-.")
}

// deriveTitle turns a book id into a display title.
// e.g., "algebra-7" -> "Algebra 7"
func deriveTitle(bookID string) string {
	words := strings.FieldsFunc(bookID, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
