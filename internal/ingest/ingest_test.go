package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jackzampolin/problembook/internal/home"
	"github.com/jackzampolin/problembook/internal/storage/memory"
)

type fakeRenderer struct {
	mu    sync.Mutex
	pages []int
	fail  int
}

func (f *fakeRenderer) RenderPage(ctx context.Context, pdfPath string, page int, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if page == f.fail {
		return errors.New("corrupt page")
	}
	f.pages = append(f.pages, page)
	return os.WriteFile(dst, []byte(fmt.Sprintf("png %d", page)), 0o644)
}

func newService(t *testing.T, pages int) (*Service, *memory.Store, *home.Dir, *fakeRenderer) {
	t.Helper()
	root := t.TempDir()
	dir, err := home.New(filepath.Join(root, "home"), home.Layout{ResourcesDir: filepath.Join(root, "resources")})
	if err != nil {
		t.Fatal(err)
	}
	store := memory.New(nil)
	r := &fakeRenderer{}
	svc := New(Config{
		Books:      store,
		Layout:     dir,
		Renderer:   r,
		CountPages: func(string) (int, error) { return pages, nil },
	})
	return svc, store, dir, r
}

func writePDF(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIngest(t *testing.T) {
	svc, store, dir, r := newService(t, 3)
	src := writePDF(t, "algebra-7.pdf")

	res, err := svc.Ingest(context.Background(), Request{PDFPath: src, Author: "Макарычев", RenderPreviews: true})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.BookID != "algebra-7" || res.Title != "Algebra 7" || res.PageCount != 3 || res.Rendered != 3 {
		t.Errorf("result = %+v", res)
	}
	if res.FilePath != dir.BookPDFPath("algebra-7") {
		t.Errorf("file path = %s", res.FilePath)
	}
	if _, err := os.Stat(res.FilePath); err != nil {
		t.Errorf("PDF not copied: %v", err)
	}

	book, err := store.GetBook(context.Background(), "algebra-7")
	if err != nil {
		t.Fatal(err)
	}
	if book.TotalPages != 3 || book.Author != "Макарычев" {
		t.Errorf("book = %+v", book)
	}
	for page := 1; page <= 3; page++ {
		if _, err := os.Stat(dir.PreviewImagePath("algebra-7", page)); err != nil {
			t.Errorf("preview %d missing: %v", page, err)
		}
	}
	if len(r.pages) != 3 {
		t.Errorf("rendered pages = %v", r.pages)
	}
}

func TestIngest_Rejected(t *testing.T) {
	tests := []struct {
		name string
		req  func(t *testing.T) Request
	}{
		{"missing path", func(t *testing.T) Request { return Request{} }},
		{"missing file", func(t *testing.T) Request { return Request{PDFPath: "/nonexistent/book.pdf"} }},
		{"bad book id", func(t *testing.T) Request {
			return Request{PDFPath: writePDF(t, "x.pdf"), BookID: "a:b"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _, _ := newService(t, 1)
			if _, err := svc.Ingest(context.Background(), tt.req(t)); !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("error = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestRenderPreviews(t *testing.T) {
	svc, _, dir, r := newService(t, 5)
	ctx := context.Background()
	if _, err := svc.Ingest(ctx, Request{PDFPath: writePDF(t, "geometry-9.pdf")}); err != nil {
		t.Fatal(err)
	}

	t.Run("clamps to the book", func(t *testing.T) {
		n, err := svc.RenderPreviews(ctx, "geometry-9", 4, 99, false)
		if err != nil || n != 2 {
			t.Errorf("RenderPreviews = %d, %v; want 2", n, err)
		}
	})

	t.Run("skips existing", func(t *testing.T) {
		n, err := svc.RenderPreviews(ctx, "geometry-9", 1, 5, false)
		if err != nil || n != 3 {
			t.Errorf("RenderPreviews = %d, %v; want 3", n, err)
		}
	})

	t.Run("force re-renders", func(t *testing.T) {
		n, err := svc.RenderPreviews(ctx, "geometry-9", 5, 5, true)
		if err != nil || n != 1 {
			t.Errorf("RenderPreviews = %d, %v; want 1", n, err)
		}
	})

	t.Run("render failure", func(t *testing.T) {
		r.mu.Lock()
		r.fail = 2
		r.mu.Unlock()
		os.Remove(dir.PreviewImagePath("geometry-9", 2))
		if _, err := svc.RenderPreviews(ctx, "geometry-9", 2, 2, false); err == nil {
			t.Error("expected render error")
		}
	})

	t.Run("unknown book", func(t *testing.T) {
		if _, err := svc.RenderPreviews(ctx, "physics-8", 1, 1, false); err == nil {
			t.Error("expected error for unknown book")
		}
	})
}

func TestDeriveBookID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/path/to/algebra-7.pdf", "algebra-7"},
		{"/books/Geometry 9.pdf", "geometry-9"},
		{"simple.pdf", "simple"},
		{"  Trailing .pdf", "trailing"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := deriveBookID(tt.input); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"algebra-7", "Algebra 7"},
		{"geometry_9", "Geometry 9"},
		{"алгебра-7", "Алгебра 7"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := deriveTitle(tt.input); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
