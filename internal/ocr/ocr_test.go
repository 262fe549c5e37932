package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackzampolin/problembook/internal/providers"
	"github.com/jackzampolin/problembook/internal/retry"
)

func newTestService(t *testing.T, cacheDir string) (*Service, *providers.MockOCRProvider) {
	t.Helper()
	mock := providers.NewMockOCRProvider()
	mock.ResponseText = "101. Вычислите $2^{10}$."
	reg := providers.NewRegistry(nil)
	reg.RegisterOCR("mistral", mock)
	return NewService(Config{Providers: reg, CacheDir: cacheDir}), mock
}

func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("png-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestService_RunOCR(t *testing.T) {
	dir := t.TempDir()
	svc, mock := newTestService(t, filepath.Join(dir, "cache"))
	img := writeImage(t, dir, "algebra-7.pdf_3.png")

	text, err := svc.RunOCR(context.Background(), img, "mistral")
	if err != nil {
		t.Fatalf("RunOCR() error = %v", err)
	}
	if text != "101. Вычислите $2^{10}$." {
		t.Errorf("text = %q", text)
	}

	again, err := svc.RunOCR(context.Background(), img, "mistral")
	if err != nil {
		t.Fatal(err)
	}
	if again != text {
		t.Errorf("cached text = %q", again)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("provider called %d times, want 1 (second call cached)", mock.RequestCount())
	}
}

func TestService_Errors(t *testing.T) {
	dir := t.TempDir()
	svc, mock := newTestService(t, "")
	img := writeImage(t, dir, "p.png")

	t.Run("missing image", func(t *testing.T) {
		if _, err := svc.RunOCR(context.Background(), filepath.Join(dir, "nope.png"), "mistral"); err == nil {
			t.Error("expected error for missing image")
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := svc.RunOCR(context.Background(), img, "tesseract")
		if !errors.Is(err, providers.ErrNoProvider) {
			t.Errorf("error = %v, want ErrNoProvider", err)
		}
	})

	t.Run("provider failure", func(t *testing.T) {
		mock.ShouldFail = true
		defer func() { mock.ShouldFail = false }()
		if _, err := svc.RunOCR(context.Background(), img, "mistral"); err == nil {
			t.Error("expected provider error")
		}
	})
}

func TestService_CircuitBreaker(t *testing.T) {
	dir := t.TempDir()
	img := writeImage(t, dir, "p.png")
	now := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

	mock := providers.NewMockOCRProvider()
	mock.ShouldFail = true
	reg := providers.NewRegistry(nil)
	reg.RegisterOCR("mistral", mock)
	svc := NewService(Config{
		Providers:        reg,
		BreakerThreshold: 2,
		BreakerTimeout:   30 * time.Second,
		Now:              func() time.Time { return now },
	})
	ctx := context.Background()

	for range 2 {
		if _, err := svc.RunOCR(ctx, img, "mistral"); err == nil {
			t.Fatal("expected provider error")
		}
	}
	if svc.BreakerState("mistral") != retry.StateOpen {
		t.Fatalf("state = %v, want open", svc.BreakerState("mistral"))
	}

	_, err := svc.RunOCR(ctx, img, "mistral")
	if !errors.Is(err, retry.ErrCircuitOpen) {
		t.Errorf("error = %v, want ErrCircuitOpen", err)
	}
	if mock.RequestCount() != 2 {
		t.Errorf("provider called %d times, want 2 (open circuit skips the call)", mock.RequestCount())
	}

	now = now.Add(30 * time.Second)
	mock.ShouldFail = false
	if _, err := svc.RunOCR(ctx, img, "mistral"); err != nil {
		t.Fatalf("half-open call error = %v", err)
	}
	if svc.BreakerState("mistral") != retry.StateClosed {
		t.Errorf("state = %v, want closed after success", svc.BreakerState("mistral"))
	}
}

func TestService_CancelledCallKeepsCircuitClosed(t *testing.T) {
	dir := t.TempDir()
	img := writeImage(t, dir, "p.png")
	reg := providers.NewRegistry(nil)
	reg.RegisterOCR("mistral", providers.NewMockOCRProvider())
	svc := NewService(Config{Providers: reg, BreakerThreshold: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.RunOCR(ctx, img, "mistral"); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if svc.BreakerState("mistral") != retry.StateClosed {
		t.Errorf("state = %v, want closed", svc.BreakerState("mistral"))
	}
}

func TestMimeType(t *testing.T) {
	tests := map[string]string{
		"a.png":  "image/png",
		"a.JPG":  "image/jpeg",
		"a.jpeg": "image/jpeg",
		"a.webp": "image/webp",
		"a":      "image/png",
	}
	for path, want := range tests {
		if got := mimeType(path); got != want {
			t.Errorf("mimeType(%q) = %q, want %q", path, got, want)
		}
	}
}
