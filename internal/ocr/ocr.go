// Package ocr turns page images on disk into text through a named OCR
// provider, keeping a content-addressed cache of results next to the images.
package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jackzampolin/problembook/internal/providers"
	"github.com/jackzampolin/problembook/internal/retry"
)

const (
	DefaultBreakerThreshold = 5
	DefaultBreakerTimeout   = time.Minute
)

// TextExtractor runs OCR over one page image.
type TextExtractor interface {
	RunOCR(ctx context.Context, imagePath, provider string) (string, error)
}

// ProviderSource resolves OCR providers by name. *providers.Registry
// satisfies it.
type ProviderSource interface {
	GetOCR(name string) (providers.OCRProvider, error)
}

// Config configures a Service.
type Config struct {
	Providers ProviderSource

	// CacheDir stores recognized text keyed by image hash. Empty disables
	// the cache.
	CacheDir string

	// BreakerThreshold consecutive provider failures open that provider's
	// circuit for BreakerTimeout. Zero values use the defaults.
	BreakerThreshold int
	BreakerTimeout   time.Duration
	// Now is the breaker clock. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Service implements TextExtractor.
type Service struct {
	providers ProviderSource
	cacheDir  string
	logger    *slog.Logger

	threshold int
	timeout   time.Duration
	now       func() time.Time

	mu       sync.Mutex
	breakers map[string]*retry.CircuitBreaker
}

// NewService creates an OCR service.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = DefaultBreakerThreshold
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = DefaultBreakerTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		providers: cfg.Providers,
		cacheDir:  cfg.CacheDir,
		logger:    cfg.Logger,
		threshold: cfg.BreakerThreshold,
		timeout:   cfg.BreakerTimeout,
		now:       cfg.Now,
		breakers:  make(map[string]*retry.CircuitBreaker),
	}
}

// RunOCR reads imagePath and returns the recognized markdown.
func (s *Service) RunOCR(ctx context.Context, imagePath, provider string) (string, error) {
	image, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read image %s: %w", imagePath, err)
	}

	cachePath := s.cachePath(image, provider)
	if cachePath != "" {
		if cached, err := os.ReadFile(cachePath); err == nil {
			s.logger.Debug("ocr cache hit", "image", imagePath, "provider", provider)
			return string(cached), nil
		}
	}

	p, err := s.providers.GetOCR(provider)
	if err != nil {
		return "", err
	}
	breaker := s.breaker(provider)
	if err := breaker.Allow(); err != nil {
		return "", fmt.Errorf("%s OCR of %s: %w", provider, filepath.Base(imagePath), err)
	}
	result, err := p.ProcessImage(ctx, image, mimeType(imagePath))
	if err != nil {
		// Cancellation is not a provider failure.
		if ctx.Err() == nil {
			breaker.RecordFailure()
			if breaker.State() == retry.StateOpen {
				s.logger.Warn("ocr circuit opened", "provider", provider, "error", err)
			}
		}
		return "", fmt.Errorf("%s OCR of %s: %w", provider, filepath.Base(imagePath), err)
	}
	breaker.RecordSuccess()

	if cachePath != "" {
		if err := writeFileAtomic(cachePath, []byte(result.Text)); err != nil {
			s.logger.Warn("failed to cache OCR result", "path", cachePath, "error", err)
		}
	}
	s.logger.Debug("ocr complete",
		"image", imagePath,
		"provider", provider,
		"chars", len(result.Text),
		"duration", result.ExecutionTime)
	return result.Text, nil
}

// BreakerState reports the circuit position for a provider.
func (s *Service) BreakerState(provider string) retry.State {
	return s.breaker(provider).State()
}

func (s *Service) breaker(provider string) *retry.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breakers[provider]
	if !ok {
		b = retry.NewCircuitBreaker(s.threshold, s.timeout, retry.WithBreakerClock(s.now))
		s.breakers[provider] = b
	}
	return b
}

func (s *Service) cachePath(image []byte, provider string) string {
	if s.cacheDir == "" {
		return ""
	}
	sum := sha256.Sum256(image)
	return filepath.Join(s.cacheDir, provider+"-"+hex.EncodeToString(sum[:])+".md")
}

func mimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ocr-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

var _ TextExtractor = (*Service)(nil)
