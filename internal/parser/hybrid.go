package parser

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/problembook/internal/cache"
	"github.com/jackzampolin/problembook/internal/retry"
)

// HybridConfig configures a HybridParser.
type HybridConfig struct {
	// AI is optional. Without it pages go straight to the pattern parser.
	AI AITextParser

	// Cache defaults to a fresh 7 day parse cache.
	Cache *cache.AIParseCache[ParseResult]

	// Retry wraps AI calls. Zero value means retry.DefaultPolicy(). Errors
	// marked retry.Permanent fall through to the pattern parser at once.
	Retry retry.Policy

	Logger *slog.Logger
}

// HybridParser resolves a page in order: cache, book-specific parser, AI
// parser with retries, pattern parser. The first to succeed wins, and every
// result is cached.
type HybridParser struct {
	ai       AITextParser
	cache    *cache.AIParseCache[ParseResult]
	policy   retry.Policy
	fallback *TextbookParser
	logger   *slog.Logger
}

// NewHybridParser creates a HybridParser.
func NewHybridParser(cfg HybridConfig) *HybridParser {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewAIParseCache[ParseResult]()
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	if cfg.Retry.Logger == nil {
		cfg.Retry.Logger = cfg.Logger
	}
	return &HybridParser{
		ai:       cfg.AI,
		cache:    cfg.Cache,
		policy:   cfg.Retry,
		fallback: NewTextbookParser(),
		logger:   cfg.Logger,
	}
}

// cacheKey scopes the content key by book so a book-specific result never
// answers for another book with coincidentally identical text.
func cacheKey(bookID, text string) string {
	return bookID + "\n" + text
}

// ParseText parses one page. It only returns an error when ctx is done; every
// other failure degrades to the next strategy.
func (h *HybridParser) ParseText(ctx context.Context, bookID, text string, pageNum int) (ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return ParseResult{}, err
	}
	logger := h.logger.With("book_id", bookID, "page", pageNum)
	key := cacheKey(bookID, text)

	if cached, ok := h.cache.Get(key); ok {
		logger.Debug("parse cache hit")
		return cached.Clone(), nil
	}

	if IsAlgebra7(bookID) {
		logger.Debug("using book-specific parser")
		result := ParseAlgebra7(text)
		h.cache.Set(key, result.Clone())
		return result, nil
	}

	if h.ai != nil {
		result, err := retry.DoValueWithClassifier(ctx, h.policy, "ai parse", func(ctx context.Context) (ParseResult, error) {
			return h.ai.Parse(ctx, text)
		}, retry.Classify)
		if err == nil {
			result = normalize(result)
			logger.Info("ai parser succeeded", "problems", len(result.Problems))
			h.cache.Set(key, result.Clone())
			return result, nil
		}
		if ctx.Err() != nil {
			return ParseResult{}, ctx.Err()
		}
		logger.Warn("ai parser failed, falling back to pattern parser", "error", err)
	}

	result := h.fallback.ParseProblems(text)
	logger.Debug("pattern parser finished", "problems", len(result.Problems))
	h.cache.Set(key, result.Clone())
	return result, nil
}
