package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

const (
	// ParseTTL covers AI parse results. Parsing is expensive and stable.
	ParseTTL = 7 * 24 * time.Hour
	// SearchTTL covers formula search results.
	SearchTTL = time.Hour
	// ExportTTL covers rendered export bytes.
	ExportTTL = 24 * time.Hour
)

// ContentKey returns the hex SHA-256 of text.
func ContentKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// AIParseCache stores parse results addressed by the exact OCR text, so
// re-OCRing a page into identical text hits the cache.
type AIParseCache[V any] struct {
	c *TimedCache[string, V]
}

// NewAIParseCache creates a parse cache with ParseTTL.
func NewAIParseCache[V any](opts ...Option) *AIParseCache[V] {
	return &AIParseCache[V]{c: New[string, V](ParseTTL, opts...)}
}

func (p *AIParseCache[V]) Get(text string) (V, bool) { return p.c.Get(ContentKey(text)) }
func (p *AIParseCache[V]) Set(text string, v V)      { p.c.Set(ContentKey(text), v) }
func (p *AIParseCache[V]) Remove(text string)        { p.c.Remove(ContentKey(text)) }
func (p *AIParseCache[V]) Clear()                    { p.c.Clear() }
func (p *AIParseCache[V]) Cleanup() int              { return p.c.Cleanup() }
func (p *AIParseCache[V]) Len() int                  { return p.c.Len() }

// FormulaSearchCache stores search results keyed by normalized query.
type FormulaSearchCache[V any] struct {
	c *TimedCache[string, V]
}

// NewFormulaSearchCache creates a search cache with SearchTTL.
func NewFormulaSearchCache[V any](opts ...Option) *FormulaSearchCache[V] {
	return &FormulaSearchCache[V]{c: New[string, V](SearchTTL, opts...)}
}

func searchKey(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

func (f *FormulaSearchCache[V]) Get(query string) (V, bool) { return f.c.Get(searchKey(query)) }
func (f *FormulaSearchCache[V]) Set(query string, v V)      { f.c.Set(searchKey(query), v) }
func (f *FormulaSearchCache[V]) Clear()                     { f.c.Clear() }
func (f *FormulaSearchCache[V]) Cleanup() int               { return f.c.Cleanup() }

// ExportCache stores rendered export files per book and format.
type ExportCache struct {
	c *TimedCache[string, []byte]
}

// NewExportCache creates an export cache with ExportTTL.
func NewExportCache(opts ...Option) *ExportCache {
	return &ExportCache{c: New[string, []byte](ExportTTL, opts...)}
}

// ExportKey is the cache key for a book rendered in a format.
func ExportKey(bookID, format string) string {
	return bookID + ":" + format
}

func (e *ExportCache) Get(bookID, format string) ([]byte, bool) {
	return e.c.Get(ExportKey(bookID, format))
}

func (e *ExportCache) Set(bookID, format string, data []byte) {
	e.c.Set(ExportKey(bookID, format), data)
}

// Invalidate drops every cached format of a book.
func (e *ExportCache) Invalidate(bookID string, formats ...string) {
	for _, f := range formats {
		e.c.Remove(ExportKey(bookID, f))
	}
}

func (e *ExportCache) Cleanup() int { return e.c.Cleanup() }
