package defrastore

import (
	"encoding/json"
	"time"

	"github.com/jackzampolin/problembook/internal/storage"
)

// Documents come back as decoded JSON, so numbers arrive as float64.

func str(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return s
}

func num(doc map[string]any, key string) int {
	switch v := doc[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func optNum(doc map[string]any, key string) *int {
	if doc[key] == nil {
		return nil
	}
	n := num(doc, key)
	return &n
}

func flag(doc map[string]any, key string) bool {
	b, _ := doc[key].(bool)
	return b
}

func optional(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func keys(docs []map[string]any) []any {
	out := make([]any, 0, len(docs))
	for _, d := range docs {
		out = append(out, str(d, "key"))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func decodeFormulas(raw string) []string {
	out := []string{}
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &out)
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func toBook(d map[string]any) storage.Book {
	return storage.Book{
		ID:         str(d, "key"),
		Title:      str(d, "title"),
		Author:     str(d, "author"),
		Subject:    str(d, "subject"),
		FilePath:   str(d, "file_path"),
		TotalPages: num(d, "total_pages"),
		CreatedAt:  parseTime(str(d, "created_at")),
	}
}

func toPage(d map[string]any) storage.Page {
	return storage.Page{
		ID:           str(d, "key"),
		BookID:       str(d, "book_id"),
		PageNumber:   num(d, "page_number"),
		OCRText:      str(d, "ocr_text"),
		HasProblems:  flag(d, "has_problems"),
		ProblemCount: num(d, "problem_count"),
		CreatedAt:    parseTime(str(d, "created_at")),
		UpdatedAt:    parseTime(str(d, "updated_at")),
	}
}

func toProblem(d map[string]any) storage.Problem {
	return storage.Problem{
		ID:                str(d, "key"),
		ChapterID:         str(d, "chapter_id"),
		PageID:            str(d, "page_id"),
		ParentID:          str(d, "parent_id"),
		Number:            str(d, "number"),
		DisplayName:       str(d, "display_name"),
		Content:           str(d, "content"),
		LatexFormulas:     decodeFormulas(str(d, "latex_formulas")),
		PageNumber:        num(d, "page_number"),
		Difficulty:        num(d, "difficulty"),
		HasSolution:       flag(d, "has_solution"),
		ContinuesFromPage: optNum(d, "continues_from_page"),
		ContinuesToPage:   optNum(d, "continues_to_page"),
		IsCrossPage:       flag(d, "is_cross_page"),
		CreatedAt:         parseTime(str(d, "created_at")),
	}
}
