// Package parser turns the OCR text of a single textbook page into numbered
// problems with lettered sub-problems.
package parser

import (
	"context"
	"strings"
)

// SubProblem is a lettered part of a problem, e.g. "а)".
type SubProblem struct {
	Letter  string `json:"letter"`
	Content string `json:"content"`
}

// ParsedProblem is one numbered exercise found on a page.
// The continuation flags are only set by cross-page reconciliation.
type ParsedProblem struct {
	Number            string       `json:"number"`
	Content           string       `json:"content"`
	SubProblems       []SubProblem `json:"sub_problems"`
	ContinuesFromPrev bool         `json:"continues_from_prev"`
	ContinuesToNext   bool         `json:"continues_to_next"`
}

// ParseResult is the parse output for one page.
type ParseResult struct {
	Problems []ParsedProblem `json:"problems"`
}

// AITextParser extracts problems from text using a language model.
type AITextParser interface {
	Parse(ctx context.Context, text string) (ParseResult, error)
}

// Clone returns a deep copy so callers can mutate problems without touching
// cached results.
func (r ParseResult) Clone() ParseResult {
	out := ParseResult{Problems: make([]ParsedProblem, len(r.Problems))}
	for i, p := range r.Problems {
		p.SubProblems = append([]SubProblem(nil), p.SubProblems...)
		out.Problems[i] = p
	}
	return out
}

// normalize enforces per-page uniqueness: a repeated problem number is folded
// into its first occurrence, and a repeated letter under one parent is folded
// into the first sub-problem with that letter. Continuation flags are cleared.
func normalize(r ParseResult) ParseResult {
	var out []ParsedProblem
	index := make(map[string]int)

	for _, p := range r.Problems {
		p.Number = strings.TrimSpace(p.Number)
		if p.Number == "" {
			continue
		}
		p.ContinuesFromPrev = false
		p.ContinuesToNext = false

		if i, ok := index[p.Number]; ok {
			existing := &out[i]
			existing.Content = joinNonEmpty(existing.Content, p.Content)
			existing.SubProblems = mergeSubProblems(existing.SubProblems, p.SubProblems)
			continue
		}

		p.SubProblems = mergeSubProblems(nil, p.SubProblems)
		index[p.Number] = len(out)
		out = append(out, p)
	}

	if out == nil {
		out = []ParsedProblem{}
	}
	return ParseResult{Problems: out}
}

func mergeSubProblems(dst, src []SubProblem) []SubProblem {
	for _, s := range src {
		s.Letter = strings.ToLower(strings.TrimSpace(s.Letter))
		if s.Letter == "" {
			continue
		}
		merged := false
		for i := range dst {
			if dst[i].Letter == s.Letter {
				dst[i].Content = joinNonEmpty(dst[i].Content, s.Content)
				merged = true
				break
			}
		}
		if !merged {
			dst = append(dst, s)
		}
	}
	return dst
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "\n" + b
	}
}
