// Package reconcile repairs artifacts of parsing a book one page at a time:
// chapter headings that OCR attaches to the bottom of the page they introduce
// the next page of, and problem statements split across a page break.
package reconcile

import (
	"strings"

	"github.com/jackzampolin/problembook/internal/parser"
)

// SplitTrailingChapterHeading separates a chapter heading found on the last
// non-blank line of text. It returns the page text without the heading and,
// if one was found, the heading with everything after it as carryover for the
// next page.
func SplitTrailingChapterHeading(text string) (string, *string) {
	lines := strings.Split(text, "\n")

	last := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			last = i
			break
		}
	}
	if last < 0 {
		return "", nil
	}
	if !parser.IsChapterHeading(lines[last]) {
		return strings.TrimSpace(text), nil
	}

	page := strings.TrimSpace(strings.Join(lines[:last], "\n"))
	carry := strings.TrimSpace(strings.Join(lines[last:], "\n"))
	if carry == "" {
		return page, nil
	}
	return page, &carry
}

// ProcessCrossPage marks continuations between current and its neighbors.
// If current's first problem shares its number with prevLast it continues
// from the previous page and prevTail is prepended to its content. If
// current's last problem shares its number with next's first, it continues to
// the next page. Matching is by exact number equality.
func ProcessCrossPage(prevLast *parser.ParsedProblem, prevTail *string, current []parser.ParsedProblem, next []parser.ParsedProblem) {
	if len(current) == 0 {
		return
	}

	if prevLast != nil {
		first := &current[0]
		if first.Number == prevLast.Number {
			first.ContinuesFromPrev = true
			if prevTail != nil && *prevTail != "" {
				first.Content = *prevTail + "\n\n" + first.Content
			}
		}
	}

	if len(next) > 0 {
		last := &current[len(current)-1]
		if last.Number == next[0].Number {
			last.ContinuesToNext = true
		}
	}
}

// IsIncomplete reports whether a line lacks a sentence terminator.
func IsIncomplete(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	return !strings.ContainsAny(line[len(line)-1:], ".;!?)")
}

// ExtractContinuationTail returns the lines after the first line of a problem
// that continues to the next page, when its last line is unterminated. The
// tail is threaded into the next page's merge step.
func ExtractContinuationTail(p parser.ParsedProblem) *string {
	if !p.ContinuesToNext {
		return nil
	}
	content := strings.TrimSpace(p.Content)
	if content == "" {
		return nil
	}

	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return nil
	}
	if !IsIncomplete(lines[len(lines)-1]) {
		return nil
	}

	tail := strings.TrimSpace(strings.Join(lines[1:], "\n"))
	if tail == "" {
		return nil
	}
	return &tail
}
