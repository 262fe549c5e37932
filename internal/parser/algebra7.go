package parser

import (
	"strings"
	"unicode/utf8"
)

// IsAlgebra7 reports whether bookID names the 7th grade algebra textbook,
// which has a dedicated deterministic parser.
func IsAlgebra7(bookID string) bool {
	id := strings.TrimSuffix(strings.TrimSpace(bookID), ".pdf")
	return strings.EqualFold(id, "algebra-7")
}

// ParseAlgebra7 extracts exercises like "71. ..." or "Задача 1. ..." and their
// lettered parts. Numbered step lists such as "1) ..." inside worked examples
// are not problem starts.
func ParseAlgebra7(text string) ParseResult {
	var out []ParsedProblem
	var current *problemBuilder

	flush := func() {
		if current != nil {
			out = append(out, current.finish())
			current = nil
		}
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if IsChapterHeading(line) {
			flush()
			continue
		}

		if num, rest, ok := mainProblemStart(line); ok {
			flush()
			current = newProblemBuilder(num, rest)
			continue
		}

		if current == nil {
			continue
		}

		if letter, rest, ok := subProblemStart(line); ok {
			current.startSub(letter, rest)
			continue
		}

		current.pushLine(line)
	}
	flush()

	return normalize(ParseResult{Problems: out})
}

func mainProblemStart(line string) (string, string, bool) {
	if num, rest, ok := zadachaStart(line); ok {
		return num, rest, true
	}
	return numericDotStart(line)
}

// zadachaStart matches "Задача 12. text", "Задача 12: text", "Задача 12) text".
func zadachaStart(line string) (string, string, bool) {
	rest, ok := strings.CutPrefix(line, "Задача")
	if !ok {
		return "", "", false
	}
	rest = strings.TrimLeft(rest, " \t")

	n := leadingDigits(rest)
	if n == 0 {
		return "", "", false
	}
	num := rest[:n]
	rest = strings.TrimLeft(rest[n:], " \t")
	if rest != "" && strings.ContainsRune(".:)", rune(rest[0])) {
		rest = rest[1:]
	}
	return num, strings.TrimSpace(rest), true
}

// numericDotStart matches "71. text".
func numericDotStart(line string) (string, string, bool) {
	n := leadingDigits(line)
	if n == 0 || n >= len(line) || line[n] != '.' {
		return "", "", false
	}
	return line[:n], strings.TrimSpace(line[n+1:]), true
}

func leadingDigits(s string) int {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}

// subProblemStart matches "а) text", "b. text", "в] text" and "(г) text".
// Only lowercase Latin or Cyrillic letters start a part; "S. Ответ" and
// "α) 2+2" are content lines.
func subProblemStart(line string) (string, string, bool) {
	first, size := utf8.DecodeRuneInString(line)
	if first == utf8.RuneError {
		return "", "", false
	}
	rest := line[size:]

	if first == '(' {
		letter, ls := utf8.DecodeRuneInString(rest)
		if !isSubLetter(letter) || ls >= len(rest) || rest[ls] != ')' {
			return "", "", false
		}
		return string(letter), strings.TrimSpace(rest[ls+1:]), true
	}

	if !isSubLetter(first) || rest == "" {
		return "", "", false
	}
	switch rest[0] {
	case ')', '.', ']':
		return string(first), strings.TrimSpace(rest[1:]), true
	}
	return "", "", false
}

func isSubLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'а' && r <= 'я') || r == 'ё'
}

type problemBuilder struct {
	number  string
	content []string
	subs    []*subBuilder
	current *subBuilder
}

type subBuilder struct {
	letter  string
	content []string
}

func newProblemBuilder(number, first string) *problemBuilder {
	b := &problemBuilder{number: number}
	if first != "" {
		b.content = append(b.content, first)
	}
	return b
}

func (b *problemBuilder) startSub(letter, first string) {
	if b.current != nil {
		b.subs = append(b.subs, b.current)
	}
	b.current = &subBuilder{letter: letter}
	if first != "" {
		b.current.content = append(b.current.content, first)
	}
}

func (b *problemBuilder) pushLine(line string) {
	if b.current != nil {
		b.current.content = append(b.current.content, line)
		return
	}
	b.content = append(b.content, line)
}

func (b *problemBuilder) finish() ParsedProblem {
	if b.current != nil {
		b.subs = append(b.subs, b.current)
		b.current = nil
	}
	p := ParsedProblem{
		Number:  b.number,
		Content: strings.TrimSpace(strings.Join(b.content, "\n")),
	}
	for _, s := range b.subs {
		p.SubProblems = append(p.SubProblems, SubProblem{
			Letter:  s.letter,
			Content: strings.TrimSpace(strings.Join(s.content, "\n")),
		})
	}
	return p
}
