package parser

import (
	"regexp"
	"strings"
)

var (
	problemPatterns = []*regexp.Regexp{
		// Задача 1.1: ... / Задача №1. ...
		regexp.MustCompile(`(?im)^\s*#*\s*Задача\s*[№#]?\s*(\d+[\.\d\w]*)[:.\s)]+`),
		// Упражнение 5: ...
		regexp.MustCompile(`(?im)^\s*#*\s*Упражнение\s*[№#]?\s*(\d+)[:.\s)]+`),
		// Example 1: ... / Problem 1. ... / Exercise 3) ...
		regexp.MustCompile(`(?im)^\s*#*\s*(?:Example|Problem|Exercise)\s*[№#]?\s*(\d+)[:.\s)]+`),
		// 1. Text / 1) $x$ / 1.2] Text
		regexp.MustCompile(`(?m)^\s*(\d+[\.\d]*)\s*[\.)\]]\s*(?:\$|[А-ЯA-Z])`),
		// №125 / #125
		regexp.MustCompile(`(?m)^\s*[№#]\s*(\d+)[:.\s)]+`),
	}

	subProblemPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\s*([а-яё])\s*[\.\)\]]`),
		regexp.MustCompile(`^\s*([a-z])\s*[\.\)\]]`),
		regexp.MustCompile(`^\s*\(([а-яёa-z])\)`),
	}

	theoryPattern = regexp.MustCompile(
		`(?im)^\s*#*\s*(теорема|определение|свойство|формула|доказательство|theorem|definition|property|formula|proof)\s*(\d*)\s*[:.\s]*(.*)$`,
	)
)

// TheoryType classifies a theory block.
type TheoryType string

const (
	TheoryDefinition TheoryType = "definition"
	TheoryTheorem    TheoryType = "theorem"
	TheoryProof      TheoryType = "proof"
	TheoryProperty   TheoryType = "property"
	TheoryFormula    TheoryType = "formula"
	TheoryOther      TheoryType = "other"
)

// TheoryBlock is a definition, theorem or similar passage.
type TheoryBlock struct {
	Number        int        `json:"number"`
	Type          TheoryType `json:"type"`
	Title         string     `json:"title,omitempty"`
	Content       string     `json:"content"`
	LatexFormulas []string   `json:"latex_formulas,omitempty"`
}

// TextbookParser is the pattern-based parser used when nothing better applies.
// It never fails; text without recognizable problems yields an empty result.
type TextbookParser struct{}

// NewTextbookParser returns a TextbookParser.
func NewTextbookParser() *TextbookParser {
	return &TextbookParser{}
}

// DetectProblemStart returns the problem number if line begins a problem.
func (p *TextbookParser) DetectProblemStart(line string) (string, bool) {
	for _, re := range problemPatterns {
		if m := re.FindStringSubmatch(line); m != nil {
			// "Задача 5. ..." captures "5." since the number class admits dots.
			return strings.TrimRight(strings.TrimSpace(m[1]), "."), true
		}
	}
	return "", false
}

// DetectSubProblem returns the letter if line begins a sub-problem. Parts are
// lettered in lowercase; capitals start sentences.
func (p *TextbookParser) DetectSubProblem(line string) (string, bool) {
	for _, re := range subProblemPatterns {
		if m := re.FindStringSubmatch(line); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// detectTheoryStart returns the block type and optional title.
func (p *TextbookParser) detectTheoryStart(line string) (TheoryType, string, bool) {
	m := theoryPattern.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}

	var typ TheoryType
	switch strings.ToLower(m[1]) {
	case "теорема", "theorem":
		typ = TheoryTheorem
	case "определение", "definition":
		typ = TheoryDefinition
	case "свойство", "property":
		typ = TheoryProperty
	case "формула", "formula":
		typ = TheoryFormula
	case "доказательство", "proof":
		typ = TheoryProof
	default:
		typ = TheoryOther
	}

	num := strings.TrimSpace(m[2])
	inline := strings.TrimSpace(m[3])
	title := strings.TrimSpace(num + " " + inline)
	return typ, title, true
}

// ParseProblems segments text into problems. Each problem's content starts
// with its full header line; each sub-problem's content starts with its
// lettered line. A theory heading closes the open problem.
func (p *TextbookParser) ParseProblems(text string) ParseResult {
	problems, _ := p.parse(text)
	return normalize(ParseResult{Problems: problems})
}

// ParseTheory returns the theory blocks found in text.
func (p *TextbookParser) ParseTheory(text string) []TheoryBlock {
	_, blocks := p.parse(text)
	return blocks
}

func (p *TextbookParser) parse(text string) ([]ParsedProblem, []TheoryBlock) {
	var (
		problems []ParsedProblem
		blocks   []TheoryBlock
		problem  *ParsedProblem
		sub      *SubProblem
		theory   *TheoryBlock
	)

	closeSub := func() {
		if problem != nil && sub != nil {
			problem.SubProblems = append(problem.SubProblems, *sub)
		}
		sub = nil
	}
	closeProblem := func() {
		closeSub()
		if problem != nil {
			problems = append(problems, *problem)
		}
		problem = nil
	}
	closeTheory := func() {
		if theory != nil {
			theory.LatexFormulas = ExtractFormulas(theory.Content)
			blocks = append(blocks, *theory)
		}
		theory = nil
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if num, ok := p.DetectProblemStart(line); ok {
			closeProblem()
			closeTheory()
			problem = &ParsedProblem{Number: num, Content: line}
			continue
		}

		if typ, title, ok := p.detectTheoryStart(line); ok {
			closeProblem()
			closeTheory()
			theory = &TheoryBlock{Number: len(blocks) + 1, Type: typ, Title: title}
			continue
		}

		switch {
		case problem != nil:
			if letter, ok := p.DetectSubProblem(line); ok {
				closeSub()
				sub = &SubProblem{Letter: letter, Content: line}
				continue
			}
			if sub != nil {
				sub.Content += "\n" + line
			} else {
				problem.Content += "\n" + line
			}
		case theory != nil:
			theory.Content = joinNonEmpty(theory.Content, line)
		}
	}
	closeProblem()
	closeTheory()

	return problems, blocks
}
