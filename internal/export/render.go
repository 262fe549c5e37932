package export

import (
	"encoding/json"
	"fmt"
	"strings"
)

func renderMarkdown(doc *Document) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", doc.Book.Title)
	if doc.Book.Author != "" {
		fmt.Fprintf(&sb, "**Автор:** %s\n\n", doc.Book.Author)
	}

	for _, ch := range doc.Chapters {
		fmt.Fprintf(&sb, "## %s\n\n", chapterTitle(ch.Chapter.Number, ch.Chapter.Title))
		for _, p := range ch.Problems {
			fmt.Fprintf(&sb, "### Задача %s\n\n", p.Problem.Number)
			sb.WriteString(p.Problem.Content)
			sb.WriteString("\n\n")
			for _, sub := range p.Subs {
				fmt.Fprintf(&sb, "**%s)** %s\n\n", sub.Number, sub.Content)
			}
			if p.Solution != nil {
				sb.WriteString("**Решение:**\n\n")
				sb.WriteString(p.Solution.Content)
				sb.WriteString("\n\n")
			}
			sb.WriteString("---\n\n")
		}
	}
	return []byte(sb.String())
}

func chapterTitle(number int, title string) string {
	if title == "" {
		return fmt.Sprintf("Глава %d", number)
	}
	return fmt.Sprintf("Глава %d: %s", number, title)
}

const latexPreamble = `\documentclass{article}
\usepackage[utf8]{inputenc}
\usepackage[russian]{babel}
\usepackage{amsmath,amssymb,amsthm}
\usepackage{enumitem}
\usepackage{geometry}
\geometry{a4paper,margin=2cm}

`

func renderLaTeX(doc *Document) []byte {
	var sb strings.Builder
	sb.WriteString(latexPreamble)
	fmt.Fprintf(&sb, "\\title{%s}\n", doc.Book.Title)
	if doc.Book.Author != "" {
		fmt.Fprintf(&sb, "\\author{%s}\n", doc.Book.Author)
	}
	sb.WriteString("\\date{\\today}\n\n\\begin{document}\n\\maketitle\n\n")

	for _, ch := range doc.Chapters {
		fmt.Fprintf(&sb, "\\section*{%s}\n\n", chapterTitle(ch.Chapter.Number, ch.Chapter.Title))
		for _, p := range ch.Problems {
			fmt.Fprintf(&sb, "\\textbf{Задача %s.} ", p.Problem.Number)
			sb.WriteString(displayMathToLaTeX(p.Problem.Content))
			sb.WriteString("\n\n")
			if len(p.Subs) > 0 {
				sb.WriteString("\\begin{enumerate}[label=\\alph*)]\n")
				for _, sub := range p.Subs {
					fmt.Fprintf(&sb, "\\item %s\n", displayMathToLaTeX(sub.Content))
				}
				sb.WriteString("\\end{enumerate}\n\n")
			}
			if p.Solution != nil {
				sb.WriteString("\\paragraph{Решение.} ")
				sb.WriteString(displayMathToLaTeX(p.Solution.Content))
				sb.WriteString("\n\n")
			}
		}
	}
	sb.WriteString("\\end{document}\n")
	return []byte(sb.String())
}

// displayMathToLaTeX rewrites $$...$$ pairs as \[...\]. An unpaired
// trailing $$ is left alone.
func displayMathToLaTeX(s string) string {
	parts := strings.Split(s, "$$")
	if len(parts) < 3 {
		return s
	}
	var sb strings.Builder
	sb.WriteString(parts[0])
	for i := 1; i < len(parts); i++ {
		switch {
		case i == len(parts)-1 && i%2 == 1:
			sb.WriteString("$$")
		case i%2 == 1:
			sb.WriteString(`\[`)
		default:
			sb.WriteString(`\]`)
		}
		sb.WriteString(parts[i])
	}
	return sb.String()
}

type jsonExport struct {
	Book     jsonBook      `json:"book"`
	Chapters []jsonChapter `json:"chapters"`
}

type jsonBook struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Author     string `json:"author,omitempty"`
	Subject    string `json:"subject,omitempty"`
	TotalPages int    `json:"total_pages"`
}

type jsonChapter struct {
	ID       string        `json:"id"`
	Number   int           `json:"number"`
	Title    string        `json:"title"`
	Problems []jsonProblem `json:"problems"`
}

type jsonProblem struct {
	ID            string           `json:"id"`
	Number        string           `json:"number"`
	Content       string           `json:"content"`
	LatexFormulas []string         `json:"latex_formulas"`
	PageNumber    int              `json:"page_number,omitempty"`
	SubProblems   []jsonSubProblem `json:"sub_problems"`
	HasSolution   bool             `json:"has_solution"`
	Solution      *jsonSolution    `json:"solution,omitempty"`
}

type jsonSubProblem struct {
	ID      string `json:"id"`
	Letter  string `json:"letter"`
	Content string `json:"content"`
}

type jsonSolution struct {
	Provider string `json:"provider"`
	Content  string `json:"content"`
	Verified bool   `json:"is_verified"`
}

func renderJSON(doc *Document) ([]byte, error) {
	out := jsonExport{
		Book: jsonBook{
			ID:         doc.Book.ID,
			Title:      doc.Book.Title,
			Author:     doc.Book.Author,
			Subject:    doc.Book.Subject,
			TotalPages: doc.Book.TotalPages,
		},
		Chapters: make([]jsonChapter, 0, len(doc.Chapters)),
	}
	for _, ch := range doc.Chapters {
		jc := jsonChapter{
			ID:       ch.Chapter.ID,
			Number:   ch.Chapter.Number,
			Title:    ch.Chapter.Title,
			Problems: make([]jsonProblem, 0, len(ch.Problems)),
		}
		for _, p := range ch.Problems {
			formulas := p.Problem.LatexFormulas
			if formulas == nil {
				formulas = []string{}
			}
			jp := jsonProblem{
				ID:            p.Problem.ID,
				Number:        p.Problem.Number,
				Content:       p.Problem.Content,
				LatexFormulas: formulas,
				PageNumber:    p.Problem.PageNumber,
				SubProblems:   make([]jsonSubProblem, 0, len(p.Subs)),
				HasSolution:   p.Problem.HasSolution,
			}
			for _, sub := range p.Subs {
				jp.SubProblems = append(jp.SubProblems, jsonSubProblem{
					ID: sub.ID, Letter: sub.Number, Content: sub.Content,
				})
			}
			if p.Solution != nil {
				jp.Solution = &jsonSolution{
					Provider: p.Solution.Provider,
					Content:  p.Solution.Content,
					Verified: p.Solution.IsVerified,
				}
			}
			jc.Problems = append(jc.Problems, jp)
		}
		out.Chapters = append(out.Chapters, jc)
	}
	return json.MarshalIndent(out, "", "  ")
}

// renderAnki writes a tab-separated Anki import file: deck, front, back, tags.
func renderAnki(doc *Document) []byte {
	var sb strings.Builder
	sb.WriteString("#separator:tab\n#html:true\n#deck column:1\n#tags column:4\n\n")

	tagPrefix := strings.ReplaceAll(doc.Book.ID, "-", "_")
	for _, ch := range doc.Chapters {
		deck := fmt.Sprintf("%s::Глава %d", doc.Book.Title, ch.Chapter.Number)
		tags := fmt.Sprintf("%s::chapter_%d", tagPrefix, ch.Chapter.Number)
		for _, p := range ch.Problems {
			front := fmt.Sprintf("<b>%s - Задача %s</b><br><br>%s",
				doc.Book.Title, p.Problem.Number, ankiField(p.Problem.Content))
			for _, sub := range p.Subs {
				front += fmt.Sprintf("<br>%s) %s", sub.Number, ankiField(sub.Content))
			}
			back := "(Решение не добавлено)"
			if p.Solution != nil {
				back = ankiField(p.Solution.Content)
			}
			fmt.Fprintf(&sb, "%s\t%s\t%s\t%s\n", deck, front, back, tags)
		}
	}
	return []byte(sb.String())
}

var ankiReplacer = strings.NewReplacer("$", "&#36;", "\t", " ", "\r\n", "<br>", "\n", "<br>")

func ankiField(s string) string {
	return ankiReplacer.Replace(s)
}
