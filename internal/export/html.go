package export

import (
	"bytes"
	"html"

	"github.com/yuin/goldmark"
)

const mathJaxScript = `<script src="https://cdn.jsdelivr.net/npm/mathjax@3/es5/tex-mml-chtml.js" async></script>`

var markdownRenderer = goldmark.New()

// renderHTML renders the markdown export into a standalone page that
// typesets $...$ math with MathJax.
func renderHTML(doc *Document) ([]byte, error) {
	var body bytes.Buffer
	if err := markdownRenderer.Convert(renderMarkdown(doc), &body); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html lang=\"ru\">\n<head>\n<meta charset=\"utf-8\">\n<title>")
	out.WriteString(html.EscapeString(doc.Book.Title))
	out.WriteString("</title>\n<script>window.MathJax = {tex: {inlineMath: [['$', '$'], ['\\\\(', '\\\\)']]}};</script>\n")
	out.WriteString(mathJaxScript)
	out.WriteString("\n</head>\n<body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}
