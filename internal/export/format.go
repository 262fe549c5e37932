// Package export renders a book's problems and solutions into files.
package export

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is returned for an unknown export format.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format is an export file format.
type Format string

const (
	Markdown Format = "markdown"
	LaTeX    Format = "latex"
	JSON     Format = "json"
	Anki     Format = "anki"
	XLSX     Format = "xlsx"
	HTML     Format = "html"
)

// Formats lists every supported format.
func Formats() []Format {
	return []Format{Markdown, LaTeX, JSON, Anki, XLSX, HTML}
}

// ParseFormat accepts a format name or its file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return Markdown, nil
	case "latex", "tex":
		return LaTeX, nil
	case "json":
		return JSON, nil
	case "anki", "txt":
		return Anki, nil
	case "xlsx", "excel":
		return XLSX, nil
	case "html", "htm":
		return HTML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	switch f {
	case Markdown:
		return "md"
	case LaTeX:
		return "tex"
	case Anki:
		return "txt"
	default:
		return string(f)
	}
}

// MimeType returns the Content-Type for the format.
func (f Format) MimeType() string {
	switch f {
	case Markdown:
		return "text/markdown; charset=utf-8"
	case LaTeX:
		return "application/x-latex"
	case JSON:
		return "application/json"
	case Anki:
		return "text/plain; charset=utf-8"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case HTML:
		return "text/html; charset=utf-8"
	}
	return "application/octet-stream"
}
