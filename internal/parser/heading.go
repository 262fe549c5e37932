package parser

import (
	"strings"
	"unicode"
)

// IsChapterHeading reports whether line looks like "Глава 5. ..." or "ГЛАВА IV: ...".
func IsChapterHeading(line string) bool {
	lower := strings.ToLower(strings.TrimSpace(line))
	rest, ok := strings.CutPrefix(lower, "глава")
	if !ok {
		return false
	}
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	if rest == "" {
		return false
	}

	end := strings.IndexFunc(rest, func(r rune) bool {
		return unicode.IsSpace(r) || r == '.' || r == ':'
	})
	token := rest
	if end >= 0 {
		token = rest[:end]
	}
	if token == "" {
		return false
	}

	return allRunes(token, func(r rune) bool { return r >= '0' && r <= '9' }) ||
		allRunes(token, func(r rune) bool { return strings.ContainsRune("ivxlcdm", r) })
}

func allRunes(s string, pred func(rune) bool) bool {
	for _, r := range s {
		if !pred(r) {
			return false
		}
	}
	return true
}
