package parser

import "regexp"

var (
	inlineMath  = regexp.MustCompile(`\$([^$]+)\$`)
	displayMath = regexp.MustCompile(`\$\$([^$]+)\$\$`)
	bracketMath = regexp.MustCompile(`\\\[([^\]]+)\\\]`)
)

// ExtractFormulas returns the LaTeX bodies of $...$, $$...$$ and \[...\]
// spans in text, deduplicated in order of first appearance.
func ExtractFormulas(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, re := range []*regexp.Regexp{inlineMath, displayMath, bracketMath} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				out = append(out, m[1])
			}
		}
	}
	return out
}
