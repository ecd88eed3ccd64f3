// Package export produces the citation list of a publication catalog in
// several formats.
package export

import (
	"fmt"
	"strings"
)

// ToBibTeX converts a citation to a BibTeX @misc entry.
func ToBibTeX(c Citation) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("@misc{%s,\n", c.ID))
	b.WriteString(fmt.Sprintf("  title = {%s},\n", escapeLatex(c.Title)))
	b.WriteString(fmt.Sprintf("  year = {%s},\n", c.Year))
	b.WriteString(fmt.Sprintf("  url = {%s},\n", c.URL))
	b.WriteString("}\n")

	return b.String()
}

// ToBibTeXList converts multiple citations to BibTeX format.
func ToBibTeXList(cs []Citation) string {
	var entries []string
	for _, c := range cs {
		entries = append(entries, ToBibTeX(c))
	}
	return strings.Join(entries, "\n")
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\textbackslash{}`,
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
