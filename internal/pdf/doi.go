// Package pdf reads submission hints (title and DOI) out of a paper's PDF.
package pdf

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DOI pattern: 10.XXXX/... where XXXX is 4-9 digits
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// doiSearchPages is how many leading pages are searched for a DOI.
const doiSearchPages = 3

// minTitleLen is the shortest line accepted as a title.
const minTitleLen = 20

// Hints holds what could be read from a PDF. Either field may be empty.
type Hints struct {
	Title string `json:"title,omitempty"`
	DOI   string `json:"doi,omitempty"`
}

// ReadHints opens the PDF at path and extracts the title from the first page
// and the first DOI found in the leading pages. Pages whose text cannot be
// extracted are skipped; only failing to open the file is an error.
func ReadHints(path string) (Hints, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Hints{}, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	var h Hints
	pages := r.NumPage()
	if pages > doiSearchPages {
		pages = doiSearchPages
	}
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i == 1 {
			h.Title = TitleFromText(text)
		}
		if h.DOI == "" {
			h.DOI = FindDOI(text)
		}
		if h.DOI != "" && i > 1 {
			break
		}
	}
	return h, nil
}

// TitleFromText returns the first substantial line of a page, skipping
// journal headers and copyright lines.
func TitleFromText(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if len(line) >= minTitleLen && !isHeaderLine(line) {
			return line
		}
	}
	return ""
}

// FindDOI returns the first plausible DOI in text, or "".
func FindDOI(text string) string {
	for _, match := range doiPattern.FindAllString(text, -1) {
		match = strings.TrimRight(match, ".,;:)")
		if isValidDOI(match) {
			return match
		}
	}
	return ""
}

// isValidDOI performs basic validation on a DOI.
func isValidDOI(doi string) bool {
	if len(doi) < 10 || !strings.HasPrefix(doi, "10.") {
		return false
	}
	slashIdx := strings.Index(doi, "/")
	return slashIdx != -1 && slashIdx < len(doi)-1
}

// isHeaderLine checks if a line is likely a header/footer.
func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "journal"):
		return true
	case strings.Contains(lower, "volume") && strings.Contains(lower, "issue"):
		return true
	case strings.Contains(lower, "copyright"), strings.Contains(lower, "©"):
		return true
	case strings.Contains(lower, "article") && strings.Contains(lower, "published"):
		return true
	case strings.HasPrefix(lower, "doi:"), strings.HasPrefix(lower, "https://doi.org/"):
		return true
	}
	return false
}
