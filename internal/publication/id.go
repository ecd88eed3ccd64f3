package publication

import (
	"regexp"
	"strings"
)

var (
	nonLetters      = regexp.MustCompile(`[^a-zA-Z]`)
	nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	underscoreRuns  = regexp.MustCompile(`_+`)
)

// maxIDAuthorLen and maxIDTitleWords bound the generated identifier.
const (
	maxIDAuthorLen  = 15
	maxIDTitleWords = 5
)

// GenerateID builds a record id of the form "<year>_<author>_<title words>".
// The author keeps ASCII letters only (at most 15); the title contributes its
// first five alphanumeric words. The result is lower-cased with runs of "_"
// collapsed, e.g. GenerateID("2023", "O'Brien", "Deep learning: MRI") is
// "2023_obrien_deep_learning_mri".
func GenerateID(year, firstAuthor, title string) string {
	author := nonLetters.ReplaceAllString(firstAuthor, "")
	if len(author) > maxIDAuthorLen {
		author = author[:maxIDAuthorLen]
	}

	words := strings.Fields(nonAlphanumeric.ReplaceAllString(title, ""))
	if len(words) > maxIDTitleWords {
		words = words[:maxIDTitleWords]
	}

	id := strings.TrimSpace(year) + "_" + author + "_" + strings.Join(words, "_")
	id = strings.ToLower(id)
	return underscoreRuns.ReplaceAllString(id, "_")
}
