package catalog

import (
	"strings"

	"github.com/slowvak/midel/internal/publication"
)

// MinCheckLength is the number of characters a title needs before the
// as-you-type duplicate check runs.
const MinCheckLength = 3

// Match is an existing record whose title collides with a candidate.
type Match struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Year  string `json:"year"`
}

// CheckResult is the outcome of a duplicate-title check.
type CheckResult struct {
	Title     string  `json:"title"`
	TooShort  bool    `json:"too_short,omitempty"`
	Duplicate bool    `json:"duplicate"`
	Matches   []Match `json:"matches,omitempty"`
}

// FindDuplicates returns every record whose normalized title equals the
// normalized candidate. Normalization trims surrounding whitespace and
// ignores case.
func FindDuplicates(c publication.Catalog, title string) []Match {
	key := publication.NormalizeTitle(title)
	if key == "" {
		return nil
	}
	var matches []Match
	for _, e := range c.Entries() {
		if publication.NormalizeTitle(e.Record.Title) == key {
			matches = append(matches, Match{ID: e.Record.ID, Title: e.Record.Title, Year: e.Year.String()})
		}
	}
	return matches
}

// IsDuplicate reports whether title already exists in c.
func IsDuplicate(c publication.Catalog, title string) bool {
	return len(FindDuplicates(c, title)) > 0
}

// CheckTitle runs the live check: titles shorter than MinCheckLength
// (after trimming) are not checked.
func CheckTitle(c publication.Catalog, title string) CheckResult {
	res := CheckResult{Title: title}
	if len([]rune(strings.TrimSpace(title))) < MinCheckLength {
		res.TooShort = true
		return res
	}
	res.Matches = FindDuplicates(c, title)
	res.Duplicate = len(res.Matches) > 0
	return res
}

// CheckSubmission runs the check that gates a submission. Unlike
// CheckTitle it has no minimum length, so a short title that already
// exists still needs confirmation.
func CheckSubmission(c publication.Catalog, title string) CheckResult {
	res := CheckResult{Title: title, Matches: FindDuplicates(c, title)}
	res.Duplicate = len(res.Matches) > 0
	return res
}
