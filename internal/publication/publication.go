// Package publication defines the year-grouped publication records that back
// the MIDeL publication list, and the rules for loading, ordering and saving them.
package publication

import "strings"

// Status values recognised in the catalog file.
const (
	StatusPublished Status = "published"
	StatusInProcess Status = "in_process"
	StatusAccepted  Status = "accepted"
)

// Type values recognised in the catalog file.
const (
	TypeJournal     Type = "journal"
	TypeConference  Type = "conference"
	TypePreprint    Type = "preprint"
	TypeBookChapter Type = "book_chapter"
	TypeOther       Type = "other"
)

// Placeholder URLs meaning "no real link yet".
const (
	PlaceholderPath    = "path"
	PlaceholderPending = "NotAvailableYet"
)

// Status is the editorial state of a publication. Free text in the file.
type Status string

// Type is the kind of publication. Free text in the file.
type Type string

// KnownStatuses lists the status values the site expects.
var KnownStatuses = []Status{StatusPublished, StatusInProcess, StatusAccepted}

// KnownTypes lists the type values the site expects.
var KnownTypes = []Type{TypeJournal, TypeConference, TypePreprint, TypeBookChapter, TypeOther}

// Known reports whether s is one of KnownStatuses.
func (s Status) Known() bool {
	for _, k := range KnownStatuses {
		if s == k {
			return true
		}
	}
	return false
}

// Known reports whether t is one of KnownTypes.
func (t Type) Known() bool {
	for _, k := range KnownTypes {
		if t == k {
			return true
		}
	}
	return false
}

// Record is a single publication entry.
type Record struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Type   Type   `json:"type"`
	Status Status `json:"status"`
}

// YearGroup bundles the publications of one calendar year, or of the
// "older" catch-all group.
type YearGroup struct {
	Year         Year     `json:"year"`
	Publications []Record `json:"publications"`
}

// Catalog is the full contents of a publications file, in file order.
type Catalog []YearGroup

// IsPlaceholderURL reports whether url is one of the "not a real link yet" sentinels.
func IsPlaceholderURL(url string) bool {
	return url == PlaceholderPath || url == PlaceholderPending
}

// Inactive reports whether the record renders as muted, non-navigable text.
// That is the case for in-process work and for records without a real link.
func (r Record) Inactive() bool {
	return r.Status == StatusInProcess || IsPlaceholderURL(r.URL)
}

// Citable reports whether the record belongs in the exported citation list.
func (r Record) Citable() bool {
	return r.Status == StatusPublished && !IsPlaceholderURL(r.URL)
}

// NormalizeTitle returns the comparison key used for duplicate detection.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// Len returns the total number of records across all groups.
func (c Catalog) Len() int {
	n := 0
	for _, g := range c {
		n += len(g.Publications)
	}
	return n
}

// Entry pairs a record with the year of the group that holds it.
type Entry struct {
	Year   Year
	Record Record
}

// Entries flattens the catalog in file order.
func (c Catalog) Entries() []Entry {
	entries := make([]Entry, 0, c.Len())
	for _, g := range c {
		for _, r := range g.Publications {
			entries = append(entries, Entry{Year: g.Year, Record: r})
		}
	}
	return entries
}

// Group returns the index of the group for year, or -1.
func (c Catalog) Group(year Year) int {
	for i, g := range c {
		if g.Year == year {
			return i
		}
	}
	return -1
}
