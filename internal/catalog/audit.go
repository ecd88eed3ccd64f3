package catalog

import (
	"sort"

	"github.com/slowvak/midel/internal/publication"
)

// Finding kinds reported by Audit.
const (
	FindingMissingField   = "missing_field"
	FindingDuplicateID    = "duplicate_id"
	FindingDuplicateTitle = "duplicate_title"
	FindingUnknownType    = "unknown_type"
	FindingUnknownStatus  = "unknown_status"
	FindingDuplicateYear  = "duplicate_year_group"
)

// Finding is one problem in a catalog. None of them stop the page from
// rendering; they are reported so maintainers can fix the file.
type Finding struct {
	Kind    string   `json:"type"`
	ID      string   `json:"id,omitempty"`
	IDs     []string `json:"ids,omitempty"`
	Year    string   `json:"year,omitempty"`
	Value   string   `json:"value,omitempty"`
	Message string   `json:"message"`
}

// Audit checks c and the load warnings for maintainer-facing problems.
// Findings are ordered by kind, then by first appearance in the file.
func Audit(c publication.Catalog, warnings []publication.Warning) []Finding {
	var findings []Finding

	for _, w := range warnings {
		findings = append(findings, Finding{
			Kind:    FindingMissingField,
			ID:      w.ID,
			Value:   w.Field,
			Message: w.String(),
		})
	}

	seenYears := make(map[string]bool)
	for _, g := range c {
		key := g.Year.String()
		if seenYears[key] {
			findings = append(findings, Finding{
				Kind:    FindingDuplicateYear,
				Year:    key,
				Message: "year group " + key + " appears more than once",
			})
		}
		seenYears[key] = true
	}

	idOrder, ids := groupBy(c, func(r publication.Record) string { return r.ID })
	for _, id := range idOrder {
		if id != "" && len(ids[id]) > 1 {
			findings = append(findings, Finding{
				Kind:    FindingDuplicateID,
				ID:      id,
				IDs:     ids[id],
				Message: "id " + id + " is used more than once",
			})
		}
	}

	titleOrder, titles := groupBy(c, func(r publication.Record) string { return publication.NormalizeTitle(r.Title) })
	for _, t := range titleOrder {
		if t != "" && len(titles[t]) > 1 {
			findings = append(findings, Finding{
				Kind:    FindingDuplicateTitle,
				IDs:     titles[t],
				Value:   t,
				Message: "title is listed more than once",
			})
		}
	}

	for _, e := range c.Entries() {
		r := e.Record
		if r.Type != "" && !r.Type.Known() {
			findings = append(findings, Finding{
				Kind:    FindingUnknownType,
				ID:      r.ID,
				Year:    e.Year.String(),
				Value:   string(r.Type),
				Message: "unknown type " + string(r.Type),
			})
		}
		if r.Status != "" && !r.Status.Known() {
			findings = append(findings, Finding{
				Kind:    FindingUnknownStatus,
				ID:      r.ID,
				Year:    e.Year.String(),
				Value:   string(r.Status),
				Message: "unknown status " + string(r.Status),
			})
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return kindRank[findings[i].Kind] < kindRank[findings[j].Kind]
	})
	return findings
}

var kindRank = map[string]int{
	FindingMissingField:   0,
	FindingDuplicateYear:  1,
	FindingDuplicateID:    2,
	FindingDuplicateTitle: 3,
	FindingUnknownType:    4,
	FindingUnknownStatus:  5,
}

// groupBy collects record ids under key(r), keeping first-seen key order.
func groupBy(c publication.Catalog, key func(publication.Record) string) ([]string, map[string][]string) {
	var order []string
	m := make(map[string][]string)
	for _, e := range c.Entries() {
		k := key(e.Record)
		if _, ok := m[k]; !ok {
			order = append(order, k)
		}
		m[k] = append(m[k], e.Record.ID)
	}
	return order, m
}
