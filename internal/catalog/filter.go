package catalog

import (
	"fmt"
	"strings"

	"github.com/slowvak/midel/internal/publication"
)

// All is the filter value that disables the year or status filter.
const All = "all"

// Status filter values.
const (
	StatusPublished = "published"
	StatusInProcess = "in_process"
)

// StatusMode selects what the status filter looks at.
type StatusMode string

const (
	// ModeField filters on the record's own status field.
	ModeField StatusMode = "field"
	// ModeStyle filters on how the item renders: "published" keeps active
	// links, "in_process" keeps muted items. A published record with a
	// placeholder URL counts as in process under this mode.
	ModeStyle StatusMode = "style"
)

// Filter combines the three page filters. Zero values mean "show all".
type Filter struct {
	Query  string     `json:"query,omitempty"`
	Year   string     `json:"year,omitempty"`
	Status string     `json:"status,omitempty"`
	Mode   StatusMode `json:"mode,omitempty"`
}

// Validate rejects unknown status and mode values.
func (f Filter) Validate() error {
	switch f.Status {
	case "", All, StatusPublished, StatusInProcess:
	default:
		return fmt.Errorf("invalid status filter %q: must be all, published, or in_process", f.Status)
	}
	switch f.Mode {
	case "", ModeField, ModeStyle:
	default:
		return fmt.Errorf("invalid status mode %q: must be field or style", f.Mode)
	}
	return nil
}

// Apply returns a copy of v with every filter in f applied. An item is shown
// when it matches both the search query and the status filter; a section is
// shown when it matches the year filter.
func (v View) Apply(f Filter) View {
	out := v.clone()
	query := strings.ToLower(f.Query)
	for si := range out.Sections {
		s := &out.Sections[si]
		s.Hidden = !yearMatches(s.Heading, f.Year)
		for ii := range s.Items {
			it := &s.Items[ii]
			it.Hidden = !(textMatches(it.Text(), query) && statusMatches(*it, f.Status, f.Mode))
		}
	}
	return out
}

// Search hides items whose rendered text does not contain q, ignoring case.
func (v View) Search(q string) View {
	return v.Apply(Filter{Query: q})
}

// FilterYear shows only the section whose heading equals year, ignoring case.
func (v View) FilterYear(year string) View {
	return v.Apply(Filter{Year: year})
}

// FilterStatus shows items by status under the given mode.
func (v View) FilterStatus(status string, mode StatusMode) View {
	return v.Apply(Filter{Status: status, Mode: mode})
}

func textMatches(text, lowerQuery string) bool {
	if lowerQuery == "" {
		return true
	}
	return strings.Contains(strings.ToLower(text), lowerQuery)
}

func yearMatches(heading, year string) bool {
	if year == "" || year == All {
		return true
	}
	return strings.EqualFold(heading, strings.TrimSpace(year))
}

func statusMatches(it Item, status string, mode StatusMode) bool {
	if status == "" || status == All {
		return true
	}

	var inProcess bool
	if mode == ModeStyle {
		inProcess = !it.Active
	} else {
		inProcess = it.Status == publication.StatusInProcess
	}

	switch status {
	case StatusPublished:
		return !inProcess
	case StatusInProcess:
		return inProcess
	default:
		return true
	}
}
