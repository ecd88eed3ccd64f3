// Package catalog turns a publication snapshot into the year-sectioned view
// shown on the publications page, and implements the page's search, year and
// status filters and the duplicate-title check used by submissions.
package catalog

import (
	"html"

	"github.com/microcosm-cc/bluemonday"

	"github.com/slowvak/midel/internal/publication"
)

// textPolicy strips any markup authored into titles; only text survives.
var textPolicy = bluemonday.StrictPolicy()

// Item is one rendered publication.
type Item struct {
	ID     string             `json:"id"`
	Title  string             `json:"title"`
	Href   string             `json:"href,omitempty"`
	Active bool               `json:"active"`
	Type   publication.Type   `json:"type,omitempty"`
	Status publication.Status `json:"status,omitempty"`
	Hidden bool               `json:"hidden,omitempty"`
}

// Section is one year heading with its ordered list.
type Section struct {
	Heading string           `json:"heading"`
	Year    publication.Year `json:"year"`
	Items   []Item           `json:"items"`
	Hidden  bool             `json:"hidden,omitempty"`
}

// View is the rendered catalog. Filters never drop sections or items; they
// only toggle Hidden.
type View struct {
	Sections []Section `json:"sections"`
}

// Build sorts the catalog (newest first, Older last, stable) and renders each
// record with the link rule: in-process records and placeholder URLs become
// inactive items without a link target.
func Build(c publication.Catalog) View {
	sorted := publication.Sorted(c)
	v := View{Sections: make([]Section, 0, len(sorted))}
	for _, g := range sorted {
		s := Section{
			Heading: g.Year.Heading(),
			Year:    g.Year,
			Items:   make([]Item, 0, len(g.Publications)),
		}
		for _, r := range g.Publications {
			s.Items = append(s.Items, NewItem(r))
		}
		v.Sections = append(v.Sections, s)
	}
	return v
}

// NewItem renders a single record.
func NewItem(r publication.Record) Item {
	item := Item{
		ID:     r.ID,
		Title:  DisplayText(r.Title),
		Type:   r.Type,
		Status: r.Status,
	}
	if !r.Inactive() {
		item.Active = true
		item.Href = r.URL
	}
	return item
}

// DisplayText reduces an untrusted title to plain text.
func DisplayText(s string) string {
	return html.UnescapeString(textPolicy.Sanitize(s))
}

// Text is the item's full rendered text, the value searched by the filter.
func (i Item) Text() string {
	return i.Title
}

// Headings returns the section headings in display order, for year pickers.
func (v View) Headings() []string {
	headings := make([]string, len(v.Sections))
	for i, s := range v.Sections {
		headings[i] = s.Heading
	}
	return headings
}

// VisibleItems returns the items a reader can currently see, in page order.
func (v View) VisibleItems() []Item {
	var items []Item
	for _, s := range v.Sections {
		if s.Hidden {
			continue
		}
		for _, it := range s.Items {
			if !it.Hidden {
				items = append(items, it)
			}
		}
	}
	return items
}

// VisibleCount returns how many of the section's items are shown.
func (s Section) VisibleCount() int {
	n := 0
	for _, it := range s.Items {
		if !it.Hidden {
			n++
		}
	}
	return n
}

// clone copies the view deeply enough that toggling Hidden leaves v intact.
func (v View) clone() View {
	out := View{Sections: make([]Section, len(v.Sections))}
	for i, s := range v.Sections {
		s.Items = append([]Item(nil), s.Items...)
		out.Sections[i] = s
	}
	return out
}
