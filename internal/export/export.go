package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/slowvak/midel/internal/publication"
)

// Format is an export format.
type Format string

// Supported formats.
const (
	FormatJSON   Format = "json"
	FormatBibTeX Format = "bibtex"
	FormatText   Format = "text"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatBibTeX, FormatText}

// ParseFormat validates a format name. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatJSON, nil
	}
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q (want json, bibtex or text)", s)
}

// Extension returns the file extension for the format.
func (f Format) Extension() string {
	switch f {
	case FormatBibTeX:
		return "bib"
	case FormatText:
		return "txt"
	default:
		return "json"
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatBibTeX:
		return "application/x-bibtex; charset=utf-8"
	case FormatText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// Filename is the download name used by the server.
func (f Format) Filename() string {
	return "midel-publications." + f.Extension()
}

// Citation is one exported entry.
type Citation struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Year  string `json:"year"`
	URL   string `json:"url"`
}

// Citations returns the citable records of c in display order: published
// records with a real link. Older records carry the year "various".
func Citations(c publication.Catalog) []Citation {
	cs := []Citation{}
	for _, e := range publication.Sorted(c).Entries() {
		if !e.Record.Citable() {
			continue
		}
		cs = append(cs, Citation{
			ID:    e.Record.ID,
			Title: e.Record.Title,
			Year:  e.Year.Citation(),
			URL:   e.Record.URL,
		})
	}
	return cs
}

// Render writes cs in format f.
func Render(cs []Citation, f Format) ([]byte, error) {
	switch f {
	case FormatJSON, "":
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cs); err != nil {
			return nil, fmt.Errorf("encoding citations: %w", err)
		}
		return buf.Bytes(), nil
	case FormatBibTeX:
		return []byte(ToBibTeXList(cs)), nil
	case FormatText:
		var b strings.Builder
		for _, c := range cs {
			fmt.Fprintf(&b, "%s\t%s\t%s\t%s\n", c.ID, c.Year, oneLine(c.Title), c.URL)
		}
		return []byte(b.String()), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", f)
	}
}

// oneLine keeps a title on a single tab-free line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
