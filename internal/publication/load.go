package publication

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// ErrMalformed is returned when the catalog document breaks a structural invariant.
var ErrMalformed = errors.New("malformed catalog")

// Warning describes a non-fatal problem found while loading.
// Records with warnings still load; their missing fields render empty.
type Warning struct {
	Group   int    `json:"group"`
	Index   int    `json:"index"`
	ID      string `json:"id,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("group %d, publication %d: %s", w.Group, w.Index, w.Message)
}

// rawRecord mirrors Record with pointers so absent keys can be told apart
// from empty ones.
type rawRecord struct {
	ID     string  `json:"id"`
	Title  *string `json:"title"`
	URL    *string `json:"url"`
	Type   Type    `json:"type"`
	Status Status  `json:"status"`
}

// Parse decodes a catalog document.
//
// Every group must carry a year and a publications array (possibly empty);
// violating either is fatal. Records missing a title or url are kept with
// empty values and reported as warnings.
func Parse(data []byte) (Catalog, []Warning, error) {
	var groups []struct {
		Year         *Year             `json:"year"`
		Publications *[]json.RawMessage `json:"publications"`
	}
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, nil, fmt.Errorf("parsing catalog: %w", err)
	}

	catalog := make(Catalog, 0, len(groups))
	var warnings []Warning

	for gi, g := range groups {
		if g.Year == nil {
			return nil, nil, fmt.Errorf("%w: group %d has no year", ErrMalformed, gi)
		}
		if g.Publications == nil {
			return nil, nil, fmt.Errorf("%w: group %d (%s) has no publications array", ErrMalformed, gi, g.Year)
		}

		group := YearGroup{Year: *g.Year, Publications: make([]Record, 0, len(*g.Publications))}
		for pi, raw := range *g.Publications {
			var rr rawRecord
			if err := json.Unmarshal(raw, &rr); err != nil {
				return nil, nil, fmt.Errorf("%w: group %d publication %d: %v", ErrMalformed, gi, pi, err)
			}

			rec := Record{ID: rr.ID, Type: rr.Type, Status: rr.Status}
			if rr.Title != nil {
				rec.Title = *rr.Title
			} else {
				warnings = append(warnings, Warning{Group: gi, Index: pi, ID: rr.ID, Field: "title", Message: "missing title"})
			}
			if rr.URL != nil {
				rec.URL = *rr.URL
			} else {
				warnings = append(warnings, Warning{Group: gi, Index: pi, ID: rr.ID, Field: "url", Message: "missing url"})
			}
			group.Publications = append(group.Publications, rec)
		}
		catalog = append(catalog, group)
	}

	return catalog, warnings, nil
}

// Load reads and parses the catalog file at path.
func Load(path string) (Catalog, []Warning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Sorted returns a copy of c with groups ordered most recent first and the
// Older group last. Groups with equal years keep their file order.
func Sorted(c Catalog) Catalog {
	out := slices.Clone(c)
	slices.SortStableFunc(out, func(a, b YearGroup) int {
		return CompareYears(a.Year, b.Year)
	})
	return out
}

// Encode renders the catalog in the on-disk format (two-space indentation,
// no HTML escaping so titles stay readable).
func Encode(c Catalog) ([]byte, error) {
	out := make(Catalog, len(c))
	for i, g := range c {
		if g.Publications == nil {
			g.Publications = []Record{}
		}
		out[i] = g
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	err := enc.Encode(out)
	if err != nil {
		return nil, fmt.Errorf("encoding catalog: %w", err)
	}
	return buf.Bytes(), nil
}

// Save sorts c and writes it to path. An existing file is first renamed to
// "<path>.backup.<timestamp>"; the backup path is returned ("" when there
// was nothing to back up).
func Save(path string, c Catalog, now time.Time) (string, error) {
	data, err := Encode(Sorted(c))
	if err != nil {
		return "", err
	}

	var backup string
	if _, err := os.Stat(path); err == nil {
		backup = BackupPath(path, now)
		if err := os.Rename(path, backup); err != nil {
			return "", fmt.Errorf("creating backup: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return backup, fmt.Errorf("creating catalog directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return backup, fmt.Errorf("writing catalog: %w", err)
	}
	return backup, nil
}

// BackupPath returns the name Save uses for the previous version of path.
func BackupPath(path string, now time.Time) string {
	return path + ".backup." + now.Format("20060102_150405")
}
