package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"go.uber.org/zap"

	"github.com/slowvak/midel/internal/publication"
)

// Skip reasons.
const (
	ReasonMissingFields = "missing title or DOI"
	ReasonDuplicate     = "duplicate title"
)

// URLResolver finds a link for a DOI. Implemented by fetch.Resolver.
type URLResolver interface {
	ResolvePDF(ctx context.Context, doi string) (string, error)
}

// Added describes an appended record.
type Added struct {
	Line   int                `json:"line"`
	Year   publication.Year   `json:"year"`
	Record publication.Record `json:"record"`
}

// Skipped describes a row that was not imported.
type Skipped struct {
	Line   int    `json:"line"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// Result summarises an import.
type Result struct {
	Added   []Added   `json:"added"`
	Skipped []Skipped `json:"skipped"`
	Backup  string    `json:"backup,omitempty"`
	Saved   bool      `json:"saved"`
}

// Importer appends CSV rows to a catalog.
type Importer struct {
	resolver URLResolver
	logger   *zap.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithResolver looks up a PDF link for each new record. Without a resolver
// new records get the NotAvailableYet placeholder.
func WithResolver(r URLResolver) Option {
	return func(i *Importer) {
		i.resolver = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(i *Importer) {
		i.logger = l
	}
}

// New creates an Importer.
func New(opts ...Option) *Importer {
	i := &Importer{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Apply appends rows to a copy of c and returns the new catalog. Rows
// missing a title or DOI, and titles already present in c or earlier in
// rows, are skipped. c itself is not modified.
func (im *Importer) Apply(ctx context.Context, c publication.Catalog, rows []Row) (publication.Catalog, Result, error) {
	out := cloneCatalog(c)
	res := Result{Added: []Added{}, Skipped: []Skipped{}}

	seen := make(map[string]bool)
	for _, e := range out.Entries() {
		seen[publication.NormalizeTitle(e.Record.Title)] = true
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, res, err
		}
		if !row.Complete() {
			im.logger.Warn("skipping row", zap.Int("line", row.Line), zap.String("reason", ReasonMissingFields))
			res.Skipped = append(res.Skipped, Skipped{Line: row.Line, Title: row.Title, Reason: ReasonMissingFields})
			continue
		}
		key := publication.NormalizeTitle(row.Title)
		if seen[key] {
			im.logger.Warn("duplicate publication", zap.Int("line", row.Line), zap.String("title", row.Title))
			res.Skipped = append(res.Skipped, Skipped{Line: row.Line, Title: row.Title, Reason: ReasonDuplicate})
			continue
		}
		seen[key] = true

		rec := publication.Record{
			ID:     publication.GenerateID(row.Year, row.Author, row.Title),
			Title:  row.Title,
			URL:    publication.PlaceholderPending,
			Type:   publication.TypeJournal,
			Status: publication.StatusPublished,
		}
		if im.resolver != nil {
			u, err := im.resolver.ResolvePDF(ctx, row.DOI)
			switch {
			case err == nil && u != "":
				rec.URL = u
			case ctx.Err() != nil:
				return nil, res, ctx.Err()
			default:
				im.logger.Info("no PDF link found", zap.String("doi", row.DOI), zap.Error(err))
			}
		}

		year := publication.Category(row.Year)
		gi := out.Group(year)
		if gi < 0 {
			out = append(out, publication.YearGroup{Year: year})
			gi = len(out) - 1
		}
		out[gi].Publications = append(out[gi].Publications, rec)

		im.logger.Debug("added publication", zap.String("id", rec.ID), zap.Stringer("year", year))
		res.Added = append(res.Added, Added{Line: row.Line, Year: year, Record: rec})
	}

	return out, res, nil
}

// ImportFile applies rows to the catalog file at path, starting from an
// empty catalog when the file does not exist yet. Unless dryRun is set and
// when at least one record was added, the file is saved after the previous
// version is moved to a timestamped backup.
func (im *Importer) ImportFile(ctx context.Context, path string, rows []Row, dryRun bool, now time.Time) (Result, error) {
	c, _, err := publication.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Result{}, fmt.Errorf("loading catalog: %w", err)
	}

	updated, res, err := im.Apply(ctx, c, rows)
	if err != nil {
		return res, err
	}
	if dryRun || len(res.Added) == 0 {
		return res, nil
	}

	backup, err := publication.Save(path, updated, now)
	if err != nil {
		return res, fmt.Errorf("saving catalog: %w", err)
	}
	res.Backup = backup
	res.Saved = true
	im.logger.Info("catalog updated", zap.String("path", path),
		zap.Int("added", len(res.Added)), zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

func cloneCatalog(c publication.Catalog) publication.Catalog {
	out := make(publication.Catalog, len(c))
	for i, g := range c {
		out[i] = publication.YearGroup{
			Year:         g.Year,
			Publications: append([]publication.Record(nil), g.Publications...),
		}
	}
	return out
}
