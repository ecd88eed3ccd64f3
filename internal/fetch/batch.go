package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/slowvak/midel/internal/importer"
)

// ReportFile is written into the output directory after a batch.
const ReportFile = "download_report.txt"

const maxNamePart = 200

var (
	unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespaceRuns      = regexp.MustCompile(`\s+`)
)

// CleanFilename makes text safe as part of a filename.
func CleanFilename(text string) string {
	cleaned := unsafeFilenameChars.ReplaceAllString(text, "")
	cleaned = strings.TrimSpace(whitespaceRuns.ReplaceAllString(cleaned, " "))
	if r := []rune(cleaned); len(r) > maxNamePart {
		cleaned = string(r[:maxNamePart]) + "..."
	}
	return cleaned
}

// Filename returns "<year>-<author>-<title>.pdf" for a row, skipping empty parts.
func Filename(row importer.Row) string {
	var parts []string
	for _, p := range []string{row.Year, row.Author, row.Title} {
		if c := CleanFilename(p); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, "-") + ".pdf"
}

// Failure records a row that could not be downloaded.
type Failure struct {
	Line   int    `json:"line"`
	Title  string `json:"title"`
	Author string `json:"author"`
	DOI    string `json:"doi"`
	Reason string `json:"reason"`
}

// Report summarises a batch.
type Report struct {
	Dir        string    `json:"dir"`
	Successful int       `json:"successful"`
	Existing   int       `json:"existing"`
	Failed     int       `json:"failed"`
	Files      []string  `json:"files"`
	Failures   []Failure `json:"failures"`
}

// Total returns the number of processed rows.
func (r Report) Total() int {
	return r.Successful + r.Failed
}

// Fetcher resolves and downloads the PDFs of CSV rows, one at a time.
type Fetcher struct {
	resolver   *Resolver
	downloader *Downloader
	logger     *zap.Logger
}

// NewFetcher creates a Fetcher. The options apply to both the resolver and
// the downloader, so a WithLimiter limiter paces every request.
func NewFetcher(opts ...Option) *Fetcher {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	shared := append([]Option{WithLimiter(o.limiter), WithLogger(o.logger)}, opts...)
	return &Fetcher{
		resolver:   NewResolver(shared...),
		downloader: NewDownloader(shared...),
		logger:     o.logger,
	}
}

// Run downloads every row into dir. Rows whose file already exists count as
// successful without a request. Row failures are collected in the report;
// only context cancellation aborts the batch.
func (f *Fetcher) Run(ctx context.Context, rows []importer.Row, dir string) (Report, error) {
	rep := Report{Dir: dir, Files: []string{}, Failures: []Failure{}}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return rep, fmt.Errorf("creating output directory: %w", err)
	}

	fail := func(row importer.Row, reason string) {
		rep.Failed++
		rep.Failures = append(rep.Failures, Failure{
			Line: row.Line, Title: row.Title, Author: row.Author, DOI: row.DOI, Reason: reason,
		})
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if !row.Complete() {
			f.logger.Warn("skipping row", zap.Int("line", row.Line), zap.String("reason", "missing title or DOI"))
			fail(row, "missing title or DOI")
			continue
		}

		path := filepath.Join(dir, Filename(row))
		if _, err := os.Stat(path); err == nil {
			f.logger.Info("file already exists, skipping", zap.String("file", filepath.Base(path)))
			rep.Successful++
			rep.Existing++
			continue
		}

		link, err := f.resolver.ResolvePDF(ctx, row.DOI)
		if err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			fail(row, err.Error())
			continue
		}

		if err := f.downloader.Download(ctx, link, path); err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			fail(row, err.Error())
			continue
		}
		f.logger.Info("downloaded", zap.String("file", filepath.Base(path)))
		rep.Successful++
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	if err != nil {
		return rep, err
	}
	sort.Strings(files)
	for _, file := range files {
		rep.Files = append(rep.Files, filepath.Base(file))
	}
	return rep, nil
}

// WriteReport writes the plain-text report into the report's directory and
// returns its path.
func WriteReport(rep Report, now time.Time) (string, error) {
	var b strings.Builder
	b.WriteString("Publication Download Report\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")
	fmt.Fprintf(&b, "Total processed: %d\n", rep.Total())
	fmt.Fprintf(&b, "Successful downloads: %d\n", rep.Successful)
	fmt.Fprintf(&b, "Failed downloads: %d\n", rep.Failed)
	if rep.Total() > 0 {
		fmt.Fprintf(&b, "Success rate: %.1f%%\n", float64(rep.Successful)/float64(rep.Total())*100)
	}
	b.WriteString("\nDownloaded Files:\n")
	b.WriteString(strings.Repeat("-", 20) + "\n")
	for _, name := range rep.Files {
		size := int64(0)
		if info, err := os.Stat(filepath.Join(rep.Dir, name)); err == nil {
			size = info.Size()
		}
		fmt.Fprintf(&b, "%s (%.1f MB)\n", name, float64(size)/(1024*1024))
	}
	if len(rep.Failures) > 0 {
		fmt.Fprintf(&b, "\nFailed Downloads (%d):\n", len(rep.Failures))
		b.WriteString(strings.Repeat("-", 30) + "\n")
		for _, f := range rep.Failures {
			fmt.Fprintf(&b, "%s | %s | %s\n", f.Title, f.Author, f.DOI)
		}
	}
	fmt.Fprintf(&b, "\nReport generated: %s\n", now.Format("2006-01-02 15:04:05"))

	path := filepath.Join(rep.Dir, ReportFile)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}
