// Package fetch resolves DOIs to publisher PDF links and downloads the PDFs.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Default DOI resolvers, tried in order.
var DefaultResolvers = []string{
	"https://doi.org/",
	"https://dx.doi.org/",
}

// Errors.
var (
	ErrNoPDF      = errors.New("no PDF link found")
	ErrInvalidDOI = errors.New("invalid DOI")
)

const userAgent = "Mozilla/5.0 (compatible; midel-fetch/1.0; +https://github.com/slowvak/MIDeL)"

// CleanDOI strips resolver and "doi:" prefixes from a DOI.
func CleanDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:", "DOI:"} {
		if strings.HasPrefix(doi, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(doi, prefix))
		}
	}
	return doi
}

// IsLikelyPDFURL reports whether u looks like it serves a PDF.
func IsLikelyPDFURL(u string) bool {
	lower := strings.ToLower(u)
	if strings.HasSuffix(lower, ".pdf") {
		return true
	}
	for _, indicator := range []string{"pdf", "download", "filetype=pdf"} {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// Resolver turns DOIs into PDF links by following the DOI redirect and
// reading the landing page.
type Resolver struct {
	httpClient *http.Client
	resolvers  []string
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// Option configures a Resolver or Downloader.
type Option func(*options)

type options struct {
	httpClient *http.Client
	resolvers  []string
	limiter    *rate.Limiter
	logger     *zap.Logger
	retries    int
	backoff    time.Duration
	minSize    int64
}

func defaultOptions() options {
	return options{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		resolvers:  DefaultResolvers,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		logger:     zap.NewNop(),
		retries:    DefaultRetries,
		backoff:    time.Second,
		minSize:    MinPDFSize,
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithResolvers replaces the DOI resolver base URLs.
func WithResolvers(bases ...string) Option {
	return func(o *options) { o.resolvers = bases }
}

// WithLimiter sets the politeness limiter shared by all requests.
func WithLimiter(l *rate.Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRetries sets the download attempt count and the first backoff delay.
func WithRetries(n int, backoff time.Duration) Option {
	return func(o *options) {
		o.retries = n
		o.backoff = backoff
	}
}

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) *Resolver {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Resolver{
		httpClient: o.httpClient,
		resolvers:  o.resolvers,
		limiter:    o.limiter,
		logger:     o.logger,
	}
}

// ResolvePDF returns a PDF link for doi, trying each resolver in turn.
func (r *Resolver) ResolvePDF(ctx context.Context, doi string) (string, error) {
	id := CleanDOI(doi)
	if id == "" {
		return "", ErrInvalidDOI
	}
	if !strings.HasPrefix(id, "10.") {
		r.logger.Warn("DOI does not start with 10.", zap.String("doi", id))
	}

	var lastErr error
	for _, base := range r.resolvers {
		link, err := r.resolveWith(ctx, base+id)
		if err == nil {
			return link, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		r.logger.Debug("resolver failed", zap.String("resolver", base), zap.Error(err))
		lastErr = err
	}
	return "", fmt.Errorf("resolving %s: %w", id, lastErr)
}

func (r *Resolver) resolveWith(ctx context.Context, doiURL string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, doiURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%s: status %d", doiURL, resp.StatusCode)
	}

	landing := resp.Request.URL
	r.logger.Debug("DOI resolved", zap.String("doi_url", doiURL), zap.Stringer("landing", landing))
	if strings.HasSuffix(strings.ToLower(landing.Path), ".pdf") ||
		strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "application/pdf") {
		return landing.String(), nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parsing landing page: %w", err)
	}
	if link := FindPDFLink(doc, landing); link != "" {
		return link, nil
	}
	return "", ErrNoPDF
}

// FindPDFLink looks for a PDF link on a landing page, in order: the
// citation_pdf_url meta tag, any meta content naming a .pdf, the
// publisher rules for base's host, then anchors whose text or href
// suggests a PDF. Relative links are resolved against base. Every
// candidate must still pass IsLikelyPDFURL, so an anchor picked only for
// its text is dropped when its href names neither pdf nor download.
// Returns "" when nothing plausible is found.
func FindPDFLink(doc *goquery.Document, base *url.URL) string {
	var candidates []string

	if content, ok := doc.Find(`meta[name="citation_pdf_url"]`).First().Attr("content"); ok && content != "" {
		candidates = append(candidates, content)
	}
	doc.Find("meta[content]").Each(func(_ int, s *goquery.Selection) {
		content := s.AttrOr("content", "")
		if strings.Contains(strings.ToLower(content), ".pdf") {
			candidates = append(candidates, content)
		}
	})
	candidates = append(candidates, publisherCandidates(doc, base)...)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return
		}
		text := strings.ToLower(strings.TrimSpace(s.Text()))
		lowerHref := strings.ToLower(href)
		if strings.Contains(text, "pdf") || strings.Contains(text, "download") || strings.Contains(text, "full text") ||
			strings.Contains(lowerHref, "pdf") || strings.Contains(lowerHref, "download") {
			candidates = append(candidates, href)
		}
	})

	for _, c := range candidates {
		ref, err := url.Parse(strings.TrimSpace(c))
		if err != nil {
			continue
		}
		abs := ref
		if base != nil {
			abs = base.ResolveReference(ref)
		}
		if abs.Scheme != "http" && abs.Scheme != "https" {
			continue
		}
		if IsLikelyPDFURL(abs.String()) {
			return abs.String()
		}
	}
	return ""
}

// publisherRule matches PDF anchors on one publisher's landing pages.
type publisherRule struct {
	hosts []string
	match func(href, text string) bool
}

func hrefContains(subs ...string) func(href, text string) bool {
	return func(href, _ string) bool {
		for _, sub := range subs {
			if strings.Contains(href, sub) {
				return true
			}
		}
		return false
	}
}

var publisherRules = []publisherRule{
	{
		hosts: []string{"ncbi.nlm.nih.gov"},
		match: func(href, _ string) bool { return strings.Contains(href, "pdf") && strings.Contains(href, "/pmc/") },
	},
	{hosts: []string{"nature.com"}, match: hrefContains(".pdf", "download")},
	{hosts: []string{"sciencedirect.com", "elsevier.com"}, match: hrefContains("pdfdownload", "pdf")},
	{hosts: []string{"springer.com"}, match: hrefContains("content/pdf", "download")},
	{hosts: []string{"wiley.com"}, match: hrefContains("pdfdirect", "pdf")},
	{
		hosts: []string{"ieee.org"},
		match: func(href, text string) bool { return strings.Contains(href, "pdf") && strings.Contains(text, "download") },
	},
}

var pmcArticle = regexp.MustCompile(`/pmc/articles/([^/]+)`)

// publisherCandidates returns links built from known publisher layouts.
// PubMed Central pages get their PDF URL derived from the PMC ID.
func publisherCandidates(doc *goquery.Document, base *url.URL) []string {
	if base == nil {
		return nil
	}
	host := strings.ToLower(base.Hostname())

	var candidates []string
	if strings.HasSuffix(host, "ncbi.nlm.nih.gov") {
		if m := pmcArticle.FindStringSubmatch(base.Path); m != nil {
			candidates = append(candidates, "https://www.ncbi.nlm.nih.gov/pmc/articles/"+m[1]+"/pdf/")
		}
	}
	for _, rule := range publisherRules {
		if !hostMatches(host, rule.hosts) {
			continue
		}
		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			href := strings.TrimSpace(s.AttrOr("href", ""))
			if href != "" && rule.match(href, strings.ToLower(strings.TrimSpace(s.Text()))) {
				candidates = append(candidates, href)
			}
		})
		break
	}
	return candidates
}

func hostMatches(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
