// Package issue builds the pre-filled GitHub issue that carries a publication
// submission to the maintainers. Nothing here touches the catalog: entries
// are added later, after review, by editing the publications file.
package issue

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"text/template"

	"github.com/slowvak/midel/internal/github"
	"github.com/slowvak/midel/internal/publication"
)

// Defaults for the submission target.
const (
	DefaultRepo  = "slowvak/MIDeL"
	DefaultLabel = "publication"
	TitlePrefix  = "Add publication: "
)

// Errors.
var (
	ErrMissingFields = errors.New("missing required fields")
	ErrInvalidField  = errors.New("invalid field")
	ErrNotLoggedIn   = errors.New("log in before submitting")
)

//go:embed body.md.tmpl
var bodyTemplateText string

var bodyTemplate = template.Must(template.New("body").Parse(bodyTemplateText))

// Submission holds the form fields of a new publication.
type Submission struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   string `json:"year"`
	URL    string `json:"url"`
}

// Trimmed returns s with surrounding whitespace removed from every field.
func (s Submission) Trimmed() Submission {
	return Submission{
		Title:  strings.TrimSpace(s.Title),
		Author: strings.TrimSpace(s.Author),
		Year:   strings.TrimSpace(s.Year),
		URL:    strings.TrimSpace(s.URL),
	}
}

// Missing lists the names of empty required fields, in form order.
func (s Submission) Missing() []string {
	s = s.Trimmed()
	var missing []string
	if s.Title == "" {
		missing = append(missing, "title")
	}
	if s.Author == "" {
		missing = append(missing, "author")
	}
	if s.Year == "" {
		missing = append(missing, "year")
	}
	if s.URL == "" {
		missing = append(missing, "url")
	}
	return missing
}

// Validate mirrors the form's own validation: every field is required, the
// year is a number and the URL is an absolute http(s) link.
func (s Submission) Validate() error {
	if missing := s.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}
	s = s.Trimmed()
	if _, err := strconv.Atoi(s.Year); err != nil {
		return fmt.Errorf("%w: year %q is not a number", ErrInvalidField, s.Year)
	}
	u, err := url.Parse(s.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url %q is not an http(s) link", ErrInvalidField, s.URL)
	}
	return nil
}

// Entry returns the record a maintainer would add for s, and the year group
// it belongs in.
func (s Submission) Entry() (publication.Year, publication.Record) {
	s = s.Trimmed()
	rec := publication.Record{
		ID:     publication.GenerateID(s.Year, s.Author, s.Title),
		Title:  s.Title,
		URL:    s.URL,
		Type:   publication.TypeJournal,
		Status: publication.StatusPublished,
	}
	return publication.Category(s.Year), rec
}

// Issue is a built submission.
type Issue struct {
	Title string             `json:"title"`
	Body  string             `json:"body"`
	URL   string             `json:"url"`
	Year  publication.Year   `json:"year"`
	Entry publication.Record `json:"entry"`
}

// Builder creates issue URLs for one repository.
type Builder struct {
	owner  string
	repo   string
	labels []string
}

// NewBuilder parses repo ("owner/name" or a GitHub URL) and returns a builder
// that applies labels to every issue. No labels means DefaultLabel.
func NewBuilder(repo string, labels ...string) (*Builder, error) {
	if repo == "" {
		repo = DefaultRepo
	}
	owner, name, err := github.ParseGitHubURL(repo)
	if err != nil {
		return nil, fmt.Errorf("issue repository %q: %w", repo, err)
	}
	if len(labels) == 0 {
		labels = []string{DefaultLabel}
	}
	return &Builder{owner: owner, repo: name, labels: labels}, nil
}

// Repo returns "owner/name".
func (b *Builder) Repo() string {
	return b.owner + "/" + b.repo
}

// Build validates sub and renders the issue for username. duplicateOverride
// records that the title matched an existing publication and the submitter
// chose to continue. The result is deterministic for equal inputs.
func (b *Builder) Build(sub Submission, username string, duplicateOverride bool) (*Issue, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrNotLoggedIn
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	sub = sub.Trimmed()

	year, entry := sub.Entry()
	entryJSON, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding proposed entry: %w", err)
	}

	var body bytes.Buffer
	err = bodyTemplate.Execute(&body, struct {
		Submission
		Username          string
		Group             string
		EntryJSON         string
		DuplicateOverride bool
	}{
		Submission:        sub,
		Username:          username,
		Group:             year.String(),
		EntryJSON:         string(entryJSON),
		DuplicateOverride: duplicateOverride,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering issue body: %w", err)
	}

	iss := &Issue{
		Title: TitlePrefix + sub.Title,
		Body:  body.String(),
		Year:  year,
		Entry: entry,
	}
	iss.URL = b.URL(iss.Title, iss.Body)
	return iss, nil
}

// URL returns the issue-creation link for the given title and body.
func (b *Builder) URL(title, body string) string {
	q := url.Values{}
	q.Set("title", title)
	q.Set("body", body)
	q.Set("labels", strings.Join(b.labels, ","))
	return fmt.Sprintf("https://github.com/%s/%s/issues/new?%s", b.owner, b.repo, q.Encode())
}
