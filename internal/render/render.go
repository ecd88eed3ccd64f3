// Package render turns catalog views into HTML pages.
package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/slowvak/midel/internal/auth"
	"github.com/slowvak/midel/internal/catalog"
	"github.com/slowvak/midel/internal/issue"
)

// LoadErrorMessage is the only thing shown when the catalog cannot be loaded.
const LoadErrorMessage = "Unable to load publications. Please try again later."

// DefaultTitle is the page heading.
const DefaultTitle = "Publications"

//go:embed page.html.tmpl
var pageTemplateText string

// compiledTemplate is parsed at init time to fail fast on template errors.
var compiledTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"lower": strings.ToLower,
}).Parse(pageTemplateText))

// Page is the data for one page view.
type Page struct {
	Title     string
	View      catalog.View
	Filter    catalog.Filter
	Error     string // When set, nothing but the message is rendered
	Static    bool   // Omit filter, login and submission controls
	Session   auth.Session
	Flash     string
	Form      issue.Submission
	Duplicate *catalog.CheckResult
}

// ErrorPage returns the page shown when the catalog failed to load.
func ErrorPage(session auth.Session) Page {
	return Page{Title: DefaultTitle, Error: LoadErrorMessage, Session: session}
}

// Write renders p to w.
func Write(w io.Writer, p Page) error {
	if p.Title == "" {
		p.Title = DefaultTitle
	}
	var buf bytes.Buffer
	if err := compiledTemplate.Execute(&buf, p); err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// HTML renders p to a string.
func HTML(p Page) (string, error) {
	var b strings.Builder
	if err := Write(&b, p); err != nil {
		return "", err
	}
	return b.String(), nil
}

var (
	markdown      = goldmark.New(goldmark.WithExtensions(extension.GFM))
	previewPolicy = bluemonday.UGCPolicy()
)

// Markdown converts an issue body to sanitized HTML for previews.
func Markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return template.HTML(previewPolicy.SanitizeBytes(buf.Bytes())), nil
}

var previewTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Preview: {{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<article id="issue-preview">{{.Body}}</article>
<p><a id="open-issue" href="{{.URL}}" target="_blank" rel="noopener noreferrer">Open GitHub issue</a></p>
<p><a href="/">Back to publications</a></p>
</body>
</html>
`))

// WritePreview renders the issue preview page.
func WritePreview(w io.Writer, iss *issue.Issue) error {
	body, err := Markdown(iss.Body)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	err = previewTemplate.Execute(&buf, struct {
		Title string
		Body  template.HTML
		URL   string
	}{iss.Title, body, iss.URL})
	if err != nil {
		return fmt.Errorf("rendering preview: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}
