// Package render turns curation results into the final HTML newsletter.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"newsroom/internal/curate"
	"os"
	"path/filepath"
	"time"
)

// DefaultTitle is the heading used when Options.Title is empty.
const DefaultTitle = "Your Weekly Digest"

// ErrUnknownResult is returned for curate.Result variants the renderer does not know.
var ErrUnknownResult = errors.New("unknown curation result variant")

// Options controls the newsletter chrome around the curated content.
type Options struct {
	Title   string
	LogoURL string
	Date    time.Time
	Theme   Theme
}

type pageData struct {
	Title   string
	LogoURL string
	Date    string
	CSS     template.CSS
	Curated *curate.CurationResult
	Raw     string
}

var newsletterTemplate = template.Must(template.New("newsletter").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style type="text/css">{{.CSS}}</style>
</head>
<body>
    <div class="container">
        {{if .LogoURL}}<img src="{{.LogoURL}}" class="header-logo" alt="">{{end}}
        <h1>{{.Title}}</h1>
        <p class="date">{{.Date}}</p>
{{with .Curated}}
        <div class="section" id="intro">
            <h2>Intro</h2>
            <p>{{.Intro}}</p>
        </div>

        <div class="section" id="curated-links">
            <h2>Curated Links</h2>
            {{range .CuratedLinks}}
            <div class="card">
                <h3>{{.Title}}</h3>
                <p>{{.Summary}}{{if .Source}} ({{.Source}}){{end}}</p>
                {{if .Link}}<a href="{{.Link}}" class="button">Read More</a>{{end}}
            </div>
            {{end}}
        </div>

        <div class="section" id="summaries">
            <h2>Summaries</h2>
            {{range .Summaries}}
            <div>
                <h3>{{.Topic}}</h3>
                <p>{{.Blurb}}</p>
            </div>
            {{end}}
        </div>

        <div class="section" id="commentary">
            <h2>Commentary</h2>
            <p>{{.Commentary}}</p>
        </div>

        <div class="section" id="trends">
            <h2>Trends to Watch</h2>
            {{range .Trends}}
            <div class="card">
                <h3>{{.Title}}</h3>
                <p>{{.Explainer}}</p>
                {{if .Link}}<a href="{{.Link}}" class="button">Read More</a>{{end}}
            </div>
            {{end}}
        </div>
{{else}}
        <div class="section" id="newsletter">
            <h2>Newsletter</h2>
            <pre class="raw">{{.Raw}}</pre>
        </div>
{{end}}
        <div class="footer">
            <p><a href="#">Unsubscribe</a> | <a href="#">Contact Us</a></p>
        </div>
    </div>
</body>
</html>
`))

// HTML renders a curation result. Both Curated and RawFallback are supported;
// any other variant yields ErrUnknownResult.
func HTML(result curate.Result, opts Options) (string, error) {
	data := pageData{
		Title:   opts.Title,
		LogoURL: opts.LogoURL,
	}
	if data.Title == "" {
		data.Title = DefaultTitle
	}
	date := opts.Date
	if date.IsZero() {
		date = time.Now()
	}
	data.Date = date.Format("January 2, 2006")
	theme := opts.Theme
	if theme.Name == "" {
		theme = DefaultTheme()
	}
	data.CSS = theme.css()

	switch r := result.(type) {
	case curate.Curated:
		data.Curated = &r.CurationResult
	case *curate.Curated:
		if r == nil {
			return "", ErrUnknownResult
		}
		data.Curated = &r.CurationResult
	case curate.RawFallback:
		data.Raw = r.RawText
	case *curate.RawFallback:
		if r == nil {
			return "", ErrUnknownResult
		}
		data.Raw = r.RawText
	default:
		return "", fmt.Errorf("%w: %T", ErrUnknownResult, result)
	}

	var buf bytes.Buffer
	if err := newsletterTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute newsletter template: %w", err)
	}
	return buf.String(), nil
}

// Subject returns the email subject line for a newsletter.
func Subject(title string, date time.Time) string {
	if title == "" {
		title = DefaultTitle
	}
	return fmt.Sprintf("%s - %s", title, date.Format("January 2, 2006"))
}

// WriteHTMLFile writes rendered HTML to path, creating parent directories.
func WriteHTMLFile(content, path string) (string, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write newsletter file %s: %w", path, err)
	}
	return path, nil
}
