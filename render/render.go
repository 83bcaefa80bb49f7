// Package render turns an activity catalog into markup.
//
// Rendering is pure: every function takes a catalog snapshot and returns markup
// with no I/O and no shared state, so pages can be tested without a browser.
// All server-supplied text is escaped by html/template.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/nomis52/clubsignup/catalog"
)

//go:embed templates/*.html
var templateFiles embed.FS

// LoadErrorText replaces the cards when the catalog could not be loaded.
const LoadErrorText = "Error loading activities. Please try again later."

// SelectPlaceholder is the label of the leading, empty-valued dropdown option.
const SelectPlaceholder = "-- Select an activity --"

// UnregisterURLFunc builds the target of a participant's removal control.
type UnregisterURLFunc func(activity, email string) string

// DefaultUnregisterURL points removal controls at the confirmation page.
func DefaultUnregisterURL(activity, email string) string {
	q := url.Values{"activity": {activity}, "email": {email}}
	return "/unregister?" + q.Encode()
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithMarkdownDescriptions renders activity descriptions as markdown.
// Raw HTML inside descriptions is dropped, not passed through.
func WithMarkdownDescriptions(enabled bool) Option {
	return func(r *Renderer) {
		r.markdown = enabled
	}
}

// WithUnregisterURL sets how removal control targets are built.
func WithUnregisterURL(fn UnregisterURLFunc) Option {
	return func(r *Renderer) {
		if fn != nil {
			r.unregisterURL = fn
		}
	}
}

// Renderer renders catalogs with a fixed set of templates.
type Renderer struct {
	markdown      bool
	unregisterURL UnregisterURLFunc
	md            goldmark.Markdown
	tpl           *template.Template
}

// New parses the templates and returns a Renderer.
func New(opts ...Option) (*Renderer, error) {
	r := &Renderer{
		unregisterURL: DefaultUnregisterURL,
		md: goldmark.New(
			goldmark.WithRendererOptions(
				goldmarkHTML.WithHardWraps(),
			),
		),
	}
	for _, opt := range opts {
		opt(r)
	}

	funcs := template.FuncMap{
		"description":   r.description,
		"unregisterURL": func(activity, email string) string { return r.unregisterURL(activity, email) },
	}
	tpl, err := template.New("render").Funcs(funcs).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	r.tpl = tpl
	return r, nil
}

// Cards renders one card per activity in catalog order, or the empty-catalog
// placeholder when there are none.
func (r *Renderer) Cards(cat *catalog.Catalog) (template.HTML, error) {
	data := struct {
		Activities []catalog.Activity
	}{
		Activities: cat.All(),
	}
	return r.execute("cards", data)
}

// LoadError is the markup that replaces the cards when the catalog could not be loaded.
func (r *Renderer) LoadError() template.HTML {
	out, err := r.execute("load-error", nil)
	if err != nil {
		return template.HTML(`<p class="error">` + LoadErrorText + `</p>`)
	}
	return out
}

// Select renders the dropdown options for cat with selected marked.
func (r *Renderer) Select(cat *catalog.Catalog, selected string) (template.HTML, error) {
	return r.execute("select", SelectOptions(cat, selected))
}

func (r *Renderer) execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.tpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

// description returns the escaped description, or its markdown rendering.
func (r *Renderer) description(text string) template.HTML {
	if !r.markdown {
		return template.HTML(template.HTMLEscapeString(text))
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}

// SelectOption is a single dropdown entry.
type SelectOption struct {
	Value    string
	Label    string
	Selected bool
}

// SelectOptions returns the placeholder followed by one option per activity
// name, in catalog order.
func SelectOptions(cat *catalog.Catalog, selected string) []SelectOption {
	names := cat.Names()
	opts := make([]SelectOption, 0, len(names)+1)
	opts = append(opts, SelectOption{Value: "", Label: SelectPlaceholder, Selected: selected == ""})
	for _, name := range names {
		opts = append(opts, SelectOption{Value: name, Label: name, Selected: name == selected})
	}
	return opts
}
