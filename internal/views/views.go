// Package views renders the blog's HTML pages.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"til/internal/models"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names accepted by Render.
const (
	PageIndex    = "index"
	PageAuthn    = "authn"
	PageDuo      = "duo"
	PageGreeting = "greeting"
)

// IndexData is the post listing.
type IndexData struct {
	BlogName string
	Posts    []models.Post
}

type AuthnData struct {
	BlogName string
}

// DuoData feeds the second-factor challenge frame.
type DuoData struct {
	BlogName   string
	Host       string
	SigRequest string
	PostAction string
}

type GreetingData struct {
	BlogName string
	Username string
}

// Renderer holds the parsed templates. It is safe for concurrent use.
type Renderer struct {
	blogName string
	tmpl     *template.Template
	md       goldmark.Markdown
}

// New parses the embedded templates. Every page is rendered with blogName
// in its header.
func New(blogName string) (*Renderer, error) {
	r := &Renderer{
		blogName: blogName,
		// raw HTML in post bodies is omitted
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}

	tmpl, err := template.New("til").Funcs(template.FuncMap{
		"markdown": r.markdown,
		"date":     func(t time.Time) string { return t.UTC().Format("2006-01-02") },
		"iso":      func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.tmpl = tmpl
	return r, nil
}

func (r *Renderer) Index(w io.Writer, posts []models.Post) error {
	return r.render(w, PageIndex, IndexData{BlogName: r.blogName, Posts: posts})
}

func (r *Renderer) Authn(w io.Writer) error {
	return r.render(w, PageAuthn, AuthnData{BlogName: r.blogName})
}

func (r *Renderer) Duo(w io.Writer, host, sigRequest, postAction string) error {
	return r.render(w, PageDuo, DuoData{
		BlogName:   r.blogName,
		Host:       host,
		SigRequest: sigRequest,
		PostAction: postAction,
	})
}

func (r *Renderer) Greeting(w io.Writer, username string) error {
	return r.render(w, PageGreeting, GreetingData{BlogName: r.blogName, Username: username})
}

// render executes into a buffer first so a failing template never leaves a
// half-written page.
func (r *Renderer) render(w io.Writer, page string, data any) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, page, data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func (r *Renderer) markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	// #nosec G203: goldmark runs without WithUnsafe
	return template.HTML(buf.String()), nil
}
