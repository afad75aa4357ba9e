package ui

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/varsilias/chatpad/internal/chat"
	"github.com/varsilias/chatpad/internal/models"
	"github.com/varsilias/chatpad/internal/session"
)

// Status tells the UI whether the backing model client is usable. While it
// is not, the home page turns into setup instructions and chat posts are
// refused before they reach the controller.
type Status int

const (
	StatusReady Status = iota
	StatusNoKey
	StatusBadKey
)

type Config struct {
	TemplatesDir string // defaults to web/templates
	DefaultModel string
	Status       Status
	StatusDetail string // shown on the setup page when the key was rejected
}

type UI struct {
	log          *slog.Logger
	tpl          *template.Template
	chat         *chat.Controller
	models       models.Manager
	sessions     session.Store
	md           goldmark.Markdown
	defaultModel string
	status       Status
	detail       string
}

func New(log *slog.Logger, c *chat.Controller, m models.Manager, s session.Store, cfg Config) (*UI, error) {
	dir := cfg.TemplatesDir
	if dir == "" {
		dir = "web/templates"
	}

	// Parse all templates (pages + partials). Disk parsing keeps the
	// edit/reload loop short during development.
	t := template.New("root")
	var err error
	if t, err = t.ParseGlob(filepath.Join(dir, "*.html")); err != nil {
		return nil, err
	}
	if t, err = t.ParseGlob(filepath.Join(dir, "partials", "*.html")); err != nil {
		return nil, err
	}

	md := goldmark.New(
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		goldmark.WithExtensions(
			highlighting.NewHighlighting(
				highlighting.WithStyle("dracula"),
				highlighting.WithFormatOptions(
					// Inline styles, no external highlight CSS needed
					chromahtml.WithLineNumbers(false),
				),
			),
		),
	)

	return &UI{
		log:          log,
		tpl:          t,
		chat:         c,
		models:       m,
		sessions:     s,
		md:           md,
		defaultModel: cfg.DefaultModel,
		status:       cfg.Status,
		detail:       cfg.StatusDetail,
	}, nil
}

type MsgView struct {
	Role    string
	HTML    template.HTML
	Latency int64
	At      string
}

// BannerView is the data for the error banner fragment.
type BannerView struct {
	Kind    string
	Message string
}

// mdHTML converts markdown to HTML and sanitizes the result. Raw HTML typed
// into the chat box is stripped here; the highlighter's class and style
// attributes survive.
func (u *UI) mdHTML(src string) template.HTML {
	var buf bytes.Buffer
	_ = u.md.Convert([]byte(src), &buf)

	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").OnElements("code", "pre", "span")
	p.AllowAttrs("style").OnElements("span")

	safe := p.SanitizeBytes(buf.Bytes())
	return template.HTML(safe)
}

func (u *UI) render(w http.ResponseWriter, name string, data any, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := u.tpl.ExecuteTemplate(w, name, data); err != nil {
		u.errTpl(w, err)
	}
}

// writeFragment appends one partial to an already started response body.
func (u *UI) writeFragment(w http.ResponseWriter, name string, data any) {
	if err := u.tpl.ExecuteTemplate(w, name, data); err != nil {
		u.errTpl(w, err)
	}
}

func (u *UI) errTpl(w http.ResponseWriter, err error) {
	u.log.Error("template execute", "err", err)
	_, _ = w.Write([]byte("<pre>template error: " + err.Error() + "</pre>"))
}
