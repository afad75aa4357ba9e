package ui

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/varsilias/chatpad/internal/buildinfo"
	"github.com/varsilias/chatpad/internal/chat"
	"github.com/varsilias/chatpad/internal/config"
	"github.com/varsilias/chatpad/internal/openai"
	"github.com/varsilias/chatpad/internal/session"
)

func RegisterRoutes(mux *chi.Mux, u *UI) {
	mux.Get("/", u.Home)
	mux.Post("/ui/chat", u.ChatPost)
	mux.Post("/ui/session/new", u.NewSession)
	mux.Get("/ui/version-pill", u.VersionPill)
	mux.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))
}

// Home shows the chat page, or setup instructions while no usable API key
// is configured. Optional session via query: /?s=<id>
func (u *UI) Home(w http.ResponseWriter, r *http.Request) {
	if u.status != StatusReady {
		u.render(w, "setup.html", map[string]any{
			"EnvKey":  config.EnvAPIKey,
			"BadKey":  u.status == StatusBadKey,
			"Detail":  u.detail,
			"Version": buildinfo.Version,
		}, http.StatusOK)
		return
	}

	sid := strings.TrimSpace(r.URL.Query().Get("s"))
	if sid == "" {
		sid = "default"
	}

	// preload models; fall back to the configured default so the selector
	// is never empty when the remote listing is unavailable
	mods, _ := u.models.List(r.Context())
	if len(mods) == 0 {
		mods = []string{u.defaultModel}
	}

	// visible history only, the system instruction stays server side
	msgs, _ := u.sessions.Visible(sid)
	hist := make([]MsgView, 0, len(msgs))
	for _, m := range msgs {
		hist = append(hist, MsgView{Role: string(m.Role), HTML: u.mdHTML(m.Content)})
	}

	// sessions list (best effort if memory store)
	var sessions []session.Summary
	if mem, ok := u.sessions.(*session.MemoryStore); ok {
		sessions = mem.List()
		sort.SliceStable(sessions, func(i, j int) bool { return sessions[i].Updated.After(sessions[j].Updated) })
	}

	u.render(w, "chat.html", map[string]any{
		"Models":       mods,
		"DefaultModel": u.defaultModel,
		"SessionID":    sid,
		"History":      hist,
		"Sessions":     sessions,
		"Commit":       buildinfo.Commit,
		"Version":      buildinfo.Version,
		"BuiltAt":      buildinfo.BuiltAt,
	}, http.StatusOK)
}

// ChatPost runs one turn and returns fragments for the scrollback: the user
// bubble, then either the assistant bubble or an error banner. Fragments go
// out with status 200 so htmx swaps them in even when the upstream call
// failed.
func (u *UI) ChatPost(w http.ResponseWriter, r *http.Request) {
	if u.status != StatusReady {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		u.writeFragment(w, "error-banner.html", BannerView{
			Kind:    "config",
			Message: "No usable API key. Set " + config.EnvAPIKey + " and restart the server.",
		})
		return
	}

	_ = r.ParseForm()
	model := r.Form.Get("model")
	msg := strings.TrimSpace(r.Form.Get("message"))
	sid := r.Form.Get("session_id")
	if sid == "" {
		sid = "default"
	}
	if model == "" {
		model = u.defaultModel
	}
	if msg == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	reply, latency, err := u.chat.Chat(r.Context(), sid, model, msg)
	if err != nil {
		u.log.Warn("ui chat turn failed", "session", sid, "err", err.Error())
		if !errors.Is(err, chat.ErrBusy) {
			// The prompt was recorded despite the failure, show its bubble
			// so the page matches the stored transcript.
			u.writeFragment(w, "message.html", MsgView{Role: "user", HTML: u.mdHTML(msg)})
		}
		u.writeFragment(w, "error-banner.html", bannerFor(err))
		return
	}

	u.writeFragment(w, "message.html", MsgView{Role: "user", HTML: u.mdHTML(msg)})
	u.writeFragment(w, "message.html", MsgView{
		Role:    "assistant",
		HTML:    u.mdHTML(reply.Content),
		Latency: latency.Milliseconds(),
		At:      time.Now().Format(time.RFC822),
	})
}

func bannerFor(err error) BannerView {
	if errors.Is(err, chat.ErrBusy) {
		return BannerView{
			Kind:    "busy",
			Message: "A reply is still being generated for this conversation. Wait for it to finish, then try again.",
		}
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return BannerView{Kind: string(apiErr.Kind), Message: apiErr.UserMessage()}
	}
	return BannerView{
		Kind:    "internal",
		Message: "Something went wrong handling this turn. Your message was kept; resubmit to retry.",
	}
}

// NewSession creates a fresh conversation and navigates to it.
func (u *UI) NewSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	if mem, ok := u.sessions.(*session.MemoryStore); ok {
		mem.Touch(id)
	}
	url := "/?s=" + id

	// If this is an htmx request, instruct the client to redirect
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", url)
		w.WriteHeader(http.StatusNoContent) // 204 + HX-Redirect -> full navigation
		return
	}

	// Fallback for non-htmx requests
	http.Redirect(w, r, url, http.StatusFound)
}

type versionVM struct {
	Version string
	Commit  string
	BuiltAt string
}

func (u *UI) VersionPill(w http.ResponseWriter, r *http.Request) {
	// Fragment response; avoid caching so new builds show quickly
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	data := versionVM{
		Version: buildinfo.Version,
		Commit:  buildinfo.Commit,
		BuiltAt: buildinfo.BuiltAt,
	}
	if err := u.tpl.ExecuteTemplate(w, "version-pill.html", data); err != nil {
		u.errTpl(w, err)
	}
}
