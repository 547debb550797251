// Package stubapp serves the TaskFlow AI fixture pages the browser test
// suite drives. It implements only the data-testid UI contract the suite
// depends on: login form, dashboard board with tasks/projects/filters,
// assistant chat with a canned SSE reply stream, workflow panel, mobile
// navigation, and a PWA manifest. It is test infrastructure, not the
// product: no persistence beyond the page, no AI calls.
package stubapp

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/google/uuid"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	// SessionCookieName is the cookie the fixture app issues on login.
	SessionCookieName = "taskflow_session"

	// DefaultEmail and DefaultPassword are the fixed test credentials the
	// login form accepts unless overridden.
	DefaultEmail    = "test@taskflow.ai"
	DefaultPassword = "TestPassword123!"
)

// seededTask is a task rendered server-side on first dashboard load.
// Seeded names deliberately avoid the "Test Task"/"Test Project" prefixes so
// cleanup helpers can prove they leave unrelated items alone.
type seededTask struct {
	ID      string
	Title   string
	Status  string
	Project string
}

type seededProject struct {
	Name string
}

var (
	seedTasks = []seededTask{
		{ID: "seed-1", Title: "Quarterly planning review", Status: "in-progress", Project: "Atlas"},
		{ID: "seed-2", Title: "Fix onboarding emails", Status: "todo", Project: "Phoenix"},
	}
	seedProjects = []seededProject{
		{Name: "Atlas"},
		{Name: "Phoenix"},
	}

	workflowSteps = []string{
		"Collect requirements",
		"Plan sprint",
		"Ship release",
	}

	suggestionPool = []string{
		"Close out the two oldest in-progress tasks before starting new work.",
		"Split 'Plan sprint' into estimation and scheduling sub-steps.",
		"Review tasks without a project and file them under Atlas or Phoenix.",
	}

	// assistantReply is the canned SSE answer, streamed in parts.
	assistantReply = []string{
		"Here is what I'd focus on: ",
		"finish the onboarding fixes, ",
		"then review the release checklist.",
	}
)

// App is the fixture application. One instance backs one test server.
type App struct {
	Email    string
	Password string

	tmpl   *template.Template
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]string // session id -> email
	suggestN int
}

// New parses the embedded templates and returns a ready App accepting the
// default test credentials.
func New(logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse fixture templates: %w", err)
	}
	return &App{
		Email:    DefaultEmail,
		Password: DefaultPassword,
		tmpl:     tmpl,
		logger:   logger,
		sessions: make(map[string]string),
	}, nil
}

// Handler returns the full route mux wrapped with request logging.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", a.handleRoot)
	mux.HandleFunc("POST /login", a.handleLogin)
	mux.Handle("GET /dashboard", a.requireSession(a.pageHandler("dashboard.html", "Dashboard")))
	mux.Handle("GET /chat", a.requireSession(a.pageHandler("chat.html", "Chat")))
	mux.Handle("GET /workflows", a.requireSession(a.pageHandler("workflows.html", "Workflows")))
	mux.HandleFunc("GET /manifest.webmanifest", a.handleManifest)
	mux.Handle("POST /api/chat/stream", a.requireSession(http.HandlerFunc(a.handleChatStream)))
	mux.Handle("GET /api/workflows/suggest", a.requireSession(http.HandlerFunc(a.handleSuggest)))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy"}`))
	})

	return a.logRequests(mux)
}

// pageData is what every template receives.
type pageData struct {
	Title    string
	Error    string
	Tasks    []seededTask
	Projects []seededProject
	Steps    []string
}

func (a *App) render(w http.ResponseWriter, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.tmpl.ExecuteTemplate(w, name, data); err != nil {
		a.logger.Error("render failed", "template", name, "err", err)
	}
}

func (a *App) handleRoot(w http.ResponseWriter, r *http.Request) {
	if a.hasSession(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	a.render(w, "login.html", pageData{Title: "Sign in"})
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	if email != a.Email || password != a.Password {
		w.WriteHeader(http.StatusUnauthorized)
		a.render(w, "login.html", pageData{Title: "Sign in", Error: "Invalid email or password"})
		return
	}

	sessionID := uuid.NewString()
	a.mu.Lock()
	a.sessions[sessionID] = email
	a.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (a *App) hasSession(r *http.Request) bool {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.sessions[cookie.Value]
	return ok
}

func (a *App) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.hasSession(r) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *App) pageHandler(name, title string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.render(w, name, pageData{
			Title:    title,
			Tasks:    seedTasks,
			Projects: seedProjects,
			Steps:    workflowSteps,
		})
	})
}

func (a *App) handleManifest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/manifest+json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":       "TaskFlow AI",
		"short_name": "TaskFlow",
		"start_url":  "/dashboard",
		"display":    "standalone",
	})
}

// handleChatStream streams a canned assistant reply as SSE message events
// carrying delta fragments, terminated by a done event.
func (a *App) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for _, part := range assistantReply {
		if err := sse.Encode(w, sse.Event{
			Event: "message",
			Data:  map[string]string{"delta": part},
		}); err != nil {
			return
		}
		flusher.Flush()
		select {
		case <-r.Context().Done():
			return
		case <-time.After(20 * time.Millisecond):
		}
	}
	if err := sse.Encode(w, sse.Event{
		Event: "done",
		Data:  map[string]bool{"ok": true},
	}); err != nil {
		return
	}
	flusher.Flush()
}

// handleSuggest cycles through the suggestion pool so repeated requests in
// one test run see distinct suggestions.
func (a *App) handleSuggest(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	suggestion := suggestionPool[a.suggestN%len(suggestionPool)]
	a.suggestN++
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"suggestion": suggestion})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Flush passes through so SSE streaming keeps working behind the recorder.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (a *App) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
