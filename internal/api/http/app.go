package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mind-engage/realfake-survey/internal/labels"
	"github.com/mind-engage/realfake-survey/internal/quiz"
	"github.com/mind-engage/realfake-survey/internal/report"
	"github.com/mind-engage/realfake-survey/internal/session"
	"github.com/mind-engage/realfake-survey/internal/storage"
	syncx "github.com/mind-engage/realfake-survey/internal/sync"
)

// App is everything the handlers share. Deck is built once at startup and
// never mutated.
type App struct {
	Deck     *labels.Deck
	Store    quiz.Store
	Sessions *session.Manager
	Reports  *report.Exporter
	Images   storage.BlobStore
	Events   syncx.Recorder
	Log      *zap.Logger

	StaticMaxAge time.Duration
	Now          func() time.Time
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Routes mounts the survey pages and API on r. Callers wrap r in the
// session middleware.
func Routes(r chi.Router, app *App) {
	r.Group(func(pr chi.Router) {
		pr.Use(NoCache)
		pr.Get("/", IndexHandler(app))
		pr.Get("/images/{index}", ImageHandler(app))
		pr.Post("/predict/", PredictHandler(app))
		pr.Post("/predict", PredictHandler(app))
		pr.Get("/done", DoneHandler(app))
		pr.Get("/report", ReportHandler(app))
		pr.Get("/{index:[0-9]+}", LegacyIndexHandler())
	})
}

// StaticRoutes mounts /static. It must stay outside the session middleware:
// images are publicly cacheable and must never carry a Set-Cookie.
func StaticRoutes(r chi.Router, app *App) {
	r.Route("/static", func(sr chi.Router) {
		MountStatic(sr, app)
	})
}

func imagePath(i int) string { return "/images/" + strconv.Itoa(i) }

// loadState fetches and validates the caller's session. Corrupt state is
// deleted so the next visit starts clean.
func (a *App) loadState(ctx context.Context, sid string) (quiz.State, error) {
	st, err := a.Store.Get(ctx, sid)
	if err != nil {
		return quiz.State{}, err
	}
	if err := st.Validate(a.Deck); err != nil {
		a.Log.Warn("dropping inconsistent session", zap.String("sid", sid), zap.Error(err))
		if derr := a.Store.Delete(ctx, sid); derr != nil {
			a.Log.Error("delete session", zap.String("sid", sid), zap.Error(derr))
		}
		return quiz.State{}, err
	}
	return st, nil
}

func (a *App) saveState(ctx context.Context, sid string, st quiz.State) error {
	return a.Store.Put(ctx, sid, st, a.now().Add(a.Sessions.TTL()))
}

// redirectForMissing sends the caller somewhere sensible when loadState failed.
// A corrupt session also loses its cookie. It reports false for errors that
// are not about the session itself.
func (a *App) redirectForMissing(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case errors.Is(err, quiz.ErrSessionNotFound):
		http.Redirect(w, r, imagePath(0), http.StatusSeeOther)
		return true
	case errors.Is(err, quiz.ErrCorruptState):
		a.Sessions.Clear(w)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return true
	}
	return false
}

type errorBody struct {
	Error  string `json:"error"`
	NewURL string `json:"new_url,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache stops browsers from caching quiz pages, which would replay stale
// images after a reset.
func NoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		h.Set("Cache-Control", "no-store, no-cache, must-revalidate, post-check=0, pre-check=0, max-age=0")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "-1")
		next.ServeHTTP(w, r)
	})
}
