package http

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mind-engage/realfake-survey/internal/quiz"
	"github.com/mind-engage/realfake-survey/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"imageURL": imageURL,
	"percent":  func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
	"inc":      func(i int) int { return i + 1 },
	"verdict": func(isReal bool) string {
		if isReal {
			return "real"
		}
		return "fake"
	},
}

var pages = map[string]*template.Template{
	"index": parsePage("index.html"),
	"image": parsePage("image.html"),
	"done":  parsePage("done.html"),
}

func parsePage(name string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name))
}

// imageURL escapes each path segment of an image key.
func imageURL(name string) string {
	return "/static/images/" + (&url.URL{Path: name}).EscapedPath()
}

func render(w http.ResponseWriter, log *zap.Logger, page string, data any) {
	var buf bytes.Buffer
	if err := pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Error("render template", zap.String("page", page), zap.Error(err))
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// GET /  landing page with the held-out examples
func IndexHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, app.Log, "index", map[string]any{
			"ExamplesReal":   app.Deck.ExamplesReal,
			"ExamplesFake":   app.Deck.ExamplesFake,
			"NumberOfImages": app.Deck.Len(),
			"StartURL":       imagePath(0),
		})
	}
}

// GET /images/{index}
// Index 0 starts over. Any other index must be the session's current one.
func ImageHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil || idx < 0 {
			http.NotFound(w, r)
			return
		}
		ctx := r.Context()
		sid := session.SessionIDFromContext(ctx)

		var st quiz.State
		if idx == 0 {
			st = quiz.Start(app.now())
			if err := app.saveState(ctx, sid, st); err != nil {
				app.Log.Error("reset session", zap.String("sid", sid), zap.Error(err))
				http.Error(w, "session store error", http.StatusInternalServerError)
				return
			}
			app.Log.Debug("quiz started", zap.String("sid", sid), zap.Int("images", app.Deck.Len()))
		} else {
			st, err = app.loadState(ctx, sid)
			if err != nil {
				if app.redirectForMissing(w, r, err) {
					return
				}
				app.Log.Error("load session", zap.String("sid", sid), zap.Error(err))
				http.Error(w, "session store error", http.StatusInternalServerError)
				return
			}
			if st.Done(app.Deck) {
				http.Redirect(w, r, "/done", http.StatusSeeOther)
				return
			}
			if idx != st.ImageIndex {
				http.Redirect(w, r, imagePath(st.ImageIndex), http.StatusSeeOther)
				return
			}
		}

		render(w, app.Log, "image", map[string]any{
			"ImageURL":       imageURL(app.Deck.Image(st.ImageIndex)),
			"ImageCount":     st.ImageIndex,
			"NumberOfImages": app.Deck.Len(),
		})
	}
}

// GET /{index}  kept for links from the first version of the survey
func LegacyIndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, imagePath(idx), http.StatusMovedPermanently)
	}
}

// GET /done
func DoneHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := session.SessionIDFromContext(r.Context())
		st, err := app.loadState(r.Context(), sid)
		if err != nil {
			if errors.Is(err, quiz.ErrSessionNotFound) {
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
			if app.redirectForMissing(w, r, err) {
				return
			}
			app.Log.Error("load session", zap.String("sid", sid), zap.Error(err))
			http.Error(w, "session store error", http.StatusInternalServerError)
			return
		}
		render(w, app.Log, "done", map[string]any{
			"Summary":        st.Summary(),
			"Predictions":    st.Predictions,
			"Finished":       st.Done(app.Deck),
			"NumberOfImages": app.Deck.Len(),
			"ResumeURL":      imagePath(st.ImageIndex),
		})
	}
}
