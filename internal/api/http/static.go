package http

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mind-engage/realfake-survey/internal/storage"
)

//go:embed assets
var assetFS embed.FS

// MountStatic serves bundled assets and the survey images.
//
//	GET /assets/*  -> embedded js/css
//	GET /images/*  -> blob at whatever follows /images/
func MountStatic(r chi.Router, app *App) {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(err)
	}
	r.Handle("/assets/*", http.StripPrefix("/static/assets/", http.FileServer(http.FS(sub))))

	r.Get("/images/*", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		obj, err := app.Images.Get(key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
				http.NotFound(w, r)
				return
			}
			app.Log.Error("open image", zap.String("key", key), zap.Error(err))
			http.Error(w, "image error", http.StatusInternalServerError)
			return
		}
		defer obj.Close()
		if app.StaticMaxAge > 0 {
			w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(app.StaticMaxAge.Seconds())))
		}
		http.ServeContent(w, r, path.Base(key), obj.ModTime, obj)
	})
}
