package http

import (
	"errors"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/mind-engage/realfake-survey/internal/quiz"
	"github.com/mind-engage/realfake-survey/internal/report"
	"github.com/mind-engage/realfake-survey/internal/session"
	syncx "github.com/mind-engage/realfake-survey/internal/sync"
)

// GET /report  CSV attachment of the session's predictions
func ReportHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sid := session.SessionIDFromContext(ctx)
		st, err := app.loadState(ctx, sid)
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

		key, err := app.Reports.Export(ctx, st)
		if err != nil {
			app.Log.Error("export report", zap.String("sid", sid), zap.Error(err))
			http.Error(w, "report error", http.StatusInternalServerError)
			return
		}
		defer func() {
			if err := app.Reports.Remove(key); err != nil {
				app.Log.Warn("remove report file", zap.String("key", key), zap.Error(err))
			}
		}()

		obj, err := app.Reports.Open(key)
		if err != nil {
			app.Log.Error("open report", zap.String("key", key), zap.Error(err))
			http.Error(w, "report error", http.StatusInternalServerError)
			return
		}
		defer obj.Close()

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": report.Filename}))
		http.ServeContent(w, r, report.Filename, obj.ModTime, obj)

		if err := app.Events.Record(ctx, syncx.TypeReportExported, sid, map[string]any{
			"key":  key,
			"rows": len(st.Predictions),
		}); err != nil {
			app.Log.Warn("record event", zap.String("type", syncx.TypeReportExported), zap.Error(err))
		}
	}
}
