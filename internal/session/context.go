package session

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

type ctxKey string

const ctxKeySID ctxKey = "sid"

func WithSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, ctxKeySID, sid)
}

func SessionIDFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxKeySID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Middleware makes sure every request carries a session ID, minting one
// when the cookie is missing or fails verification, and slides the cookie
// expiry forward.
func (m *Manager) Middleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid, err := m.Read(r)
			if err != nil {
				sid = NewID()
			}
			if _, err := m.Issue(w, sid); err != nil {
				log.Error("issue session cookie", zap.Error(err))
				http.Error(w, "session error", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sid)))
		})
	}
}
