package quiz

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunJanitor purges expired sessions every interval until ctx is done.
func RunJanitor(ctx context.Context, store Store, every time.Duration, log *zap.Logger) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := store.PurgeExpired(ctx, now)
			if err != nil {
				log.Warn("purge expired sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Debug("purged expired sessions", zap.Int("count", n))
			}
		}
	}
}
