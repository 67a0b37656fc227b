package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// TokenFlusher purges denylist rows whose tokens have expired.
type TokenFlusher interface {
	DeleteExpiredRevokedTokens(ctx context.Context) (int64, error)
}

// NewTokenFlushHandler returns the handler for TaskTypeTokenFlush tasks.
func NewTokenFlushHandler(flusher TokenFlusher, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		purged, err := flusher.DeleteExpiredRevokedTokens(ctx)
		if err != nil {
			logger.Error("token flush failed", slog.Any("error", err))
			return err
		}
		if purged > 0 {
			logger.Info("expired revoked tokens purged", slog.Int64("count", purged))
		}
		return nil
	}
}
