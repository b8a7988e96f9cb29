package tasks

import (
	"context"

	"github.com/rs/zerolog"
)

const (
	PruneRefreshTokens = "refresh.prune"
	PruneRevocations   = "revocation.prune"
)

// ExpiredDeleter is a store that keeps expired entries until told to drop them.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Prune returns a task that removes expired entries from store.
func Prune(store ExpiredDeleter) TaskFunc {
	return func(ctx context.Context, logger zerolog.Logger) error {
		n, err := store.DeleteExpired(ctx)
		if err != nil {
			return err
		}
		logger.Info().Int64("deleted", n).Msg("pruned expired entries")
		return nil
	}
}
