package workflow

import (
	"context"

	"github.com/google/uuid"
	"github.com/javiertrombetta/capif-back-sub001/config"
	"github.com/javiertrombetta/capif-back-sub001/utils"
	"gorm.io/gorm"
)

// runPosting executes fn inside one database transaction with the
// advisory posting lock held for the given scope. Either all of fn's
// writes commit, or none do.
func runPosting(ctx context.Context, scope string, fn func(tx *gorm.DB) error) error {
	return runPostingScopes(ctx, []string{scope}, fn)
}

// runPostingScopes takes several advisory locks; callers must pass the
// scopes in a globally consistent order (sorted) to avoid deadlocks.
// The locks are taken on a pinned connection OUTSIDE the transaction and
// released only after commit/rollback: GET_LOCK must still be held while
// gorm commits, or a concurrent posting could read a pre-commit snapshot
// in its recompute step.
// IMPORTANT: do not call tx.Commit()/tx.Rollback() inside fn. Returning
// error triggers rollback; returning nil commits.
func runPostingScopes(ctx context.Context, scopes []string, fn func(tx *gorm.DB) error) error {
	db := config.GetDB()
	return db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		for _, scope := range scopes {
			if err := AcquirePostingLock(conn, scope); err != nil {
				return err
			}
			defer ReleasePostingLock(conn, scope)
		}
		return conn.Transaction(fn)
	})
}

func usuarioIdOrZero(ctx context.Context) int {
	if id, ok := utils.GetUsuarioIdFromContext(ctx); ok {
		return id
	}
	return 0
}

func correlationIdOrNew(ctx context.Context) string {
	if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
		return v
	}
	return uuid.NewString()
}
