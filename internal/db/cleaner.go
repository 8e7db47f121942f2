package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartUnconfirmedCleaner periodically deletes accounts that never confirmed
// their email within retention. Their contacts go with them via ON DELETE CASCADE.
func StartUnconfirmedCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-retention)
				res, err := db.ExecContext(ctx, `
                    DELETE FROM users
                     WHERE confirmed = false
                       AND created_at < $1
                `, cutoff)
				if err != nil {
					log.Error("failed to clean unconfirmed accounts", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("cleaned unconfirmed accounts", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
