package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/models"
	"gorm.io/gorm"
)

// DefaultRetention is how long system logs are kept.
const DefaultRetention = 30 * 24 * time.Hour

// PruneSystemLogs deletes system logs older than retention and returns the
// number of rows removed.
func PruneSystemLogs(ctx context.Context, db *gorm.DB, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	result := db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	return result.RowsAffected, result.Error
}

// StartCleanup prunes system logs once a day until ctx is done.
func StartCleanup(ctx context.Context, db *gorm.DB, retention time.Duration) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := PruneSystemLogs(ctx, db, retention)
				if err != nil {
					slog.Error("log cleanup failed", "error", err)
				} else if n > 0 {
					slog.Info("log cleanup completed", "deleted", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
