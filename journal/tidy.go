package journal

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// Tidy removes snapshot rows older than the retention window and
// reclaims the freed pages.
func (j *Journal) Tidy(ctx context.Context, retention time.Duration) error {
	cutoff := time.Now().Add(-retention).Unix()

	res, err := j.db.ExecContext(ctx, "DELETE FROM posts WHERE stored_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("tidy error: %w", err)
	}

	removed, _ := res.RowsAffected()
	log.WithFields(log.Fields{
		"removed": removed,
		"cutoff":  time.Unix(cutoff, 0).Format(time.RFC3339),
	}).Info("Tidied journal")

	if _, err := j.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum error: %w", err)
	}

	return nil
}
