package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/grayic/bluesky-scheduler/internal/repository"
)

const publishedRetention = 90 * 24 * time.Hour

// PurgeJob removes published posts once they fall out of the retention
// window. Failed posts are kept so the user can still see the error.
type PurgeJob struct {
	pr repository.PostRepository
}

func NewPurgeJob(pr repository.PostRepository) *PurgeJob {
	return &PurgeJob{pr: pr}
}

func (j *PurgeJob) PurgePublished() {
	ctx := context.Background()
	cutoff := time.Now().Add(-publishedRetention)

	purged, err := j.pr.PurgePublishedBefore(ctx, cutoff)
	if err != nil {
		slog.Error("purging published posts", "error", err)
		return
	}
	if purged > 0 {
		slog.Info("purged published posts", "count", purged)
	}
}
