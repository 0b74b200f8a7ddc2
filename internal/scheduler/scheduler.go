package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/grayic/bluesky-scheduler/internal/bluesky"
	"github.com/grayic/bluesky-scheduler/internal/models"
	"github.com/grayic/bluesky-scheduler/pkg/utils"
)

// PostStore is the slice of the post repository the scheduler needs.
type PostStore interface {
	ListDue(ctx context.Context, now time.Time) ([]*models.Post, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	MarkPublished(ctx context.Context, postID int64) error
	MarkFailed(ctx context.Context, postID int64, errMsg string) error
}

type CredentialStore interface {
	GetByUserID(ctx context.Context, userID string) (*models.Credential, error)
}

// PublishSession is one authenticated session on the network.
type PublishSession interface {
	UploadBlob(ctx context.Context, data []byte, mimeType string) (*bluesky.Blob, error)
	CreatePost(ctx context.Context, text string, images []*bluesky.Blob, createdAt time.Time) error
}

// SessionFactory opens a fresh session per publish attempt.
type SessionFactory interface {
	CreateSession(ctx context.Context, handle, appPassword string) (PublishSession, error)
}

// BlobStore reads and clears media staged at post creation time.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Scheduler publishes scheduled posts whose due time has passed. Every
// due post is attempted at most once per Scheduler lifetime: post IDs
// are recorded in the in-flight set before the first network call, so
// a slow attempt or a failed status write-back cannot cause a second
// publish from a later scan. The set is cleared when Run returns, so a
// fresh activation may retry a post that never reached a terminal
// status.
type Scheduler struct {
	interval  time.Duration
	posts     PostStore
	creds     CredentialStore
	sessions  SessionFactory
	blobs     BlobStore
	secretKey []byte
	notify    func(*models.Post)
	now       func() time.Time

	inFlight map[int64]struct{}
}

type Option func(*Scheduler)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithNotifier registers a callback invoked after every terminal
// transition with the post's updated state.
func WithNotifier(notify func(*models.Post)) Option {
	return func(s *Scheduler) { s.notify = notify }
}

func New(
	interval time.Duration,
	posts PostStore,
	creds CredentialStore,
	sessions SessionFactory,
	blobs BlobStore,
	secretKey []byte,
	opts ...Option) *Scheduler {
	s := &Scheduler{
		interval:  interval,
		posts:     posts,
		creds:     creds,
		sessions:  sessions,
		blobs:     blobs,
		secretKey: secretKey,
		now:       time.Now,
		inFlight:  make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run scans immediately, then on every tick, until ctx is cancelled.
// The in-flight set lives exactly as long as one Run call.
func (s *Scheduler) Run(ctx context.Context) {
	defer func() {
		s.inFlight = make(map[int64]struct{})
	}()

	s.Scan(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Scan(ctx)
		}
	}
}

// Scan publishes every due, still-scheduled post not already in
// flight. Attempts run sequentially; the in-flight set is only touched
// from the goroutine driving Run, so it needs no locking.
func (s *Scheduler) Scan(ctx context.Context) {
	now := s.now()

	due, err := s.posts.ListDue(ctx, now)
	if err != nil {
		slog.Error("listing due posts", "error", err)
		return
	}

	for _, post := range due {
		if post.Status != models.PostStatusScheduled || post.ScheduledFor.After(now) {
			continue
		}
		if _, ok := s.inFlight[post.ID]; ok {
			continue
		}
		s.inFlight[post.ID] = struct{}{}

		s.attempt(ctx, post.ID)
	}
}

// attempt re-reads the authoritative post before publishing: a post
// deleted or edited since the scan (e.g. from another tab) is skipped
// silently, never marked failed. The re-read is not transactional with
// the final write-back; a concurrent writer racing that window is an
// accepted gap.
func (s *Scheduler) attempt(ctx context.Context, postID int64) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		slog.Error("re-reading post before publish", "post_id", postID, "error", err)
		return
	}
	if post == nil || post.Status != models.PostStatusScheduled {
		return
	}

	if err := s.publish(ctx, post); err != nil {
		slog.Error("publish attempt failed", "post_id", post.ID, "error", err)
		if err := s.posts.MarkFailed(ctx, post.ID, err.Error()); err != nil {
			slog.Error("marking post failed", "post_id", post.ID, "error", err)
			return
		}
		post.Status = models.PostStatusFailed
		post.Error = err.Error()
		s.report(post)
		return
	}

	if err := s.posts.MarkPublished(ctx, post.ID); err != nil {
		slog.Error("marking post published", "post_id", post.ID, "error", err)
		return
	}

	for _, m := range post.Media {
		if err := s.blobs.Delete(ctx, m.Key); err != nil {
			slog.Warn("deleting staged media", "key", m.Key, "error", err)
		}
	}

	post.Status = models.PostStatusPublished
	post.Media = nil
	post.Error = ""
	s.report(post)
}

// publish re-authenticates with the freshest stored credential rather
// than a session cached at scan time, so a re-login between scheduling
// and due time takes effect.
func (s *Scheduler) publish(ctx context.Context, post *models.Post) error {
	cred, err := s.creds.GetByUserID(ctx, post.UserID)
	if err != nil {
		return fmt.Errorf("fetching credential: %w", err)
	}
	if cred == nil {
		return errors.New("no credential on file for this account")
	}

	appPassword, err := utils.Decrypt(cred.Secret, s.secretKey)
	if err != nil {
		return fmt.Errorf("decrypting credential: %w", err)
	}

	session, err := s.sessions.CreateSession(ctx, cred.Handle, appPassword)
	if err != nil {
		return err
	}

	images, err := s.uploadMedia(ctx, session, post.Media)
	if err != nil {
		return err
	}

	return session.CreatePost(ctx, post.Text, images, s.now())
}

// uploadMedia issues all uploads concurrently; the returned slice
// preserves attachment order regardless of completion order.
func (s *Scheduler) uploadMedia(ctx context.Context, session PublishSession, media models.MediaList) ([]*bluesky.Blob, error) {
	if len(media) == 0 {
		return nil, nil
	}

	blobs := make([]*bluesky.Blob, len(media))
	errs := make([]error, len(media))

	var wg sync.WaitGroup
	for i, m := range media {
		wg.Add(1)
		go func(i int, m models.MediaRef) {
			defer wg.Done()

			data, err := s.blobs.Get(ctx, m.Key)
			if err != nil {
				errs[i] = fmt.Errorf("reading staged media %s: %w", m.Key, err)
				return
			}

			blob, err := session.UploadBlob(ctx, data, m.Mime)
			if err != nil {
				errs[i] = err
				return
			}
			blobs[i] = blob
		}(i, m)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return blobs, nil
}

func (s *Scheduler) report(post *models.Post) {
	if s.notify != nil {
		s.notify(post)
	}
}
