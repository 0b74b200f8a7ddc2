package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/grayic/bluesky-scheduler/internal/models"
	"github.com/grayic/bluesky-scheduler/internal/repository"
	"github.com/grayic/bluesky-scheduler/internal/transfer"
)

const (
	MaxPostTextLen    = 300
	MaxAttachments    = 4
	MaxAttachmentSize = 1 << 20 // 1 MB per image

	scheduledTimeLayout = "2006-01-02T15:04"
)

type PostService interface {
	Create(ctx context.Context, userID string, pc *transfer.PostCreation, files []*multipart.FileHeader) (*models.Post, error)
	List(ctx context.Context, userID string) ([]*models.Post, error)
	ListGrouped(ctx context.Context, userID string) ([]*transfer.PostGroup, error)
	PostInfo(ctx context.Context, postID int64, userID string) (*models.Post, error)
	Update(ctx context.Context, userID string, pu *transfer.PostUpdate) (*models.Post, error)
	Remove(ctx context.Context, userID string, postID int64) error
}

type postService struct {
	pr    repository.PostRepository
	cr    repository.CredentialRepository
	blobs BlobStorage
	now   func() time.Time
}

func NewPostService(pr repository.PostRepository, cr repository.CredentialRepository, blobs BlobStorage) PostService {
	return &postService{
		pr:    pr,
		cr:    cr,
		blobs: blobs,
		now:   time.Now,
	}
}

func (s *postService) Create(ctx context.Context, userID string, pc *transfer.PostCreation, files []*multipart.FileHeader) (*models.Post, error) {
	if pc == nil {
		return nil, errors.New("post creation data is nil")
	}

	text := strings.TrimSpace(pc.Text)
	if err := validateText(text); err != nil {
		return nil, err
	}

	scheduledFor, err := s.parseFutureTime(pc.ScheduledFor)
	if err != nil {
		return nil, err
	}

	cred, err := s.cr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching credential: %w", err)
	}
	if cred == nil {
		return nil, validationErr("handle", "no Bluesky account connected")
	}

	media, err := s.stageFiles(ctx, files)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID:       userID,
		Handle:       cred.Handle,
		Text:         text,
		ScheduledFor: scheduledFor,
		Status:       models.PostStatusScheduled,
		Media:        media,
	}

	postID, err := s.pr.Create(ctx, nil, post)
	if err != nil {
		s.discardStaged(ctx, media)
		return nil, fmt.Errorf("error creating post: %w", err)
	}
	post.ID = postID

	return post, nil
}

// stageFiles sniffs, bounds and uploads attachments to the staging
// bucket; the returned list preserves form submission order.
func (s *postService) stageFiles(ctx context.Context, files []*multipart.FileHeader) (models.MediaList, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > MaxAttachments {
		return nil, validationErr("files", fmt.Sprintf("at most %d images per post", MaxAttachments))
	}

	var media models.MediaList
	for _, file := range files {
		if file.Size > MaxAttachmentSize {
			s.discardStaged(ctx, media)
			return nil, validationErr("files", fmt.Sprintf("image %s exceeds the %d byte limit", file.Filename, MaxAttachmentSize))
		}

		content, err := file.Open()
		if err != nil {
			s.discardStaged(ctx, media)
			return nil, fmt.Errorf("error opening file: %w", err)
		}

		data, err := io.ReadAll(content)
		content.Close()
		if err != nil {
			s.discardStaged(ctx, media)
			return nil, fmt.Errorf("error reading file content: %w", err)
		}

		kind, err := filetype.Match(data)
		if err != nil || kind == types.Unknown || kind.MIME.Type != "image" {
			s.discardStaged(ctx, media)
			return nil, validationErr("files", fmt.Sprintf("%s is not a supported image", file.Filename))
		}
		switch kind.Extension {
		case "jpg", "png", "webp", "gif":
		default:
			s.discardStaged(ctx, media)
			return nil, validationErr("files", fmt.Sprintf("image type %s is not allowed", kind.Extension))
		}

		key, err := gonanoid.New()
		if err != nil {
			s.discardStaged(ctx, media)
			return nil, err
		}
		if err := s.blobs.Put(ctx, key, data, kind.MIME.Value); err != nil {
			s.discardStaged(ctx, media)
			return nil, fmt.Errorf("error staging file: %w", err)
		}

		media = append(media, models.MediaRef{
			Key:  key,
			Mime: kind.MIME.Value,
			Kind: "image",
			Size: int64(len(data)),
		})
	}
	return media, nil
}

func (s *postService) discardStaged(ctx context.Context, media models.MediaList) {
	for _, m := range media {
		if err := s.blobs.Delete(ctx, m.Key); err != nil {
			slog.Warn("deleting staged media", "key", m.Key, "error", err)
		}
	}
}

func (s *postService) List(ctx context.Context, userID string) ([]*models.Post, error) {
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return posts, nil
}

func (s *postService) ListGrouped(ctx context.Context, userID string) ([]*transfer.PostGroup, error) {
	posts, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return GroupPostsByDay(posts, s.now()), nil
}

func (s *postService) PostInfo(ctx context.Context, postID int64, userID string) (*models.Post, error) {
	post, err := s.owned(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postService) Update(ctx context.Context, userID string, pu *transfer.PostUpdate) (*models.Post, error) {
	post, err := s.owned(ctx, pu.ID, userID)
	if err != nil {
		return nil, err
	}

	if post.Status != models.PostStatusScheduled {
		return nil, validationErr("status", "only scheduled posts can be edited")
	}

	text := strings.TrimSpace(pu.Text)
	if err := validateText(text); err != nil {
		return nil, err
	}

	scheduledFor, err := s.parseFutureTime(pu.ScheduledFor)
	if err != nil {
		return nil, err
	}

	if err := s.pr.Update(ctx, post.ID, text, scheduledFor); err != nil {
		return nil, fmt.Errorf("error updating post: %w", err)
	}

	post.Text = text
	post.ScheduledFor = scheduledFor
	return post, nil
}

func (s *postService) Remove(ctx context.Context, userID string, postID int64) error {
	post, err := s.owned(ctx, postID, userID)
	if err != nil {
		return err
	}

	if err := s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("error removing post: %w", err)
	}

	s.discardStaged(ctx, post.Media)
	return nil
}

func (s *postService) owned(ctx context.Context, postID int64, userID string) (*models.Post, error) {
	if userID == "" || postID == 0 {
		return nil, ErrNotFound
	}

	isOwner, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !isOwner {
		return nil, ErrNotFound
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrNotFound
	}
	return post, nil
}

func (s *postService) parseFutureTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, validationErr("scheduled_for", "scheduling time is required")
	}

	t, err := time.ParseInLocation(scheduledTimeLayout, value, time.Local)
	if err != nil {
		t, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, validationErr("scheduled_for", "invalid scheduling time format")
		}
	}

	if !t.After(s.now()) {
		return time.Time{}, validationErr("scheduled_for", "scheduling time must be in the future")
	}
	return t, nil
}

func validateText(text string) error {
	if text == "" {
		return validationErr("text", "post text cannot be empty")
	}
	if len([]rune(text)) > MaxPostTextLen {
		return validationErr("text", fmt.Sprintf("post text exceeds %d characters", MaxPostTextLen))
	}
	return nil
}
