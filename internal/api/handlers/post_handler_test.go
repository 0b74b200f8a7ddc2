package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grayic/bluesky-scheduler/internal/models"
	"github.com/grayic/bluesky-scheduler/internal/service"
	"github.com/grayic/bluesky-scheduler/internal/transfer"
)

type stubPostService struct {
	posts     []*models.Post
	created   *models.Post
	createErr error
	updateErr error
	removed   []int64
}

func (s *stubPostService) Create(ctx context.Context, userID string, pc *transfer.PostCreation, files []*multipart.FileHeader) (*models.Post, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.created, nil
}

func (s *stubPostService) List(ctx context.Context, userID string) ([]*models.Post, error) {
	return s.posts, nil
}

func (s *stubPostService) ListGrouped(ctx context.Context, userID string) ([]*transfer.PostGroup, error) {
	return []*transfer.PostGroup{{Label: "Today", Posts: s.posts}}, nil
}

func (s *stubPostService) PostInfo(ctx context.Context, postID int64, userID string) (*models.Post, error) {
	for _, p := range s.posts {
		if p.ID == postID {
			return p, nil
		}
	}
	return nil, service.ErrNotFound
}

func (s *stubPostService) Update(ctx context.Context, userID string, pu *transfer.PostUpdate) (*models.Post, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return s.created, nil
}

func (s *stubPostService) Remove(ctx context.Context, userID string, postID int64) error {
	s.removed = append(s.removed, postID)
	return nil
}

func setupApp(s service.PostService) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "did:plc:abc123")
		return c.Next()
	})

	h := NewPostHandler(s)
	app.Post("/api/posts/create", h.CreatePost)
	app.Get("/api/posts", h.ListPosts)
	app.Post("/api/posts/update", h.UpdatePost)
	app.Post("/api/posts/remove", h.RemovePost)
	return app
}

func composeForm(t *testing.T, text, scheduledFor string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("text", text))
	require.NoError(t, w.WriteField("scheduled_for", scheduledFor))
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestCreatePostHandler(t *testing.T) {
	stub := &stubPostService{created: &models.Post{ID: 7, Text: "hello", Status: models.PostStatusScheduled}}
	app := setupApp(stub)

	body, contentType := composeForm(t, "hello", time.Now().Add(time.Hour).Format("2006-01-02T15:04"))
	req := httptest.NewRequest("POST", "/api/posts/create", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var post models.Post
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&post))
	assert.Equal(t, int64(7), post.ID)
}

func TestCreatePostHandlerValidationError(t *testing.T) {
	stub := &stubPostService{createErr: &service.ValidationError{Field: "text", Message: "post text cannot be empty"}}
	app := setupApp(stub)

	body, contentType := composeForm(t, "", "")
	req := httptest.NewRequest("POST", "/api/posts/create", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	data, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(data), "post text cannot be empty")
}

func TestListPostsHandler(t *testing.T) {
	stub := &stubPostService{posts: []*models.Post{
		{ID: 2, Text: "second", Status: models.PostStatusScheduled},
		{ID: 1, Text: "first", Status: models.PostStatusPublished},
	}}
	app := setupApp(stub)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/posts", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var posts []*models.Post
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&posts))
	require.Len(t, posts, 2)
	assert.Equal(t, int64(2), posts[0].ID)
}

func TestListPostsHandlerGrouped(t *testing.T) {
	stub := &stubPostService{posts: []*models.Post{{ID: 1, Text: "first"}}}
	app := setupApp(stub)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/posts?grouped=true", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var groups []*transfer.PostGroup
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&groups))
	require.Len(t, groups, 1)
	assert.Equal(t, "Today", groups[0].Label)
}

func TestListPostsHandlerSingle(t *testing.T) {
	stub := &stubPostService{posts: []*models.Post{{ID: 5, Text: "one"}}}
	app := setupApp(stub)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/posts?id=5", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/posts?id=99", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRemovePostHandler(t *testing.T) {
	stub := &stubPostService{}
	app := setupApp(stub)

	resp, err := app.Test(httptest.NewRequest("POST", "/api/posts/remove?id=3", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []int64{3}, stub.removed)
}
