package bluesky

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(client *Client) *Session {
	return &Session{
		DID:       "did:plc:abc123",
		Handle:    "alice.bsky.social",
		AccessJwt: "jwt-token",
		client:    client,
	}
}

func TestCreateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/xrpc/com.atproto.server.createSession", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice.bsky.social", body["identifier"])
		assert.Equal(t, "app-password", body["password"])

		json.NewEncoder(w).Encode(map[string]string{
			"did":       "did:plc:abc123",
			"handle":    "alice.bsky.social",
			"accessJwt": "jwt-token",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	session, err := client.CreateSession(context.Background(), "alice.bsky.social", "app-password")
	require.NoError(t, err)

	assert.Equal(t, "did:plc:abc123", session.DID)
	assert.Equal(t, "alice.bsky.social", session.Handle)
	assert.Equal(t, "jwt-token", session.AccessJwt)
}

func TestCreateSessionRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "AuthenticationRequired",
			"message": "Invalid identifier or password",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.CreateSession(context.Background(), "alice.bsky.social", "wrong")
	require.Error(t, err)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Contains(t, authErr.Message, "Invalid identifier or password")
}

func TestUploadBlob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/xrpc/com.atproto.repo.uploadBlob", r.URL.Path)
		assert.Equal(t, "Bearer jwt-token", r.Header.Get("Authorization"))
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))

		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, []byte("image-bytes"), data)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"blob": map[string]interface{}{
				"$type":    "blob",
				"ref":      map[string]string{"$link": "bafyrei123"},
				"mimeType": "image/png",
				"size":     11,
			},
		})
	}))
	defer srv.Close()

	session := testSession(NewClient(srv.URL))
	blob, err := session.UploadBlob(context.Background(), []byte("image-bytes"), "image/png")
	require.NoError(t, err)

	assert.Equal(t, "bafyrei123", blob.Ref.Link)
	assert.Equal(t, "image/png", blob.MimeType)
	assert.Equal(t, int64(11), blob.Size)
}

func TestUploadBlobRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "BlobTooLarge"})
	}))
	defer srv.Close()

	session := testSession(NewClient(srv.URL))
	_, err := session.UploadBlob(context.Background(), []byte("big"), "image/png")
	require.Error(t, err)

	var uploadErr *UploadError
	require.True(t, errors.As(err, &uploadErr))
	assert.Contains(t, uploadErr.Message, "BlobTooLarge")
}

func TestCreatePostWithImages(t *testing.T) {
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/xrpc/com.atproto.repo.createRecord", r.URL.Path)
		assert.Equal(t, "Bearer jwt-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		json.NewEncoder(w).Encode(map[string]string{"uri": "at://did:plc:abc123/app.bsky.feed.post/xyz", "cid": "bafy"})
	}))
	defer srv.Close()

	session := testSession(NewClient(srv.URL))
	createdAt := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	blobs := []*Blob{
		{Type: "blob", Ref: BlobRef{Link: "first"}, MimeType: "image/png"},
		{Type: "blob", Ref: BlobRef{Link: "second"}, MimeType: "image/jpeg"},
	}

	require.NoError(t, session.CreatePost(context.Background(), "hello world", blobs, createdAt))

	assert.Equal(t, "did:plc:abc123", payload["repo"])
	assert.Equal(t, "app.bsky.feed.post", payload["collection"])

	record := payload["record"].(map[string]interface{})
	assert.Equal(t, "app.bsky.feed.post", record["$type"])
	assert.Equal(t, "hello world", record["text"])
	assert.Equal(t, "2025-03-10T12:00:00Z", record["createdAt"])

	embed := record["embed"].(map[string]interface{})
	assert.Equal(t, "app.bsky.embed.images", embed["$type"])
	images := embed["images"].([]interface{})
	require.Len(t, images, 2)

	first := images[0].(map[string]interface{})["image"].(map[string]interface{})
	assert.Equal(t, "first", first["ref"].(map[string]interface{})["$link"], "gallery preserves attachment order")
}

func TestCreatePostWithoutImagesHasNoEmbed(t *testing.T) {
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		json.NewEncoder(w).Encode(map[string]string{"uri": "at://x", "cid": "bafy"})
	}))
	defer srv.Close()

	session := testSession(NewClient(srv.URL))
	require.NoError(t, session.CreatePost(context.Background(), "text only", nil, time.Now()))

	record := payload["record"].(map[string]interface{})
	_, hasEmbed := record["embed"]
	assert.False(t, hasEmbed)
}

func TestCreatePostRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "InvalidRecord", "message": "record too long"})
	}))
	defer srv.Close()

	session := testSession(NewClient(srv.URL))
	err := session.CreatePost(context.Background(), "bad", nil, time.Now())
	require.Error(t, err)

	var publishErr *PublishError
	require.True(t, errors.As(err, &publishErr))
	assert.Contains(t, publishErr.Message, "record too long")
}

func TestGetProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/xrpc/app.bsky.actor.getProfile", r.URL.Path)
		assert.Equal(t, "did:plc:abc123", r.URL.Query().Get("actor"))
		json.NewEncoder(w).Encode(map[string]string{
			"did":         "did:plc:abc123",
			"handle":      "alice.bsky.social",
			"displayName": "Alice Example",
		})
	}))
	defer srv.Close()

	session := testSession(NewClient(srv.URL))
	profile, err := session.GetProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Alice Example", profile.DisplayName)
}
