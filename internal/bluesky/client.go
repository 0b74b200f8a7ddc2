package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const DefaultHost = "https://bsky.social"

type Client struct {
	host string
	http *http.Client
}

func NewClient(host string) *Client {
	if host == "" {
		host = DefaultHost
	}
	return &Client{
		host: host,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

// Session is a short-lived authenticated handle on the PDS. Callers
// are expected to create a fresh one per publish attempt rather than
// caching it, so credential rotation between scheduling and due time
// is picked up.
type Session struct {
	DID       string
	Handle    string
	AccessJwt string

	client *Client
}

// Blob is the reference returned by uploadBlob, embedded verbatim into
// the post record.
type Blob struct {
	Type     string  `json:"$type"`
	Ref      BlobRef `json:"ref"`
	MimeType string  `json:"mimeType"`
	Size     int64   `json:"size"`
}

type BlobRef struct {
	Link string `json:"$link"`
}

type xrpcError struct {
	ErrorCode string `json:"error"`
	Message   string `json:"message"`
}

func (e *xrpcError) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.ErrorCode
}

func decodeError(resp *http.Response) *xrpcError {
	var xe xrpcError
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(body, &xe); err != nil || xe.text() == "" {
		xe.Message = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return &xe
}

// CreateSession logs in with a handle and app password.
func (c *Client) CreateSession(ctx context.Context, handle, appPassword string) (*Session, error) {
	payload := map[string]string{
		"identifier": handle,
		"password":   appPassword,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &AuthError{Message: "encoding login request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/xrpc/com.atproto.server.createSession", bytes.NewReader(body))
	if err != nil {
		return nil, &AuthError{Message: "building login request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &AuthError{Message: "login request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &AuthError{Message: fmt.Sprintf("login rejected: %s", decodeError(resp).text())}
	}

	var result struct {
		DID       string `json:"did"`
		Handle    string `json:"handle"`
		AccessJwt string `json:"accessJwt"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &AuthError{Message: "decoding login response", Err: err}
	}
	if result.DID == "" || result.AccessJwt == "" {
		return nil, &AuthError{Message: "login response missing session"}
	}

	return &Session{
		DID:       result.DID,
		Handle:    result.Handle,
		AccessJwt: result.AccessJwt,
		client:    c,
	}, nil
}

// UploadBlob uploads raw bytes and returns the blob reference to embed.
func (s *Session) UploadBlob(ctx context.Context, data []byte, mimeType string) (*Blob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.client.host+"/xrpc/com.atproto.repo.uploadBlob", bytes.NewReader(data))
	if err != nil {
		return nil, &UploadError{Message: "building upload request", Err: err}
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("Authorization", "Bearer "+s.AccessJwt)

	resp, err := s.client.http.Do(req)
	if err != nil {
		return nil, &UploadError{Message: "blob upload failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UploadError{Message: fmt.Sprintf("blob upload rejected: %s", decodeError(resp).text())}
	}

	var result struct {
		Blob Blob `json:"blob"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &UploadError{Message: "decoding upload response", Err: err}
	}
	if result.Blob.Ref.Link == "" {
		return nil, &UploadError{Message: "upload response missing blob reference"}
	}

	return &result.Blob, nil
}

// CreatePost writes an app.bsky.feed.post record to the session's
// repo. When images are present they are attached as a gallery embed
// in the given order.
func (s *Session) CreatePost(ctx context.Context, text string, images []*Blob, createdAt time.Time) error {
	record := map[string]interface{}{
		"$type":     "app.bsky.feed.post",
		"text":      text,
		"createdAt": createdAt.UTC().Format(time.RFC3339),
	}

	if len(images) > 0 {
		embedded := make([]map[string]interface{}, 0, len(images))
		for _, img := range images {
			embedded = append(embedded, map[string]interface{}{
				"image": img,
				"alt":   "",
			})
		}
		record["embed"] = map[string]interface{}{
			"$type":  "app.bsky.embed.images",
			"images": embedded,
		}
	}

	payload := map[string]interface{}{
		"repo":       s.DID,
		"collection": "app.bsky.feed.post",
		"record":     record,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return &PublishError{Message: "encoding post record", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.client.host+"/xrpc/com.atproto.repo.createRecord", bytes.NewReader(body))
	if err != nil {
		return &PublishError{Message: "building post request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.AccessJwt)

	resp, err := s.client.http.Do(req)
	if err != nil {
		return &PublishError{Message: "post request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &PublishError{Message: fmt.Sprintf("post rejected: %s", decodeError(resp).text())}
	}

	return nil
}

// Profile carries the subset of app.bsky.actor.getProfile used to fill
// in the credential's display name.
type Profile struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
}

func (s *Session) GetProfile(ctx context.Context) (*Profile, error) {
	reqURL := fmt.Sprintf("%s/xrpc/app.bsky.actor.getProfile?actor=%s", s.client.host, url.QueryEscape(s.DID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.AccessJwt)

	resp, err := s.client.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile lookup failed: %s", decodeError(resp).text())
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
