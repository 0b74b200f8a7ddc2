package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type Post struct {
	ID           int64     `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	Handle       string    `db:"handle" json:"handle"`
	Text         string    `db:"text" json:"text"`
	ScheduledFor time.Time `db:"scheduled_for" json:"scheduled_for"`
	Status       string    `db:"status" json:"status"` // scheduled, published, failed
	Error        string    `db:"error" json:"error,omitempty"`
	Media        MediaList `db:"media" json:"media,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)

// MediaRef points at an attachment staged in object storage. The bytes
// live under Key until the post is published or removed.
type MediaRef struct {
	Key  string `json:"key"`
	Mime string `json:"mime"`
	Kind string `json:"kind"`
	Size int64  `json:"size"`
}

// MediaList is stored in the posts.media jsonb column. An empty list
// is stored as NULL so the publish trigger can clear it uniformly.
type MediaList []MediaRef

func (m MediaList) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *MediaList) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported media column type %T", src)
	}
}
