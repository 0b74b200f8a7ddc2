package transfer

import "github.com/grayic/bluesky-scheduler/internal/models"

type PostCreation struct {
	Text         string
	ScheduledFor string
}

type PostUpdate struct {
	ID           int64  `json:"id"`
	Text         string `json:"text"`
	ScheduledFor string `json:"scheduled_for"`
}

// PostGroup is one calendar day of posts for the list view. Label is
// Today, Tomorrow or the absolute date.
type PostGroup struct {
	Label string         `json:"label"`
	Date  string         `json:"date"`
	Posts []*models.Post `json:"posts"`
}
