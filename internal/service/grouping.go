package service

import (
	"time"

	"github.com/grayic/bluesky-scheduler/internal/models"
	"github.com/grayic/bluesky-scheduler/internal/transfer"
)

// GroupPostsByDay buckets posts by the calendar day of their scheduled
// time. Input order is preserved, so a newest-first list yields
// newest-first groups.
func GroupPostsByDay(posts []*models.Post, now time.Time) []*transfer.PostGroup {
	var groups []*transfer.PostGroup
	index := make(map[string]*transfer.PostGroup)

	for _, post := range posts {
		day := post.ScheduledFor.In(now.Location())
		key := day.Format("2006-01-02")

		group, ok := index[key]
		if !ok {
			group = &transfer.PostGroup{
				Label: dayLabel(day, now),
				Date:  key,
			}
			index[key] = group
			groups = append(groups, group)
		}
		group.Posts = append(group.Posts, post)
	}

	return groups
}

func dayLabel(day, now time.Time) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	target := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, now.Location())

	switch int(target.Sub(today).Hours() / 24) {
	case 0:
		return "Today"
	case 1:
		return "Tomorrow"
	default:
		return day.Format("January 2, 2006")
	}
}
