package scheduler

import (
	"context"

	"github.com/grayic/bluesky-scheduler/internal/bluesky"
)

type clientFactory struct {
	client *bluesky.Client
}

// NewClientFactory adapts a bluesky.Client into a SessionFactory.
func NewClientFactory(client *bluesky.Client) SessionFactory {
	return &clientFactory{client: client}
}

func (f *clientFactory) CreateSession(ctx context.Context, handle, appPassword string) (PublishSession, error) {
	session, err := f.client.CreateSession(ctx, handle, appPassword)
	if err != nil {
		return nil, err
	}
	return session, nil
}
