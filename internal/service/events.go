package service

import (
	"context"

	"github.com/iliyamo/contenthub/internal/queue"
)

// EventPublisher delivers domain events to the broker.  Failures are the
// publisher's to log; services never fail a request because of them.
type EventPublisher interface {
	PublishContentPublished(ctx context.Context, ev queue.ContentPublishedEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishContentPublished(context.Context, queue.ContentPublishedEvent) error {
	return nil
}
