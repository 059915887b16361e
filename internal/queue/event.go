// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair that moves them.
package queue

// ContentPublishedQueue is the durable queue content events go to.
const ContentPublishedQueue = "content.published"

// ContentPublishedEvent is published when a content item moves to the
// Published status.  It carries enough information for downstream
// consumers to log, notify, or trigger analytics without querying the
// primary database.
type ContentPublishedEvent struct {
    ContentID   string `json:"content_id"`
    Kind        string `json:"kind"`
    Title       string `json:"title"`
    Slug        string `json:"slug"`
    AuthorID    string `json:"author_id"`
    ActorID     string `json:"actor_id"`
    PublishedAt string `json:"published_at"`
}
