package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Event types pushed to feed subscribers.
const (
	EventPostCreated         = "post_created"
	EventCommentCreated      = "comment_created"
	EventPostReactionUpdated = "post_reaction_updated"
)

// Event is the envelope written to every transport.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Encode renders the event as the JSON text sent to subscribers.
func (e Event) Encode() ([]byte, error) {
	if e.Type == "" {
		return nil, errors.New("event type is required")
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	return b, nil
}

// PostCreatedPayload announces a new post.
type PostCreatedPayload struct {
	PostID   uint   `json:"post_id"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Title    string `json:"title"`
}

// CommentCreatedPayload announces a new comment.
type CommentCreatedPayload struct {
	PostID    uint   `json:"post_id"`
	CommentID uint   `json:"comment_id"`
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
}

// ReactionPayload reports a ledger toggle and the recomputed count. It goes
// to every feed client, so it never names the user who toggled.
type ReactionPayload struct {
	PostID   uint   `json:"post_id"`
	Relation string `json:"relation"`
	Active   bool   `json:"active"`
	Count    int64  `json:"count"`
}

// Publisher delivers events to subscribers outside the request.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// Fanout publishes to every wrapped publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
