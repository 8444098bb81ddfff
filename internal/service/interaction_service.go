package service

import (
	"context"
	"strconv"

	"forum/internal/models"
	"forum/internal/notifications"
	"forum/internal/observability"
	"forum/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// InteractionService exposes the like and favorite ledgers.
type InteractionService struct {
	ledger    repository.InteractionRepository
	publisher notifications.Publisher
}

// ToggleResult is the state of one ledger edge after a toggle.
type ToggleResult struct {
	Relation models.Relation
	PostID   uint
	Active   bool
	Count    int64
}

func NewInteractionService(ledger repository.InteractionRepository, publisher notifications.Publisher) *InteractionService {
	return &InteractionService{ledger: ledger, publisher: publisher}
}

// Toggle flips the user's edge on the post and recounts the relation.
func (s *InteractionService) Toggle(ctx context.Context, rel models.Relation, postID, userID uint) (result *ToggleResult, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "InteractionService", "Toggle",
		attribute.String("interaction.relation", string(rel)),
		attribute.Int64("post.id", int64(postID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if userID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}

	active, err := s.ledger.Toggle(ctx, rel, postID, userID)
	if err != nil {
		observability.InteractionToggles.WithLabelValues(string(rel), "error").Inc()
		return nil, err
	}
	observability.InteractionToggles.WithLabelValues(string(rel), strconv.FormatBool(active)).Inc()

	count, err := s.ledger.Count(ctx, rel, postID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("interaction.active", active), attribute.Int64("interaction.count", count))

	result = &ToggleResult{Relation: rel, PostID: postID, Active: active, Count: count}
	publishEvent(ctx, s.publisher, notifications.Event{
		Type: notifications.EventPostReactionUpdated,
		Payload: notifications.ReactionPayload{
			PostID:   postID,
			Relation: string(rel),
			Active:   active,
			Count:    count,
		},
	})
	return result, nil
}

// LikedPostIDs lists the posts a user liked. Only the user may read it.
func (s *InteractionService) LikedPostIDs(ctx context.Context, callerID, targetID uint) ([]uint, error) {
	if callerID != targetID {
		return nil, models.NewForbiddenError("You can only view your own likes")
	}
	return s.ledger.PostIDsByUser(ctx, models.RelationLike, targetID)
}
