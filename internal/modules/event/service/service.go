package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"anoa.com/innoliber/pkg/apperror"
	"anoa.com/innoliber/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	ProposalCreated    = "proposal.created"
	ProposalUpdated    = "proposal.updated"
	ProposalDeleted    = "proposal.deleted"
	ProposalDuplicated = "proposal.duplicated"
	ProposalAttached   = "proposal.file_attached"
	ProposalAnalyzed   = "proposal.analyzed"
)

type ProposalEvent struct {
	Type       string    `json:"type"`
	ProposalID uint      `json:"proposal_id"`
	Version    int       `json:"version,omitempty"`
	Status     string    `json:"status,omitempty"`
	Title      string    `json:"title,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type EventService interface {
	Publish(ctx context.Context, ownerID uint, evt ProposalEvent)
	Subscribe(ctx context.Context, ownerID uint) (*redis.PubSub, error)
}

type eventService struct {
	redisClient *redis.Client
}

// NewEventService fans proposal changes out to the owner's channel. Without
// Redis publishing is a no-op and subscribing is unavailable.
func NewEventService(redisClient *redis.Client) EventService {
	return &eventService{redisClient: redisClient}
}

func Channel(ownerID uint) string {
	return fmt.Sprintf("proposal_events:%d", ownerID)
}

func (s *eventService) Publish(ctx context.Context, ownerID uint, evt ProposalEvent) {
	if s.redisClient == nil {
		return
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}
	if err := s.redisClient.Publish(ctx, Channel(ownerID), payload).Err(); err != nil {
		logger.FromContext(ctx).Warn("failed to publish proposal event",
			zap.String("type", evt.Type),
			zap.Uint("proposal_id", evt.ProposalID),
			zap.Error(err),
		)
	}
}

func (s *eventService) Subscribe(ctx context.Context, ownerID uint) (*redis.PubSub, error) {
	if s.redisClient == nil {
		return nil, fmt.Errorf("%w: realtime events need redis", apperror.ErrServiceUnavailable)
	}

	pubsub := s.redisClient.Subscribe(ctx, Channel(ownerID))
	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", Channel(ownerID), err)
	}
	return pubsub, nil
}
