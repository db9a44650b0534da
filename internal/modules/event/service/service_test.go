package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"anoa.com/innoliber/pkg/apperror"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestPublishReachesOwnerChannel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	svc := NewEventService(newRedisClient(t))

	pubsub, err := svc.Subscribe(ctx, 42)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer pubsub.Close()

	svc.Publish(ctx, 42, ProposalEvent{Type: ProposalUpdated, ProposalID: 9, Version: 3, Status: "draft"})

	msg, err := pubsub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("ReceiveMessage() error = %v", err)
	}
	if msg.Channel != "proposal_events:42" {
		t.Errorf("channel = %q, want proposal_events:42", msg.Channel)
	}

	var got ProposalEvent
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("payload %q: %v", msg.Payload, err)
	}
	if got.Type != ProposalUpdated || got.ProposalID != 9 || got.Version != 3 {
		t.Errorf("event = %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Error("OccurredAt should be stamped on publish")
	}
}

func TestPublishSkipsOtherOwners(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	svc := NewEventService(newRedisClient(t))

	pubsub, err := svc.Subscribe(ctx, 1)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer pubsub.Close()

	svc.Publish(ctx, 2, ProposalEvent{Type: ProposalCreated, ProposalID: 5})
	svc.Publish(ctx, 1, ProposalEvent{Type: ProposalDeleted, ProposalID: 6})

	msg, err := pubsub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("ReceiveMessage() error = %v", err)
	}
	var got ProposalEvent
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatal(err)
	}
	if got.ProposalID != 6 {
		t.Errorf("received proposal %d, want 6", got.ProposalID)
	}
}

func TestEventServiceWithoutRedis(t *testing.T) {
	svc := NewEventService(nil)

	// no-op
	svc.Publish(context.Background(), 1, ProposalEvent{Type: ProposalCreated})

	if _, err := svc.Subscribe(context.Background(), 1); !errors.Is(err, apperror.ErrServiceUnavailable) {
		t.Errorf("Subscribe() error = %v, want ErrServiceUnavailable", err)
	}
}
