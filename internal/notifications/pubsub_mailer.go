package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

const defaultPublishTimeout = 5 * time.Second

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// PubSubMailer publishes confirmation requests to the notification topic.
type PubSubMailer struct {
	pub publisher
}

var _ Mailer = (*PubSubMailer)(nil)

// NewPubSubMailer builds a mailer over a Pub/Sub publisher handle.
func NewPubSubMailer(p *gcppubsub.Publisher) (*PubSubMailer, error) {
	if p == nil {
		return nil, errors.New("pubsub publisher required")
	}
	return &PubSubMailer{pub: &gcpPublisher{Publisher: p}}, nil
}

func (m *PubSubMailer) SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode order confirmation: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	result := m.pub.Publish(publishCtx, &gcppubsub.Message{
		Data:        payload,
		OrderingKey: msg.OrderID.String(),
		Attributes: map[string]string{
			"event_type": EventOrderConfirmation,
			"order_id":   msg.OrderID.String(),
			"user_id":    msg.UserID.String(),
			"created_at": msg.PlacedAt.UTC().Format(time.RFC3339Nano),
		},
	})
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publish order confirmation: %w", err)
	}
	return nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{
		PublishResult: p.Publisher.Publish(ctx, msg),
		publisher:     p.Publisher,
		orderingKey:   msg.OrderingKey,
	}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
	publisher   *gcppubsub.Publisher
	orderingKey string
}

// Get waits for the server ack. A failed ordered publish pauses its key, so
// the key is resumed to let a retry through.
func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	id, err := r.PublishResult.Get(ctx)
	if err != nil && r.orderingKey != "" && r.publisher != nil {
		r.publisher.ResumePublish(r.orderingKey)
	}
	return id, err
}
