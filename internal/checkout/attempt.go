package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/redis"
)

// Attempt is one pass through checkout for a browsing session. It exists from
// the first shipping submission until the order is placed, the stock check
// fails or the TTL lapses.
type Attempt struct {
	SessionID     string              `json:"session_id"`
	State         enums.CheckoutState `json:"state"`
	Shipping      *ShippingDetails    `json:"shipping,omitempty"`
	PaymentMethod enums.PaymentMethod `json:"payment_method,omitempty"`
	// SubmissionKey is sent as the order idempotency key on every submission
	// of this attempt, so a retried submission cannot create a second order.
	SubmissionKey string    `json:"submission_key"`
	LastError     string    `json:"last_error,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func newAttempt(sessionID string, now time.Time) *Attempt {
	return &Attempt{
		SessionID:     sessionID,
		State:         enums.CheckoutStateAwaitingShipping,
		SubmissionKey: uuid.NewString(),
		UpdatedAt:     now,
	}
}

// transition moves the attempt to next, rejecting moves the state machine
// does not allow.
func (a *Attempt) transition(next enums.CheckoutState, now time.Time) error {
	if !a.State.CanTransitionTo(next) {
		return pkgerrors.New(
			pkgerrors.CodeStateConflict,
			fmt.Sprintf("checkout cannot move from %s to %s", a.State, next),
		)
	}
	a.State = next
	a.UpdatedAt = now
	return nil
}

// recoverStale marks an attempt left in submitting as a hard failure. Every
// submission holds the session's cart lock until its outcome is recorded, so
// a caller holding that lock only sees submitting from one that never finished.
func (a *Attempt) recoverStale() {
	if a != nil && a.State == enums.CheckoutStateSubmitting {
		a.State = enums.CheckoutStateHardFailure
	}
}

// AttemptStore keeps the in-progress attempt of each session. Load returns
// (nil, nil) when the session has none.
type AttemptStore interface {
	Load(ctx context.Context, sessionID string) (*Attempt, error)
	Save(ctx context.Context, attempt *Attempt) error
	Delete(ctx context.Context, sessionID string) error
}

// RedisAttemptStore stores attempts as JSON with a sliding TTL.
type RedisAttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAttemptStore(client *redis.Client, ttl time.Duration) (*RedisAttemptStore, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisAttemptStore{client: client, ttl: ttl}, nil
}

func (s *RedisAttemptStore) Load(ctx context.Context, sessionID string) (*Attempt, error) {
	raw, err := s.client.Get(ctx, s.client.CheckoutAttemptKey(sessionID))
	if redis.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkout attempt: %w", err)
	}
	var attempt Attempt
	if err := json.Unmarshal([]byte(raw), &attempt); err != nil {
		return nil, fmt.Errorf("decode checkout attempt: %w", err)
	}
	if !attempt.State.IsValid() || attempt.SubmissionKey == "" {
		return nil, fmt.Errorf("checkout attempt for %s is corrupt", sessionID)
	}
	return &attempt, nil
}

func (s *RedisAttemptStore) Save(ctx context.Context, attempt *Attempt) error {
	payload, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("encode checkout attempt: %w", err)
	}
	if err := s.client.Set(ctx, s.client.CheckoutAttemptKey(attempt.SessionID), payload, s.ttl); err != nil {
		return fmt.Errorf("save checkout attempt: %w", err)
	}
	return nil
}

func (s *RedisAttemptStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.client.CheckoutAttemptKey(sessionID)); err != nil {
		return fmt.Errorf("delete checkout attempt: %w", err)
	}
	return nil
}
