package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type fakeResult struct {
	id  string
	err error
}

func (r fakeResult) Get(context.Context) (string, error) {
	return r.id, r.err
}

type fakePublisher struct {
	messages []*gcppubsub.Message
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	return fakeResult{id: "msg-1", err: p.err}
}

type countingMailer struct {
	calls int
	err   error
}

func (m *countingMailer) SendOrderConfirmation(context.Context, OrderConfirmation) error {
	m.calls++
	return m.err
}

func sampleConfirmation() OrderConfirmation {
	return OrderConfirmation{
		OrderID:       uuid.New(),
		UserID:        uuid.New(),
		Email:         "asha@example.com",
		Name:          "Asha Rao",
		TotalAmount:   decimal.RequireFromString("237.50"),
		PaymentMethod: enums.PaymentMethodUPI,
		PlacedAt:      time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
	}
}

func TestPubSubMailerPublishesConfirmation(t *testing.T) {
	pub := &fakePublisher{}
	mailer := &PubSubMailer{pub: pub}
	msg := sampleConfirmation()

	if err := mailer.SendOrderConfirmation(context.Background(), msg); err != nil {
		t.Fatalf("SendOrderConfirmation: %v", err)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected one published message, got %d", len(pub.messages))
	}
	published := pub.messages[0]
	if published.Attributes["event_type"] != EventOrderConfirmation {
		t.Fatalf("unexpected event type %q", published.Attributes["event_type"])
	}
	if published.Attributes["order_id"] != msg.OrderID.String() {
		t.Fatalf("unexpected order id attribute %q", published.Attributes["order_id"])
	}
	if published.OrderingKey != msg.OrderID.String() {
		t.Fatalf("expected ordering key to be the order id, got %q", published.OrderingKey)
	}

	var decoded OrderConfirmation
	if err := json.Unmarshal(published.Data, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.Email != msg.Email || !decoded.TotalAmount.Equal(msg.TotalAmount) {
		t.Fatalf("unexpected payload %+v", decoded)
	}
}

func TestPubSubMailerSurfacesPublishError(t *testing.T) {
	mailer := &PubSubMailer{pub: &fakePublisher{err: errors.New("unavailable")}}
	err := mailer.SendOrderConfirmation(context.Background(), sampleConfirmation())
	if err == nil || !strings.Contains(err.Error(), "unavailable") {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestNewPubSubMailerRequiresPublisher(t *testing.T) {
	if _, err := NewPubSubMailer(nil); err == nil {
		t.Fatal("expected error without publisher")
	}
}

func TestBreakerMailerOpensAfterConsecutiveFailures(t *testing.T) {
	next := &countingMailer{err: errors.New("smtp relay down")}
	mailer, err := NewBreakerMailer(next, config.MailerConfig{
		BreakerMaxFailures: 2,
		BreakerOpenTimeout: time.Minute,
	}, logger.Nop())
	if err != nil {
		t.Fatalf("NewBreakerMailer: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := mailer.SendOrderConfirmation(ctx, sampleConfirmation()); err == nil || errors.Is(err, ErrMailerUnavailable) {
			t.Fatalf("call %d: expected the mailer error, got %v", i, err)
		}
	}
	if mailer.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", mailer.State())
	}

	err = mailer.SendOrderConfirmation(ctx, sampleConfirmation())
	if !errors.Is(err, ErrMailerUnavailable) {
		t.Fatalf("expected ErrMailerUnavailable, got %v", err)
	}
	if next.calls != 2 {
		t.Fatalf("open breaker must not call through, calls=%d", next.calls)
	}
}

func TestBreakerMailerPassesSuccess(t *testing.T) {
	next := &countingMailer{}
	mailer, _ := NewBreakerMailer(next, config.MailerConfig{}, nil)
	if err := mailer.SendOrderConfirmation(context.Background(), sampleConfirmation()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.calls != 1 || mailer.State() != gobreaker.StateClosed {
		t.Fatalf("expected one call on a closed breaker, calls=%d state=%s", next.calls, mailer.State())
	}
	if _, err := NewBreakerMailer(nil, config.MailerConfig{}, nil); err == nil {
		t.Fatal("expected error without next mailer")
	}
}

func TestLogMailerLogsRequest(t *testing.T) {
	buf := &bytes.Buffer{}
	mailer := NewLogMailer(logger.New(logger.Options{ServiceName: "test", Output: buf}))
	msg := sampleConfirmation()

	if err := mailer.SendOrderConfirmation(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "order confirmation email requested") || !strings.Contains(out, msg.OrderID.String()) {
		t.Fatalf("unexpected log output %s", out)
	}
}
