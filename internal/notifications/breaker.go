package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// ErrMailerUnavailable is returned without calling the mailer while the breaker is open.
var ErrMailerUnavailable = errors.New("mailer circuit open")

// BreakerMailer stops calling a failing mailer until it has had time to recover.
type BreakerMailer struct {
	next Mailer
	cb   *gobreaker.CircuitBreaker[struct{}]
}

var _ Mailer = (*BreakerMailer)(nil)

// NewBreakerMailer wraps next in a circuit breaker that opens after
// cfg.BreakerMaxFailures consecutive failures.
func NewBreakerMailer(next Mailer, cfg config.MailerConfig, logg *logger.Logger) (*BreakerMailer, error) {
	if next == nil {
		return nil, errors.New("mailer required")
	}
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	settings := gobreaker.Settings{
		Name:     "order-confirmation-mailer",
		Interval: cfg.BreakerInterval,
		Timeout:  cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	}
	if logg != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			logg.Warn(logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}), "mailer circuit breaker state changed")
		}
	}
	return &BreakerMailer{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[struct{}](settings),
	}, nil
}

func (m *BreakerMailer) SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error {
	_, err := m.cb.Execute(func() (struct{}, error) {
		return struct{}{}, m.next.SendOrderConfirmation(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrMailerUnavailable, err)
	}
	return err
}

// State reports the breaker state, for readiness checks and tests.
func (m *BreakerMailer) State() gobreaker.State {
	return m.cb.State()
}
