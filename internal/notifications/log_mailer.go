package notifications

import (
	"context"

	"github.com/angelmondragon/storefront/pkg/logger"
)

// LogMailer records confirmation requests in the log. Used when no
// notification topic is configured.
type LogMailer struct {
	logg *logger.Logger
}

func NewLogMailer(logg *logger.Logger) *LogMailer {
	return &LogMailer{logg: logg}
}

func (m *LogMailer) SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error {
	ctx = m.logg.WithFields(ctx, map[string]any{
		"order_id":   msg.OrderID.String(),
		"user_id":    msg.UserID.String(),
		"email":      msg.Email,
		"event_type": EventOrderConfirmation,
	})
	m.logg.Info(ctx, "order confirmation email requested")
	return nil
}
