package types

import "github.com/angelmondragon/storefront/pkg/enums"

type SuccessEnvelope struct {
	Data          any            `json:"data"`
	Notifications []Notification `json:"notifications,omitempty"`
}

// Notification is a transient, shopper-facing message (a toast).
type Notification struct {
	Level   enums.NotificationLevel `json:"level"`
	Message string                  `json:"message"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
