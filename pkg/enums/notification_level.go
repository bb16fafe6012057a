package enums

// NotificationLevel classifies a shopper-facing notification.
type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "success"
	NotificationError   NotificationLevel = "error"
	NotificationInfo    NotificationLevel = "info"
)

// String implements fmt.Stringer.
func (l NotificationLevel) String() string {
	return string(l)
}
