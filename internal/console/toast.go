package console

import "time"

// Toast kinds.
const (
	ToastSuccess = "success"
	ToastError   = "error"
)

// DefaultToastTTL is how long a toast stays visible.
const DefaultToastTTL = 3 * time.Second

// Toast is a transient notification.
type Toast struct {
	Message   string
	Kind      string
	ExpiresAt time.Time
}

// Active reports whether the toast is still visible at now.
func (t *Toast) Active(now time.Time) bool {
	return t != nil && now.Before(t.ExpiresAt)
}
