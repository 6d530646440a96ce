package jobs

import (
	"context"
	"log/slog"
)

// SessionCleanupJob is the registered name of the session sweep.
const SessionCleanupJob = "session-cleanup"

// Purger drops expired or idle entries and reports how many were removed.
type Purger interface {
	Purge() int
}

// PurgeFunc adapts a function to Purger.
type PurgeFunc func() int

// Purge implements Purger.
func (f PurgeFunc) Purge() int { return f() }

// SessionCleanup sweeps expired login sessions and idle console views.
type SessionCleanup struct {
	sessions Purger
	consoles Purger
	logger   *slog.Logger
}

// NewSessionCleanup creates the sweep. Either purger may be nil.
func NewSessionCleanup(sessions, consoles Purger, logger *slog.Logger) *SessionCleanup {
	return &SessionCleanup{sessions: sessions, consoles: consoles, logger: logger}
}

// Run implements JobFunc.
func (c *SessionCleanup) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var expired, idle int
	if c.sessions != nil {
		expired = c.sessions.Purge()
	}
	if c.consoles != nil {
		idle = c.consoles.Purge()
	}
	if expired > 0 || idle > 0 {
		c.logger.Info("sessions cleaned up", "expired_sessions", expired, "idle_consoles", idle)
	}
	return nil
}
