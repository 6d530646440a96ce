// Package repository defines the Directory Store and its implementations.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/userdesk/backend/internal/model"
)

// ErrNotFound is returned when a lookup misses.
var ErrNotFound = errors.New("user not found")

// Messages carried by mutation acknowledgements.
const (
	MsgCreated       = "Details saved successfully."
	MsgUpdated       = "Details updated successfully."
	MsgDeleted       = "Successfully deleted."
	MsgStatusChanged = "Status changed successfully"
)

// DirectoryStore owns the canonical user collection. Delete and SetStatus are
// idempotent: a missing id still acknowledges. Update on a missing id returns
// ErrNotFound.
type DirectoryStore interface {
	List(ctx context.Context, filter model.StatusFilter) ([]model.User, error)
	Get(ctx context.Context, id int) (*model.User, error)
	Create(ctx context.Context, draft model.Draft) (model.Ack, error)
	Update(ctx context.Context, id int, draft model.Draft) (model.Ack, error)
	Delete(ctx context.Context, id int) (model.Ack, error)
	SetStatus(ctx context.Context, id int, active bool) (model.Ack, error)
	Roles(ctx context.Context) (model.RoleDropdown, error)
	Responsibilities(ctx context.Context) ([]model.Responsibility, error)
}

// Latency is the artificial delay applied before each store operation.
type Latency struct {
	List      time.Duration
	Get       time.Duration
	Create    time.Duration
	Update    time.Duration
	Delete    time.Duration
	Status    time.Duration
	Reference time.Duration
}

// DefaultLatency mirrors the delays of the simulated backend.
func DefaultLatency() Latency {
	return Latency{
		List:      500 * time.Millisecond,
		Get:       300 * time.Millisecond,
		Create:    800 * time.Millisecond,
		Update:    800 * time.Millisecond,
		Delete:    500 * time.Millisecond,
		Status:    0,
		Reference: 300 * time.Millisecond,
	}
}

// Scaled multiplies every delay by f; f <= 0 disables latency.
func (l Latency) Scaled(f float64) Latency {
	if f <= 0 {
		return Latency{}
	}
	scale := func(d time.Duration) time.Duration { return time.Duration(float64(d) * f) }
	return Latency{
		List:      scale(l.List),
		Get:       scale(l.Get),
		Create:    scale(l.Create),
		Update:    scale(l.Update),
		Delete:    scale(l.Delete),
		Status:    scale(l.Status),
		Reference: scale(l.Reference),
	}
}

// Wait blocks for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// resolveRole maps the submitted role id onto the reference set.
func resolveRole(roles []model.Role, draft model.Draft) (model.Role, bool) {
	id, ok := draft.RoleID()
	if !ok {
		return model.Role{}, false
	}
	return model.FindRole(roles, id)
}
