package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/userdesk/backend/internal/model"
	"github.com/userdesk/backend/internal/repository"
)

// Store wraps a DirectoryStore and publishes an event after every successful
// mutation. Delivery runs in the background and never fails the mutation.
type Store struct {
	repository.DirectoryStore
	sender  Sender
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewStore decorates inner with change notifications.
func NewStore(inner repository.DirectoryStore, sender Sender, logger *slog.Logger) *Store {
	return &Store{
		DirectoryStore: inner,
		sender:         sender,
		logger:         logger,
		timeout:        15 * time.Second,
	}
}

func (s *Store) Create(ctx context.Context, draft model.Draft) (model.Ack, error) {
	ack, err := s.DirectoryStore.Create(ctx, draft)
	if err == nil {
		s.publish(ctx, UserCreated(ack.ID, draft))
	}
	return ack, err
}

func (s *Store) Update(ctx context.Context, id int, draft model.Draft) (model.Ack, error) {
	ack, err := s.DirectoryStore.Update(ctx, id, draft)
	if err == nil {
		s.publish(ctx, UserUpdated(id, draft))
	}
	return ack, err
}

func (s *Store) Delete(ctx context.Context, id int) (model.Ack, error) {
	ack, err := s.DirectoryStore.Delete(ctx, id)
	if err == nil {
		s.publish(ctx, UserDeleted(id))
	}
	return ack, err
}

func (s *Store) SetStatus(ctx context.Context, id int, active bool) (model.Ack, error) {
	ack, err := s.DirectoryStore.SetStatus(ctx, id, active)
	if err == nil {
		s.publish(ctx, UserStatusChanged(id, active))
	}
	return ack, err
}

// Wait blocks until in-flight deliveries finish.
func (s *Store) Wait() {
	s.wg.Wait()
}

func (s *Store) publish(ctx context.Context, msg Message) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		if err := s.sender.Send(ctx, msg); err != nil {
			s.logger.Warn("directory event not delivered", "event", msg.EventType, "error", err)
		}
	}()
}
