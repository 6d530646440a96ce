package web

import (
	"sync"
	"time"

	"github.com/userdesk/backend/internal/console"
	"github.com/userdesk/backend/internal/repository"
)

// StoreFactory returns the directory store a session works against. Local
// backends share one store; the remote backend binds the session token.
type StoreFactory func(token string) repository.DirectoryStore

type consoleEntry struct {
	store    repository.DirectoryStore
	view     *console.View
	lastSeen time.Time
}

// Consoles keeps one directory view per logged-in session.
type Consoles struct {
	factory StoreFactory
	idle    time.Duration
	opts    []console.Option
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*consoleEntry
}

// NewConsoles creates a registry. Views unused for longer than idle are
// dropped by PurgeIdle; idle <= 0 keeps them until Close.
func NewConsoles(factory StoreFactory, idle time.Duration, opts ...console.Option) *Consoles {
	return &Consoles{
		factory: factory,
		idle:    idle,
		opts:    opts,
		now:     time.Now,
		entries: make(map[string]*consoleEntry),
	}
}

// Open returns the view and store of token, creating them on first use.
// created reports whether the view is new and still needs a Mount.
func (c *Consoles) Open(token string) (view *console.View, store repository.DirectoryStore, created bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[token]
	if !ok {
		store := c.factory(token)
		e = &consoleEntry{store: store, view: console.NewView(store, c.opts...)}
		c.entries[token] = e
	}
	e.lastSeen = c.now()
	return e.view, e.store, !ok
}

// Close drops the view of token.
func (c *Consoles) Close(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, token)
}

// PurgeIdle drops views not opened within the idle timeout and returns how
// many were removed.
func (c *Consoles) PurgeIdle() int {
	if c.idle <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.idle)
	n := 0
	for token, e := range c.entries {
		if e.lastSeen.Before(cutoff) {
			delete(c.entries, token)
			n++
		}
	}
	return n
}

// Len returns the number of open views.
func (c *Consoles) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
