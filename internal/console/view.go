package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/userdesk/backend/internal/model"
	"github.com/userdesk/backend/internal/repository"
)

// State is the load state of a View.
type State int

const (
	StateLoading State = iota
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Toast messages shown by the directory view.
const (
	MsgLoadFailed   = "Failed to load users"
	MsgDeleted      = "User deleted successfully!"
	MsgDeleteFailed = "Failed to delete user"
	MsgStatusFailed = "Failed to change status"
)

// ErrNoPendingDelete is returned by ConfirmDelete without a prior RequestDelete.
var ErrNoPendingDelete = errors.New("no delete awaiting confirmation")

// Option configures a View or a Form.
type Option func(*options)

type options struct {
	now           func() time.Time
	toastTTL      time.Duration
	redirectDelay time.Duration
	logger        *slog.Logger
}

func defaultOptions() options {
	return options{
		now:           time.Now,
		toastTTL:      DefaultToastTTL,
		redirectDelay: DefaultRedirectDelay,
		logger:        slog.Default(),
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithToastTTL sets how long toasts stay visible.
func WithToastTTL(d time.Duration) Option {
	return func(o *options) { o.toastTTL = d }
}

// WithRedirectDelay sets how long a saved form stays open.
func WithRedirectDelay(d time.Duration) Option {
	return func(o *options) { o.redirectDelay = d }
}

// WithLogger sets the logger failures are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// View is the directory listing state machine. It holds a read projection of
// the store and reloads after every mutation. The mutex is never held across
// store calls.
type View struct {
	store repository.DirectoryStore
	opts  options

	mu            sync.Mutex
	state         State
	loadErr       string
	users         []model.User
	filter        Filter
	page          int
	generation    uint64
	pendingDelete int
	toast         *Toast
}

// NewView creates a View in the Loading state. Call Mount to populate it.
func NewView(store repository.DirectoryStore, opts ...Option) *View {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &View{
		store:  store,
		opts:   o,
		state:  StateLoading,
		filter: Filter{Status: model.StatusAll},
		page:   1,
	}
}

// Snapshot is a consistent copy of the view for rendering.
type Snapshot struct {
	State         State
	Error         string
	Filter        Filter
	Page          Page
	Matches       int
	PendingDelete int
	Toast         *Toast
}

// Snapshot returns the current projection.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	filtered := Apply(v.users, v.filter)
	page, err := Paginate(filtered, v.page)
	if err != nil {
		page, _ = Paginate(filtered, 1)
	}
	snap := Snapshot{
		State:         v.state,
		Error:         v.loadErr,
		Filter:        v.filter,
		Page:          page,
		Matches:       len(filtered),
		PendingDelete: v.pendingDelete,
	}
	if now := v.opts.now(); v.toast.Active(now) {
		t := *v.toast
		snap.Toast = &t
	}
	return snap
}

// Mount resets the filters and loads the directory.
func (v *View) Mount(ctx context.Context) error {
	v.mu.Lock()
	v.filter = Filter{Status: model.StatusAll}
	v.page = 1
	v.pendingDelete = 0
	v.mu.Unlock()
	return v.Reload(ctx)
}

// Reload fetches the full directory. Results of a load superseded by a newer
// one are discarded.
func (v *View) Reload(ctx context.Context) error {
	v.mu.Lock()
	v.generation++
	gen := v.generation
	v.state = StateLoading
	v.mu.Unlock()

	users, err := v.store.List(ctx, model.StatusAll)

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.generation {
		return nil
	}
	if err != nil {
		v.opts.logger.Error("failed to fetch users", "error", err)
		v.state = StateError
		v.loadErr = err.Error()
		v.showLocked(MsgLoadFailed, ToastError)
		return err
	}
	v.users = users
	v.state = StateReady
	v.loadErr = ""
	v.clampPageLocked()
	return nil
}

// SetSearch changes the search term and returns to page 1.
func (v *View) SetSearch(search string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter.Search = search
	v.page = 1
}

// SetStatus changes the status filter and returns to page 1.
func (v *View) SetStatus(status model.StatusFilter) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter.Status = status
	v.page = 1
}

// GoTo moves to page, which must lie within 1..TotalPages.
func (v *View) GoTo(page int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, err := Paginate(Apply(v.users, v.filter), page); err != nil {
		return err
	}
	v.page = page
	return nil
}

// RequestDelete marks id as awaiting confirmation. Nothing is deleted yet.
func (v *View) RequestDelete(id int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pendingDelete = id
}

// CancelDelete clears a pending delete.
func (v *View) CancelDelete() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pendingDelete = 0
}

// ConfirmDelete deletes the pending record and reloads. The pending id is
// consumed before the store call, so a second confirm finds nothing to do.
// On failure the record stays listed and the request is restored.
func (v *View) ConfirmDelete(ctx context.Context) error {
	v.mu.Lock()
	id := v.pendingDelete
	v.pendingDelete = 0
	v.mu.Unlock()
	if id == 0 {
		return ErrNoPendingDelete
	}

	if _, err := v.store.Delete(ctx, id); err != nil {
		v.opts.logger.Error("failed to delete user", "id", id, "error", err)
		v.mu.Lock()
		if v.pendingDelete == 0 {
			v.pendingDelete = id
		}
		v.showLocked(MsgDeleteFailed, ToastError)
		v.mu.Unlock()
		return err
	}

	v.show(MsgDeleted, ToastSuccess)
	return v.Reload(ctx)
}

// ToggleStatus flips the status of a listed record and reloads. The local
// copy is never patched.
func (v *View) ToggleStatus(ctx context.Context, id int) error {
	v.mu.Lock()
	current, ok := v.statusLocked(id)
	v.mu.Unlock()
	if !ok {
		v.show(MsgStatusFailed, ToastError)
		return repository.ErrNotFound
	}

	next := !current
	if _, err := v.store.SetStatus(ctx, id, next); err != nil {
		v.opts.logger.Error("failed to change status", "id", id, "error", err)
		v.show(MsgStatusFailed, ToastError)
		return err
	}

	state := "Inactive"
	if next {
		state = "Active"
	}
	v.show(fmt.Sprintf("Status changed to %s successfully!", state), ToastSuccess)
	return v.Reload(ctx)
}

// Saved is called when a form saved a record: the form's message is shown and
// the directory reloads.
func (v *View) Saved(ctx context.Context, message string) error {
	v.show(message, ToastSuccess)
	return v.Reload(ctx)
}

// Notify shows a toast.
func (v *View) Notify(message, kind string) {
	v.show(message, kind)
}

// DismissToast hides the current toast.
func (v *View) DismissToast() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.toast = nil
}

func (v *View) show(message, kind string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.showLocked(message, kind)
}

func (v *View) showLocked(message, kind string) {
	v.toast = &Toast{Message: message, Kind: kind, ExpiresAt: v.opts.now().Add(v.opts.toastTTL)}
}

func (v *View) statusLocked(id int) (bool, bool) {
	for _, u := range v.users {
		if u.ID == id {
			return u.Status, true
		}
	}
	return false, false
}

// clampPageLocked keeps the page valid after the record set shrank.
func (v *View) clampPageLocked() {
	last := max(TotalPages(len(Apply(v.users, v.filter))), 1)
	if v.page > last {
		v.page = last
	}
}
