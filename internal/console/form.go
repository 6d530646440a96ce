package console

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/userdesk/backend/internal/model"
	"github.com/userdesk/backend/internal/repository"
	"github.com/userdesk/backend/internal/validation"
)

// DefaultRedirectDelay is how long a saved form stays open so its toast can be read.
const DefaultRedirectDelay = 1500 * time.Millisecond

// Tag labels for the multi-select.
const (
	TagResponsibility = "Responsibility"
	TagDesignation    = "Designation"
)

// Form messages.
const (
	MsgUserAdded      = "User added successfully!"
	MsgUserUpdated    = "User updated successfully!"
	MsgSaveFailed     = "Failed to save user"
	MsgUserLoadFailed = "Failed to load user data"
)

// Form fields accepted by Change and Blur.
const (
	FieldTitle       = "title"
	FieldUserPicture = "user_picture"
)

// Errors returned by Submit.
var (
	ErrSubmitting = errors.New("a save is already in progress")
)

// Result is the outcome of a successful submit.
type Result struct {
	Message string
	// CloseAt is when the form should close and return to the directory.
	CloseAt time.Time
}

// Form is the add/edit user form state machine. A form bound to an id updates
// that record; an unbound form creates one.
type Form struct {
	store    repository.DirectoryStore
	id       int
	tagLabel string
	opts     options

	mu               sync.Mutex
	values           model.Draft
	touched          map[string]bool
	errs             validation.Errors
	roles            []model.Role
	responsibilities []model.Responsibility
	submitting       bool
	toast            *Toast
}

// NewForm creates a form. id == 0 creates a record; otherwise it edits id.
// tagLabel names the multi-select ("Responsibility" or "Designation").
func NewForm(store repository.DirectoryStore, id int, tagLabel string, opts ...Option) *Form {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if tagLabel == "" {
		tagLabel = TagResponsibility
	}
	return &Form{
		store:    store,
		id:       id,
		tagLabel: tagLabel,
		opts:     o,
		touched:  make(map[string]bool),
		errs:     make(validation.Errors),
	}
}

// Editing reports whether the form is bound to an existing record.
func (f *Form) Editing() bool {
	return f.id != 0
}

// ID returns the bound record id, or 0.
func (f *Form) ID() int {
	return f.id
}

// Load fetches the dropdown data and, when editing, the record. The three
// requests run concurrently. A dropdown failure leaves the lists empty; a
// record failure is reported as a toast and returned.
func (f *Form) Load(ctx context.Context) error {
	var (
		roles model.RoleDropdown
		resp  []model.Responsibility
		user  *model.User
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if roles, err = f.store.Roles(gctx); err != nil {
			f.opts.logger.Error("failed to load roles", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if resp, err = f.store.Responsibilities(gctx); err != nil {
			f.opts.logger.Error("failed to load responsibilities", "error", err)
		}
		return nil
	})
	if f.Editing() {
		g.Go(func() error {
			var err error
			user, err = f.store.Get(gctx, f.id)
			return err
		})
	}
	err := g.Wait()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles = roles.OtherRoles
	f.responsibilities = resp
	if err != nil {
		f.opts.logger.Error("failed to load user", "id", f.id, "error", err)
		f.showLocked(MsgUserLoadFailed, ToastError)
		return err
	}
	if user != nil {
		f.values = draftFromUser(*user)
	}
	return nil
}

func draftFromUser(u model.User) model.Draft {
	role := u.RoleType
	if role == "" && u.Role.ID != 0 {
		role = strconv.Itoa(u.Role.ID)
	}
	return model.Draft{
		Name:             u.FirstName,
		Email:            u.Email,
		Phone:            model.Deref(u.Phone),
		Role:             role,
		Title:            model.Deref(u.Title),
		Initials:         model.Deref(u.Initials),
		UserPicture:      model.Deref(u.ProfileImage),
		Responsibilities: append([]int(nil), u.Responsibilities...),
	}
}

// Change sets a field. It is validated only once the field has been blurred.
func (f *Form) Change(field, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch field {
	case validation.FieldName:
		f.values.Name = value
	case validation.FieldEmail:
		f.values.Email = value
	case validation.FieldPhone:
		f.values.Phone = value
	case validation.FieldRole:
		f.values.Role = value
	case validation.FieldInitials:
		f.values.Initials = value
	case FieldTitle:
		f.values.Title = value
	case FieldUserPicture:
		f.values.UserPicture = value
	default:
		return
	}
	if f.touched[field] {
		f.validateLocked(field)
	}
}

// SetTags replaces the selected tag ids.
func (f *Form) SetTags(ids []int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values.Responsibilities = append([]int(nil), ids...)
	if f.touched[validation.FieldResponsibility] {
		f.validateLocked(validation.FieldResponsibility)
	}
}

// ToggleTag adds or removes one tag id.
func (f *Form) ToggleTag(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := slices.Index(f.values.Responsibilities, id); i >= 0 {
		f.values.Responsibilities = slices.Delete(f.values.Responsibilities, i, i+1)
	} else {
		f.values.Responsibilities = append(f.values.Responsibilities, id)
	}
	if f.touched[validation.FieldResponsibility] {
		f.validateLocked(validation.FieldResponsibility)
	}
}

// Blur marks field touched and validates it.
func (f *Form) Blur(field string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched[field] = true
	f.validateLocked(field)
}

// Validate checks every field regardless of touched state and marks all of
// them touched.
func (f *Form) Validate() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateAllLocked()
}

// Submit validates and saves. Invalid input returns the validation errors
// without calling the store. A store failure keeps the entered values.
func (f *Form) Submit(ctx context.Context) (Result, error) {
	f.mu.Lock()
	if !f.validateAllLocked() {
		errs := f.errorsLocked()
		f.mu.Unlock()
		return Result{}, errs
	}
	if f.submitting {
		f.mu.Unlock()
		return Result{}, ErrSubmitting
	}
	f.submitting = true
	draft := f.values
	draft.Responsibilities = append([]int(nil), f.values.Responsibilities...)
	f.mu.Unlock()

	var err error
	msg := MsgUserAdded
	if f.Editing() {
		msg = MsgUserUpdated
		_, err = f.store.Update(ctx, f.id, draft)
	} else {
		_, err = f.store.Create(ctx, draft)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if err != nil {
		f.opts.logger.Error("failed to save user", "id", f.id, "error", err)
		f.showLocked(MsgSaveFailed, ToastError)
		return Result{}, err
	}
	f.showLocked(msg, ToastSuccess)
	return Result{Message: msg, CloseAt: f.opts.now().Add(f.opts.redirectDelay)}, nil
}

// FormSnapshot is a consistent copy of the form for rendering.
type FormSnapshot struct {
	Editing          bool
	ID               int
	TagLabel         string
	Values           model.Draft
	Errors           map[string]string
	Roles            []model.Role
	Responsibilities []model.Responsibility
	Submitting       bool
	Toast            *Toast
}

// Snapshot returns the current form state. Errors holds only failing fields.
func (f *Form) Snapshot() FormSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	values := f.values
	values.Responsibilities = append([]int(nil), f.values.Responsibilities...)
	snap := FormSnapshot{
		Editing:          f.Editing(),
		ID:               f.id,
		TagLabel:         f.tagLabel,
		Values:           values,
		Errors:           f.errs.Failed(),
		Roles:            append([]model.Role(nil), f.roles...),
		Responsibilities: append([]model.Responsibility(nil), f.responsibilities...),
		Submitting:       f.submitting,
	}
	if f.toast.Active(f.opts.now()) {
		t := *f.toast
		snap.Toast = &t
	}
	return snap
}

// HasTag reports whether id is selected.
func (s FormSnapshot) HasTag(id int) bool {
	return slices.Contains(s.Values.Responsibilities, id)
}

func (f *Form) validateLocked(field string) {
	f.errs.Set(field, validation.DraftField(f.values, field, f.tagLabel))
}

func (f *Form) validateAllLocked() bool {
	for _, field := range validation.DraftFields {
		f.touched[field] = true
		f.validateLocked(field)
	}
	return f.errs.OK()
}

func (f *Form) errorsLocked() validation.Errors {
	out := make(validation.Errors, len(f.errs))
	for k, v := range f.errs.Failed() {
		out[k] = v
	}
	return out
}

// Notify shows a toast on the form.
func (f *Form) Notify(message, kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.showLocked(message, kind)
}

func (f *Form) showLocked(message, kind string) {
	f.toast = &Toast{Message: message, Kind: kind, ExpiresAt: f.opts.now().Add(f.opts.toastTTL)}
}
