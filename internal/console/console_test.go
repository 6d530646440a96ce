package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userdesk/backend/internal/model"
	"github.com/userdesk/backend/internal/repository"
	"github.com/userdesk/backend/internal/validation"
)

var testRoles = []model.Role{{ID: 2, Title: "Owner"}, {ID: 3, Title: "Admin"}, {ID: 4, Title: "Manager"}, {ID: 5, Title: "User"}}

func quietLogger() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// spyStore counts calls and can inject failures.
type spyStore struct {
	repository.DirectoryStore

	mu        sync.Mutex
	deletes   []int
	statuses  []int
	creates   int
	updates   int
	listCalls int
	failNext  map[string]error
	listHook  func(call int)
}

func newSpy(users ...model.User) *spyStore {
	return &spyStore{
		DirectoryStore: repository.NewMemoryUserRepository(users, testRoles,
			[]model.Responsibility{{ID: 1, Title: "Ops"}, {ID: 2, Title: "Finance"}}, repository.Latency{}),
		failNext: map[string]error{},
	}
}

func (s *spyStore) take(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.failNext[op]
	delete(s.failNext, op)
	return err
}

func (s *spyStore) List(ctx context.Context, f model.StatusFilter) ([]model.User, error) {
	s.mu.Lock()
	s.listCalls++
	call, hook := s.listCalls, s.listHook
	s.mu.Unlock()
	if hook != nil {
		hook(call)
	}
	if err := s.take("list"); err != nil {
		return nil, err
	}
	return s.DirectoryStore.List(ctx, f)
}

func (s *spyStore) Create(ctx context.Context, d model.Draft) (model.Ack, error) {
	s.mu.Lock()
	s.creates++
	s.mu.Unlock()
	if err := s.take("create"); err != nil {
		return model.Ack{}, err
	}
	return s.DirectoryStore.Create(ctx, d)
}

func (s *spyStore) Update(ctx context.Context, id int, d model.Draft) (model.Ack, error) {
	s.mu.Lock()
	s.updates++
	s.mu.Unlock()
	return s.DirectoryStore.Update(ctx, id, d)
}

func (s *spyStore) Delete(ctx context.Context, id int) (model.Ack, error) {
	s.mu.Lock()
	s.deletes = append(s.deletes, id)
	s.mu.Unlock()
	if err := s.take("delete"); err != nil {
		return model.Ack{}, err
	}
	return s.DirectoryStore.Delete(ctx, id)
}

func (s *spyStore) SetStatus(ctx context.Context, id int, active bool) (model.Ack, error) {
	s.mu.Lock()
	s.statuses = append(s.statuses, id)
	s.mu.Unlock()
	if err := s.take("status"); err != nil {
		return model.Ack{}, err
	}
	return s.DirectoryStore.SetStatus(ctx, id, active)
}

func user(id int, name, email string, active bool) model.User {
	return model.User{ID: id, FirstName: name, Email: email, Status: active, Role: model.DefaultRole}
}

func manyUsers(n int) []model.User {
	out := make([]model.User, n)
	for i := range out {
		out[i] = user(i+1, fmt.Sprintf("User%02d", i+1), fmt.Sprintf("u%02d@example.com", i+1), i%2 == 0)
	}
	return out
}

func ids(users []model.User) []int {
	out := make([]int, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}

func TestFilter_Match(t *testing.T) {
	u := user(1, "Alice", "ALICE@Example.com", true)

	assert.True(t, Filter{Search: "ali", Status: model.StatusAll}.Match(u))
	assert.True(t, Filter{Search: "EXAMPLE", Status: model.StatusActive}.Match(u))
	assert.False(t, Filter{Search: "bob", Status: model.StatusAll}.Match(u))
	assert.False(t, Filter{Status: model.StatusInactive}.Match(u))
	assert.True(t, Filter{}.Match(u))
}

func TestPaginate(t *testing.T) {
	users := manyUsers(23)
	assert.Equal(t, 3, TotalPages(23))
	assert.Equal(t, 0, TotalPages(0))
	assert.Equal(t, 1, TotalPages(10))

	p, err := Paginate(users, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{21, 22, 23}, ids(p.Users))
	assert.Equal(t, 20, p.Offset)
	assert.Equal(t, 3, p.TotalPages)

	_, err = Paginate(users, 0)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
	_, err = Paginate(users, 4)
	assert.ErrorIs(t, err, ErrPageOutOfRange)

	p, err = Paginate(nil, 1)
	require.NoError(t, err)
	assert.Empty(t, p.Users)
	assert.Zero(t, p.TotalPages)
}

func TestView_ActiveFilterScenario(t *testing.T) {
	store := newSpy(user(1, "One", "one@example.com", true), user(2, "Two", "two@example.com", false))
	v := NewView(store, quietLogger())
	require.NoError(t, v.Mount(context.Background()))

	snap := v.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, []int{1, 2}, ids(snap.Page.Users))
	assert.Equal(t, 1, snap.Page.Number)
	assert.Equal(t, 1, snap.Page.TotalPages)

	v.SetStatus(model.StatusActive)
	assert.Equal(t, []int{1}, ids(v.Snapshot().Page.Users))
}

func TestView_FilterChangesResetPage(t *testing.T) {
	v := NewView(newSpy(manyUsers(25)...), quietLogger())
	require.NoError(t, v.Mount(context.Background()))

	require.NoError(t, v.GoTo(3))
	assert.Equal(t, 3, v.Snapshot().Page.Number)

	v.SetSearch("user")
	assert.Equal(t, 1, v.Snapshot().Page.Number)

	require.NoError(t, v.GoTo(2))
	v.SetStatus(model.StatusInactive)
	snap := v.Snapshot()
	assert.Equal(t, 1, snap.Page.Number)
	assert.Equal(t, 12, snap.Matches)

	assert.ErrorIs(t, v.GoTo(0), ErrPageOutOfRange)
	assert.ErrorIs(t, v.GoTo(3), ErrPageOutOfRange)
}

func TestView_DeleteNeedsConfirm(t *testing.T) {
	store := newSpy(manyUsers(3)...)
	v := NewView(store, quietLogger())
	ctx := context.Background()
	require.NoError(t, v.Mount(ctx))

	v.RequestDelete(2)
	assert.Empty(t, store.deletes)
	assert.Equal(t, 2, v.Snapshot().PendingDelete)
	_, err := store.Get(ctx, 2)
	require.NoError(t, err)

	v.CancelDelete()
	assert.ErrorIs(t, v.ConfirmDelete(ctx), ErrNoPendingDelete)
	assert.Empty(t, store.deletes)

	v.RequestDelete(2)
	require.NoError(t, v.ConfirmDelete(ctx))
	assert.Equal(t, []int{2}, store.deletes)
	assert.ErrorIs(t, v.ConfirmDelete(ctx), ErrNoPendingDelete)
	assert.Equal(t, []int{2}, store.deletes)

	snap := v.Snapshot()
	assert.Equal(t, []int{1, 3}, ids(snap.Page.Users))
	require.NotNil(t, snap.Toast)
	assert.Equal(t, MsgDeleted, snap.Toast.Message)
}

func TestView_DeleteFailureKeepsRecord(t *testing.T) {
	store := newSpy(manyUsers(3)...)
	v := NewView(store, quietLogger())
	ctx := context.Background()
	require.NoError(t, v.Mount(ctx))

	store.failNext["delete"] = errors.New("boom")
	v.RequestDelete(1)
	require.Error(t, v.ConfirmDelete(ctx))

	snap := v.Snapshot()
	assert.Equal(t, []int{1, 2, 3}, ids(snap.Page.Users))
	assert.Equal(t, 1, snap.PendingDelete)
	require.NotNil(t, snap.Toast)
	assert.Equal(t, MsgDeleteFailed, snap.Toast.Message)
	assert.Equal(t, ToastError, snap.Toast.Kind)
}

func TestView_ToggleStatusReloads(t *testing.T) {
	store := newSpy(user(1, "One", "one@example.com", true))
	v := NewView(store, quietLogger())
	ctx := context.Background()
	require.NoError(t, v.Mount(ctx))

	require.NoError(t, v.ToggleStatus(ctx, 1))
	snap := v.Snapshot()
	assert.False(t, snap.Page.Users[0].Status)
	assert.Equal(t, "Status changed to Inactive successfully!", snap.Toast.Message)
	assert.Equal(t, 2, store.listCalls)

	store.failNext["status"] = errors.New("down")
	require.Error(t, v.ToggleStatus(ctx, 1))
	snap = v.Snapshot()
	assert.False(t, snap.Page.Users[0].Status)
	assert.Equal(t, MsgStatusFailed, snap.Toast.Message)
	assert.Equal(t, 2, store.listCalls)
}

func TestView_LoadErrorIsAState(t *testing.T) {
	store := newSpy()
	store.failNext["list"] = errors.New("network down")
	v := NewView(store, quietLogger())

	require.Error(t, v.Mount(context.Background()))
	snap := v.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, "network down", snap.Error)
	assert.Equal(t, MsgLoadFailed, snap.Toast.Message)
}

func TestView_StaleLoadDiscarded(t *testing.T) {
	store := newSpy(manyUsers(2)...)
	v := NewView(store, quietLogger())
	ctx := context.Background()

	// The first load is overtaken by a second one. Record 1 is removed between
	// them, so only the stale first load would see it missing.
	store.listHook = func(call int) {
		if call == 1 {
			store.listHook = nil
			require.NoError(t, v.Reload(ctx))
			_, _ = store.DirectoryStore.Delete(ctx, 1)
		}
	}
	require.NoError(t, v.Mount(ctx))

	assert.Equal(t, []int{1, 2}, ids(v.Snapshot().Page.Users))
}

func TestView_ToastExpires(t *testing.T) {
	now := time.Now()
	v := NewView(newSpy(), quietLogger(), WithClock(func() time.Time { return now }))

	v.Notify("hello", ToastSuccess)
	require.NotNil(t, v.Snapshot().Toast)

	now = now.Add(DefaultToastTTL)
	assert.Nil(t, v.Snapshot().Toast)

	v.Notify("again", ToastSuccess)
	v.DismissToast()
	assert.Nil(t, v.Snapshot().Toast)
}

func TestView_ClampsPageAfterShrink(t *testing.T) {
	store := newSpy(manyUsers(11)...)
	v := NewView(store, quietLogger())
	ctx := context.Background()
	require.NoError(t, v.Mount(ctx))
	require.NoError(t, v.GoTo(2))

	v.RequestDelete(11)
	require.NoError(t, v.ConfirmDelete(ctx))
	assert.Equal(t, 1, v.Snapshot().Page.Number)
}

func TestForm_EmptyNameBlocksSubmit(t *testing.T) {
	store := newSpy()
	f := NewForm(store, 0, TagResponsibility, quietLogger())

	f.Change(validation.FieldEmail, "ann@example.com")
	f.Change(validation.FieldRole, "4")
	f.ToggleTag(1)

	_, err := f.Submit(context.Background())
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "Name is required", verrs[validation.FieldName])
	assert.Zero(t, store.creates)

	users, _ := store.List(context.Background(), model.StatusAll)
	assert.Empty(t, users)
}

func TestForm_BlurThenChangeValidation(t *testing.T) {
	f := NewForm(newSpy(), 0, TagDesignation, quietLogger())

	f.Change(validation.FieldEmail, "bad")
	assert.Empty(t, f.Snapshot().Errors, "untouched fields are not validated on change")

	f.Blur(validation.FieldEmail)
	assert.Equal(t, "Please enter a valid email address", f.Snapshot().Errors[validation.FieldEmail])

	f.Change(validation.FieldEmail, "ok@example.com")
	assert.Empty(t, f.Snapshot().Errors[validation.FieldEmail])

	f.Blur(validation.FieldResponsibility)
	assert.Equal(t, "Designation is required", f.Snapshot().Errors[validation.FieldResponsibility])
	f.ToggleTag(2)
	assert.Empty(t, f.Snapshot().Errors[validation.FieldResponsibility])
	f.ToggleTag(2)
	assert.Equal(t, "Designation is required", f.Snapshot().Errors[validation.FieldResponsibility])
}

func TestForm_CreateSubmit(t *testing.T) {
	now := time.Now()
	store := newSpy()
	f := NewForm(store, 0, TagResponsibility, quietLogger(), WithClock(func() time.Time { return now }))
	ctx := context.Background()
	require.NoError(t, f.Load(ctx))

	snap := f.Snapshot()
	assert.Equal(t, []model.Role{{ID: 4, Title: "Manager"}, {ID: 5, Title: "User"}}, snap.Roles)
	assert.Len(t, snap.Responsibilities, 2)

	f.Change(validation.FieldName, "Ann")
	f.Change(validation.FieldEmail, "ann@example.com")
	f.Change(validation.FieldRole, "4")
	f.ToggleTag(1)

	res, err := f.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, MsgUserAdded, res.Message)
	assert.Equal(t, now.Add(DefaultRedirectDelay), res.CloseAt)

	u, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.FirstName)
	assert.Equal(t, "Manager", u.Role.Title)
}

func TestForm_SubmitFailureKeepsValues(t *testing.T) {
	store := newSpy()
	store.failNext["create"] = errors.New("500")
	f := NewForm(store, 0, TagResponsibility, quietLogger())

	f.Change(validation.FieldName, "Ann")
	f.Change(validation.FieldEmail, "ann@example.com")
	f.Change(validation.FieldRole, "4")
	f.ToggleTag(1)

	_, err := f.Submit(context.Background())
	require.Error(t, err)

	snap := f.Snapshot()
	assert.Equal(t, "Ann", snap.Values.Name)
	require.NotNil(t, snap.Toast)
	assert.Equal(t, MsgSaveFailed, snap.Toast.Message)
	assert.False(t, snap.Submitting)
}

func TestForm_EditLoadsAndUpdates(t *testing.T) {
	phone := "0412345678"
	existing := user(7, "Greg", "greg@example.com", true)
	existing.Phone = &phone
	existing.RoleType = "5"
	existing.Responsibilities = []int{2}
	store := newSpy(existing)
	ctx := context.Background()

	f := NewForm(store, 7, TagResponsibility, quietLogger())
	require.NoError(t, f.Load(ctx))
	snap := f.Snapshot()
	assert.True(t, snap.Editing)
	assert.Equal(t, "Greg", snap.Values.Name)
	assert.Equal(t, "5", snap.Values.Role)
	assert.True(t, snap.HasTag(2))

	f.Change(validation.FieldName, "Gregory")
	f.Change(validation.FieldPhone, "")
	res, err := f.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, MsgUserUpdated, res.Message)
	assert.Equal(t, 1, store.updates)

	u, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Gregory", u.FirstName)
	assert.Equal(t, "0412345678", model.Deref(u.Phone))
}

func TestForm_EditMissingRecord(t *testing.T) {
	f := NewForm(newSpy(), 42, TagResponsibility, quietLogger())
	err := f.Load(context.Background())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, MsgUserLoadFailed, f.Snapshot().Toast.Message)
}
