package repository

import (
	"context"
	"sync"

	"github.com/userdesk/backend/internal/model"
)

// MemoryUserRepository is an in-process DirectoryStore with simulated latency.
type MemoryUserRepository struct {
	mu               sync.RWMutex
	users            []model.User
	roles            []model.Role
	responsibilities []model.Responsibility
	latency          Latency
}

// NewMemoryUserRepository creates a store seeded with users.
func NewMemoryUserRepository(users []model.User, roles []model.Role, responsibilities []model.Responsibility, latency Latency) *MemoryUserRepository {
	r := &MemoryUserRepository{
		users:            make([]model.User, 0, len(users)),
		roles:            append([]model.Role(nil), roles...),
		responsibilities: append([]model.Responsibility(nil), responsibilities...),
		latency:          latency,
	}
	for _, u := range users {
		r.users = append(r.users, u.Clone())
	}
	return r
}

func (r *MemoryUserRepository) List(ctx context.Context, filter model.StatusFilter) ([]model.User, error) {
	if err := Wait(ctx, r.latency.List); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		if filter.Matches(u.Status) {
			out = append(out, u.Clone())
		}
	}
	return out, nil
}

func (r *MemoryUserRepository) Get(ctx context.Context, id int) (*model.User, error) {
	if err := Wait(ctx, r.latency.Get); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	u := r.users[i].Clone()
	return &u, nil
}

func (r *MemoryUserRepository) Create(ctx context.Context, draft model.Draft) (model.Ack, error) {
	if err := Wait(ctx, r.latency.Create); err != nil {
		return model.Ack{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	nextID := 1
	for _, u := range r.users {
		if u.ID >= nextID {
			nextID = u.ID + 1
		}
	}

	role, ok := resolveRole(r.roles, draft)
	if !ok {
		role = model.DefaultRole
	}

	r.users = append(r.users, model.User{
		ID:               nextID,
		FirstName:        draft.Name,
		Title:            model.OptionalString(draft.Title),
		Initials:         model.OptionalString(draft.Initials),
		RoleType:         draft.Role,
		Email:            draft.Email,
		Phone:            model.OptionalString(draft.Phone),
		ProfileImage:     model.OptionalString(draft.UserPicture),
		Status:           true,
		ProfileImageURL:  model.AvatarURL(draft.UserPicture, draft.Name),
		Role:             role,
		Responsibilities: append([]int(nil), draft.Responsibilities...),
	})
	return model.Ack{ID: nextID, Message: MsgCreated}, nil
}

func (r *MemoryUserRepository) Update(ctx context.Context, id int, draft model.Draft) (model.Ack, error) {
	if err := Wait(ctx, r.latency.Update); err != nil {
		return model.Ack{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return model.Ack{}, ErrNotFound
	}
	u := &r.users[i]

	u.FirstName = draft.Name
	u.Email = draft.Email
	u.RoleType = draft.Role
	if role, ok := resolveRole(r.roles, draft); ok {
		u.Role = role
	}
	if draft.Title != "" {
		u.Title = model.OptionalString(draft.Title)
	}
	if draft.Initials != "" {
		u.Initials = model.OptionalString(draft.Initials)
	}
	if draft.Phone != "" {
		u.Phone = model.OptionalString(draft.Phone)
	}
	switch {
	case draft.UserPicture != "":
		u.ProfileImage = model.OptionalString(draft.UserPicture)
		u.ProfileImageURL = draft.UserPicture
	case u.ProfileImage == nil:
		u.ProfileImageURL = model.AvatarURL("", u.FirstName)
	}
	if len(draft.Responsibilities) > 0 {
		u.Responsibilities = append([]int(nil), draft.Responsibilities...)
	}
	return model.Ack{ID: id, Message: MsgUpdated}, nil
}

func (r *MemoryUserRepository) Delete(ctx context.Context, id int) (model.Ack, error) {
	if err := Wait(ctx, r.latency.Delete); err != nil {
		return model.Ack{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexOf(id); i >= 0 {
		r.users = append(r.users[:i], r.users[i+1:]...)
	}
	return model.Ack{ID: id, Message: MsgDeleted}, nil
}

func (r *MemoryUserRepository) SetStatus(ctx context.Context, id int, active bool) (model.Ack, error) {
	if err := Wait(ctx, r.latency.Status); err != nil {
		return model.Ack{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexOf(id); i >= 0 {
		r.users[i].Status = active
	}
	return model.Ack{ID: id, Message: MsgStatusChanged}, nil
}

func (r *MemoryUserRepository) Roles(ctx context.Context) (model.RoleDropdown, error) {
	if err := Wait(ctx, r.latency.Reference); err != nil {
		return model.RoleDropdown{}, err
	}
	return model.NewRoleDropdown(r.roles), nil
}

func (r *MemoryUserRepository) Responsibilities(ctx context.Context) ([]model.Responsibility, error) {
	if err := Wait(ctx, r.latency.Reference); err != nil {
		return nil, err
	}
	return append([]model.Responsibility(nil), r.responsibilities...), nil
}

// indexOf requires r.mu to be held.
func (r *MemoryUserRepository) indexOf(id int) int {
	for i := range r.users {
		if r.users[i].ID == id {
			return i
		}
	}
	return -1
}
