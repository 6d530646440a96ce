package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/userdesk/backend/internal/model"
)

const userColumns = `id, first_name, last_name, title, initials, role_type, role_id, role_title,
	email, phone, profile_image, profile_image_url, status, responsibilities`

// PostgresUserRepository implements DirectoryStore for PostgreSQL. Roles and
// responsibilities are reference data held in memory.
type PostgresUserRepository struct {
	db               *sql.DB
	roles            []model.Role
	responsibilities []model.Responsibility
}

// NewPostgresUserRepository creates a new PostgresUserRepository.
func NewPostgresUserRepository(db *sql.DB, roles []model.Role, responsibilities []model.Responsibility) *PostgresUserRepository {
	return &PostgresUserRepository{db: db, roles: roles, responsibilities: responsibilities}
}

// EnsureTable creates the users table if it does not exist.
func (r *PostgresUserRepository) EnsureTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS directory_users (
			id                INTEGER PRIMARY KEY,
			first_name        TEXT NOT NULL,
			last_name         TEXT,
			title             TEXT,
			initials          VARCHAR(3),
			role_type         TEXT NOT NULL,
			role_id           INTEGER NOT NULL,
			role_title        TEXT NOT NULL,
			email             TEXT NOT NULL,
			phone             TEXT,
			profile_image     TEXT,
			profile_image_url TEXT NOT NULL,
			status            BOOLEAN NOT NULL DEFAULT TRUE,
			responsibilities  JSONB NOT NULL DEFAULT '[]',
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

// SeedIfEmpty inserts users when the table has no rows.
func (r *PostgresUserRepository) SeedIfEmpty(ctx context.Context, users []model.User) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM directory_users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, u := range users {
		resp, _ := json.Marshal(nonNilInts(u.Responsibilities))
		_, err := tx.ExecContext(ctx, `
			INSERT INTO directory_users (`+userColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`, u.ID, u.FirstName, u.LastName, u.Title, u.Initials, u.RoleType, u.Role.ID, u.Role.Title,
			u.Email, u.Phone, u.ProfileImage, u.ProfileImageURL, u.Status, resp)
		if err != nil {
			return 0, fmt.Errorf("seed user %d: %w", u.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(users), nil
}

func (r *PostgresUserRepository) List(ctx context.Context, filter model.StatusFilter) ([]model.User, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if filter == model.StatusAll || filter == "" {
		rows, err = r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM directory_users ORDER BY id`)
	} else {
		rows, err = r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM directory_users WHERE status = $1 ORDER BY id`,
			filter == model.StatusActive)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *PostgresUserRepository) Get(ctx context.Context, id int) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM directory_users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func (r *PostgresUserRepository) Create(ctx context.Context, draft model.Draft) (model.Ack, error) {
	role, ok := resolveRole(r.roles, draft)
	if !ok {
		role = model.DefaultRole
	}
	resp, _ := json.Marshal(nonNilInts(draft.Responsibilities))
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Ack{}, err
	}
	defer tx.Rollback()

	// Serialise id assignment so MAX(id)+1 stays unique.
	if _, err := tx.ExecContext(ctx, `LOCK TABLE directory_users IN EXCLUSIVE MODE`); err != nil {
		return model.Ack{}, fmt.Errorf("lock users: %w", err)
	}

	var id int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO directory_users (`+userColumns+`, created_at, updated_at)
		SELECT COALESCE(MAX(id), 0) + 1, $1, NULL, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, $11, $12, $12
		FROM directory_users
		RETURNING id
	`, draft.Name, model.OptionalString(draft.Title), model.OptionalString(draft.Initials), draft.Role,
		role.ID, role.Title, draft.Email, model.OptionalString(draft.Phone), model.OptionalString(draft.UserPicture),
		model.AvatarURL(draft.UserPicture, draft.Name), resp, now).Scan(&id)
	if err != nil {
		return model.Ack{}, fmt.Errorf("insert user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Ack{}, err
	}
	return model.Ack{ID: id, Message: MsgCreated}, nil
}

func (r *PostgresUserRepository) Update(ctx context.Context, id int, draft model.Draft) (model.Ack, error) {
	var roleID *int
	var roleTitle *string
	if role, ok := resolveRole(r.roles, draft); ok {
		roleID, roleTitle = &role.ID, &role.Title
	}
	var resp []byte
	if len(draft.Responsibilities) > 0 {
		resp, _ = json.Marshal(draft.Responsibilities)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE directory_users SET
			first_name = $2,
			email = $3,
			role_type = $4,
			title = COALESCE($5::text, title),
			initials = COALESCE($6::text, initials),
			phone = COALESCE($7::text, phone),
			profile_image = COALESCE($8::text, profile_image),
			profile_image_url = CASE
				WHEN $8::text IS NOT NULL THEN $8::text
				WHEN profile_image IS NULL THEN $9::text
				ELSE profile_image_url END,
			role_id = COALESCE($10::int, role_id),
			role_title = COALESCE($11::text, role_title),
			responsibilities = COALESCE($12::jsonb, responsibilities),
			updated_at = $13
		WHERE id = $1
	`, id, draft.Name, draft.Email, draft.Role,
		model.OptionalString(draft.Title), model.OptionalString(draft.Initials), model.OptionalString(draft.Phone),
		model.OptionalString(draft.UserPicture), model.AvatarURL("", draft.Name),
		roleID, roleTitle, resp, time.Now().UTC())
	if err != nil {
		return model.Ack{}, fmt.Errorf("update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.Ack{}, ErrNotFound
	}
	return model.Ack{ID: id, Message: MsgUpdated}, nil
}

func (r *PostgresUserRepository) Delete(ctx context.Context, id int) (model.Ack, error) {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM directory_users WHERE id = $1`, id); err != nil {
		return model.Ack{}, fmt.Errorf("delete user: %w", err)
	}
	return model.Ack{ID: id, Message: MsgDeleted}, nil
}

func (r *PostgresUserRepository) SetStatus(ctx context.Context, id int, active bool) (model.Ack, error) {
	_, err := r.db.ExecContext(ctx, `
		UPDATE directory_users SET status = $2, updated_at = $3 WHERE id = $1
	`, id, active, time.Now().UTC())
	if err != nil {
		return model.Ack{}, fmt.Errorf("set status: %w", err)
	}
	return model.Ack{ID: id, Message: MsgStatusChanged}, nil
}

func (r *PostgresUserRepository) Roles(ctx context.Context) (model.RoleDropdown, error) {
	return model.NewRoleDropdown(r.roles), ctx.Err()
}

func (r *PostgresUserRepository) Responsibilities(ctx context.Context) ([]model.Responsibility, error) {
	return append([]model.Responsibility(nil), r.responsibilities...), ctx.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u    model.User
		resp []byte
	)
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Title, &u.Initials, &u.RoleType,
		&u.Role.ID, &u.Role.Title, &u.Email, &u.Phone, &u.ProfileImage, &u.ProfileImageURL,
		&u.Status, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp) > 0 {
		if err := json.Unmarshal(resp, &u.Responsibilities); err != nil {
			return nil, fmt.Errorf("decode responsibilities: %w", err)
		}
	}
	return &u, nil
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}
