package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"mapesa/internal/core"
)

type UserRepository struct {
	provider Provider
}

func NewUserRepository(provider Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, core.ErrUninitialized
	}
	return &UserRepository{provider: provider}, nil
}

// Create stores a user. Password must already be hashed.
func (r *UserRepository) Create(ctx context.Context, u core.NewUser) (core.User, error) {
	db := r.provider.DB()

	var id int64
	err := db.QueryRowContext(ctx, `
		INSERT INTO "user" (username, email, phone_number, password)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`, u.Username, u.Email, nullString(u.PhoneNumber), u.Password).Scan(&id)
	if err != nil {
		return core.User{}, persistenceErr("create user", err)
	}

	user, err := scanUser(db.QueryRowContext(ctx, `
		SELECT id, date_added, last_modified, username, email, phone_number, password
		FROM "user"
		WHERE id = ?
	`, id))
	if err != nil {
		return core.User{}, persistenceErr("get user", err)
	}

	slog.InfoContext(ctx, "User created", "id", user.ID, "username", user.Username)

	return user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (core.User, error) {
	user, err := scanUser(r.provider.DB().QueryRowContext(ctx, `
		SELECT id, date_added, last_modified, username, email, phone_number, password
		FROM "user"
		WHERE username = ?
	`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return user, fmt.Errorf("user %q: %w", username, core.ErrNotFound)
	}
	if err != nil {
		return user, persistenceErr("get user by username", err)
	}
	return user, nil
}

func scanUser(row *sql.Row) (core.User, error) {
	var (
		u        core.User
		added    sql.NullTime
		modified sql.NullTime
		phone    sql.NullString
	)
	if err := row.Scan(&u.ID, &added, &modified, &u.Username, &u.Email, &phone, &u.Password); err != nil {
		return core.User{}, err
	}
	u.DateAdded = added.Time
	u.LastModified = modified.Time
	u.PhoneNumber = stringPtr(phone)
	return u, nil
}
