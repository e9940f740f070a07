package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/umerali06/primarily-backend-sub001/internal/model"
)

// CreateUser creates a new user with the given role.
func CreateUser(ctx context.Context, db sqlx.ExtContext, email, name, passwordHash, role string) (*model.User, error) {
	ts := now()
	u := &model.User{
		ID:           model.NewID(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         name,
		PasswordHash: passwordHash,
		Role:         role,
		Status:       model.UserStatusActive,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}

	_, err := sqlx.NamedExecContext(ctx, db,
		`INSERT INTO users (id, email, name, password_hash, role, status, created_at, updated_at)
		 VALUES (:id, :email, :name, :password_hash, :role, :status, :created_at, :updated_at)`, u)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return u, nil
}

// RegisterUser creates a user. The first account ever created becomes an
// admin; later ones get the user role.
func RegisterUser(ctx context.Context, db *sqlx.DB, email, name, passwordHash string) (*model.User, error) {
	var user *model.User
	err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
		n, err := CountUsers(ctx, tx)
		if err != nil {
			return err
		}
		role := model.RoleUser
		if n == 0 {
			role = model.RoleAdmin
		}
		user, err = CreateUser(ctx, tx, email, name, passwordHash, role)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CountUsers returns the number of accounts.
func CountUsers(ctx context.Context, db sqlx.QueryerContext) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, db, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db sqlx.QueryerContext, id string) (*model.User, error) {
	if !model.ValidID(id) {
		return nil, nil
	}
	u := &model.User{}
	err := sqlx.GetContext(ctx, db, u, `SELECT * FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns a user by email address (case-insensitive).
func GetUserByEmail(ctx context.Context, db sqlx.QueryerContext, email string) (*model.User, error) {
	u := &model.User{}
	err := sqlx.GetContext(ctx, db, u, `SELECT * FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// ListUsers returns one page of users ordered by creation, and the total.
func ListUsers(ctx context.Context, db sqlx.QueryerContext, page Pagination) ([]model.User, int, error) {
	page = page.Normalize()
	users := []model.User{}
	err := sqlx.SelectContext(ctx, db, &users,
		`SELECT * FROM users ORDER BY created_at, id LIMIT ? OFFSET ?`, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("listing users: %w", err)
	}
	total, err := CountUsers(ctx, db)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// UpdateUserProfile updates a user's name and email.
func UpdateUserProfile(ctx context.Context, db sqlx.ExecerContext, id, name, email string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?`,
		name, strings.ToLower(strings.TrimSpace(email)), now(), id)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("updating user profile: %w", err)
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db sqlx.ExecerContext, id, passwordHash string) error {
	return updateUserColumn(ctx, db, id, "password_hash", passwordHash)
}

// SetUserStatus activates or deactivates an account.
func SetUserStatus(ctx context.Context, db sqlx.ExecerContext, id, status string) error {
	return updateUserColumn(ctx, db, id, "status", status)
}

// SetUserRole changes a user's role.
func SetUserRole(ctx context.Context, db sqlx.ExecerContext, id, role string) error {
	return updateUserColumn(ctx, db, id, "role", role)
}

// column is always a literal from this file.
func updateUserColumn(ctx context.Context, db sqlx.ExecerContext, id, column, value string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE users SET `+column+` = ?, updated_at = ? WHERE id = ?`, value, now(), id)
	if err != nil {
		return fmt.Errorf("updating user %s: %w", column, err)
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastLogin records a successful sign-in.
func TouchLastLogin(ctx context.Context, db sqlx.ExecerContext, id string, at time.Time) error {
	_, err := db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("recording login: %w", err)
	}
	return nil
}
