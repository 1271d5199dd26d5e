package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Jonathanferreras/watch-the-hutch/internal/model"
)

const adminColumns = `id, username, password_hash, role, is_active, created_at, updated_at, last_login_at`

// InsertAdmin inserts a new admin account. The ID, CreatedAt, and UpdatedAt
// fields are populated after a successful insert. A taken username returns
// ErrDuplicate.
func (s *Store) InsertAdmin(ctx context.Context, admin *model.Admin) error {
	now := time.Now().UTC()
	admin.CreatedAt = now
	admin.UpdatedAt = now

	const q = `INSERT INTO admin_users
		(username, password_hash, role, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	id, err := s.insertReturningID(ctx, q,
		admin.Username, admin.PasswordHash, string(admin.Role), admin.IsActive, now, now)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("insert admin %q: %w", admin.Username, ErrDuplicate)
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	admin.ID = id
	return nil
}

// FindAdminByUsername returns an admin, including its password hash, by
// username.
func (s *Store) FindAdminByUsername(ctx context.Context, username string) (*model.Admin, error) {
	var admin model.Admin
	q := s.rebind("SELECT " + adminColumns + " FROM admin_users WHERE username = ?")
	if err := s.db.GetContext(ctx, &admin, q, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin by username: %w", err)
	}
	return &admin, nil
}

// FindAdminByID returns an admin by primary key.
func (s *Store) FindAdminByID(ctx context.Context, id int64) (*model.Admin, error) {
	var admin model.Admin
	q := s.rebind("SELECT " + adminColumns + " FROM admin_users WHERE id = ?")
	if err := s.db.GetContext(ctx, &admin, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin by id: %w", err)
	}
	return &admin, nil
}

// ListAdmins returns all admin accounts ordered by username.
func (s *Store) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	admins := []model.Admin{}
	if err := s.db.SelectContext(ctx, &admins, "SELECT "+adminColumns+" FROM admin_users ORDER BY username"); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// CountAdmins returns the number of admin accounts.
func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM admin_users"); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return count, nil
}

// TouchLastLogin sets the last_login_at timestamp for an admin.
func (s *Store) TouchLastLogin(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	return s.updateAdmin(ctx, "update admin last login",
		"UPDATE admin_users SET last_login_at = ?, updated_at = ? WHERE id = ?", now, now, id)
}

// SetAdminActive activates or deactivates an admin account.
func (s *Store) SetAdminActive(ctx context.Context, id int64, active bool) error {
	return s.updateAdmin(ctx, "set admin active",
		"UPDATE admin_users SET is_active = ?, updated_at = ? WHERE id = ?", active, time.Now().UTC(), id)
}

// DeleteAdmin removes an admin account.
func (s *Store) DeleteAdmin(ctx context.Context, id int64) error {
	return s.updateAdmin(ctx, "delete admin", "DELETE FROM admin_users WHERE id = ?", id)
}

func (s *Store) updateAdmin(ctx context.Context, op, q string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, s.rebind(q), args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
