package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const userColumns = `id, username, email, first_name, last_name, password_hash, is_admin, is_active, date_joined`

func (p *SQLProvider) CreateUser(ctx context.Context, user *User) error {
	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" {
		return fmt.Errorf("username is required")
	}
	if user.DateJoined.IsZero() {
		user.DateJoined = time.Now().UTC()
	}

	res, err := p.db.NamedExecContext(ctx, `
		INSERT INTO users (username, email, first_name, last_name, password_hash, is_admin, is_active, date_joined)
		VALUES (:username, :email, :first_name, :last_name, :password_hash, :is_admin, :is_active, :date_joined)`, user)
	if err != nil {
		if p.isUnique(err) {
			return fmt.Errorf("user %q: %w", user.Username, ErrDuplicate)
		}
		return err
	}
	user.ID, err = res.LastInsertId()
	if err == nil {
		p.logger.Info("Created user", "id", user.ID, "username", user.Username, "admin", user.IsAdmin)
	}
	return err
}

func (p *SQLProvider) GetUser(ctx context.Context, id int64) (*User, error) {
	var user User
	err := p.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (p *SQLProvider) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := p.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE username = ?`, strings.TrimSpace(username))
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (p *SQLProvider) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	err := p.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY username`)
	return users, err
}

// ListEmployees returns active users without the admin flag.
func (p *SQLProvider) ListEmployees(ctx context.Context) ([]User, error) {
	var users []User
	err := p.db.SelectContext(ctx, &users, `
		SELECT `+userColumns+` FROM users
		WHERE is_active = 1 AND is_admin = 0
		ORDER BY last_name, first_name, username`)
	return users, err
}

func (p *SQLProvider) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	return requireRow(p.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id))
}

func (p *SQLProvider) SetAdmin(ctx context.Context, id int64, admin bool) error {
	return requireRow(p.db.ExecContext(ctx, `UPDATE users SET is_admin = ? WHERE id = ?`, admin, id))
}

func (p *SQLProvider) SetActive(ctx context.Context, id int64, active bool) error {
	return requireRow(p.db.ExecContext(ctx, `UPDATE users SET is_active = ? WHERE id = ?`, active, id))
}
