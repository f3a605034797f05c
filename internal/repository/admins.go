package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mmeshcher/shuttle-booking/internal/model"
)

// HasAdmins сообщает, создан ли хотя бы один администратор.
func (r *PostgresRepository) HasAdmins(ctx context.Context) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM admins)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("check admins: %w", err)
	}
	return exists, nil
}

// CreateAdmin создаёт администратора. Занятое имя возвращает ErrDuplicate.
func (r *PostgresRepository) CreateAdmin(ctx context.Context, a model.Admin) (*model.Admin, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO admins (username, email, password_hash, role, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		a.Username, a.Email, a.PasswordHash, a.Role, a.IsActive,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return nil, classify("create admin", err)
	}
	return &a, nil
}

// GetAdminByUsername возвращает администратора по имени.
func (r *PostgresRepository) GetAdminByUsername(ctx context.Context, username string) (*model.Admin, error) {
	var a model.Admin
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, role, is_active, last_login, created_at
		 FROM admins WHERE username = $1`,
		username,
	).Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Role, &a.IsActive, &a.LastLogin, &a.CreatedAt)
	if err != nil {
		return nil, classify("get admin", err)
	}
	return &a, nil
}

// TouchAdminLogin записывает время последнего входа администратора.
func (r *PostgresRepository) TouchAdminLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE admins SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("update admin last login: %w", err)
	}
	return nil
}
