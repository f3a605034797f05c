package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/shuttle-booking/internal/model"
)

const userColumns = `id, email, name, phone, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, classify("get user", err)
	}
	return u, nil
}

// GetUser возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUser(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, classify("get user", err)
	}
	return u, nil
}

// ListUsers возвращает всех пользователей.
func (r *PostgresRepository) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var res []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		res = append(res, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateUser создаёт пользователя. Занятый email возвращает ErrDuplicate.
func (r *PostgresRepository) CreateUser(ctx context.Context, u model.User) (*model.User, error) {
	var hash []byte
	if len(u.PasswordHash) > 0 {
		hash = u.PasswordHash
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, phone, password_hash) VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		u.Email, u.Name, u.Phone, hash,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, classify("create user", err)
	}
	return &u, nil
}

// UpdateUser применяет к пользователю только заданные поля.
func (r *PostgresRepository) UpdateUser(ctx context.Context, id int64, upd model.UserUpdate) (*model.User, error) {
	set := newUpdateSet()
	if upd.Email != nil {
		set.add("email", *upd.Email)
	}
	if upd.Name != nil {
		set.add("name", *upd.Name)
	}
	if upd.Phone != nil {
		set.add("phone", *upd.Phone)
	}
	if len(upd.PasswordHash) > 0 {
		set.add("password_hash", upd.PasswordHash)
	}

	if set.empty() {
		return r.GetUser(ctx, id)
	}

	set.args["id"] = id
	u, err := scanUser(r.pool.QueryRow(ctx,
		`UPDATE users SET `+set.clause()+` WHERE id = @id RETURNING `+userColumns,
		set.args,
	))
	if err != nil {
		return nil, classify("update user", err)
	}
	return u, nil
}

// DeleteUser удаляет пользователя вместе с его бронированиями.
func (r *PostgresRepository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return classify("delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
