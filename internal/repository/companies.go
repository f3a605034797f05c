package repository

import (
	"context"
	"fmt"

	"github.com/mmeshcher/shuttle-booking/internal/model"
)

// ListCompanies возвращает всех перевозчиков.
func (r *PostgresRepository) ListCompanies(ctx context.Context) ([]model.Company, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, phone, created_at, updated_at FROM companies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select companies: %w", err)
	}
	defer rows.Close()

	var res []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateCompany создаёт перевозчика.
func (r *PostgresRepository) CreateCompany(ctx context.Context, name, phone string) (*model.Company, error) {
	c := model.Company{Name: name, Phone: phone}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO companies (name, phone) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
		name, phone,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, classify("create company", err)
	}
	return &c, nil
}

// UpdateCompany изменяет название и телефон перевозчика. Nil означает «не менять».
func (r *PostgresRepository) UpdateCompany(ctx context.Context, id int64, name, phone *string) (*model.Company, error) {
	var c model.Company
	err := r.pool.QueryRow(ctx,
		`UPDATE companies
		 SET name = COALESCE($2, name), phone = COALESCE($3, phone), updated_at = now()
		 WHERE id = $1
		 RETURNING id, name, phone, created_at, updated_at`,
		id, name, phone,
	).Scan(&c.ID, &c.Name, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, classify("update company", err)
	}
	return &c, nil
}

// DeleteCompany удаляет перевозчика. Маршруты остаются без привязки к компании.
func (r *PostgresRepository) DeleteCompany(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return classify("delete company", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
