package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/shuttle-booking/internal/model"
)

const routeColumns = `r.id, r.departure, r.arrival, r.departure_time, r.arrival_time, r.price,
	r.provider, r.vehicle_type, r.seats, r.company_id, COALESCE(c.name, ''), r.created_at, r.updated_at`

const routeFrom = ` FROM routes r LEFT JOIN companies c ON c.id = r.company_id`

func scanRoute(row pgx.Row) (*model.Route, error) {
	var rt model.Route
	err := row.Scan(
		&rt.ID, &rt.Departure, &rt.Arrival, &rt.DepartureTime, &rt.ArrivalTime, &rt.PriceCents,
		&rt.Provider, &rt.VehicleType, &rt.Seats, &rt.CompanyID, &rt.CompanyName, &rt.CreatedAt, &rt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

// GetRoute возвращает маршрут по идентификатору.
func (r *PostgresRepository) GetRoute(ctx context.Context, id int64) (*model.Route, error) {
	rt, err := scanRoute(r.pool.QueryRow(ctx, `SELECT `+routeColumns+routeFrom+` WHERE r.id = $1`, id))
	if err != nil {
		return nil, classify("get route", err)
	}
	return rt, nil
}

// FindRoute ищет самый ранний маршрут с совпадающими перевозчиком, пунктами и ценой.
func (r *PostgresRepository) FindRoute(ctx context.Context, provider, departure, arrival string, priceCents int64) (*model.Route, error) {
	rt, err := scanRoute(r.pool.QueryRow(ctx,
		`SELECT `+routeColumns+routeFrom+`
		 WHERE r.provider = $1 AND r.departure = $2 AND r.arrival = $3 AND r.price = $4
		 ORDER BY r.id
		 LIMIT 1`,
		provider, departure, arrival, priceCents,
	))
	if err != nil {
		return nil, classify("find route", err)
	}
	return rt, nil
}

// ListRoutes возвращает все маршруты по возрастанию идентификатора.
func (r *PostgresRepository) ListRoutes(ctx context.Context) ([]model.Route, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+routeColumns+routeFrom+` ORDER BY r.id`)
	if err != nil {
		return nil, fmt.Errorf("select routes: %w", err)
	}
	defer rows.Close()

	var res []model.Route
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}
		res = append(res, *rt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateRoute сохраняет новый маршрут и возвращает его с присвоенным идентификатором.
func (r *PostgresRepository) CreateRoute(ctx context.Context, rt model.Route) (*model.Route, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO routes (departure, arrival, departure_time, arrival_time, price, provider, vehicle_type, seats, company_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		rt.Departure, rt.Arrival, rt.DepartureTime, rt.ArrivalTime, rt.PriceCents,
		rt.Provider, rt.VehicleType, rt.Seats, rt.CompanyID,
	).Scan(&rt.ID, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		return nil, classify("create route", err)
	}
	return &rt, nil
}

// UpdateRoute применяет к маршруту только заданные поля.
func (r *PostgresRepository) UpdateRoute(ctx context.Context, id int64, upd model.RouteUpdate) (*model.Route, error) {
	set := newUpdateSet()
	if upd.Departure != nil {
		set.add("departure", *upd.Departure)
	}
	if upd.Arrival != nil {
		set.add("arrival", *upd.Arrival)
	}
	if upd.DepartureTime != nil {
		set.add("departure_time", *upd.DepartureTime)
	}
	if upd.ArrivalTime != nil {
		set.add("arrival_time", *upd.ArrivalTime)
	}
	if upd.PriceCents != nil {
		set.add("price", *upd.PriceCents)
	}
	if upd.Provider != nil {
		set.add("provider", *upd.Provider)
	}
	if upd.VehicleType != nil {
		set.add("vehicle_type", *upd.VehicleType)
	}
	if upd.Seats != nil {
		set.add("seats", *upd.Seats)
	}
	if upd.CompanyID != nil {
		set.add("company_id", *upd.CompanyID)
	}

	if set.empty() {
		return r.GetRoute(ctx, id)
	}

	set.args["id"] = id
	tag, err := r.pool.Exec(ctx, `UPDATE routes SET `+set.clause()+` WHERE id = @id`, set.args)
	if err != nil {
		return nil, classify("update route", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	return r.GetRoute(ctx, id)
}

// DeleteRoute удаляет маршрут вместе с его бронированиями.
func (r *PostgresRepository) DeleteRoute(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM routes WHERE id = $1`, id)
	if err != nil {
		return classify("delete route", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
