package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/shuttle-booking/internal/model"
)

const bookingColumns = `id, route_id, user_id, pickup_address, payment_method, status, payment_status,
	amount, payment_ref, created_at, updated_at`

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var (
		b      model.Booking
		method string
		status string
		pay    string
	)
	err := row.Scan(&b.ID, &b.RouteID, &b.UserID, &b.PickupAddress, &method, &status, &pay,
		&b.AmountCents, &b.PaymentRef, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.PaymentMethod = model.PaymentMethod(method)
	b.Status = model.BookingStatus(status)
	b.PaymentStatus = model.PaymentStatus(pay)
	return &b, nil
}

// CreateBooking сохраняет бронирование.
func (r *PostgresRepository) CreateBooking(ctx context.Context, b model.Booking) (*model.Booking, error) {
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO bookings (route_id, user_id, pickup_address, payment_method, status, payment_status, amount, payment_ref)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id, created_at, updated_at`,
			b.RouteID, b.UserID, b.PickupAddress, string(b.PaymentMethod), string(b.Status),
			string(b.PaymentStatus), b.AmountCents, b.PaymentRef,
		).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	})
	if err != nil {
		return nil, classify("create booking", err)
	}
	return &b, nil
}

// GetBooking возвращает бронирование по идентификатору.
func (r *PostgresRepository) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		return nil, classify("get booking", err)
	}
	return b, nil
}

// UpdateBooking применяет к бронированию только заданные поля.
func (r *PostgresRepository) UpdateBooking(ctx context.Context, id int64, upd model.BookingUpdate) (*model.Booking, error) {
	set := newUpdateSet()
	if upd.Status != nil {
		set.add("status", string(*upd.Status))
	}
	if upd.PaymentStatus != nil {
		set.add("payment_status", string(*upd.PaymentStatus))
	}
	if upd.AmountCents != nil {
		set.add("amount", *upd.AmountCents)
	}
	if upd.PaymentRef != nil {
		set.add("payment_ref", *upd.PaymentRef)
	}

	if set.empty() {
		return r.GetBooking(ctx, id)
	}

	set.args["id"] = id

	var b *model.Booking
	err := r.withRetry(ctx, func() error {
		var err error
		b, err = scanBooking(r.pool.QueryRow(ctx,
			`UPDATE bookings SET `+set.clause()+` WHERE id = @id RETURNING `+bookingColumns,
			set.args,
		))
		return err
	})
	if err != nil {
		return nil, classify("update booking", err)
	}
	return b, nil
}

// DeleteBooking удаляет бронирование.
func (r *PostgresRepository) DeleteBooking(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return classify("delete booking", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBookings возвращает бронирования вместе с маршрутами и пользователями, новые первыми.
func (r *PostgresRepository) ListBookings(ctx context.Context) ([]model.BookingDetails, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT b.id, b.route_id, b.user_id, b.pickup_address, b.payment_method, b.status, b.payment_status,
		        b.amount, b.payment_ref, b.created_at, b.updated_at,
		        `+routeColumns+`,
		        u.id, u.email, u.name, u.phone
		 FROM bookings b
		 JOIN routes r ON r.id = b.route_id
		 LEFT JOIN companies c ON c.id = r.company_id
		 JOIN users u ON u.id = b.user_id
		 ORDER BY b.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select bookings: %w", err)
	}
	defer rows.Close()

	var res []model.BookingDetails
	for rows.Next() {
		var d model.BookingDetails
		var method, status, pay string
		err := rows.Scan(
			&d.ID, &d.RouteID, &d.UserID, &d.PickupAddress, &method, &status, &pay,
			&d.AmountCents, &d.PaymentRef, &d.CreatedAt, &d.UpdatedAt,
			&d.Route.ID, &d.Route.Departure, &d.Route.Arrival, &d.Route.DepartureTime, &d.Route.ArrivalTime,
			&d.Route.PriceCents, &d.Route.Provider, &d.Route.VehicleType, &d.Route.Seats, &d.Route.CompanyID,
			&d.Route.CompanyName, &d.Route.CreatedAt, &d.Route.UpdatedAt,
			&d.User.ID, &d.User.Email, &d.User.Name, &d.User.Phone,
		)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		d.PaymentMethod = model.PaymentMethod(method)
		d.Status = model.BookingStatus(status)
		d.PaymentStatus = model.PaymentStatus(pay)
		res = append(res, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListPendingCardPayments возвращает неотменённые карточные бронирования, ожидающие подтверждения оплаты.
func (r *PostgresRepository) ListPendingCardPayments(ctx context.Context, limit int) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE payment_status = $1 AND payment_method = $2 AND payment_ref <> '' AND status <> $3
		 ORDER BY created_at
		 LIMIT $4`,
		string(model.PaymentStatusPending), string(model.PaymentMethodCard), string(model.BookingStatusCancelled), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select pending payments: %w", err)
	}
	defer rows.Close()

	var res []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		res = append(res, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
