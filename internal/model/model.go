// Package model содержит доменные сущности сервиса бронирования трансферов.
package model

import "time"

// BookingStatus описывает состояние бронирования.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// PaymentStatus описывает состояние оплаты бронирования.
type PaymentStatus string

const (
	PaymentStatusPaid        PaymentStatus = "paid"
	PaymentStatusPending     PaymentStatus = "pending"
	PaymentStatusFailed      PaymentStatus = "failed"
	PaymentStatusNotRequired PaymentStatus = "not_required"
)

// PaymentMethod описывает способ оплаты.
type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodCard PaymentMethod = "card"
)

// Значения по умолчанию для маршрутов, созданных при бронировании.
const (
	DefaultVehicleType = "Bus"
	DefaultSeats       = 50
)

// Route описывает рейс между двумя пунктами. Цена хранится в минимальных единицах валюты.
type Route struct {
	ID            int64
	Departure     string
	Arrival       string
	DepartureTime time.Time
	ArrivalTime   time.Time
	PriceCents    int64
	Provider      string
	VehicleType   string
	Seats         int
	CompanyID     *int64
	CompanyName   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Price возвращает цену маршрута в основных единицах валюты.
func (r Route) Price() float64 {
	return CentsToAmount(r.PriceCents)
}

// RouteUpdate содержит изменяемые поля маршрута. Nil означает «не менять».
type RouteUpdate struct {
	Departure     *string
	Arrival       *string
	DepartureTime *time.Time
	ArrivalTime   *time.Time
	PriceCents    *int64
	Provider      *string
	VehicleType   *string
	Seats         *int
	CompanyID     *int64
}

// Empty сообщает, что обновление не содержит ни одного поля.
func (u RouteUpdate) Empty() bool {
	return u.Departure == nil && u.Arrival == nil && u.DepartureTime == nil &&
		u.ArrivalTime == nil && u.PriceCents == nil && u.Provider == nil &&
		u.VehicleType == nil && u.Seats == nil && u.CompanyID == nil
}

// Company описывает перевозчика.
type Company struct {
	ID        int64
	Name      string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User представляет пассажира. Пустой PasswordHash означает гостевую учётную запись.
type User struct {
	ID           int64
	Email        string
	Name         string
	Phone        string
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword сообщает, задан ли у пользователя пароль.
func (u User) HasPassword() bool {
	return len(u.PasswordHash) > 0
}

// UserUpdate содержит изменяемые поля пользователя.
type UserUpdate struct {
	Email        *string
	Name         *string
	Phone        *string
	PasswordHash []byte
}

// Admin описывает учётную запись администратора.
type Admin struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash []byte
	Role         string
	IsActive     bool
	LastLogin    *time.Time
	CreatedAt    time.Time
}

// RoleSuperAdmin назначается первому администратору.
const RoleSuperAdmin = "super_admin"

// Booking описывает бронирование места на маршруте.
type Booking struct {
	ID            int64
	RouteID       int64
	UserID        int64
	PickupAddress string
	PaymentMethod PaymentMethod
	Status        BookingStatus
	PaymentStatus PaymentStatus
	AmountCents   int64
	PaymentRef    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Amount возвращает сумму бронирования в основных единицах валюты.
func (b Booking) Amount() float64 {
	return CentsToAmount(b.AmountCents)
}

// BookingDetails объединяет бронирование с маршрутом и пользователем для списков в админке.
type BookingDetails struct {
	Booking
	Route Route
	User  User
}

// BookingUpdate содержит изменяемые администратором поля бронирования.
type BookingUpdate struct {
	Status        *BookingStatus
	PaymentStatus *PaymentStatus
	AmountCents   *int64
	PaymentRef    *string
}

// RowError описывает ошибку обработки одной строки CSV.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportReport содержит итоги импорта маршрутов из CSV.
type ImportReport struct {
	Imported int        `json:"imported"`
	Failed   int        `json:"failed"`
	Errors   []RowError `json:"errors"`
}

// UpdateReport содержит итоги обновления маршрутов из CSV.
type UpdateReport struct {
	Updated int        `json:"updated"`
	Failed  int        `json:"failed"`
	Errors  []RowError `json:"errors"`
}
