package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mmeshcher/shuttle-booking/internal/model"
	"github.com/mmeshcher/shuttle-booking/internal/payment"
	"github.com/mmeshcher/shuttle-booking/internal/repository"
)

// fakeRepo хранит данные в памяти с семантикой ошибок PostgresRepository.
type fakeRepo struct {
	mu sync.Mutex

	routes    map[int64]model.Route
	users     map[int64]model.User
	bookings  map[int64]model.Booking
	companies map[int64]model.Company
	admins    map[int64]model.Admin
	nextID    int64

	createRouteCalls int
	failWith         error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		routes:    map[int64]model.Route{},
		users:     map[int64]model.User{},
		bookings:  map[int64]model.Booking{},
		companies: map[int64]model.Company{},
		admins:    map[int64]model.Admin{},
	}
}

func (f *fakeRepo) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) Close() error { return nil }
func (f *fakeRepo) Ping(ctx context.Context) error { return f.failWith }

func (f *fakeRepo) GetRoute(_ context.Context, id int64) (*model.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	rt, ok := f.routes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rt, nil
}

func (f *fakeRepo) FindRoute(_ context.Context, provider, departure, arrival string, priceCents int64) (*model.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for id, rt := range f.routes {
		if rt.Provider == provider && rt.Departure == departure && rt.Arrival == arrival && rt.PriceCents == priceCents {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, repository.ErrNotFound
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	rt := f.routes[ids[0]]
	return &rt, nil
}

func (f *fakeRepo) ListRoutes(_ context.Context) ([]model.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := make([]model.Route, 0, len(f.routes))
	for _, rt := range f.routes {
		res = append(res, rt)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (f *fakeRepo) CreateRoute(_ context.Context, rt model.Route) (*model.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createRouteCalls++
	if rt.CompanyID != nil {
		if _, ok := f.companies[*rt.CompanyID]; !ok {
			return nil, fmt.Errorf("%w: routes_company_id_fkey", repository.ErrForeignKey)
		}
	}
	rt.ID = f.id()
	f.routes[rt.ID] = rt
	return &rt, nil
}

func (f *fakeRepo) UpdateRoute(_ context.Context, id int64, upd model.RouteUpdate) (*model.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt, ok := f.routes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if upd.PriceCents != nil {
		rt.PriceCents = *upd.PriceCents
	}
	if upd.Departure != nil {
		rt.Departure = *upd.Departure
	}
	if upd.Seats != nil {
		rt.Seats = *upd.Seats
	}
	f.routes[id] = rt
	return &rt, nil
}

func (f *fakeRepo) DeleteRoute(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.routes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.routes, id)
	return nil
}

func (f *fakeRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) GetUser(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (f *fakeRepo) ListUsers(_ context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		res = append(res, u)
	}
	return res, nil
}

func (f *fakeRepo) CreateUser(_ context.Context, u model.User) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return nil, fmt.Errorf("%w: users_email_key", repository.ErrDuplicate)
		}
	}
	u.ID = f.id()
	f.users[u.ID] = u
	return &u, nil
}

func (f *fakeRepo) UpdateUser(_ context.Context, id int64, upd model.UserUpdate) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if len(upd.PasswordHash) > 0 {
		u.PasswordHash = upd.PasswordHash
	}
	f.users[id] = u
	return &u, nil
}

func (f *fakeRepo) DeleteUser(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeRepo) CreateBooking(_ context.Context, b model.Booking) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b.ID = f.id()
	f.bookings[b.ID] = b
	return &b, nil
}

func (f *fakeRepo) GetBooking(_ context.Context, id int64) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (f *fakeRepo) UpdateBooking(_ context.Context, id int64, upd model.BookingUpdate) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if upd.Status != nil {
		b.Status = *upd.Status
	}
	if upd.PaymentStatus != nil {
		b.PaymentStatus = *upd.PaymentStatus
	}
	if upd.AmountCents != nil {
		b.AmountCents = *upd.AmountCents
	}
	if upd.PaymentRef != nil {
		b.PaymentRef = *upd.PaymentRef
	}
	f.bookings[id] = b
	return &b, nil
}

func (f *fakeRepo) DeleteBooking(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bookings[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.bookings, id)
	return nil
}

func (f *fakeRepo) ListBookings(_ context.Context) ([]model.BookingDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := make([]model.BookingDetails, 0, len(f.bookings))
	for _, b := range f.bookings {
		res = append(res, model.BookingDetails{Booking: b, Route: f.routes[b.RouteID], User: f.users[b.UserID]})
	}
	return res, nil
}

func (f *fakeRepo) ListPendingCardPayments(_ context.Context, limit int) ([]model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []model.Booking
	for _, b := range f.bookings {
		if b.PaymentMethod == model.PaymentMethodCard && b.PaymentStatus == model.PaymentStatusPending && b.PaymentRef != "" && b.Status != model.BookingStatusCancelled {
			res = append(res, b)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (f *fakeRepo) ListCompanies(_ context.Context) ([]model.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := make([]model.Company, 0, len(f.companies))
	for _, c := range f.companies {
		res = append(res, c)
	}
	return res, nil
}

func (f *fakeRepo) CreateCompany(_ context.Context, name, phone string) (*model.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := model.Company{ID: f.id(), Name: name, Phone: phone}
	f.companies[c.ID] = c
	return &c, nil
}

func (f *fakeRepo) UpdateCompany(_ context.Context, id int64, name, phone *string) (*model.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.companies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if name != nil {
		c.Name = *name
	}
	if phone != nil {
		c.Phone = *phone
	}
	f.companies[id] = c
	return &c, nil
}

func (f *fakeRepo) DeleteCompany(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.companies[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.companies, id)
	return nil
}

func (f *fakeRepo) HasAdmins(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.admins) > 0, nil
}

func (f *fakeRepo) CreateAdmin(_ context.Context, a model.Admin) (*model.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.admins {
		if existing.Username == a.Username {
			return nil, fmt.Errorf("%w: admins_username_key", repository.ErrDuplicate)
		}
	}
	a.ID = f.id()
	f.admins[a.ID] = a
	return &a, nil
}

func (f *fakeRepo) GetAdminByUsername(_ context.Context, username string) (*model.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.admins {
		if a.Username == username {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) TouchAdminLogin(_ context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.admins[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.LastLogin = &at
	f.admins[id] = a
	return nil
}

// stubPayments отвечает заранее заданными статусами.
type stubPayments struct {
	mu sync.Mutex

	confirmStatus string
	confirmAmount int64
	statuses      map[string]string
	err           error

	intents  []int64
	confirms []string
}

func (p *stubPayments) CreateIntent(_ context.Context, amountCents int64, currency string) (*payment.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.intents = append(p.intents, amountCents)
	n := len(p.intents)
	return &payment.Intent{
		ID:           fmt.Sprintf("pi_%d", n),
		ClientSecret: fmt.Sprintf("pi_%d_secret_%s", n, currency),
		Status:       "requires_payment_method",
	}, nil
}

func (p *stubPayments) Confirm(_ context.Context, clientSecret, _ string) (*payment.Confirmation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.confirms = append(p.confirms, clientSecret)
	return &payment.Confirmation{ID: clientSecret, Status: p.confirmStatus, Amount: p.confirmAmount}, nil
}

func (p *stubPayments) Status(_ context.Context, clientSecret string) (*payment.Confirmation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return &payment.Confirmation{ID: clientSecret, Status: p.statuses[clientSecret]}, nil
}
