// Package service реализует бизнес-логику сервиса бронирования трансферов.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/shuttle-booking/internal/csvbatch"
	"github.com/mmeshcher/shuttle-booking/internal/model"
	"github.com/mmeshcher/shuttle-booking/internal/payment"
	"github.com/mmeshcher/shuttle-booking/internal/ratelimit"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error

	GetRoute(ctx context.Context, id int64) (*model.Route, error)
	FindRoute(ctx context.Context, provider, departure, arrival string, priceCents int64) (*model.Route, error)
	ListRoutes(ctx context.Context) ([]model.Route, error)
	CreateRoute(ctx context.Context, rt model.Route) (*model.Route, error)
	UpdateRoute(ctx context.Context, id int64, upd model.RouteUpdate) (*model.Route, error)
	DeleteRoute(ctx context.Context, id int64) error

	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	CreateUser(ctx context.Context, u model.User) (*model.User, error)
	UpdateUser(ctx context.Context, id int64, upd model.UserUpdate) (*model.User, error)
	DeleteUser(ctx context.Context, id int64) error

	CreateBooking(ctx context.Context, b model.Booking) (*model.Booking, error)
	GetBooking(ctx context.Context, id int64) (*model.Booking, error)
	UpdateBooking(ctx context.Context, id int64, upd model.BookingUpdate) (*model.Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
	ListBookings(ctx context.Context) ([]model.BookingDetails, error)
	ListPendingCardPayments(ctx context.Context, limit int) ([]model.Booking, error)

	ListCompanies(ctx context.Context) ([]model.Company, error)
	CreateCompany(ctx context.Context, name, phone string) (*model.Company, error)
	UpdateCompany(ctx context.Context, id int64, name, phone *string) (*model.Company, error)
	DeleteCompany(ctx context.Context, id int64) error

	HasAdmins(ctx context.Context) (bool, error)
	CreateAdmin(ctx context.Context, a model.Admin) (*model.Admin, error)
	GetAdminByUsername(ctx context.Context, username string) (*model.Admin, error)
	TouchAdminLogin(ctx context.Context, id int64, at time.Time) error
}

// PaymentProvider описывает внешнюю платёжную систему.
type PaymentProvider interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string) (*payment.Intent, error)
	Confirm(ctx context.Context, clientSecret, paymentMethod string) (*payment.Confirmation, error)
	Status(ctx context.Context, clientSecret string) (*payment.Confirmation, error)
}

// Option настраивает Service.
type Option func(*Service)

// WithClock подменяет источник времени для сервиса и его лимитеров.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithBcryptCost задаёт стоимость bcrypt для новых паролей.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

// WithCurrency задаёт валюту платежей.
func WithCurrency(currency string) Option {
	return func(s *Service) {
		if currency != "" {
			s.currency = currency
		}
	}
}

// WithSetupKey задаёт ключ первичной настройки администратора.
func WithSetupKey(key string) Option {
	return func(s *Service) {
		s.setupKey = key
	}
}

// WithSyncInterval задаёт период опроса платёжной системы.
func WithSyncInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.syncInterval = d
		}
	}
}

// Service содержит бизнес-логику сервиса бронирования.
type Service struct {
	repo     Repository
	payments PaymentProvider
	logger   *zap.Logger
	importer *csvbatch.Importer

	now          func() time.Time
	bcryptCost   int
	currency     string
	setupKey     string
	syncInterval time.Duration

	registerLimiter  *ratelimit.Limiter
	bookingLimiter   *ratelimit.Limiter
	adminLimiter     *ratelimit.Limiter
	adminFailLimiter *ratelimit.Limiter
}

// NewService создаёт сервис поверх репозитория и платёжной системы. payments может быть nil.
func NewService(repo Repository, payments PaymentProvider, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		repo:         repo,
		payments:     payments,
		logger:       logger,
		now:          time.Now,
		bcryptCost:   bcrypt.DefaultCost,
		currency:     "ron",
		syncInterval: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	clock := ratelimit.WithClock(s.now)
	s.registerLimiter = ratelimit.New(5, time.Minute, clock)
	s.bookingLimiter = ratelimit.New(10, time.Minute, clock)
	s.adminLimiter = ratelimit.New(3, time.Minute, clock)
	s.adminFailLimiter = ratelimit.New(1, 5*time.Minute, clock)

	s.importer = csvbatch.NewImporter(repo, logger)

	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return model.External("ping database", s.repo.Ping(ctx))
}

// throttle проверяет лимит для ключа и возвращает ThrottledError при превышении.
func throttle(l *ratelimit.Limiter, key string) error {
	if l.Allow(key) {
		return nil
	}
	return &model.ThrottledError{RetryAfter: l.RetryAfter(key)}
}
