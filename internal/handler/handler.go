// Package handler содержит HTTP-обработчики API сервиса бронирования трансферов.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/shuttle-booking/internal/middleware"
	"github.com/mmeshcher/shuttle-booking/internal/model"
	"github.com/mmeshcher/shuttle-booking/internal/payment"
	"github.com/mmeshcher/shuttle-booking/internal/service"
)

// предел тела JSON-запроса
const maxJSONBody = 1 << 20

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error

	CreateBooking(ctx context.Context, clientID string, req service.BookingRequest) (*service.BookingResult, error)
	ConfirmBookingPayment(ctx context.Context, bookingID int64, clientSecret string) (*model.Booking, error)
	CreatePaymentIntent(ctx context.Context, amount float64, currency string, bookingID int64) (*payment.Intent, error)
	ListBookings(ctx context.Context) ([]model.BookingDetails, error)
	UpdateBooking(ctx context.Context, id int64, patch service.BookingPatch) (*model.Booking, error)
	DeleteBooking(ctx context.Context, id int64) error

	Register(ctx context.Context, clientID string, req service.RegisterRequest) (*model.User, bool, error)
	VerifyLogin(ctx context.Context, email, password string) (*model.User, error)
	CheckUser(ctx context.Context, email string) (bool, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, id int64, in service.UserInput) (*model.User, error)
	DeleteUser(ctx context.Context, id int64) error

	SetupAdmin(ctx context.Context, clientID string, req service.AdminSetupRequest) (*model.Admin, error)
	AuthenticateAdmin(ctx context.Context, clientID, username, password string) (*model.Admin, error)

	ListRoutes(ctx context.Context) ([]model.Route, error)
	CreateRoute(ctx context.Context, in service.RouteInput) (*model.Route, error)
	UpdateRoute(ctx context.Context, id int64, in service.RouteInput) (*model.Route, error)
	DeleteRoute(ctx context.Context, id int64) error
	ImportRoutes(ctx context.Context, src io.Reader) (*model.ImportReport, error)
	UpdateRoutesCSV(ctx context.Context, src io.Reader) (*model.UpdateReport, error)
	ExportRoutes(ctx context.Context, dst io.Writer) error

	ListCompanies(ctx context.Context) ([]model.Company, error)
	CreateCompany(ctx context.Context, name, phone string) (*model.Company, error)
	UpdateCompany(ctx context.Context, id int64, name, phone *string) (*model.Company, error)
	DeleteCompany(ctx context.Context, id int64) error
}

// Handler реализует HTTP-обработчики API.
type Handler struct {
	service           Service
	logger            *zap.Logger
	authMiddleware    *middleware.AuthMiddleware
	allowedOrigins    []string
	trustProxyHeaders bool
}

// Option настраивает Handler.
type Option func(*Handler)

// WithTrustProxyHeaders берёт адрес клиента из X-Forwarded-For и X-Real-IP.
// Включается только за прокси, который перезаписывает эти заголовки.
func WithTrustProxyHeaders(trust bool) Option {
	return func(h *Handler) { h.trustProxyHeaders = trust }
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, allowedOrigins []string, opts ...Option) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		allowedOrigins: allowedOrigins,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

func (h *Handler) writeMessage(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}

// writeError переводит доменную ошибку в HTTP-ответ. Внутренние подробности только в лог.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		throttled  *model.ThrottledError
		validation *model.ValidationError
		notFound   *model.NotFoundError
		conflict   *model.ConflictError
	)

	switch {
	case errors.As(err, &throttled):
		secs := int(math.Ceil(throttled.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		h.writeMessage(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
	case errors.As(err, &validation):
		msg := "Validation failed"
		if len(validation.Reasons) > 0 {
			msg = validation.Reasons[0]
		}
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Details: validation.Reasons})
	case errors.As(err, &notFound):
		h.writeMessage(w, http.StatusNotFound, notFoundMessage(notFound))
	case errors.As(err, &conflict):
		h.writeMessage(w, http.StatusConflict, conflict.Msg)
	case errors.Is(err, model.ErrPaymentNotCompleted):
		h.writeMessage(w, http.StatusPaymentRequired, "Payment was not completed")
	case errors.Is(err, model.ErrAccountDisabled):
		h.writeMessage(w, http.StatusUnauthorized, "Account is disabled")
	case errors.Is(err, model.ErrUnauthorized):
		h.writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, model.ErrForbidden):
		h.writeMessage(w, http.StatusForbidden, "Forbidden")
	default:
		h.logger.Error(op+" error",
			zap.Error(err),
			zap.String("path", r.URL.Path),
		)
		h.writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

func notFoundMessage(e *model.NotFoundError) string {
	switch e.Resource {
	case "route":
		return "Route not found"
	case "booking":
		return "Booking not found"
	case "user":
		return "User not found"
	case "company":
		return "Company not found"
	default:
		return "Not found"
	}
}

// decodeJSON читает тело запроса в v. При ошибке отвечает 400 и возвращает false.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()

	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// pathID разбирает параметр {id} маршрута.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		h.writeMessage(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

// Health отвечает на проверку живости. С недоступной БД возвращает 503.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
