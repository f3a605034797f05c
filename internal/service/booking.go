package service

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"

	"github.com/mmeshcher/shuttle-booking/internal/csvbatch"
	"github.com/mmeshcher/shuttle-booking/internal/model"
	"github.com/mmeshcher/shuttle-booking/internal/repository"
	"github.com/mmeshcher/shuttle-booking/internal/validation"
)

// MsgPriceMismatch возвращается, если цена в запросе расходится с ценой маршрута.
const MsgPriceMismatch = "price mismatch"

// MsgInvalidPrice возвращается для цены вне [0, MaxPrice].
const MsgInvalidPrice = "Invalid price"

// BookingRequest содержит неочищенные поля запроса на бронирование.
// ClientSecret задаётся, если клиент уже создал намерение оплаты картой.
type BookingRequest struct {
	Name          string
	Email         string
	Phone         string
	PickupAddress string
	PaymentMethod string
	Route         *RouteRef
	ClientSecret  string
}

// BookingResult содержит созданное бронирование вместе с маршрутом и пользователем.
type BookingResult struct {
	Booking model.Booking
	Route   model.Route
	User    model.User
}

// CreateBooking проводит запрос через лимит, очистку, валидацию, поиск маршрута и пользователя
// и сохраняет бронирование в статусе, зависящем от способа оплаты.
func (s *Service) CreateBooking(ctx context.Context, clientID string, req BookingRequest) (*BookingResult, error) {
	if err := throttle(s.bookingLimiter, clientID); err != nil {
		return nil, err
	}

	name := validation.SanitizeName(req.Name, validation.MaxBookingNameLength)
	email := validation.SanitizeEmail(req.Email)
	phone := validation.SanitizePhone(req.Phone)
	pickup := validation.SanitizeAddress(req.PickupAddress, validation.MaxPickupLength)
	method := validation.SanitizePaymentMethod(req.PaymentMethod)

	in := validation.BookingInput{
		Name:          name,
		Email:         email,
		Phone:         phone,
		PickupAddress: pickup,
		PaymentMethod: method,
	}

	var ref RouteRef
	if req.Route != nil {
		ref = req.Route.sanitized()
		in.HasRoute = true
		in.RouteID = ref.ID
		in.Departure = ref.Departure
		in.Arrival = ref.Arrival
	}

	res := validation.ValidateBooking(in)
	reasons := res.Errors
	// цена из запроса сверяется до приведения к диапазону
	if req.Route != nil && req.Route.Price != nil && !validQuote(*req.Route.Price) {
		reasons = append(reasons, MsgInvalidPrice)
	}
	if len(reasons) > 0 {
		return nil, model.NewValidationError(reasons...)
	}

	rt, err := s.ResolveRoute(ctx, ref)
	if err != nil {
		return nil, err
	}

	if ref.Price != nil && !model.PricesMatch(*ref.Price, rt.PriceCents) {
		return nil, &model.ConflictError{Msg: MsgPriceMismatch}
	}

	u, err := s.ResolveUser(ctx, email, name, phone)
	if err != nil {
		return nil, err
	}

	draft := BookingDraft{
		RouteID:       rt.ID,
		UserID:        u.ID,
		PickupAddress: pickup,
		PaymentMethod: model.PaymentMethod(method),
		AmountCents:   rt.PriceCents,
	}

	var b *model.Booking
	switch {
	case draft.PaymentMethod == model.PaymentMethodCash:
		b, err = s.persistBooking(ctx, draft, model.BookingStatusConfirmed, model.PaymentStatusNotRequired)
	case req.ClientSecret == "":
		b, err = s.persistBooking(ctx, draft, model.BookingStatusPending, model.PaymentStatusPending)
	default:
		draft.PaymentRef = req.ClientSecret
		b, err = s.payFirst(ctx, draft)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		zap.Int64("bookingID", b.ID),
		zap.Int64("routeID", rt.ID),
		zap.String("paymentMethod", string(b.PaymentMethod)),
		zap.String("paymentStatus", string(b.PaymentStatus)),
	)

	return &BookingResult{Booking: *b, Route: *rt, User: *u}, nil
}

func validQuote(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p >= 0 && p <= csvbatch.MaxPrice
}

// payFirst подтверждает оплату до создания бронирования. При отказе ничего не сохраняется.
func (s *Service) payFirst(ctx context.Context, draft BookingDraft) (*model.Booking, error) {
	if s.payments == nil {
		return nil, model.External("confirm payment", errPaymentsDisabled)
	}

	conf, err := s.payments.Confirm(ctx, draft.PaymentRef, string(model.PaymentMethodCard))
	if err != nil {
		return nil, paymentError("confirm payment", err)
	}

	return s.Reconcile(ctx, draft, conf)
}

func (s *Service) persistBooking(ctx context.Context, d BookingDraft, status model.BookingStatus, ps model.PaymentStatus) (*model.Booking, error) {
	b, err := s.repo.CreateBooking(ctx, model.Booking{
		RouteID:       d.RouteID,
		UserID:        d.UserID,
		PickupAddress: d.PickupAddress,
		PaymentMethod: d.PaymentMethod,
		Status:        status,
		PaymentStatus: ps,
		AmountCents:   d.AmountCents,
		PaymentRef:    d.PaymentRef,
	})
	if err != nil {
		return nil, model.External("create booking", err)
	}
	return b, nil
}

// ListBookings возвращает бронирования с маршрутами и пользователями.
func (s *Service) ListBookings(ctx context.Context) ([]model.BookingDetails, error) {
	list, err := s.repo.ListBookings(ctx)
	if err != nil {
		return nil, model.External("list bookings", err)
	}
	return list, nil
}

// BookingPatch содержит изменяемые администратором поля бронирования.
type BookingPatch struct {
	Status        *string
	PaymentStatus *string
	Amount        *float64
}

// UpdateBooking изменяет статус, статус оплаты или сумму бронирования.
// Наличные всегда имеют статус оплаты not_required, у карты такого статуса не бывает.
func (s *Service) UpdateBooking(ctx context.Context, id int64, patch BookingPatch) (*model.Booking, error) {
	var (
		upd     model.BookingUpdate
		reasons []string
	)

	if patch.Status != nil {
		st := validation.SanitizeBookingStatus(*patch.Status)
		if st == "" {
			reasons = append(reasons, "Status must be pending, confirmed or cancelled.")
		} else {
			v := model.BookingStatus(st)
			upd.Status = &v
		}
	}
	if patch.PaymentStatus != nil {
		ps := validation.SanitizePaymentStatus(*patch.PaymentStatus)
		if ps == "" {
			reasons = append(reasons, "Payment status must be paid, pending, failed or not_required.")
		} else {
			v := model.PaymentStatus(ps)
			upd.PaymentStatus = &v
		}
	}
	if patch.Amount != nil {
		a := *patch.Amount
		if math.IsNaN(a) || a < 0 || a > csvbatch.MaxPrice {
			reasons = append(reasons, "Invalid amount")
		} else {
			cents := model.AmountToCents(a)
			upd.AmountCents = &cents
		}
	}
	if len(reasons) > 0 {
		return nil, model.NewValidationError(reasons...)
	}

	current, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &model.NotFoundError{Resource: "booking", ID: id}
		}
		return nil, model.External("get booking", err)
	}

	if upd.PaymentStatus != nil {
		notRequired := *upd.PaymentStatus == model.PaymentStatusNotRequired
		isCash := current.PaymentMethod == model.PaymentMethodCash
		if notRequired != isCash {
			return nil, model.NewValidationError("Payment status not_required is used for cash bookings only.")
		}
	}

	b, err := s.repo.UpdateBooking(ctx, id, upd)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &model.NotFoundError{Resource: "booking", ID: id}
		}
		return nil, model.External("update booking", err)
	}
	return b, nil
}

// DeleteBooking удаляет бронирование.
func (s *Service) DeleteBooking(ctx context.Context, id int64) error {
	if err := s.repo.DeleteBooking(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &model.NotFoundError{Resource: "booking", ID: id}
		}
		return model.External("delete booking", err)
	}
	return nil
}
