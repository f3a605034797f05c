package service

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/shuttle-booking/internal/csvbatch"
	"github.com/mmeshcher/shuttle-booking/internal/model"
	"github.com/mmeshcher/shuttle-booking/internal/payment"
	"github.com/mmeshcher/shuttle-booking/internal/repository"
)

const syncBatchSize = 100

var errPaymentsDisabled = errors.New("payment system is not configured")

// MsgPaymentAmountMismatch возвращается, если списанная сумма не равна сумме бронирования.
const MsgPaymentAmountMismatch = "payment amount mismatch"

// BookingDraft содержит данные бронирования для сверки оплаты. ID == 0 означает, что бронирование ещё не создано.
type BookingDraft struct {
	ID            int64
	RouteID       int64
	UserID        int64
	PickupAddress string
	Status        model.BookingStatus
	PaymentMethod model.PaymentMethod
	AmountCents   int64
	PaymentRef    string
}

func draftFrom(b *model.Booking) BookingDraft {
	return BookingDraft{
		ID:            b.ID,
		RouteID:       b.RouteID,
		UserID:        b.UserID,
		PickupAddress: b.PickupAddress,
		Status:        b.Status,
		PaymentMethod: b.PaymentMethod,
		AmountCents:   b.AmountCents,
		PaymentRef:    b.PaymentRef,
	}
}

// Reconcile применяет ответ платёжной системы к бронированию.
// Успешная оплата создаёт или переводит бронирование в confirmed/paid.
// Иначе существующее бронирование помечается failed, а новое не создаётся.
// Статус отменённого бронирования не меняется: записывается только оплата.
// Списание на сумму, отличную от суммы бронирования, не засчитывается.
func (s *Service) Reconcile(ctx context.Context, draft BookingDraft, conf *payment.Confirmation) (*model.Booking, error) {
	if conf.Succeeded() && conf.Amount > 0 && conf.Amount != draft.AmountCents {
		s.logger.Warn("payment amount mismatch",
			zap.Int64("bookingID", draft.ID),
			zap.Int64("amount", conf.Amount),
			zap.Int64("expected", draft.AmountCents),
		)
		return nil, &model.ConflictError{Msg: MsgPaymentAmountMismatch}
	}

	if !conf.Succeeded() {
		if draft.ID > 0 {
			failed := model.PaymentStatusFailed
			if _, err := s.repo.UpdateBooking(ctx, draft.ID, model.BookingUpdate{PaymentStatus: &failed}); err != nil {
				return nil, model.External("mark payment failed", err)
			}
			s.logger.Info("booking payment failed", zap.Int64("bookingID", draft.ID))
		}
		return nil, model.ErrPaymentNotCompleted
	}

	if draft.ID == 0 {
		return s.persistBooking(ctx, draft, model.BookingStatusConfirmed, model.PaymentStatusPaid)
	}

	paid := model.PaymentStatusPaid
	upd := model.BookingUpdate{PaymentStatus: &paid}
	if draft.Status != model.BookingStatusCancelled {
		confirmed := model.BookingStatusConfirmed
		upd.Status = &confirmed
	}
	if draft.PaymentRef != "" {
		upd.PaymentRef = &draft.PaymentRef
	}

	b, err := s.repo.UpdateBooking(ctx, draft.ID, upd)
	if err != nil {
		return nil, model.External("mark payment paid", err)
	}
	s.logger.Info("booking paid", zap.Int64("bookingID", b.ID))
	return b, nil
}

// CreatePaymentIntent создаёт намерение оплаты. Для bookingID > 0 списывается сумма бронирования,
// а секрет сохраняется в бронировании для последующей сверки.
func (s *Service) CreatePaymentIntent(ctx context.Context, amount float64, currency string, bookingID int64) (*payment.Intent, error) {
	if s.payments == nil {
		return nil, model.External("create payment intent", errPaymentsDisabled)
	}
	if currency == "" {
		currency = s.currency
	}

	var (
		cents   int64
		booking *model.Booking
	)
	if bookingID > 0 {
		b, err := s.cardBooking(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if b.PaymentStatus != model.PaymentStatusPending && b.PaymentStatus != model.PaymentStatusFailed {
			return nil, &model.ConflictError{Msg: "booking is not awaiting payment"}
		}
		booking = b
		cents = b.AmountCents
	} else {
		if math.IsNaN(amount) || amount <= 0 || amount > csvbatch.MaxPrice {
			return nil, model.NewValidationError("Amount must be greater than 0.")
		}
		cents = model.AmountToCents(amount)
	}

	intent, err := s.payments.CreateIntent(ctx, cents, currency)
	if err != nil {
		return nil, paymentError("create payment intent", err)
	}

	if booking != nil {
		pending := model.PaymentStatusPending
		upd := model.BookingUpdate{PaymentRef: &intent.ClientSecret, PaymentStatus: &pending}
		if _, err := s.repo.UpdateBooking(ctx, booking.ID, upd); err != nil {
			return nil, model.External("store payment ref", err)
		}
	}

	return intent, nil
}

// ConfirmBookingPayment подтверждает оплату ожидающего карточного бронирования.
// Пустой clientSecret означает секрет, сохранённый в бронировании.
func (s *Service) ConfirmBookingPayment(ctx context.Context, bookingID int64, clientSecret string) (*model.Booking, error) {
	if s.payments == nil {
		return nil, model.External("confirm payment", errPaymentsDisabled)
	}

	b, err := s.cardBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus == model.PaymentStatusPaid {
		return b, nil
	}

	if clientSecret == "" {
		clientSecret = b.PaymentRef
	}
	if clientSecret == "" {
		return nil, model.NewValidationError("Client secret is required.")
	}

	conf, err := s.payments.Confirm(ctx, clientSecret, string(model.PaymentMethodCard))
	if err != nil {
		return nil, paymentError("confirm payment", err)
	}

	draft := draftFrom(b)
	draft.PaymentRef = clientSecret
	return s.Reconcile(ctx, draft, conf)
}

func (s *Service) cardBooking(ctx context.Context, id int64) (*model.Booking, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &model.NotFoundError{Resource: "booking", ID: id}
		}
		return nil, model.External("get booking", err)
	}
	if b.PaymentMethod != model.PaymentMethodCard {
		return nil, &model.ConflictError{Msg: "booking is not paid by card"}
	}
	if b.Status == model.BookingStatusCancelled {
		return nil, &model.ConflictError{Msg: "booking is cancelled"}
	}
	return b, nil
}

// StartPaymentSync периодически сверяет ожидающие карточные оплаты с платёжной системой.
// Блокируется до отмены ctx.
func (s *Service) StartPaymentSync(ctx context.Context) error {
	if s.payments == nil {
		return nil
	}

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.syncPayments(ctx)
		}
	}
}

func (s *Service) syncPayments(ctx context.Context) {
	pending, err := s.repo.ListPendingCardPayments(ctx, syncBatchSize)
	if err != nil {
		s.logger.Warn("list pending payments", zap.Error(err))
		return
	}

	for i := range pending {
		b := &pending[i]

		conf, err := s.payments.Status(ctx, b.PaymentRef)
		if err != nil {
			var rl *payment.RateLimitError
			if errors.As(err, &rl) {
				if rl.RetryAfter > 0 {
					timer := time.NewTimer(rl.RetryAfter)
					select {
					case <-ctx.Done():
						timer.Stop()
					case <-timer.C:
					}
				}
				return
			}
			s.logger.Warn("payment status", zap.Int64("bookingID", b.ID), zap.Error(err))
			continue
		}

		switch conf.Status {
		case payment.StatusSucceeded, payment.StatusCanceled, payment.StatusFailed:
		default:
			continue
		}

		if _, err := s.Reconcile(ctx, draftFrom(b), conf); err != nil && !errors.Is(err, model.ErrPaymentNotCompleted) {
			s.logger.Warn("reconcile payment", zap.Int64("bookingID", b.ID), zap.Error(err))
		}
	}
}

// paymentError переводит ошибки платёжной системы в ошибки предметной области.
func paymentError(op string, err error) error {
	var rl *payment.RateLimitError
	if errors.As(err, &rl) {
		return &model.ThrottledError{RetryAfter: rl.RetryAfter}
	}
	return model.External(op, err)
}
