package handler

import (
	"net/http"

	"github.com/mmeshcher/shuttle-booking/internal/middleware"
	"github.com/mmeshcher/shuttle-booking/internal/service"
)

type routeRefRequest struct {
	ID            int64    `json:"id"`
	Provider      string   `json:"provider"`
	Departure     string   `json:"departure"`
	Arrival       string   `json:"arrival"`
	Origin        string   `json:"origin"`
	Destination   string   `json:"destination"`
	DepartureTime string   `json:"departureTime"`
	ArrivalTime   string   `json:"arrivalTime"`
	VehicleType   string   `json:"vehicleType"`
	Seats         int      `json:"seats"`
	Price         *float64 `json:"price"`
}

// toRef собирает ссылку на маршрут. origin и destination заменяют departure и arrival.
func (r *routeRefRequest) toRef() *service.RouteRef {
	if r == nil {
		return nil
	}
	ref := &service.RouteRef{
		ID:            r.ID,
		Provider:      r.Provider,
		Departure:     r.Departure,
		Arrival:       r.Arrival,
		DepartureTime: r.DepartureTime,
		ArrivalTime:   r.ArrivalTime,
		VehicleType:   r.VehicleType,
		Seats:         r.Seats,
		Price:         r.Price,
	}
	if r.Origin != "" {
		ref.Departure = r.Origin
	}
	if r.Destination != "" {
		ref.Arrival = r.Destination
	}
	return ref
}

type createBookingRequest struct {
	Name          string           `json:"name"`
	Email         string           `json:"email"`
	Phone         string           `json:"phone"`
	PickupAddress string           `json:"pickupAddress"`
	PaymentMethod string           `json:"paymentMethod"`
	ClientSecret  string           `json:"clientSecret"`
	Route         *routeRefRequest `json:"route"`
}

// ListRoutes отдаёт все маршруты.
func (h *Handler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := h.service.ListRoutes(r.Context())
	if err != nil {
		h.writeError(w, r, "list routes", err)
		return
	}
	h.writeJSON(w, http.StatusOK, toRouteResponses(routes))
}

// CreateBooking принимает бронирование пассажира.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.CreateBooking(r.Context(), middleware.ClientIP(r), service.BookingRequest{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		PickupAddress: req.PickupAddress,
		PaymentMethod: req.PaymentMethod,
		ClientSecret:  req.ClientSecret,
		Route:         req.Route.toRef(),
	})
	if err != nil {
		h.writeError(w, r, "create booking", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, withRelations(res.Booking, res.Route, res.User))
}

type confirmPaymentRequest struct {
	ClientSecret string `json:"clientSecret"`
}

// ConfirmBookingPayment сверяет оплату бронирования с платёжной системой.
func (h *Handler) ConfirmBookingPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req confirmPaymentRequest
	if r.ContentLength != 0 && !h.decodeJSON(w, r, &req) {
		return
	}

	b, err := h.service.ConfirmBookingPayment(r.Context(), id, req.ClientSecret)
	if err != nil {
		h.writeError(w, r, "confirm booking payment", err)
		return
	}
	h.writeJSON(w, http.StatusOK, toBookingResponse(*b))
}

type paymentIntentRequest struct {
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	BookingID int64   `json:"bookingId"`
}

type paymentIntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	Status       string `json:"status"`
}

// CreatePaymentIntent создаёт намерение оплаты картой.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req paymentIntentRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	intent, err := h.service.CreatePaymentIntent(r.Context(), req.Amount, req.Currency, req.BookingID)
	if err != nil {
		h.writeError(w, r, "create payment intent", err)
		return
	}

	h.writeJSON(w, http.StatusOK, paymentIntentResponse{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       intent.Status,
	})
}
