package handler

import (
	"time"

	"github.com/mmeshcher/shuttle-booking/internal/model"
)

type routeResponse struct {
	ID            int64   `json:"id"`
	Provider      string  `json:"provider"`
	Departure     string  `json:"departure"`
	Arrival       string  `json:"arrival"`
	DepartureTime string  `json:"departureTime"`
	ArrivalTime   string  `json:"arrivalTime"`
	Price         float64 `json:"price"`
	Seats         int     `json:"seats"`
	VehicleType   string  `json:"vehicleType"`
	CompanyID     *int64  `json:"companyId,omitempty"`
	CompanyName   string  `json:"companyName,omitempty"`
}

func toRouteResponse(r model.Route) routeResponse {
	return routeResponse{
		ID:            r.ID,
		Provider:      r.Provider,
		Departure:     r.Departure,
		Arrival:       r.Arrival,
		DepartureTime: r.DepartureTime.UTC().Format(time.RFC3339),
		ArrivalTime:   r.ArrivalTime.UTC().Format(time.RFC3339),
		Price:         r.Price(),
		Seats:         r.Seats,
		VehicleType:   r.VehicleType,
		CompanyID:     r.CompanyID,
		CompanyName:   r.CompanyName,
	}
}

func toRouteResponses(list []model.Route) []routeResponse {
	resp := make([]routeResponse, 0, len(list))
	for _, r := range list {
		resp = append(resp, toRouteResponse(r))
	}
	return resp
}

type userResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	HasPassword bool   `json:"hasPassword"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

func toUserResponse(u model.User) userResponse {
	resp := userResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Phone:       u.Phone,
		HasPassword: u.HasPassword(),
	}
	if !u.CreatedAt.IsZero() {
		resp.CreatedAt = u.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

type bookingResponse struct {
	ID            int64          `json:"id"`
	RouteID       int64          `json:"routeId"`
	UserID        int64          `json:"userId"`
	PickupAddress string         `json:"pickupAddress"`
	PaymentMethod string         `json:"paymentMethod"`
	Status        string         `json:"status"`
	PaymentStatus string         `json:"paymentStatus"`
	Amount        float64        `json:"amount"`
	PaymentRef    string         `json:"paymentRef,omitempty"`
	CreatedAt     string         `json:"createdAt,omitempty"`
	Route         *routeResponse `json:"route,omitempty"`
	User          *userResponse  `json:"user,omitempty"`
}

func toBookingResponse(b model.Booking) bookingResponse {
	resp := bookingResponse{
		ID:            b.ID,
		RouteID:       b.RouteID,
		UserID:        b.UserID,
		PickupAddress: b.PickupAddress,
		PaymentMethod: string(b.PaymentMethod),
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		Amount:        b.Amount(),
		PaymentRef:    b.PaymentRef,
	}
	if !b.CreatedAt.IsZero() {
		resp.CreatedAt = b.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func withRelations(b model.Booking, rt model.Route, u model.User) bookingResponse {
	resp := toBookingResponse(b)
	route := toRouteResponse(rt)
	user := toUserResponse(u)
	resp.Route = &route
	resp.User = &user
	return resp
}

type companyResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func toCompanyResponse(c model.Company) companyResponse {
	return companyResponse{ID: c.ID, Name: c.Name, Phone: c.Phone}
}

type adminResponse struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	LastLogin *string `json:"lastLogin,omitempty"`
}

func toAdminResponse(a model.Admin) adminResponse {
	resp := adminResponse{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
		Role:     a.Role,
	}
	if a.LastLogin != nil {
		s := a.LastLogin.UTC().Format(time.RFC3339)
		resp.LastLogin = &s
	}
	return resp
}
