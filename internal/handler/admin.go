package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmeshcher/shuttle-booking/internal/csvbatch"
	"github.com/mmeshcher/shuttle-booking/internal/service"
)

// предел размера загружаемого CSV
const maxCSVUpload = 5 << 20

type routeRequest struct {
	Departure     string   `json:"departure"`
	Arrival       string   `json:"arrival"`
	DepartureTime string   `json:"departureTime"`
	ArrivalTime   string   `json:"arrivalTime"`
	Price         *float64 `json:"price"`
	Provider      string   `json:"provider"`
	VehicleType   string   `json:"vehicleType"`
	Seats         *int     `json:"seats"`
	CompanyID     *int64   `json:"companyId"`
}

func (r routeRequest) toInput() service.RouteInput {
	return service.RouteInput{
		Departure:     r.Departure,
		Arrival:       r.Arrival,
		DepartureTime: r.DepartureTime,
		ArrivalTime:   r.ArrivalTime,
		Price:         r.Price,
		Provider:      r.Provider,
		VehicleType:   r.VehicleType,
		Seats:         r.Seats,
		CompanyID:     r.CompanyID,
	}
}

var deleted = map[string]bool{"success": true}

// CreateRoute добавляет маршрут.
func (h *Handler) CreateRoute(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	rt, err := h.service.CreateRoute(r.Context(), req.toInput())
	if err != nil {
		h.writeError(w, r, "create route", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toRouteResponse(*rt))
}

// UpdateRoute изменяет маршрут.
func (h *Handler) UpdateRoute(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req routeRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	rt, err := h.service.UpdateRoute(r.Context(), id, req.toInput())
	if err != nil {
		h.writeError(w, r, "update route", err)
		return
	}
	h.writeJSON(w, http.StatusOK, toRouteResponse(*rt))
}

// DeleteRoute удаляет маршрут.
func (h *Handler) DeleteRoute(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteRoute(r.Context(), id); err != nil {
		h.writeError(w, r, "delete route", err)
		return
	}
	h.writeJSON(w, http.StatusOK, deleted)
}

// ImportRoutes создаёт маршруты из загруженного CSV.
func (h *Handler) ImportRoutes(w http.ResponseWriter, r *http.Request) {
	src, ok := h.csvUpload(w, r)
	if !ok {
		return
	}

	report, err := h.service.ImportRoutes(r.Context(), src)
	if err != nil {
		h.writeError(w, r, "import routes", err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// UpdateRoutesCSV обновляет маршруты по загруженному CSV.
func (h *Handler) UpdateRoutesCSV(w http.ResponseWriter, r *http.Request) {
	src, ok := h.csvUpload(w, r)
	if !ok {
		return
	}

	report, err := h.service.UpdateRoutesCSV(r.Context(), src)
	if err != nil {
		h.writeError(w, r, "update routes csv", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Update completed. %d routes updated, %d failed.", report.Updated, report.Failed),
		"results": report,
	})
}

// ExportRoutes отдаёт все маршруты файлом CSV.
func (h *Handler) ExportRoutes(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.service.ExportRoutes(r.Context(), &buf); err != nil {
		h.writeError(w, r, "export routes", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", csvbatch.ExportFilename(time.Now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// csvUpload возвращает CSV из поля формы file или из тела запроса целиком.
func (h *Handler) csvUpload(w http.ResponseWriter, r *http.Request) (io.Reader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCSVUpload)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxCSVUpload); err != nil {
			h.writeMessage(w, http.StatusBadRequest, "Invalid multipart form")
			return nil, false
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			h.writeMessage(w, http.StatusBadRequest, "No file uploaded")
			return nil, false
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			h.writeMessage(w, http.StatusBadRequest, "Failed to read uploaded file")
			return nil, false
		}
		return bytes.NewReader(data), true
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeMessage(w, http.StatusRequestEntityTooLarge, "Uploaded file is too large")
		return nil, false
	}
	if len(bytes.TrimSpace(data)) == 0 {
		h.writeMessage(w, http.StatusBadRequest, "No file uploaded")
		return nil, false
	}
	return bytes.NewReader(data), true
}

// ListCompanies отдаёт перевозчиков.
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListCompanies(r.Context())
	if err != nil {
		h.writeError(w, r, "list companies", err)
		return
	}

	resp := make([]companyResponse, 0, len(list))
	for _, c := range list {
		resp = append(resp, toCompanyResponse(c))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type companyRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// CreateCompany добавляет перевозчика.
func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	var name, phone string
	if req.Name != nil {
		name = *req.Name
	}
	if req.Phone != nil {
		phone = *req.Phone
	}

	c, err := h.service.CreateCompany(r.Context(), name, phone)
	if err != nil {
		h.writeError(w, r, "create company", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toCompanyResponse(*c))
}

// UpdateCompany изменяет перевозчика.
func (h *Handler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req companyRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	c, err := h.service.UpdateCompany(r.Context(), id, req.Name, req.Phone)
	if err != nil {
		h.writeError(w, r, "update company", err)
		return
	}
	h.writeJSON(w, http.StatusOK, toCompanyResponse(*c))
}

// DeleteCompany удаляет перевозчика.
func (h *Handler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteCompany(r.Context(), id); err != nil {
		h.writeError(w, r, "delete company", err)
		return
	}
	h.writeJSON(w, http.StatusOK, deleted)
}

// ListUsers отдаёт пассажиров.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, r, "list users", err)
		return
	}

	resp := make([]userResponse, 0, len(list))
	for _, u := range list {
		resp = append(resp, toUserResponse(u))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type userRequest struct {
	Email *string `json:"email"`
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// UpdateUser изменяет профиль пассажира.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req userRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	u, err := h.service.UpdateUser(r.Context(), id, service.UserInput{
		Email: req.Email,
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		h.writeError(w, r, "update user", err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserResponse(*u))
}

// DeleteUser удаляет пассажира вместе с бронированиями.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		h.writeError(w, r, "delete user", err)
		return
	}
	h.writeJSON(w, http.StatusOK, deleted)
}

// ListBookings отдаёт бронирования с маршрутами и пассажирами.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListBookings(r.Context())
	if err != nil {
		h.writeError(w, r, "list bookings", err)
		return
	}

	resp := make([]bookingResponse, 0, len(list))
	for _, b := range list {
		resp = append(resp, withRelations(b.Booking, b.Route, b.User))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type bookingPatchRequest struct {
	Status        *string  `json:"status"`
	PaymentStatus *string  `json:"paymentStatus"`
	Amount        *float64 `json:"amount"`
}

// UpdateBooking изменяет статусы или сумму бронирования.
func (h *Handler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req bookingPatchRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	b, err := h.service.UpdateBooking(r.Context(), id, service.BookingPatch{
		Status:        req.Status,
		PaymentStatus: req.PaymentStatus,
		Amount:        req.Amount,
	})
	if err != nil {
		h.writeError(w, r, "update booking", err)
		return
	}
	h.writeJSON(w, http.StatusOK, toBookingResponse(*b))
}

// DeleteBooking удаляет бронирование.
func (h *Handler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteBooking(r.Context(), id); err != nil {
		h.writeError(w, r, "delete booking", err)
		return
	}
	h.writeJSON(w, http.StatusOK, deleted)
}
