package service

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/shuttle-booking/internal/csvbatch"
	"github.com/mmeshcher/shuttle-booking/internal/model"
	"github.com/mmeshcher/shuttle-booking/internal/repository"
	"github.com/mmeshcher/shuttle-booking/internal/validation"
)

// RouteRef описывает ссылку на маршрут из запроса на бронирование.
// Nil Price означает, что клиент не сообщил цену и сверка не выполняется.
type RouteRef struct {
	ID            int64
	Provider      string
	Departure     string
	Arrival       string
	DepartureTime string
	ArrivalTime   string
	VehicleType   string
	Seats         int
	Price         *float64
}

func (r RouteRef) sanitized() RouteRef {
	out := RouteRef{
		ID:            r.ID,
		Provider:      validation.SanitizeName(r.Provider, validation.MaxNameLength),
		Departure:     validation.SanitizeName(r.Departure, validation.MaxNameLength),
		Arrival:       validation.SanitizeName(r.Arrival, validation.MaxNameLength),
		DepartureTime: strings.TrimSpace(r.DepartureTime),
		ArrivalTime:   strings.TrimSpace(r.ArrivalTime),
		VehicleType:   validation.SanitizeName(r.VehicleType, validation.MaxNameLength),
		Seats:         r.Seats,
	}
	if r.Price != nil {
		p := validation.SanitizeNumber(*r.Price, 0, csvbatch.MaxPrice)
		out.Price = &p
	}
	return out
}

func (r RouteRef) priceCents() int64 {
	if r.Price == nil {
		return 0
	}
	return model.AmountToCents(*r.Price)
}

// ResolveRoute находит маршрут по ссылке или создаёт его.
// Порядок: по идентификатору, затем по (provider, departure, arrival, price), затем создание.
// Параллельные запросы могут создать два одинаковых маршрута: естественного ключа у маршрута нет.
func (s *Service) ResolveRoute(ctx context.Context, ref RouteRef) (*model.Route, error) {
	if ref.ID > 0 {
		rt, err := s.repo.GetRoute(ctx, ref.ID)
		if err == nil {
			return rt, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, model.External("get route", err)
		}
	}

	cents := ref.priceCents()

	rt, err := s.repo.FindRoute(ctx, ref.Provider, ref.Departure, ref.Arrival, cents)
	if err == nil {
		return rt, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, model.External("find route", err)
	}

	if ref.Departure == "" || ref.Arrival == "" {
		return nil, &model.NotFoundError{Resource: "route", ID: ref.ID}
	}

	now := s.now().UTC()
	fallback := model.Route{
		Departure:     ref.Departure,
		Arrival:       ref.Arrival,
		DepartureTime: parseTimeOr(ref.DepartureTime, now),
		ArrivalTime:   parseTimeOr(ref.ArrivalTime, now),
		PriceCents:    cents,
		Provider:      ref.Provider,
		VehicleType:   ref.VehicleType,
		Seats:         ref.Seats,
	}
	if fallback.VehicleType == "" {
		fallback.VehicleType = model.DefaultVehicleType
	}
	if fallback.Seats <= 0 {
		fallback.Seats = model.DefaultSeats
	}

	created, err := s.repo.CreateRoute(ctx, fallback)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			if rt, findErr := s.repo.FindRoute(ctx, ref.Provider, ref.Departure, ref.Arrival, cents); findErr == nil {
				return rt, nil
			}
		}
		return nil, model.External("create fallback route", err)
	}

	s.logger.Info("fallback route created",
		zap.Int64("routeID", created.ID),
		zap.String("departure", created.Departure),
		zap.String("arrival", created.Arrival),
	)

	return created, nil
}

func parseTimeOr(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	t, err := csvbatch.ParseTime(s)
	if err != nil {
		return fallback
	}
	return t
}

// ListRoutes возвращает все маршруты.
func (s *Service) ListRoutes(ctx context.Context) ([]model.Route, error) {
	routes, err := s.repo.ListRoutes(ctx)
	if err != nil {
		return nil, model.External("list routes", err)
	}
	return routes, nil
}

// RouteInput содержит поля маршрута из админки. Пустые значения при обновлении не меняются.
type RouteInput struct {
	Departure     string
	Arrival       string
	DepartureTime string
	ArrivalTime   string
	Price         *float64
	Provider      string
	VehicleType   string
	Seats         *int
	CompanyID     *int64
}

// CreateRoute создаёт маршрут из админки с теми же правилами, что и импорт CSV.
func (s *Service) CreateRoute(ctx context.Context, in RouteInput) (*model.Route, error) {
	upd, reasons := in.toUpdate()

	if upd.Departure == nil || upd.Arrival == nil || upd.Provider == nil {
		reasons = append(reasons, "Departure, arrival and provider are required")
	}
	if upd.DepartureTime == nil || upd.ArrivalTime == nil {
		reasons = append(reasons, "Departure and arrival times are required")
	}
	if upd.PriceCents == nil {
		reasons = append(reasons, "Invalid price")
	}
	if len(reasons) > 0 {
		return nil, model.NewValidationError(dedupe(reasons)...)
	}

	rt := model.Route{
		Departure:     *upd.Departure,
		Arrival:       *upd.Arrival,
		DepartureTime: *upd.DepartureTime,
		ArrivalTime:   *upd.ArrivalTime,
		PriceCents:    *upd.PriceCents,
		Provider:      *upd.Provider,
		VehicleType:   model.DefaultVehicleType,
		Seats:         model.DefaultSeats,
		CompanyID:     upd.CompanyID,
	}
	if upd.VehicleType != nil {
		rt.VehicleType = *upd.VehicleType
	}
	if upd.Seats != nil {
		rt.Seats = *upd.Seats
	}

	created, err := s.repo.CreateRoute(ctx, rt)
	if err != nil {
		return nil, routeStoreError("create route", upd.CompanyID, err)
	}
	return created, nil
}

// UpdateRoute применяет к маршруту заполненные поля.
func (s *Service) UpdateRoute(ctx context.Context, id int64, in RouteInput) (*model.Route, error) {
	upd, reasons := in.toUpdate()
	if len(reasons) > 0 {
		return nil, model.NewValidationError(reasons...)
	}

	rt, err := s.repo.UpdateRoute(ctx, id, upd)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &model.NotFoundError{Resource: "route", ID: id}
		}
		return nil, routeStoreError("update route", upd.CompanyID, err)
	}
	return rt, nil
}

// DeleteRoute удаляет маршрут вместе с его бронированиями.
func (s *Service) DeleteRoute(ctx context.Context, id int64) error {
	if err := s.repo.DeleteRoute(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &model.NotFoundError{Resource: "route", ID: id}
		}
		return model.External("delete route", err)
	}
	return nil
}

// ImportRoutes создаёт маршруты из CSV.
func (s *Service) ImportRoutes(ctx context.Context, src io.Reader) (*model.ImportReport, error) {
	report, err := s.importer.Import(ctx, src)
	if err != nil {
		return nil, model.NewValidationError(err.Error())
	}
	return report, nil
}

// UpdateRoutesCSV обновляет маршруты из CSV.
func (s *Service) UpdateRoutesCSV(ctx context.Context, src io.Reader) (*model.UpdateReport, error) {
	report, err := s.importer.Update(ctx, src)
	if err != nil {
		return nil, model.NewValidationError(err.Error())
	}
	return report, nil
}

// ExportRoutes записывает все маршруты в CSV.
func (s *Service) ExportRoutes(ctx context.Context, dst io.Writer) error {
	routes, err := s.repo.ListRoutes(ctx)
	if err != nil {
		return model.External("list routes", err)
	}
	if err := csvbatch.WriteRoutes(dst, routes); err != nil {
		return model.External("write routes csv", err)
	}
	return nil
}

func (in RouteInput) toUpdate() (model.RouteUpdate, []string) {
	var (
		upd     model.RouteUpdate
		reasons []string
	)

	text := func(v string, dst **string) {
		if s := validation.SanitizeName(v, validation.MaxNameLength); s != "" {
			*dst = &s
		}
	}
	text(in.Departure, &upd.Departure)
	text(in.Arrival, &upd.Arrival)
	text(in.Provider, &upd.Provider)
	text(in.VehicleType, &upd.VehicleType)

	if in.DepartureTime != "" {
		if t, err := csvbatch.ParseTime(in.DepartureTime); err == nil {
			upd.DepartureTime = &t
		} else {
			reasons = append(reasons, "Invalid date format")
		}
	}
	if in.ArrivalTime != "" {
		if t, err := csvbatch.ParseTime(in.ArrivalTime); err == nil {
			upd.ArrivalTime = &t
		} else {
			reasons = append(reasons, "Invalid date format")
		}
	}
	if in.Price != nil {
		p := *in.Price
		if math.IsNaN(p) || p < 0 || p > csvbatch.MaxPrice {
			reasons = append(reasons, "Invalid price")
		} else {
			cents := model.AmountToCents(p)
			upd.PriceCents = &cents
		}
	}
	if in.Seats != nil {
		if *in.Seats < csvbatch.MinSeats || *in.Seats > csvbatch.MaxSeats {
			reasons = append(reasons, "Invalid seats")
		} else {
			seats := *in.Seats
			upd.Seats = &seats
		}
	}
	if in.CompanyID != nil {
		if *in.CompanyID < 1 {
			reasons = append(reasons, "Invalid companyId")
		} else {
			id := *in.CompanyID
			upd.CompanyID = &id
		}
	}

	return upd, dedupe(reasons)
}

func routeStoreError(op string, companyID *int64, err error) error {
	if errors.Is(err, repository.ErrForeignKey) && companyID != nil {
		return &model.NotFoundError{Resource: "company", ID: *companyID}
	}
	return model.External(op, err)
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
