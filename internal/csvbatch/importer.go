// Package csvbatch реализует пакетный импорт, обновление и выгрузку маршрутов в CSV.
package csvbatch

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/shuttle-booking/internal/model"
	"github.com/mmeshcher/shuttle-booking/internal/repository"
	"github.com/mmeshcher/shuttle-booking/internal/validation"
)

// Допустимые диапазоны значений в строках CSV.
const (
	MaxPrice = 10000
	MinSeats = 1
	MaxSeats = 100
)

const msgSaveFailed = "failed to save route"

var requiredImportColumns = []string{
	"departure", "arrival", "departureTime", "arrivalTime", "price", "provider", "companyId",
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ErrInvalidTime возвращается ParseTime для нераспознанной даты.
var ErrInvalidTime = errors.New("invalid date format")

// ParseTime разбирает дату в одном из поддерживаемых форматов. Даты без зоны считаются UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidTime
}

// RouteStore описывает часть хранилища, которой пользуется импорт.
type RouteStore interface {
	GetRoute(ctx context.Context, id int64) (*model.Route, error)
	CreateRoute(ctx context.Context, rt model.Route) (*model.Route, error)
	UpdateRoute(ctx context.Context, id int64, upd model.RouteUpdate) (*model.Route, error)
}

// Importer построчно применяет CSV к хранилищу маршрутов.
// Ошибка в одной строке не прерывает обработку остальных.
type Importer struct {
	store  RouteStore
	logger *zap.Logger
}

// NewImporter создаёт импортёр поверх хранилища маршрутов.
func NewImporter(store RouteStore, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{store: store, logger: logger}
}

// record хранит строку CSV с доступом по имени колонки.
type record struct {
	row    int
	values map[string]string
}

func (r record) get(column string) string {
	return r.values[column]
}

// Import создаёт маршрут для каждой строки.
func (im *Importer) Import(ctx context.Context, src io.Reader) (*model.ImportReport, error) {
	report := &model.ImportReport{Errors: []model.RowError{}}

	err := readRecords(src, func(rec record, parseErr error) {
		if parseErr == nil {
			parseErr = im.importRow(ctx, rec)
		}
		if parseErr != nil {
			report.Failed++
			report.Errors = append(report.Errors, model.RowError{Row: rec.row, Error: parseErr.Error()})
			return
		}
		report.Imported++
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}

// Update изменяет существующие маршруты. Применяются только заполненные колонки.
func (im *Importer) Update(ctx context.Context, src io.Reader) (*model.UpdateReport, error) {
	report := &model.UpdateReport{Errors: []model.RowError{}}

	err := readRecords(src, func(rec record, parseErr error) {
		if parseErr == nil {
			parseErr = im.updateRow(ctx, rec)
		}
		if parseErr != nil {
			report.Failed++
			report.Errors = append(report.Errors, model.RowError{Row: rec.row, Error: parseErr.Error()})
			return
		}
		report.Updated++
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}

func (im *Importer) importRow(ctx context.Context, rec record) error {
	var missing []string
	for _, col := range requiredImportColumns {
		if rec.get(col) == "" {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("Missing fields: %s", strings.Join(missing, ", "))
	}

	departureTime, err := ParseTime(rec.get("departureTime"))
	if err != nil {
		return errors.New("Invalid date format")
	}
	arrivalTime, err := ParseTime(rec.get("arrivalTime"))
	if err != nil {
		return errors.New("Invalid date format")
	}

	priceCents, ok := parsePrice(rec.get("price"))
	if !ok {
		return errors.New("Invalid price")
	}

	companyID, ok := parseCompanyID(rec.get("companyId"))
	if !ok {
		return errors.New("Invalid companyId")
	}

	seats := model.DefaultSeats
	if v := rec.get("seats"); v != "" {
		if seats, ok = parseSeats(v); !ok {
			return errors.New("Invalid seats")
		}
	}

	vehicleType := validation.SanitizeName(rec.get("vehicleType"), validation.MaxNameLength)
	if vehicleType == "" {
		vehicleType = model.DefaultVehicleType
	}

	rt := model.Route{
		Departure:     validation.SanitizeName(rec.get("departure"), validation.MaxNameLength),
		Arrival:       validation.SanitizeName(rec.get("arrival"), validation.MaxNameLength),
		DepartureTime: departureTime,
		ArrivalTime:   arrivalTime,
		PriceCents:    priceCents,
		Provider:      validation.SanitizeName(rec.get("provider"), validation.MaxNameLength),
		VehicleType:   vehicleType,
		Seats:         seats,
		CompanyID:     &companyID,
	}
	missing = missing[:0]
	for col, v := range map[string]string{"departure": rt.Departure, "arrival": rt.Arrival, "provider": rt.Provider} {
		if v == "" {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("Missing fields: %s", strings.Join(missing, ", "))
	}

	if _, err := im.store.CreateRoute(ctx, rt); err != nil {
		return im.storeError(rec.row, companyID, err)
	}
	return nil
}

func (im *Importer) updateRow(ctx context.Context, rec record) error {
	rawID := rec.get("id")
	if rawID == "" {
		return errors.New("Missing required field: id")
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id < 1 {
		return errors.New("Invalid route ID")
	}

	if _, err := im.store.GetRoute(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("Route with ID %d not found", id)
		}
		im.logger.Error("csv update: get route", zap.Int("row", rec.row), zap.Int64("routeID", id), zap.Error(err))
		return errors.New(msgSaveFailed)
	}

	upd, err := buildUpdate(rec)
	if err != nil {
		return err
	}
	if upd.Empty() {
		return nil
	}

	if _, err := im.store.UpdateRoute(ctx, id, upd); err != nil {
		var companyID int64
		if upd.CompanyID != nil {
			companyID = *upd.CompanyID
		}
		return im.storeError(rec.row, companyID, err)
	}
	return nil
}

func buildUpdate(rec record) (model.RouteUpdate, error) {
	var upd model.RouteUpdate

	text := func(column string, dst **string) {
		if v := rec.get(column); v != "" {
			if s := validation.SanitizeName(v, validation.MaxNameLength); s != "" {
				*dst = &s
			}
		}
	}
	text("departure", &upd.Departure)
	text("arrival", &upd.Arrival)
	text("provider", &upd.Provider)
	text("vehicleType", &upd.VehicleType)

	if v := rec.get("departureTime"); v != "" {
		t, err := ParseTime(v)
		if err != nil {
			return upd, errors.New("Invalid date format")
		}
		upd.DepartureTime = &t
	}
	if v := rec.get("arrivalTime"); v != "" {
		t, err := ParseTime(v)
		if err != nil {
			return upd, errors.New("Invalid date format")
		}
		upd.ArrivalTime = &t
	}
	if v := rec.get("price"); v != "" {
		cents, ok := parsePrice(v)
		if !ok {
			return upd, errors.New("Invalid price")
		}
		upd.PriceCents = &cents
	}
	if v := rec.get("seats"); v != "" {
		seats, ok := parseSeats(v)
		if !ok {
			return upd, errors.New("Invalid seats")
		}
		upd.Seats = &seats
	}
	if v := rec.get("companyId"); v != "" {
		companyID, ok := parseCompanyID(v)
		if !ok {
			return upd, errors.New("Invalid companyId")
		}
		upd.CompanyID = &companyID
	}

	return upd, nil
}

func (im *Importer) storeError(row int, companyID int64, err error) error {
	if errors.Is(err, repository.ErrForeignKey) {
		return fmt.Errorf("Company with ID %d not found", companyID)
	}
	im.logger.Error("csv row store error", zap.Int("row", row), zap.Error(err))
	return errors.New(msgSaveFailed)
}

func parsePrice(s string) (int64, bool) {
	v := validation.ParseNumber(s)
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > MaxPrice {
		return 0, false
	}
	return model.AmountToCents(v), true
}

func parseCompanyID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func parseSeats(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < MinSeats || n > MaxSeats {
		return 0, false
	}
	return n, true
}

// readRecords вызывает fn для каждой непустой строки данных.
// Номер строки равен индексу записи плюс 2: первая строка файла занята заголовком.
func readRecords(src io.Reader, fn func(rec record, parseErr error)) error {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("csv header row is required")
		}
		return fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	index := 0
	for {
		cells, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}

		rec := record{row: index + 2, values: make(map[string]string, len(header))}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return fmt.Errorf("read csv: %w", err)
			}
			index++
			fn(rec, errors.New("Malformed CSV row"))
			continue
		}

		blank := true
		for i, cell := range cells {
			cell = strings.TrimSpace(cell)
			if cell != "" {
				blank = false
			}
			if i < len(header) {
				rec.values[header[i]] = cell
			}
		}
		if blank {
			continue
		}

		index++
		fn(rec, nil)
	}
}
