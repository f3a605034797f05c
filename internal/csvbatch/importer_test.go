package csvbatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/shuttle-booking/internal/model"
	"github.com/mmeshcher/shuttle-booking/internal/repository"
)

type fakeStore struct {
	routes    map[int64]*model.Route
	companies map[int64]bool
	nextID    int64
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		routes:    map[int64]*model.Route{},
		companies: map[int64]bool{1: true, 2: true},
	}
}

func (f *fakeStore) GetRoute(_ context.Context, id int64) (*model.Route, error) {
	rt, ok := f.routes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rt
	return &cp, nil
}

func (f *fakeStore) CreateRoute(_ context.Context, rt model.Route) (*model.Route, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if rt.CompanyID != nil && !f.companies[*rt.CompanyID] {
		return nil, fmt.Errorf("%w: routes_company_id_fkey", repository.ErrForeignKey)
	}
	f.nextID++
	rt.ID = f.nextID
	f.routes[rt.ID] = &rt
	return &rt, nil
}

func (f *fakeStore) UpdateRoute(_ context.Context, id int64, upd model.RouteUpdate) (*model.Route, error) {
	rt, ok := f.routes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if upd.CompanyID != nil && !f.companies[*upd.CompanyID] {
		return nil, fmt.Errorf("%w: routes_company_id_fkey", repository.ErrForeignKey)
	}
	if upd.Departure != nil {
		rt.Departure = *upd.Departure
	}
	if upd.Arrival != nil {
		rt.Arrival = *upd.Arrival
	}
	if upd.PriceCents != nil {
		rt.PriceCents = *upd.PriceCents
	}
	if upd.Seats != nil {
		rt.Seats = *upd.Seats
	}
	if upd.DepartureTime != nil {
		rt.DepartureTime = *upd.DepartureTime
	}
	if upd.CompanyID != nil {
		rt.CompanyID = upd.CompanyID
	}
	cp := *rt
	return &cp, nil
}

const importHeader = "departure,arrival,departureTime,arrivalTime,price,provider,companyId,seats,vehicleType\n"

func validRow(i int) string {
	return fmt.Sprintf("Cluj,Town %d,2025-06-01T08:00:00Z,2025-06-01T14:00:00Z,120.50,FlixBus,1,40,Bus\n", i)
}

func TestImport_PartialFailure(t *testing.T) {
	var b strings.Builder
	b.WriteString(importHeader)
	for i := 1; i <= 10; i++ {
		switch i {
		case 3:
			b.WriteString("Cluj,Sibiu,not-a-date,2025-06-01T14:00:00Z,50,FlixBus,1,,\n")
		case 7:
			b.WriteString("Cluj,Sibiu,2025-06-01T08:00:00Z,2025-06-01T14:00:00Z,-5,FlixBus,1,,\n")
		default:
			b.WriteString(validRow(i))
		}
	}

	store := newFakeStore()
	report, err := NewImporter(store, nil).Import(context.Background(), strings.NewReader(b.String()))
	require.NoError(t, err)

	assert.Equal(t, 8, report.Imported)
	assert.Equal(t, 2, report.Failed)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, model.RowError{Row: 4, Error: "Invalid date format"}, report.Errors[0])
	assert.Equal(t, model.RowError{Row: 8, Error: "Invalid price"}, report.Errors[1])
	assert.Len(t, store.routes, 8)

	rt := store.routes[1]
	assert.Equal(t, int64(12050), rt.PriceCents)
	assert.Equal(t, 40, rt.Seats)
	assert.Equal(t, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), rt.DepartureTime)
}

func TestImport_TwoInvalidPrices(t *testing.T) {
	var b strings.Builder
	b.WriteString(importHeader)
	for i := 1; i <= 10; i++ {
		switch i {
		case 3:
			b.WriteString("Cluj,Sibiu,2025-06-01T08:00:00Z,2025-06-01T14:00:00Z,12abc,FlixBus,1,,\n")
		case 7:
			b.WriteString("Cluj,Sibiu,2025-06-01T08:00:00Z,2025-06-01T14:00:00Z,-5,FlixBus,1,,\n")
		default:
			b.WriteString(validRow(i))
		}
	}

	store := newFakeStore()
	report, err := NewImporter(store, nil).Import(context.Background(), strings.NewReader(b.String()))
	require.NoError(t, err)

	assert.Equal(t, 8, report.Imported)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, []model.RowError{
		{Row: 4, Error: "Invalid price"},
		{Row: 8, Error: "Invalid price"},
	}, report.Errors)
	assert.Len(t, store.routes, 8)
}

func TestImport_RowMessages(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want string
	}{
		{name: "missing fields", row: "Cluj,,2025-06-01,2025-06-01,10,,1,,\n", want: "Missing fields: arrival, provider"},
		{name: "bad price", row: "Cluj,Sibiu,2025-06-01,2025-06-01,abc,FlixBus,1,,\n", want: "Invalid price"},
		{name: "price with trailing letters", row: "Cluj,Sibiu,2025-06-01,2025-06-01,12abc,FlixBus,1,,\n", want: "Invalid price"},
		{name: "price with currency", row: "Cluj,Sibiu,2025-06-01,2025-06-01,RON 12,FlixBus,1,,\n", want: "Invalid price"},
		{name: "price over max", row: "Cluj,Sibiu,2025-06-01,2025-06-01,10001,FlixBus,1,,\n", want: "Invalid price"},
		{name: "bad company", row: "Cluj,Sibiu,2025-06-01,2025-06-01,10,FlixBus,0,,\n", want: "Invalid companyId"},
		{name: "bad seats", row: "Cluj,Sibiu,2025-06-01,2025-06-01,10,FlixBus,1,500,\n", want: "Invalid seats"},
		{name: "unknown company", row: "Cluj,Sibiu,2025-06-01,2025-06-01,10,FlixBus,42,,\n", want: "Company with ID 42 not found"},
		{name: "empty after sanitization", row: "<>,Sibiu,2025-06-01,2025-06-01,10,FlixBus,1,,\n", want: "Missing fields: departure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := NewImporter(newFakeStore(), nil).Import(context.Background(), strings.NewReader(importHeader+tt.row))
			require.NoError(t, err)
			require.Len(t, report.Errors, 1)
			assert.Equal(t, 2, report.Errors[0].Row)
			assert.Equal(t, tt.want, report.Errors[0].Error)
			assert.Zero(t, report.Imported)
		})
	}
}

func TestImport_DefaultsAndSanitization(t *testing.T) {
	store := newFakeStore()
	csv := importHeader + "  <b>Cluj</b> , Sibiu ,2025-06-01 08:30,2025-06-01 12:00,15,FlixBus,2,,\n\n"

	report, err := NewImporter(store, nil).Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 1, report.Imported)

	rt := store.routes[1]
	assert.Equal(t, "bCluj/b", rt.Departure)
	assert.Equal(t, "Sibiu", rt.Arrival)
	assert.Equal(t, model.DefaultVehicleType, rt.VehicleType)
	assert.Equal(t, model.DefaultSeats, rt.Seats)
}

func TestImport_UnknownStoreErrorIsGeneric(t *testing.T) {
	store := newFakeStore()
	store.createErr = errors.New("connection reset by peer")

	report, err := NewImporter(store, nil).Import(context.Background(), strings.NewReader(importHeader+validRow(1)))
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "failed to save route", report.Errors[0].Error)
}

func TestImport_RequiresHeader(t *testing.T) {
	_, err := NewImporter(newFakeStore(), nil).Import(context.Background(), strings.NewReader(""))
	assert.Error(t, err)
}

func TestUpdate(t *testing.T) {
	store := newFakeStore()
	_, err := store.CreateRoute(context.Background(), model.Route{Departure: "Cluj", Arrival: "Sibiu", PriceCents: 1000, Seats: 50})
	require.NoError(t, err)

	csv := "id,price,seats,arrival,companyId\n" +
		"1,25.5,,Brasov,\n" +
		",10,,,\n" +
		"abc,10,,,\n" +
		"99,10,,,\n" +
		"1,,0,,\n" +
		"1,,,,77\n"

	report, err := NewImporter(store, nil).Update(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 5, report.Failed)
	assert.Equal(t, []model.RowError{
		{Row: 3, Error: "Missing required field: id"},
		{Row: 4, Error: "Invalid route ID"},
		{Row: 5, Error: "Route with ID 99 not found"},
		{Row: 6, Error: "Invalid seats"},
		{Row: 7, Error: "Company with ID 77 not found"},
	}, report.Errors)

	rt := store.routes[1]
	assert.Equal(t, int64(2550), rt.PriceCents)
	assert.Equal(t, "Brasov", rt.Arrival)
	assert.Equal(t, 50, rt.Seats, "rejected row must not change the route")
}

func TestParseTime(t *testing.T) {
	want := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	for _, s := range []string{"2025-06-01T08:30:00Z", "2025-06-01T11:30:00+03:00", "2025-06-01T08:30", "2025-06-01 08:30", "2025-06-01 08:30:00"} {
		got, err := ParseTime(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), s)
	}

	_, err := ParseTime("01/06/2025")
	assert.ErrorIs(t, err, ErrInvalidTime)
}

func TestWriteRoutes(t *testing.T) {
	companyID := int64(3)
	dep := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	routes := []model.Route{
		{ID: 1, Provider: "=HYPERLINK(\"x\")", Departure: "Cluj", Arrival: "Sibiu", DepartureTime: dep, ArrivalTime: dep.Add(time.Hour), PriceCents: 12050, Seats: 50, VehicleType: "Bus", CompanyID: &companyID, CompanyName: "Acme"},
		{ID: 2, Provider: "Local", Departure: "-Town", Arrival: "B", DepartureTime: dep, ArrivalTime: dep, PriceCents: 0, Seats: 10, VehicleType: "Van"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRoutes(&buf, routes))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,provider,departure,arrival,departureTime,arrivalTime,price,seats,vehicleType,companyId,companyName", lines[0])
	assert.Equal(t, `1,"'=HYPERLINK(""x"")",Cluj,Sibiu,2025-06-01T08:00:00Z,2025-06-01T09:00:00Z,120.50,50,Bus,3,Acme`, lines[1])
	assert.Equal(t, "2,Local,'-Town,B,2025-06-01T08:00:00Z,2025-06-01T08:00:00Z,0.00,10,Van,,", lines[2])
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "routes_export_2025-06-01.csv", ExportFilename(time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)))
}
