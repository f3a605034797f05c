package csvbatch

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/shuttle-booking/internal/model"
	"github.com/mmeshcher/shuttle-booking/internal/validation"
)

// колонки выгрузки. Их же принимает Update.
var exportHeaders = []string{
	"id", "provider", "departure", "arrival", "departureTime", "arrivalTime",
	"price", "seats", "vehicleType", "companyId", "companyName",
}

// ExportFilename возвращает имя файла выгрузки на дату now.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("routes_export_%s.csv", now.Format("2006-01-02"))
}

// WriteRoutes записывает маршруты в CSV. Текстовые ячейки экранируются от формул.
func WriteRoutes(dst io.Writer, routes []model.Route) error {
	w := csv.NewWriter(dst)

	if err := w.Write(exportHeaders); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, rt := range routes {
		companyID := ""
		if rt.CompanyID != nil {
			companyID = strconv.FormatInt(*rt.CompanyID, 10)
		}

		row := []string{
			strconv.FormatInt(rt.ID, 10),
			validation.EscapeCSVCell(rt.Provider),
			validation.EscapeCSVCell(rt.Departure),
			validation.EscapeCSVCell(rt.Arrival),
			rt.DepartureTime.UTC().Format(time.RFC3339),
			rt.ArrivalTime.UTC().Format(time.RFC3339),
			decimal.New(rt.PriceCents, -2).StringFixed(2),
			strconv.Itoa(rt.Seats),
			validation.EscapeCSVCell(rt.VehicleType),
			companyID,
			validation.EscapeCSVCell(rt.CompanyName),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}
