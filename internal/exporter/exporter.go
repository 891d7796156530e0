// Package exporter serializes joined purchase records to CSV.
package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"pharmacy-backend/internal/models"
)

const dateFormat = "2006-01-02"

// header is the fixed column order of the export file.
var header = []string{
	"Bill No", "Bill Date", "Bill Total",
	"Medicine Name", "Quantity", "MRP", "Item Total", "Expiry Date",
}

// WriteTo writes the header followed by one line per row.
func WriteTo(w io.Writer, rows []models.PurchaseRow) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.BillNo,
			row.BillDate.Format(dateFormat),
			formatAmount(row.BillTotal),
			row.MedicineName,
			strconv.Itoa(row.Quantity),
			formatAmount(row.MRP),
			formatAmount(row.ItemTotal),
			row.ExpiryDate.Format(dateFormat),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// Write creates or truncates the file at path and writes the rows to it.
// Any previous export at the same path is overwritten.
func Write(path string, rows []models.PurchaseRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if err := WriteTo(f, rows); err != nil {
		return err
	}

	return f.Close()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
