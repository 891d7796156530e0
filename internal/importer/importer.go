// Package importer parses purchase CSV files and reconciles their rows
// into bills with computed totals.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"pharmacy-backend/internal/models"
)

// dateFormat is the expected layout for bill and expiry dates.
const dateFormat = "2006-01-02"

// requiredColumns are the header columns every import file must carry.
// Column order does not matter and extra columns are ignored.
var requiredColumns = []string{"bill_no", "medicine_name", "quantity", "mrp", "expiry_date", "bill_date"}

// ErrEmptyFile is returned when the input has no header row.
var ErrEmptyFile = errors.New("empty file")

// RowError describes a row that could not be parsed. Line numbers are
// 1-based and count the header, so the first data row is line 2.
type RowError struct {
	Line  int
	Field string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: field %q: %v", e.Line, e.Field, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Parse reads a purchase CSV and returns one Purchase per distinct bill
// number, in first-seen order, with item and bill totals computed.
//
// Parsing is all-or-nothing: a single malformed row fails the whole import
// and no purchases are returned, so nothing is ever persisted from a file
// that did not parse completely. Grouping keeps the first-seen bill_date
// for each bill number.
func Parse(r io.Reader) ([]*models.Purchase, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}

	var (
		purchases []*models.Purchase
		byBillNo  = make(map[string]*models.Purchase)
		line      = 1
	)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		field := func(name string) string {
			return strings.TrimSpace(record[columns[name]])
		}

		billNo := field("bill_no")
		if billNo == "" {
			return nil, &RowError{Line: line, Field: "bill_no", Err: errors.New("missing value")}
		}
		medicineName := field("medicine_name")
		if medicineName == "" {
			return nil, &RowError{Line: line, Field: "medicine_name", Err: errors.New("missing value")}
		}

		quantity, err := strconv.Atoi(field("quantity"))
		if err != nil {
			return nil, &RowError{Line: line, Field: "quantity", Err: err}
		}
		if quantity <= 0 {
			return nil, &RowError{Line: line, Field: "quantity", Err: errors.New("must be greater than zero")}
		}

		mrp, err := strconv.ParseFloat(field("mrp"), 64)
		if err != nil {
			return nil, &RowError{Line: line, Field: "mrp", Err: err}
		}
		if mrp < 0 {
			return nil, &RowError{Line: line, Field: "mrp", Err: errors.New("must not be negative")}
		}

		expiryDate, err := time.Parse(dateFormat, field("expiry_date"))
		if err != nil {
			return nil, &RowError{Line: line, Field: "expiry_date", Err: err}
		}

		billDate, err := time.Parse(dateFormat, field("bill_date"))
		if err != nil {
			return nil, &RowError{Line: line, Field: "bill_date", Err: err}
		}

		purchase, ok := byBillNo[billNo]
		if !ok {
			purchase = &models.Purchase{
				BillNo:   billNo,
				BillDate: billDate,
			}
			byBillNo[billNo] = purchase
			purchases = append(purchases, purchase)
		}

		itemTotal := float64(quantity) * mrp
		purchase.BillTotal += itemTotal
		purchase.Details = append(purchase.Details, models.PurchaseDetail{
			MedicineName: medicineName,
			Quantity:     quantity,
			MRP:          mrp,
			ItemTotal:    itemTotal,
			ExpiryDate:   expiryDate,
		})
	}

	return purchases, nil
}
