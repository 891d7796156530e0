package models

import "time"

// Purchase is a bill header created by the CSV importer.
//
// BillNo is the business key supplied by the import source. It is NOT unique
// at the storage layer: re-importing a file with an existing bill number
// appends a second purchase row with the same BillNo.
type Purchase struct {
	// ID is the server-assigned row identifier.
	ID int64

	// BillNo is the bill number from the import source.
	BillNo string

	// BillDate is the date on the bill. When an import file carries
	// conflicting dates for one bill number, the first-seen date wins.
	BillDate time.Time

	// BillTotal is the sum of ItemTotal over all details, computed at
	// import time. It is a snapshot: later price updates and line-item
	// deletions do not recompute it.
	BillTotal float64

	// Details are the line items belonging to this bill.
	Details []PurchaseDetail
}

// PurchaseDetail is a single medicine line on a purchase bill.
type PurchaseDetail struct {
	// ID is the server-assigned row identifier.
	ID int64

	// PurchaseID references the owning Purchase.
	PurchaseID int64

	// MedicineName is the name of the purchased medicine.
	MedicineName string

	// Quantity is the number of units purchased (always > 0).
	Quantity int

	// MRP is the unit price (maximum retail price).
	MRP float64

	// ItemTotal is Quantity * MRP at import time. Price corrections via
	// the update endpoint change MRP only, not this field.
	ItemTotal float64

	// ExpiryDate is the expiry date of the medicine batch.
	ExpiryDate time.Time
}

// PurchaseRow is one row of the purchases x purchase_details join,
// as used by the CSV export.
type PurchaseRow struct {
	BillNo       string
	BillDate     time.Time
	BillTotal    float64
	MedicineName string
	Quantity     int
	MRP          float64
	ItemTotal    float64
	ExpiryDate   time.Time
}
