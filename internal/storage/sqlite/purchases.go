package sqlite

import (
	"context"
	"fmt"
	"time"

	"pharmacy-backend/internal/models"
	"pharmacy-backend/internal/storage"
)

// CreatePurchase persists a purchase header and its details in one
// transaction. If any insert fails, the whole purchase rolls back;
// purchases created by earlier calls are unaffected.
func (s *SQLiteStore) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO purchases (bill_no, bill_date, bill_total) VALUES (?, ?, ?)",
		purchase.BillNo, purchase.BillDate.Format(dateFormat), purchase.BillTotal,
	)
	if err != nil {
		return fmt.Errorf("failed to insert purchase: %w", err)
	}

	purchaseID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get purchase id: %w", err)
	}
	purchase.ID = purchaseID

	for i := range purchase.Details {
		detail := &purchase.Details[i]
		detail.PurchaseID = purchaseID

		res, err := tx.ExecContext(ctx,
			`INSERT INTO purchase_details (purchase_id, medicine_name, quantity, mrp, item_total, expiry_date)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			purchaseID, detail.MedicineName, detail.Quantity, detail.MRP,
			detail.ItemTotal, detail.ExpiryDate.Format(dateFormat),
		)
		if err != nil {
			return fmt.Errorf("failed to insert purchase detail: %w", err)
		}

		detailID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get purchase detail id: %w", err)
		}
		detail.ID = detailID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetPurchaseByBillNo retrieves a purchase with all details by bill number.
// When duplicate headers share a bill number, the header fields come from
// the first joined row and the details of every duplicate are included,
// matching the join semantics of the query.
func (s *SQLiteStore) GetPurchaseByBillNo(ctx context.Context, billNo string) (*models.Purchase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.bill_no, p.bill_date, p.bill_total,
		        pd.id, pd.medicine_name, pd.quantity, pd.mrp, pd.item_total, pd.expiry_date
		 FROM purchases AS p
		 INNER JOIN purchase_details AS pd ON p.id = pd.purchase_id
		 WHERE p.bill_no = ?
		 ORDER BY p.id, pd.id`,
		billNo,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	defer rows.Close()

	var purchase *models.Purchase
	for rows.Next() {
		var (
			id, detailID int64
			no, billDate string
			billTotal    float64
			detail       models.PurchaseDetail
			expiryDate   string
		)
		if err := rows.Scan(&id, &no, &billDate, &billTotal,
			&detailID, &detail.MedicineName, &detail.Quantity, &detail.MRP,
			&detail.ItemTotal, &expiryDate); err != nil {
			return nil, fmt.Errorf("failed to scan purchase row: %w", err)
		}

		if purchase == nil {
			date, err := time.Parse(dateFormat, billDate)
			if err != nil {
				return nil, fmt.Errorf("failed to parse bill date: %w", err)
			}
			purchase = &models.Purchase{
				ID:        id,
				BillNo:    no,
				BillDate:  date,
				BillTotal: billTotal,
			}
		}

		detail.ID = detailID
		detail.PurchaseID = id
		detail.ExpiryDate, err = time.Parse(dateFormat, expiryDate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse expiry date: %w", err)
		}
		purchase.Details = append(purchase.Details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate purchase rows: %w", err)
	}

	if purchase == nil {
		return nil, fmt.Errorf("bill %s: %w", billNo, storage.ErrNotFound)
	}

	return purchase, nil
}

// UpdateDetailMRP sets the unit price of one purchase detail.
// item_total and the parent bill_total keep their import-time values.
func (s *SQLiteStore) UpdateDetailMRP(ctx context.Context, id int64, mrp float64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE purchase_details SET mrp = ? WHERE id = ?",
		mrp, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update purchase detail: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("purchase detail %d: %w", id, storage.ErrNotFound)
	}

	return nil
}

// DeleteDetail removes one purchase detail row.
func (s *SQLiteStore) DeleteDetail(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM purchase_details WHERE id = ?",
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete purchase detail: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("purchase detail %d: %w", id, storage.ErrNotFound)
	}

	return nil
}

// ListPurchaseRows returns every purchase joined with its details.
func (s *SQLiteStore) ListPurchaseRows(ctx context.Context) ([]models.PurchaseRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.bill_no, p.bill_date, p.bill_total,
		        pd.medicine_name, pd.quantity, pd.mrp, pd.item_total, pd.expiry_date
		 FROM purchases AS p
		 INNER JOIN purchase_details AS pd ON p.id = pd.purchase_id
		 ORDER BY p.id, pd.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchase rows: %w", err)
	}
	defer rows.Close()

	var result []models.PurchaseRow
	for rows.Next() {
		var (
			row                  models.PurchaseRow
			billDate, expiryDate string
		)
		if err := rows.Scan(&row.BillNo, &billDate, &row.BillTotal,
			&row.MedicineName, &row.Quantity, &row.MRP, &row.ItemTotal, &expiryDate); err != nil {
			return nil, fmt.Errorf("failed to scan purchase row: %w", err)
		}

		row.BillDate, err = time.Parse(dateFormat, billDate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse bill date: %w", err)
		}
		row.ExpiryDate, err = time.Parse(dateFormat, expiryDate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse expiry date: %w", err)
		}

		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate purchase rows: %w", err)
	}

	return result, nil
}
