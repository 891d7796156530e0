// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"pharmacy-backend/internal/models"
)

// ErrNotFound is returned when a query matches no rows.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for purchase and user storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the handlers.
type Store interface {
	// CreateUser persists a new user. Fails if the username is taken.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByUsername retrieves a user by username.
	// Returns (nil, nil) if no such user exists.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// CreatePurchase persists a purchase header together with all of its
	// details as one transaction. The generated IDs are written back into
	// the purchase and its details.
	CreatePurchase(ctx context.Context, purchase *models.Purchase) error

	// GetPurchaseByBillNo retrieves a purchase with its details by bill
	// number. Returns ErrNotFound if no rows match.
	GetPurchaseByBillNo(ctx context.Context, billNo string) (*models.Purchase, error)

	// UpdateDetailMRP sets the unit price of one purchase detail.
	// It changes mrp only; item_total and the parent bill_total keep
	// their import-time values. Returns ErrNotFound for an unknown id.
	UpdateDetailMRP(ctx context.Context, id int64, mrp float64) error

	// DeleteDetail removes one purchase detail row. The parent purchase
	// and its bill_total are left untouched. Returns ErrNotFound for an
	// unknown id.
	DeleteDetail(ctx context.Context, id int64) error

	// ListPurchaseRows returns every purchase joined with its details,
	// ordered by purchase then detail id. An empty result is not an error.
	ListPurchaseRows(ctx context.Context) ([]models.PurchaseRow, error)

	// Close releases any resources held by the store.
	Close() error
}
