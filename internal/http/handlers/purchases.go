package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"pharmacy-backend/internal/exporter"
	"pharmacy-backend/internal/http/response"
	"pharmacy-backend/internal/importer"
	"pharmacy-backend/internal/middleware"
	"pharmacy-backend/internal/models"
	"pharmacy-backend/internal/storage"
)

const (
	dateFormat = "2006-01-02"

	// maxUploadSize bounds the multipart form held in memory.
	maxUploadSize = 32 << 20
)

// PurchaseHandler serves import, query, mutation and export of purchases.
type PurchaseHandler struct {
	store          storage.Store
	uploadDir      string
	exportPath     string
	requestTimeout time.Duration
	logger         *slog.Logger
}

// NewPurchaseHandler creates a new purchase handler. requestTimeout bounds
// the datastore work of each request; zero means no bound.
func NewPurchaseHandler(store storage.Store, uploadDir, exportPath string, requestTimeout time.Duration, logger *slog.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		store:          store,
		uploadDir:      uploadDir,
		exportPath:     exportPath,
		requestTimeout: requestTimeout,
		logger:         logger,
	}
}

func (h *PurchaseHandler) context(r *http.Request) (context.Context, context.CancelFunc) {
	if h.requestTimeout <= 0 {
		return r.Context(), func() {}
	}
	return context.WithTimeout(r.Context(), h.requestTimeout)
}

// purchaseDetailView is the wire shape of one line item.
type purchaseDetailView struct {
	ID           int64   `json:"id"`
	MedicineName string  `json:"medicine_name"`
	Quantity     int     `json:"quantity"`
	MRP          float64 `json:"mrp"`
	ItemTotal    float64 `json:"item_total"`
	ExpiryDate   string  `json:"expiry_date"`
}

// purchaseView is the wire shape of a bill with its line items.
type purchaseView struct {
	BillNo          string               `json:"bill_no"`
	BillDate        string               `json:"bill_date"`
	BillTotal       float64              `json:"bill_total"`
	PurchaseDetails []purchaseDetailView `json:"purchase_details"`
}

func toView(p *models.Purchase) purchaseView {
	view := purchaseView{
		BillNo:          p.BillNo,
		BillDate:        p.BillDate.Format(dateFormat),
		BillTotal:       p.BillTotal,
		PurchaseDetails: make([]purchaseDetailView, 0, len(p.Details)),
	}
	for _, d := range p.Details {
		view.PurchaseDetails = append(view.PurchaseDetails, purchaseDetailView{
			ID:           d.ID,
			MedicineName: d.MedicineName,
			Quantity:     d.Quantity,
			MRP:          d.MRP,
			ItemTotal:    d.ItemTotal,
			ExpiryDate:   d.ExpiryDate.Format(dateFormat),
		})
	}
	return view
}

// ImportCSV accepts a multipart CSV upload, saves it to the uploads
// directory, parses and reconciles it, and persists one transaction per
// bill group. Parsing happens entirely before persistence, so a malformed
// file inserts nothing.
func (h *PurchaseHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		response.Error(w, http.StatusBadRequest, "No file found in the request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "No file found in the request")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		response.Error(w, http.StatusBadRequest, "No selected csv file")
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		response.Error(w, http.StatusBadRequest, "Invalid file type, only CSV files are allowed")
		return
	}

	savedPath, err := h.saveUpload(file, header.Filename)
	if err != nil {
		h.logger.Error("Failed to save upload", "filename", header.Filename, "error", err)
		response.Error(w, http.StatusInternalServerError, "Error processing file")
		return
	}

	saved, err := os.Open(savedPath)
	if err != nil {
		h.logger.Error("Failed to open saved upload", "path", savedPath, "error", err)
		response.Error(w, http.StatusInternalServerError, "Error processing file")
		return
	}
	defer saved.Close()

	purchases, err := importer.Parse(saved)
	if err != nil {
		h.logger.Error("Failed to parse purchase CSV", "path", savedPath, "error", err)
		response.Error(w, http.StatusInternalServerError, "Error processing file")
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	// One transaction per bill group; earlier groups stay committed if a
	// later one fails.
	for _, purchase := range purchases {
		if err := h.store.CreatePurchase(ctx, purchase); err != nil {
			h.logger.Error("Failed to persist purchase",
				"bill_no", purchase.BillNo, "error", err)
			response.Error(w, http.StatusInternalServerError, "Error processing file")
			return
		}
	}

	h.logger.Info("Purchase CSV imported",
		"filename", header.Filename,
		"bills", len(purchases),
		"user", middleware.GetUsername(r.Context()),
	)
	response.Success(w, http.StatusOK, "Data processed and inserted successfully", nil)
}

// saveUpload stores the uploaded file under the uploads directory with a
// uuid-prefixed sanitized name so concurrent uploads cannot collide.
func (h *PurchaseHandler) saveUpload(file io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	name := uuid.NewString() + "_" + filepath.Base(filename)
	path := filepath.Join(h.uploadDir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("failed to save upload file: %w", err)
	}

	return path, dst.Close()
}

// GetPurchase returns one bill with all of its line items.
func (h *PurchaseHandler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	billNo := mux.Vars(r)["bill_no"]

	ctx, cancel := h.context(r)
	defer cancel()

	purchase, err := h.store.GetPurchaseByBillNo(ctx, billNo)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.Error(w, http.StatusNotFound, fmt.Sprintf("No purchase found for bill number %s", billNo))
			return
		}
		h.logger.Error("Failed to get purchase", "bill_no", billNo, "error", err)
		response.Error(w, http.StatusInternalServerError, "An error occurred")
		return
	}

	response.Success(w, http.StatusOK, "Purchase data retrieved successfully", toView(purchase))
}

// updatePriceRequest is the body of price-correction requests. MRP is a
// pointer so an absent field is distinguishable from zero; both are rejected.
type updatePriceRequest struct {
	MRP *float64 `json:"mrp"`
}

// UpdatePrice corrects the unit price of one line item. The line's
// item_total and the parent bill_total are deliberately left at their
// import-time values.
func (h *PurchaseHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid id")
		return
	}

	var req updatePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "MRP is required")
		return
	}
	if req.MRP == nil || *req.MRP <= 0 {
		response.Error(w, http.StatusBadRequest, "MRP value must be greater than zero")
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	if err := h.store.UpdateDetailMRP(ctx, id, *req.MRP); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.Error(w, http.StatusNotFound, fmt.Sprintf("Record with id %d not found", id))
			return
		}
		h.logger.Error("Failed to update purchase detail", "id", id, "error", err)
		response.Error(w, http.StatusInternalServerError, "An error occurred")
		return
	}

	response.Success(w, http.StatusOK, "Record updated successfully", nil)
}

// DeleteDetail removes one line item. Deletes are not idempotent: a second
// delete of the same id returns 404.
func (h *PurchaseHandler) DeleteDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid id")
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	if err := h.store.DeleteDetail(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.Error(w, http.StatusNotFound, fmt.Sprintf("Record with id %d not found", id))
			return
		}
		h.logger.Error("Failed to delete purchase detail", "id", id, "error", err)
		response.Error(w, http.StatusInternalServerError, "An error occurred")
		return
	}

	response.Success(w, http.StatusOK, "Record deleted successfully", nil)
}

// ExportCSV writes every purchase row to the fixed export path,
// overwriting any previous export, and returns the path.
func (h *PurchaseHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	rows, err := h.store.ListPurchaseRows(ctx)
	if err != nil {
		h.logger.Error("Failed to list purchase rows", "error", err)
		response.Error(w, http.StatusInternalServerError, "An error occurred")
		return
	}
	if len(rows) == 0 {
		response.Error(w, http.StatusNotFound, "No purchase data found")
		return
	}

	if err := exporter.Write(h.exportPath, rows); err != nil {
		h.logger.Error("Failed to write export file", "path", h.exportPath, "error", err)
		response.Error(w, http.StatusInternalServerError, "An error occurred")
		return
	}

	h.logger.Info("Purchase CSV exported", "path", h.exportPath, "rows", len(rows))
	response.Success(w, http.StatusOK, "CSV file created successfully", map[string]string{
		"file": h.exportPath,
	})
}
