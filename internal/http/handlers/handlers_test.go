package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pharmacy-backend/internal/auth"
	"pharmacy-backend/internal/http/router"
	"pharmacy-backend/internal/storage/sqlite"
)

const sampleCSV = "bill_no,medicine_name,quantity,mrp,expiry_date,bill_date\n" +
	"B1,Paracetamol,2,10,2026-05-01,2025-01-10\n" +
	"B1,Ibuprofen,3,5,2026-08-01,2025-01-10\n"

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	*httptest.Server
	exportPath string
}

func setupServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	exportPath := filepath.Join(t.TempDir(), "purchase_data.csv")
	r := router.Setup(store,
		auth.NewJWTManager("test-secret", time.Hour),
		auth.NewRevocationList(),
		router.Options{
			UploadDir:      t.TempDir(),
			ExportPath:     exportPath,
			RequestTimeout: 5 * time.Second,
		},
		slog.Default(),
	)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &testServer{Server: server, exportPath: exportPath}
}

func (s *testServer) request(t *testing.T, method, path, token string, body io.Reader, contentType string) (*http.Response, envelope) {
	t.Helper()

	req, err := http.NewRequest(method, s.URL+path, body)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	return resp, env
}

func (s *testServer) jsonRequest(t *testing.T, method, path, token string, body any) (*http.Response, envelope) {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	return s.request(t, method, path, token, bytes.NewReader(payload), "application/json")
}

// signupAndLogin registers a fresh user and returns a valid token.
func (s *testServer) signupAndLogin(t *testing.T) string {
	t.Helper()

	creds := map[string]string{"username": "alice", "password": "s3cret-pass"}

	resp, env := s.jsonRequest(t, http.MethodPost, "/signup", "", creds)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d (%s)", resp.StatusCode, env.Message)
	}

	resp, env = s.jsonRequest(t, http.MethodPost, "/login", "", creds)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", resp.StatusCode, env.Message)
	}

	var data struct {
		Token    string `json:"token"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode login data: %v", err)
	}
	if data.Token == "" || data.Username != "alice" {
		t.Fatalf("unexpected login data: %+v", data)
	}

	return data.Token
}

// uploadCSV posts content as a multipart file named filename.
func (s *testServer) uploadCSV(t *testing.T, token, filename, content string) (*http.Response, envelope) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	return s.request(t, http.MethodPost, "/fetch_purchase_data_from_csv", token, &buf, writer.FormDataContentType())
}

func TestSignup(t *testing.T) {
	server := setupServer(t)
	creds := map[string]string{"username": "alice", "password": "s3cret-pass"}

	resp, env := server.jsonRequest(t, http.MethodPost, "/signup", "", creds)
	if resp.StatusCode != http.StatusCreated || env.Status != "success" {
		t.Fatalf("expected 201 success, got %d %s", resp.StatusCode, env.Status)
	}

	resp, env = server.jsonRequest(t, http.MethodPost, "/signup", "", creds)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("duplicate signup: expected 400, got %d", resp.StatusCode)
	}
	if env.Message != "User already exists" {
		t.Errorf("unexpected message: %s", env.Message)
	}

	resp, _ = server.jsonRequest(t, http.MethodPost, "/signup", "", map[string]string{"username": "bob"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing password: expected 400, got %d", resp.StatusCode)
	}
}

func TestLogin(t *testing.T) {
	server := setupServer(t)
	server.signupAndLogin(t)

	resp, _ := server.jsonRequest(t, http.MethodPost, "/login", "",
		map[string]string{"username": "alice", "password": "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad password: expected 401, got %d", resp.StatusCode)
	}

	resp, _ = server.jsonRequest(t, http.MethodPost, "/login", "",
		map[string]string{"username": "ghost", "password": "whatever"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unknown user: expected 401, got %d", resp.StatusCode)
	}

	resp, _ = server.jsonRequest(t, http.MethodPost, "/login", "", map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing fields: expected 400, got %d", resp.StatusCode)
	}
}

func TestProtectedEndpointsRequireToken(t *testing.T) {
	server := setupServer(t)

	resp, env := server.request(t, http.MethodGet, "/get_purchase_data/B1", "", nil, "")
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("no token: expected 403, got %d", resp.StatusCode)
	}
	if env.Status != "error" {
		t.Errorf("expected error envelope, got %s", env.Status)
	}

	resp, _ = server.request(t, http.MethodGet, "/get_purchase_data/B1", "garbage-token", nil, "")
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("bad token: expected 403, got %d", resp.StatusCode)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	server := setupServer(t)
	token := server.signupAndLogin(t)

	resp, _ := server.request(t, http.MethodPost, "/logout", token, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}

	// The revoked token fails every subsequent protected call.
	resp, _ = server.request(t, http.MethodGet, "/get_purchase_data/B1", token, nil, "")
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("revoked token: expected 403, got %d", resp.StatusCode)
	}
	resp, _ = server.request(t, http.MethodPost, "/logout", token, nil, "")
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("second logout: expected 403, got %d", resp.StatusCode)
	}
}

func TestImportAndGetPurchase(t *testing.T) {
	server := setupServer(t)
	token := server.signupAndLogin(t)

	resp, env := server.uploadCSV(t, token, "purchases.csv", sampleCSV)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import: expected 200, got %d (%s)", resp.StatusCode, env.Message)
	}

	resp, env = server.request(t, http.MethodGet, "/get_purchase_data/B1", token, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d (%s)", resp.StatusCode, env.Message)
	}

	var data struct {
		BillNo          string  `json:"bill_no"`
		BillDate        string  `json:"bill_date"`
		BillTotal       float64 `json:"bill_total"`
		PurchaseDetails []struct {
			ID           int64   `json:"id"`
			MedicineName string  `json:"medicine_name"`
			Quantity     int     `json:"quantity"`
			MRP          float64 `json:"mrp"`
			ItemTotal    float64 `json:"item_total"`
			ExpiryDate   string  `json:"expiry_date"`
		} `json:"purchase_details"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode purchase data: %v", err)
	}

	if data.BillNo != "B1" || data.BillTotal != 35 {
		t.Errorf("expected bill B1 with total 35, got %s %v", data.BillNo, data.BillTotal)
	}
	if data.BillDate != "2025-01-10" {
		t.Errorf("bill_date: expected 2025-01-10, got %s", data.BillDate)
	}
	if len(data.PurchaseDetails) != 2 {
		t.Fatalf("expected 2 details, got %d", len(data.PurchaseDetails))
	}
	if data.PurchaseDetails[0].ItemTotal != 20 || data.PurchaseDetails[1].ItemTotal != 15 {
		t.Errorf("item totals: expected 20 and 15, got %v and %v",
			data.PurchaseDetails[0].ItemTotal, data.PurchaseDetails[1].ItemTotal)
	}
	if data.PurchaseDetails[0].ExpiryDate != "2026-05-01" {
		t.Errorf("expiry_date: expected 2026-05-01, got %s", data.PurchaseDetails[0].ExpiryDate)
	}

	resp, _ = server.request(t, http.MethodGet, "/get_purchase_data/NOPE", token, nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown bill: expected 404, got %d", resp.StatusCode)
	}
}

func TestImportRejectsBadUploads(t *testing.T) {
	server := setupServer(t)
	token := server.signupAndLogin(t)

	resp, _ := server.uploadCSV(t, token, "purchases.txt", sampleCSV)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("wrong extension: expected 400, got %d", resp.StatusCode)
	}

	resp, _ = server.request(t, http.MethodPost, "/fetch_purchase_data_from_csv", token,
		strings.NewReader("not multipart"), "text/plain")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("no file: expected 400, got %d", resp.StatusCode)
	}
}

func TestImportMalformedFileInsertsNothing(t *testing.T) {
	server := setupServer(t)
	token := server.signupAndLogin(t)

	bad := "bill_no,medicine_name,quantity,mrp,expiry_date,bill_date\n" +
		"B1,Paracetamol,2,10,2026-05-01,2025-01-10\n" +
		"B1,Ibuprofen,broken,5,2026-08-01,2025-01-10\n"

	resp, _ := server.uploadCSV(t, token, "purchases.csv", bad)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("malformed file: expected 500, got %d", resp.StatusCode)
	}

	// The good row before the bad one must not have been persisted.
	resp, _ = server.request(t, http.MethodGet, "/get_purchase_data/B1", token, nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after failed import, got %d", resp.StatusCode)
	}
}

func TestUpdatePrice(t *testing.T) {
	server := setupServer(t)
	token := server.signupAndLogin(t)

	if resp, env := server.uploadCSV(t, token, "purchases.csv", sampleCSV); resp.StatusCode != http.StatusOK {
		t.Fatalf("import failed: %d (%s)", resp.StatusCode, env.Message)
	}
	id := server.firstDetailID(t, token, "B1")

	resp, _ := server.jsonRequest(t, http.MethodPut, fmt.Sprintf("/update_purchase_detail_data/%d", id), token,
		map[string]float64{"mrp": 0})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("mrp=0: expected 400, got %d", resp.StatusCode)
	}

	resp, _ = server.jsonRequest(t, http.MethodPut, fmt.Sprintf("/update_purchase_detail_data/%d", id), token,
		map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("absent mrp: expected 400, got %d", resp.StatusCode)
	}

	resp, _ = server.jsonRequest(t, http.MethodPut, "/update_purchase_detail_data/999999", token,
		map[string]float64{"mrp": 12.5})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown id: expected 404, got %d", resp.StatusCode)
	}

	resp, env := server.jsonRequest(t, http.MethodPut, fmt.Sprintf("/update_purchase_detail_data/%d", id), token,
		map[string]float64{"mrp": 12.5})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: expected 200, got %d (%s)", resp.StatusCode, env.Message)
	}

	// mrp changed; derived totals keep their import-time values.
	_, env = server.request(t, http.MethodGet, "/get_purchase_data/B1", token, nil, "")
	var data struct {
		BillTotal       float64 `json:"bill_total"`
		PurchaseDetails []struct {
			MRP       float64 `json:"mrp"`
			ItemTotal float64 `json:"item_total"`
		} `json:"purchase_details"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode purchase data: %v", err)
	}
	if data.PurchaseDetails[0].MRP != 12.5 {
		t.Errorf("mrp: expected 12.5, got %v", data.PurchaseDetails[0].MRP)
	}
	if data.PurchaseDetails[0].ItemTotal != 20 || data.BillTotal != 35 {
		t.Errorf("totals must not be recomputed: item_total=%v bill_total=%v",
			data.PurchaseDetails[0].ItemTotal, data.BillTotal)
	}
}

func TestDeleteDetail(t *testing.T) {
	server := setupServer(t)
	token := server.signupAndLogin(t)

	if resp, env := server.uploadCSV(t, token, "purchases.csv", sampleCSV); resp.StatusCode != http.StatusOK {
		t.Fatalf("import failed: %d (%s)", resp.StatusCode, env.Message)
	}
	id := server.firstDetailID(t, token, "B1")

	resp, _ := server.request(t, http.MethodDelete, fmt.Sprintf("/delete_purchase_detail_data/%d", id), token, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first delete: expected 200, got %d", resp.StatusCode)
	}

	resp, _ = server.request(t, http.MethodDelete, fmt.Sprintf("/delete_purchase_detail_data/%d", id), token, nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", resp.StatusCode)
	}
}

func TestExport(t *testing.T) {
	server := setupServer(t)
	token := server.signupAndLogin(t)

	resp, _ := server.request(t, http.MethodGet, "/create_purchase_csv", token, nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("empty export: expected 404, got %d", resp.StatusCode)
	}

	if resp, env := server.uploadCSV(t, token, "purchases.csv", sampleCSV); resp.StatusCode != http.StatusOK {
		t.Fatalf("import failed: %d (%s)", resp.StatusCode, env.Message)
	}

	resp, env := server.request(t, http.MethodGet, "/create_purchase_csv", token, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: expected 200, got %d (%s)", resp.StatusCode, env.Message)
	}

	var data struct {
		File string `json:"file"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode export data: %v", err)
	}
	if data.File != server.exportPath {
		t.Errorf("file: expected %s, got %s", server.exportPath, data.File)
	}

	content, err := os.ReadFile(server.exportPath)
	if err != nil {
		t.Fatalf("failed to read export file: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	// Header plus one line per imported detail row.
	if len(lines) != 3 {
		t.Errorf("expected 3 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Bill No,Bill Date,Bill Total") {
		t.Errorf("unexpected header: %s", lines[0])
	}
}

// firstDetailID fetches bill billNo and returns the id of its first line item.
func (s *testServer) firstDetailID(t *testing.T, token, billNo string) int64 {
	t.Helper()

	resp, env := s.request(t, http.MethodGet, "/get_purchase_data/"+billNo, token, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get %s: expected 200, got %d", billNo, resp.StatusCode)
	}

	var data struct {
		PurchaseDetails []struct {
			ID int64 `json:"id"`
		} `json:"purchase_details"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode purchase data: %v", err)
	}
	if len(data.PurchaseDetails) == 0 {
		t.Fatalf("bill %s has no details", billNo)
	}

	return data.PurchaseDetails[0].ID
}
