package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/billflow/billflow/internal/auth"
	"github.com/billflow/billflow/internal/db"
	"github.com/billflow/billflow/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return conn
}

func newUser(t *testing.T, conn *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: "Test User", Password: "x"}
	if err := conn.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func newClient(t *testing.T, conn *gorm.DB, userID uint, name, email string) *models.Client {
	t.Helper()
	c := &models.Client{UserID: userID, Name: name, Email: email}
	if err := conn.Create(c).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}
	return c
}

func newInvoice(t *testing.T, conn *gorm.DB, userID, clientID uint, number string, status models.InvoiceStatus, total float64) *models.Invoice {
	t.Helper()
	issue := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	inv := &models.Invoice{
		UserID:    userID,
		ClientID:  clientID,
		Number:    number,
		IssueDate: issue,
		DueDate:   issue.AddDate(0, 0, 30),
		Status:    status,
		Items: []models.InvoiceItem{
			{Description: "Work", Quantity: 1, UnitPrice: total},
		},
	}
	inv.ComputeTotals()
	if err := conn.Create(inv).Error; err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return inv
}

// jsonReq builds an authenticated request with a JSON body. A nil body
// sends an empty request.
func jsonReq(t *testing.T, method, target string, userID uint, body any) *http.Request {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
	}
	return req
}

// serve routes the request through a mux with the given pattern so that
// r.PathValue resolves the way it does in the real server.
func serve(pattern string, handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, handler)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func wantStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}
