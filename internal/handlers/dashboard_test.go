package handlers

import (
	"net/http"
	"testing"

	"github.com/billflow/billflow/internal/models"
	"github.com/billflow/billflow/internal/services"
)

func TestDashboardHandler(t *testing.T) {
	conn := setupTestDB(t)
	user := newUser(t, conn, "owner@example.com")
	client := newClient(t, conn, user.ID, "Acme", "")
	newInvoice(t, conn, user.ID, client.ID, "INV-2026-0001", models.InvoiceStatusPaid, 100)
	newInvoice(t, conn, user.ID, client.ID, "INV-2026-0002", models.InvoiceStatusSent, 50)

	h := NewDashboardHandler(services.NewInvoiceService(conn, nil))
	rr := serve("GET /api/dashboard", h.Get, jsonReq(t, http.MethodGet, "/api/dashboard", user.ID, nil))
	wantStatus(t, rr, http.StatusOK)

	var stats services.DashboardStats
	decodeBody(t, rr, &stats)
	if stats.Revenue != 100 || stats.PaidCount != 1 {
		t.Errorf("revenue/paid = %v/%d, want 100/1", stats.Revenue, stats.PaidCount)
	}
	if stats.PendingAmount != 50 || stats.PendingCount != 1 {
		t.Errorf("pending = %v/%d, want 50/1", stats.PendingAmount, stats.PendingCount)
	}
	if stats.ClientCount != 1 || stats.InvoiceCount != 2 {
		t.Errorf("clients/invoices = %d/%d, want 1/2", stats.ClientCount, stats.InvoiceCount)
	}
	if len(stats.Recent) != 2 {
		t.Errorf("recent = %d, want 2", len(stats.Recent))
	}
}
