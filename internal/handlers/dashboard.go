package handlers

import (
	"net/http"

	"github.com/billflow/billflow/internal/auth"
	"github.com/billflow/billflow/internal/httpx"
	"github.com/billflow/billflow/internal/services"
)

type DashboardHandler struct {
	svc *services.InvoiceService
}

func NewDashboardHandler(svc *services.InvoiceService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// Get: GET /api/dashboard — aggregates computed in SQL, not by the client.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	stats, err := h.svc.Dashboard(r.Context(), userID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_dashboard", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}
