package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/billflow/billflow/internal/auth"
	"github.com/billflow/billflow/internal/httpx"
	"github.com/billflow/billflow/internal/mailer"
	"github.com/billflow/billflow/internal/models"
	"github.com/billflow/billflow/internal/pdf"
	"github.com/billflow/billflow/internal/services"
	"gorm.io/gorm"
)

type InvoiceHandler struct {
	db     *gorm.DB
	svc    *services.InvoiceService
	sender mailer.Sender
}

func NewInvoiceHandler(db *gorm.DB, svc *services.InvoiceService, sender mailer.Sender) *InvoiceHandler {
	return &InvoiceHandler{db: db, svc: svc, sender: sender}
}

// sortColumns whitelists the sortable keys. Client name sorting needs the
// join done in List.
var sortColumns = map[string]string{
	"total":      "invoices.total",
	"due_date":   "invoices.due_date",
	"issue_date": "invoices.issue_date",
	"client":     "clients.name",
	"created_at": "invoices.created_at",
}

// List: GET /api/invoices?q=&sort=&dir=&page=&limit=
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	sortKey := r.URL.Query().Get("sort")
	column, ok := sortColumns[sortKey]
	if !ok {
		column = sortColumns["created_at"]
	}
	dir := "DESC"
	if r.URL.Query().Get("dir") == "asc" {
		dir = "ASC"
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := (page - 1) * limit

	dbq := h.db.Model(&models.Invoice{}).
		Joins("LEFT JOIN clients ON clients.id = invoices.client_id").
		Where("invoices.user_id = ?", userID)
	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		dbq = dbq.Where(
			"LOWER(invoices.number) LIKE ? OR LOWER(clients.name) LIKE ? OR LOWER(clients.email) LIKE ? OR LOWER(invoices.status) LIKE ?",
			like, like, like, like,
		)
	}

	var total int64
	dbq.Count(&total)

	var invoices []models.Invoice
	err := dbq.Select("invoices.*").
		Order(column + " " + dir).
		Limit(limit).Offset(offset).
		Preload("Client").Preload("Items").
		Find(&invoices).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_invoices", nil)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"items": invoices, "total": total, "page": page, "limit": limit})
}

type invoiceReq struct {
	ClientID  uint                 `json:"client_id"`
	IssueDate string               `json:"issue_date"`
	DueDate   string               `json:"due_date"`
	TaxRate   float64              `json:"tax_rate"`
	Notes     string               `json:"notes"`
	Items     []services.ItemInput `json:"items"`
}

// toInput parses the date strings; parse failures land in the violations
// map so the client sees which field was malformed.
func (req *invoiceReq) toInput() (services.InvoiceInput, map[string]string) {
	bad := map[string]string{}
	issue, err := time.Parse("2006-01-02", req.IssueDate)
	if err != nil {
		bad["issue_date"] = "invalid_date"
	}
	due, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		bad["due_date"] = "invalid_date"
	}
	return services.InvoiceInput{
		ClientID:  req.ClientID,
		IssueDate: issue,
		DueDate:   due,
		TaxRate:   req.TaxRate,
		Notes:     req.Notes,
		Items:     req.Items,
	}, bad
}

// Create: POST /api/invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req invoiceReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	in, bad := req.toInput()
	v := in.Validate()
	for field, code := range bad {
		v[field] = code
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	inv, err := h.svc.Create(r.Context(), userID, in)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"client_id": "unknown_client"})
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

// Get: GET /api/invoices/{id}
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.load(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Update: PUT /api/invoices/{id} — draft only, replaces the item list.
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req invoiceReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	in, bad := req.toInput()
	v := in.Validate()
	for field, code := range bad {
		v[field] = code
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	inv, err := h.svc.Update(r.Context(), userID, id, in)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		case errors.Is(err, services.ErrNotEditable):
			httpx.JSONError(w, http.StatusConflict, "not_editable", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_invoice", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Delete: DELETE /api/invoices/{id} — draft only; items cascade.
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.load(w, r)
	if !ok {
		return
	}
	if !inv.CanEdit() {
		httpx.JSONError(w, http.StatusConflict, "not_editable", nil)
		return
	}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(inv).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type sendReq struct {
	// TemplateID optionally selects an email template; without it a plain
	// default message is used.
	TemplateID *uint `json:"template_id,omitempty"`
}

// Send: POST /api/invoices/{id}/send — emails the invoice PDF to the
// client and transitions the invoice to sent.
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	inv, ok := h.load(w, r)
	if !ok {
		return
	}
	if !inv.IsDraft() {
		httpx.JSONError(w, http.StatusConflict, "invalid_transition", nil)
		return
	}
	if inv.Client == nil || inv.Client.Email == "" {
		httpx.JSONError(w, http.StatusBadRequest, "client_has_no_email", nil)
		return
	}

	var req sendReq
	if r.ContentLength > 0 {
		if err := httpx.Decode(r, &req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	subject := fmt.Sprintf("Invoice %s", inv.Number)
	body := fmt.Sprintf("Hello %s,\n\nPlease find attached invoice %s for %.2f, due %s.\n\nRegards,\n%s",
		inv.Client.Name, inv.Number, inv.Total, inv.DueDate.Format("2006-01-02"), user.Name)
	if req.TemplateID != nil {
		var tmpl models.EmailTemplate
		if err := h.db.Where("id = ? AND user_id = ?", *req.TemplateID, userID).First(&tmpl).Error; err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "unknown_template", nil)
			return
		}
		var err error
		subject, body, err = tmpl.Render(models.NewTemplateContext(&user, inv))
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "template_render_failed", nil)
			return
		}
	}

	doc, err := renderInvoicePDF(inv, &user)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "pdf_generation_failed", nil)
		return
	}

	msg := mailer.Message{
		To:             inv.Client.Email,
		Subject:        subject,
		Body:           body,
		AttachmentName: fmt.Sprintf("invoice-%s.pdf", inv.Number),
		Attachment:     doc,
	}
	if err := h.sender.Send(r.Context(), msg); err != nil {
		httpx.JSONError(w, http.StatusBadGateway, "delivery_failed", nil)
		return
	}

	if err := h.svc.MarkSent(r.Context(), inv); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Pay: POST /api/invoices/{id}/pay
func (h *InvoiceHandler) Pay(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.svc.MarkPaid(r.Context(), inv, time.Now()); err != nil {
		if errors.Is(err, services.ErrInvalidTransition) {
			httpx.JSONError(w, http.StatusConflict, "invalid_transition", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Cancel: POST /api/invoices/{id}/cancel
func (h *InvoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.svc.Cancel(r.Context(), inv); err != nil {
		if errors.Is(err, services.ErrInvalidTransition) {
			httpx.JSONError(w, http.StatusConflict, "invalid_transition", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// PDF: GET /api/invoices/{id}/pdf
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	inv, ok := h.load(w, r)
	if !ok {
		return
	}
	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	doc, err := renderInvoicePDF(inv, &user)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "pdf_generation_failed", nil)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "invoice-"+inv.Number+".pdf"))
	_, _ = w.Write(doc)
}

// load fetches the invoice from the path id, scoped to the session user,
// with client and items preloaded. Writes the error response itself.
func (h *InvoiceHandler) load(w http.ResponseWriter, r *http.Request) (*models.Invoice, bool) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	var inv models.Invoice
	err := h.db.Where("id = ? AND user_id = ?", id, userID).
		Preload("Client").Preload("Items").
		First(&inv).Error
	if err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return nil, false
	}
	return &inv, true
}

func renderInvoicePDF(inv *models.Invoice, user *models.User) ([]byte, error) {
	data := pdf.Data{
		Number:     inv.Number,
		IssueDate:  inv.IssueDate.Format("2006-01-02"),
		DueDate:    inv.DueDate.Format("2006-01-02"),
		SellerName: user.Name,
		Subtotal:   inv.Subtotal,
		Tax:        inv.Tax,
		Total:      inv.Total,
		Notes:      inv.Notes,
	}
	if inv.Client != nil {
		data.ClientName = inv.Client.Name
		data.ClientEmail = inv.Client.Email
		data.ClientAddress = inv.Client.Address
	}
	for _, it := range inv.Items {
		data.Items = append(data.Items, pdf.Item{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Amount:      it.Amount,
		})
	}
	return pdf.Render(data)
}

// pathID parses the {id} path segment; 0 or garbage is a 404.
func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil || id == 0 {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return 0, false
	}
	return uint(id), true
}
