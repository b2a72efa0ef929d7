package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/billflow/billflow/internal/models"
	"github.com/billflow/billflow/internal/validation"
	"gorm.io/gorm"
)

// ErrNotEditable is returned when a mutation targets a non-draft invoice.
var ErrNotEditable = errors.New("invoice is not editable")

// ErrInvalidTransition is returned for lifecycle operations that do not
// apply to the invoice's current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// InvoiceService owns the invoice lifecycle: atomic create/update of an
// invoice with its items, derived-total maintenance, status transitions,
// and dashboard aggregates.
type InvoiceService struct {
	db     *gorm.DB
	engine *AutomationEngine // optional; nil disables automation dispatch
}

func NewInvoiceService(db *gorm.DB, engine *AutomationEngine) *InvoiceService {
	return &InvoiceService{db: db, engine: engine}
}

// ItemInput is one line item in a create/update request.
type ItemInput struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// InvoiceInput is the payload for creating or updating an invoice.
// Amounts are never accepted from the caller; they are derived here.
type InvoiceInput struct {
	ClientID  uint        `json:"client_id"`
	IssueDate time.Time   `json:"issue_date"`
	DueDate   time.Time   `json:"due_date"`
	TaxRate   float64     `json:"tax_rate"`
	Notes     string      `json:"notes"`
	Items     []ItemInput `json:"items"`
}

// Validate checks the input and returns field violations.
func (in *InvoiceInput) Validate() validation.Violations {
	v := make(validation.Violations)
	if in.ClientID == 0 {
		v["client_id"] = "required"
	}
	if in.IssueDate.IsZero() {
		v["issue_date"] = "required"
	}
	if in.DueDate.IsZero() {
		v["due_date"] = "required"
	} else if !in.IssueDate.IsZero() {
		validation.DateOrder("due_date", in.IssueDate, in.DueDate, v)
	}
	validation.NonNegative("tax_rate", in.TaxRate, v)
	if len(in.Items) == 0 {
		v["items"] = "required"
	}
	for idx, it := range in.Items {
		field := fmt.Sprintf("items[%d]", idx)
		validation.Required(field+".description", it.Description, v)
		validation.Positive(field+".quantity", it.Quantity, v)
		validation.NonNegative(field+".unit_price", it.UnitPrice, v)
	}
	return v
}

// Create persists a new draft invoice and its items in one transaction,
// generating the invoice number and computing all derived amounts.
func (s *InvoiceService) Create(ctx context.Context, userID uint, in InvoiceInput) (*models.Invoice, error) {
	inv := models.Invoice{
		UserID:    userID,
		ClientID:  in.ClientID,
		IssueDate: in.IssueDate,
		DueDate:   in.DueDate,
		TaxRate:   in.TaxRate,
		Notes:     in.Notes,
		Status:    models.InvoiceStatusDraft,
	}
	for _, it := range in.Items {
		inv.Items = append(inv.Items, models.InvoiceItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	inv.ComputeTotals()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Client must exist and belong to the same user.
		var client models.Client
		if err := tx.Where("id = ? AND user_id = ?", in.ClientID, userID).First(&client).Error; err != nil {
			return err
		}
		number, err := models.GenerateInvoiceNumber(tx, userID, in.IssueDate.Year())
		if err != nil {
			return err
		}
		inv.Number = number
		return tx.Create(&inv).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Preload("Client").Preload("Items").First(&inv, inv.ID).Error; err != nil {
		return nil, err
	}
	if s.engine != nil {
		s.engine.Fire(ctx, models.TriggerInvoiceCreated, &inv)
	}
	return &inv, nil
}

// Update replaces a draft invoice's fields and its full item list in one
// transaction, recomputing all derived amounts.
func (s *InvoiceService) Update(ctx context.Context, userID, id uint, in InvoiceInput) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&inv).Error; err != nil {
		return nil, err
	}
	if !inv.CanEdit() {
		return nil, ErrNotEditable
	}

	inv.ClientID = in.ClientID
	inv.IssueDate = in.IssueDate
	inv.DueDate = in.DueDate
	inv.TaxRate = in.TaxRate
	inv.Notes = in.Notes
	inv.Items = nil
	for _, it := range in.Items {
		inv.Items = append(inv.Items, models.InvoiceItem{
			InvoiceID:   inv.ID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	inv.ComputeTotals()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var client models.Client
		if err := tx.Where("id = ? AND user_id = ?", in.ClientID, userID).First(&client).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&inv.Items).Error; err != nil {
			return err
		}
		return tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).Updates(map[string]any{
			"client_id":  inv.ClientID,
			"issue_date": inv.IssueDate,
			"due_date":   inv.DueDate,
			"tax_rate":   inv.TaxRate,
			"notes":      inv.Notes,
			"subtotal":   inv.Subtotal,
			"tax":        inv.Tax,
			"total":      inv.Total,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Preload("Client").Preload("Items").First(&inv, inv.ID).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// MarkSent transitions a draft invoice to sent and fires invoice_sent
// automations. The actual email/PDF delivery is done by the caller before
// this transition.
func (s *InvoiceService) MarkSent(ctx context.Context, inv *models.Invoice) error {
	if !inv.IsDraft() {
		return ErrInvalidTransition
	}
	if err := s.db.WithContext(ctx).Model(inv).Update("status", models.InvoiceStatusSent).Error; err != nil {
		return err
	}
	inv.Status = models.InvoiceStatusSent
	if s.engine != nil {
		s.engine.Fire(ctx, models.TriggerInvoiceSent, inv)
	}
	return nil
}

// MarkPaid transitions an open invoice to paid, stamps the payment date,
// and fires invoice_paid automations.
func (s *InvoiceService) MarkPaid(ctx context.Context, inv *models.Invoice, paidAt time.Time) error {
	if !inv.IsOpen() {
		return ErrInvalidTransition
	}
	if err := s.db.WithContext(ctx).Model(inv).Updates(map[string]any{
		"status":    models.InvoiceStatusPaid,
		"paid_date": paidAt,
	}).Error; err != nil {
		return err
	}
	inv.Status = models.InvoiceStatusPaid
	inv.PaidDate = &paidAt
	if s.engine != nil {
		s.engine.Fire(ctx, models.TriggerInvoicePaid, inv)
	}
	return nil
}

// Cancel transitions any non-paid invoice to cancelled.
func (s *InvoiceService) Cancel(ctx context.Context, inv *models.Invoice) error {
	if inv.Status == models.InvoiceStatusPaid || inv.Status == models.InvoiceStatusCancelled {
		return ErrInvalidTransition
	}
	if err := s.db.WithContext(ctx).Model(inv).Update("status", models.InvoiceStatusCancelled).Error; err != nil {
		return err
	}
	inv.Status = models.InvoiceStatusCancelled
	return nil
}

// DashboardStats is the server-computed summary for the dashboard view.
type DashboardStats struct {
	Revenue       float64          `json:"revenue"`
	PaidCount     int64            `json:"paid_count"`
	PendingCount  int64            `json:"pending_count"`
	PendingAmount float64          `json:"pending_amount"`
	OverdueCount  int64            `json:"overdue_count"`
	OverdueAmount float64          `json:"overdue_amount"`
	ClientCount   int64            `json:"client_count"`
	InvoiceCount  int64            `json:"invoice_count"`
	Recent        []models.Invoice `json:"recent_invoices"`
}

// Dashboard aggregates invoice statistics for a user in SQL rather than by
// rescanning a fetched list.
func (s *InvoiceService) Dashboard(ctx context.Context, userID uint) (*DashboardStats, error) {
	stats := &DashboardStats{}
	type sumRow struct {
		Count int64
		Total float64
	}
	sumByStatus := func(status models.InvoiceStatus) (sumRow, error) {
		var row sumRow
		err := s.db.WithContext(ctx).Model(&models.Invoice{}).
			Select("COUNT(*) AS count, COALESCE(SUM(total), 0) AS total").
			Where("user_id = ? AND status = ?", userID, status).
			Scan(&row).Error
		return row, err
	}

	paid, err := sumByStatus(models.InvoiceStatusPaid)
	if err != nil {
		return nil, err
	}
	stats.Revenue = paid.Total
	stats.PaidCount = paid.Count

	pending, err := sumByStatus(models.InvoiceStatusSent)
	if err != nil {
		return nil, err
	}
	stats.PendingCount = pending.Count
	stats.PendingAmount = pending.Total

	overdue, err := sumByStatus(models.InvoiceStatusOverdue)
	if err != nil {
		return nil, err
	}
	stats.OverdueCount = overdue.Count
	stats.OverdueAmount = overdue.Total

	if err := s.db.WithContext(ctx).Model(&models.Client{}).Where("user_id = ?", userID).Count(&stats.ClientCount).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("user_id = ?", userID).Count(&stats.InvoiceCount).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Preload("Client").Order("created_at DESC").Limit(5).Find(&stats.Recent).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
