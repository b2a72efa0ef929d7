package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// InvoiceStatus represents the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid,
		InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// Invoice represents a billing invoice with its line items.
// Monetary fields are float64, matching the rest of the stack; totals are
// always recomputed server-side from the items before persisting.
type Invoice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// UserID is the owner of this invoice (multi-tenant isolation)
	UserID uint `gorm:"index;not null;uniqueIndex:idx_invoices_user_number" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	// Number is unique per user, not globally: each user has their own
	// INV-YYYY-NNNN sequence.
	Number string `gorm:"size:50;not null;uniqueIndex:idx_invoices_user_number" json:"number"`

	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	IssueDate time.Time  `gorm:"not null" json:"issue_date"`
	DueDate   time.Time  `gorm:"not null" json:"due_date"`
	PaidDate  *time.Time `json:"paid_date,omitempty"`

	Status InvoiceStatus `gorm:"size:20;default:'draft'" json:"status"`

	// Derived amounts, persisted for listing/aggregation queries.
	Subtotal float64 `gorm:"not null;default:0" json:"subtotal"`
	TaxRate  float64 `gorm:"not null;default:0" json:"tax_rate"`
	Tax      float64 `gorm:"not null;default:0" json:"tax"`
	Total    float64 `gorm:"not null;default:0" json:"total"`

	Notes string `gorm:"type:text" json:"notes,omitempty"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// IsDraft returns true if the invoice has not been sent yet.
func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

// CanEdit returns true if the invoice can still be edited or deleted.
func (i *Invoice) CanEdit() bool {
	return i.Status == InvoiceStatusDraft
}

// IsOpen returns true if the invoice still awaits payment.
func (i *Invoice) IsOpen() bool {
	return i.Status == InvoiceStatusSent || i.Status == InvoiceStatusOverdue
}

// ComputeTotals recomputes every item amount and the invoice subtotal,
// tax, and total. Subtotal is the sum of item amounts, tax is subtotal
// times the invoice tax rate, total is subtotal plus tax.
func (i *Invoice) ComputeTotals() {
	var subtotal float64
	for idx := range i.Items {
		i.Items[idx].ComputeAmount()
		subtotal += i.Items[idx].Amount
	}
	i.Subtotal = subtotal
	i.Tax = subtotal * i.TaxRate
	i.Total = i.Subtotal + i.Tax
}

// InvoiceItem represents a line item on an invoice.
type InvoiceItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	InvoiceID uint     `gorm:"index;not null" json:"invoice_id"`
	Invoice   *Invoice `gorm:"foreignKey:InvoiceID" json:"-"`

	Description string  `gorm:"size:500;not null" json:"description"`
	Quantity    float64 `gorm:"type:decimal(10,3);not null;default:1" json:"quantity"`
	UnitPrice   float64 `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	// Amount is always quantity * unit_price; kept in sync by ComputeAmount.
	Amount float64 `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
}

// ComputeAmount refreshes the derived line amount.
func (item *InvoiceItem) ComputeAmount() {
	item.Amount = item.Quantity * item.UnitPrice
}

// GenerateInvoiceNumber generates the next invoice number for a user.
// Format: INV-YYYY-NNNN (e.g. INV-2026-0001), numbered per issue year.
func GenerateInvoiceNumber(db *gorm.DB, userID uint, year int) (string, error) {
	var count int64
	err := db.Model(&Invoice{}).
		Where("user_id = ? AND number LIKE ?", userID, fmt.Sprintf("INV-%d-%%", year)).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%d-%04d", year, count+1), nil
}
