package models

import (
	"testing"
)

func TestInvoiceItem_ComputeAmount(t *testing.T) {
	tests := []struct {
		name      string
		quantity  float64
		unitPrice float64
		want      float64
	}{
		{"2 x 50", 2, 50, 100},
		{"1 x 25", 1, 25, 25},
		{"fractional quantity", 2.5, 10, 25},
		{"zero price", 3, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &InvoiceItem{Quantity: tt.quantity, UnitPrice: tt.unitPrice}
			item.ComputeAmount()
			if item.Amount != tt.want {
				t.Errorf("Amount = %f, want %f", item.Amount, tt.want)
			}
		})
	}
}

func TestInvoice_ComputeTotals(t *testing.T) {
	inv := &Invoice{
		Items: []InvoiceItem{
			{Quantity: 2, UnitPrice: 50},
			{Quantity: 1, UnitPrice: 25},
		},
	}
	inv.ComputeTotals()

	if inv.Items[0].Amount != 100 || inv.Items[1].Amount != 25 {
		t.Errorf("item amounts = [%f, %f], want [100, 25]", inv.Items[0].Amount, inv.Items[1].Amount)
	}
	if inv.Subtotal != 125 {
		t.Errorf("Subtotal = %f, want 125", inv.Subtotal)
	}
	if inv.Tax != 0 {
		t.Errorf("Tax = %f, want 0", inv.Tax)
	}
	if inv.Total != 125 {
		t.Errorf("Total = %f, want 125", inv.Total)
	}
}

func TestInvoice_ComputeTotalsWithTaxRate(t *testing.T) {
	inv := &Invoice{
		TaxRate: 0.2,
		Items: []InvoiceItem{
			{Quantity: 2, UnitPrice: 100},
		},
	}
	inv.ComputeTotals()

	if inv.Subtotal != 200 {
		t.Errorf("Subtotal = %f, want 200", inv.Subtotal)
	}
	if inv.Tax != 40 {
		t.Errorf("Tax = %f, want 40", inv.Tax)
	}
	if inv.Total != 240 {
		t.Errorf("Total = %f, want 240", inv.Total)
	}
}

func TestInvoice_ComputeTotalsEmpty(t *testing.T) {
	inv := &Invoice{}
	inv.ComputeTotals()
	if inv.Subtotal != 0 || inv.Tax != 0 || inv.Total != 0 {
		t.Errorf("empty invoice totals = %f/%f/%f, want zeros", inv.Subtotal, inv.Tax, inv.Total)
	}
}

func TestInvoice_ComputeTotalsOverwritesStaleAmounts(t *testing.T) {
	// Amounts supplied by a client are never trusted.
	inv := &Invoice{
		Items: []InvoiceItem{
			{Quantity: 2, UnitPrice: 50, Amount: 9999},
		},
	}
	inv.ComputeTotals()
	if inv.Items[0].Amount != 100 {
		t.Errorf("Amount = %f, want 100", inv.Items[0].Amount)
	}
	if inv.Total != 100 {
		t.Errorf("Total = %f, want 100", inv.Total)
	}
}

func TestInvoice_Status(t *testing.T) {
	tests := []struct {
		name    string
		status  InvoiceStatus
		isDraft bool
		canEdit bool
		isOpen  bool
	}{
		{"draft", InvoiceStatusDraft, true, true, false},
		{"sent", InvoiceStatusSent, false, false, true},
		{"paid", InvoiceStatusPaid, false, false, false},
		{"overdue", InvoiceStatusOverdue, false, false, true},
		{"cancelled", InvoiceStatusCancelled, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &Invoice{Status: tt.status}
			if got := inv.IsDraft(); got != tt.isDraft {
				t.Errorf("IsDraft() = %v, want %v", got, tt.isDraft)
			}
			if got := inv.CanEdit(); got != tt.canEdit {
				t.Errorf("CanEdit() = %v, want %v", got, tt.canEdit)
			}
			if got := inv.IsOpen(); got != tt.isOpen {
				t.Errorf("IsOpen() = %v, want %v", got, tt.isOpen)
			}
		})
	}
}

func TestInvoiceStatus_Valid(t *testing.T) {
	for _, s := range []InvoiceStatus{InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if InvoiceStatus("archived").Valid() {
		t.Error("unknown status should not be valid")
	}
}
