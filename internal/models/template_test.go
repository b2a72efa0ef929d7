package models

import (
	"strings"
	"testing"
	"time"
)

func testContext() TemplateContext {
	due := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	issue := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	user := &User{Name: "Ada"}
	inv := &Invoice{
		Number:  "INV-2026-0007",
		Total:   125,
		DueDate: due, IssueDate: issue,
		Client: &Client{Name: "Acme Corp", Email: "billing@acme.test"},
	}
	return NewTemplateContext(user, inv)
}

func TestEmailTemplate_Render(t *testing.T) {
	tmpl := &EmailTemplate{
		Subject: "Invoice {{.InvoiceNumber}} is due",
		Body:    "Dear {{.ClientName}}, invoice {{.InvoiceNumber}} for {{.InvoiceTotal}} is due on {{.DueDate}}.",
	}
	subject, body, err := tmpl.Render(testContext())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if subject != "Invoice INV-2026-0007 is due" {
		t.Errorf("subject = %q", subject)
	}
	if !strings.Contains(body, "Dear Acme Corp") {
		t.Errorf("body missing client name: %q", body)
	}
	if !strings.Contains(body, "125.00") {
		t.Errorf("body missing total: %q", body)
	}
	if !strings.Contains(body, "2026-03-15") {
		t.Errorf("body missing due date: %q", body)
	}
}

func TestEmailTemplate_RenderBadPlaceholder(t *testing.T) {
	tmpl := &EmailTemplate{Subject: "ok", Body: "{{.DoesNotExist}}"}
	if _, _, err := tmpl.Render(testContext()); err == nil {
		t.Error("unknown field should fail at render")
	}
}

func TestEmailTemplate_Validate(t *testing.T) {
	good := &EmailTemplate{Subject: "Invoice {{.InvoiceNumber}}", Body: "Hello {{.ClientName}}"}
	if err := good.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
	bad := &EmailTemplate{Subject: "ok", Body: "{{.Unclosed"}
	if err := bad.Validate(); err == nil {
		t.Error("malformed template should be rejected")
	}
}

func TestNewTemplateContext_NilInvoice(t *testing.T) {
	ctx := NewTemplateContext(&User{Name: "Ada"}, nil)
	if ctx.UserName != "Ada" {
		t.Errorf("UserName = %q", ctx.UserName)
	}
	if ctx.ClientName != "" || ctx.InvoiceNumber != "" {
		t.Error("invoice fields should be empty without an invoice")
	}
}
