package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/billflow/billflow/internal/models"
)

func TestTemplateCreateHandler(t *testing.T) {
	conn := setupTestDB(t)
	user := newUser(t, conn, "owner@example.com")
	h := NewTemplateHandler(conn)

	t.Run("created", func(t *testing.T) {
		body := map[string]any{
			"name":    "Reminder",
			"subject": "Invoice {{.InvoiceNumber}} is due",
			"body":    "Hi {{.ClientName}}, please pay {{.InvoiceTotal}}.",
		}
		rr := serve("POST /api/email-templates", h.Create, jsonReq(t, http.MethodPost, "/api/email-templates", user.ID, body))
		wantStatus(t, rr, http.StatusCreated)
	})

	t.Run("malformed placeholder rejected", func(t *testing.T) {
		body := map[string]any{
			"name":    "Broken",
			"subject": "ok",
			"body":    "Hi {{.ClientName", // unclosed action
		}
		rr := serve("POST /api/email-templates", h.Create, jsonReq(t, http.MethodPost, "/api/email-templates", user.ID, body))
		wantStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("all fields required", func(t *testing.T) {
		rr := serve("POST /api/email-templates", h.Create, jsonReq(t, http.MethodPost, "/api/email-templates", user.ID, map[string]any{"name": "x"}))
		wantStatus(t, rr, http.StatusBadRequest)

		var resp struct {
			Details map[string]string `json:"details"`
		}
		decodeBody(t, rr, &resp)
		for _, field := range []string{"subject", "body"} {
			if _, ok := resp.Details[field]; !ok {
				t.Errorf("details = %v, want violation on %q", resp.Details, field)
			}
		}
	})
}

func TestTemplateUpdateHandler(t *testing.T) {
	conn := setupTestDB(t)
	user := newUser(t, conn, "owner@example.com")
	tmpl := &models.EmailTemplate{UserID: user.ID, Name: "Reminder", Subject: "s", Body: "b"}
	if err := conn.Create(tmpl).Error; err != nil {
		t.Fatalf("create template: %v", err)
	}

	h := NewTemplateHandler(conn)
	body := map[string]any{"name": "Reminder v2", "subject": "Updated", "body": "New body"}
	rr := serve("PUT /api/email-templates/{id}", h.Update,
		jsonReq(t, http.MethodPut, fmt.Sprintf("/api/email-templates/%d", tmpl.ID), user.ID, body))
	wantStatus(t, rr, http.StatusOK)

	var got models.EmailTemplate
	conn.First(&got, tmpl.ID)
	if got.Name != "Reminder v2" || got.Subject != "Updated" {
		t.Errorf("stored = %q/%q", got.Name, got.Subject)
	}
}

func TestTemplateDeleteDetachesAutomations(t *testing.T) {
	conn := setupTestDB(t)
	user := newUser(t, conn, "owner@example.com")
	tmpl := &models.EmailTemplate{UserID: user.ID, Name: "Reminder", Subject: "s", Body: "b"}
	if err := conn.Create(tmpl).Error; err != nil {
		t.Fatalf("create template: %v", err)
	}
	a := &models.Automation{UserID: user.ID, Name: "Reminder", Trigger: models.TriggerInvoiceOverdue, EmailTemplateID: &tmpl.ID, Active: true}
	if err := conn.Create(a).Error; err != nil {
		t.Fatalf("create automation: %v", err)
	}

	h := NewTemplateHandler(conn)
	rr := serve("DELETE /api/email-templates/{id}", h.Delete,
		jsonReq(t, http.MethodDelete, fmt.Sprintf("/api/email-templates/%d", tmpl.ID), user.ID, nil))
	wantStatus(t, rr, http.StatusOK)

	// The automation survives, detached from the deleted template.
	var got models.Automation
	if err := conn.First(&got, a.ID).Error; err != nil {
		t.Fatalf("reload automation: %v", err)
	}
	if got.EmailTemplateID != nil {
		t.Errorf("email_template_id = %v, want nil", *got.EmailTemplateID)
	}
}
