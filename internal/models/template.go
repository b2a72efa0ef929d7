package models

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

// EmailTemplate holds a reusable subject/body pair. Both fields are Go
// text/template sources rendered against a TemplateContext.
type EmailTemplate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// UserID is the owner of this template
	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	Name    string `gorm:"size:255;not null" json:"name"`
	Subject string `gorm:"size:500;not null" json:"subject"`
	Body    string `gorm:"type:text;not null" json:"body"`

	Automations []Automation `gorm:"foreignKey:EmailTemplateID" json:"automations,omitempty"`
}

// TemplateContext is the data available to template placeholders, e.g.
// {{.ClientName}} or {{.InvoiceTotal}}.
type TemplateContext struct {
	UserName      string
	ClientName    string
	ClientEmail   string
	InvoiceNumber string
	InvoiceTotal  string
	DueDate       string
	IssueDate     string
}

// NewTemplateContext builds the render context for an invoice and its
// preloaded client.
func NewTemplateContext(user *User, inv *Invoice) TemplateContext {
	ctx := TemplateContext{}
	if user != nil {
		ctx.UserName = user.Name
	}
	if inv != nil {
		ctx.InvoiceNumber = inv.Number
		ctx.InvoiceTotal = fmt.Sprintf("%.2f", inv.Total)
		ctx.DueDate = inv.DueDate.Format("2006-01-02")
		ctx.IssueDate = inv.IssueDate.Format("2006-01-02")
		if inv.Client != nil {
			ctx.ClientName = inv.Client.Name
			ctx.ClientEmail = inv.Client.Email
		}
	}
	return ctx
}

// Render executes the subject and body templates against ctx.
func (t *EmailTemplate) Render(ctx TemplateContext) (subject, body string, err error) {
	subject, err = renderOne("subject", t.Subject, ctx)
	if err != nil {
		return "", "", err
	}
	body, err = renderOne("body", t.Body, ctx)
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

// Validate parses both templates without executing them, so malformed
// placeholders are rejected at write time rather than at send time.
func (t *EmailTemplate) Validate() error {
	if _, err := template.New("subject").Parse(t.Subject); err != nil {
		return fmt.Errorf("subject template: %w", err)
	}
	if _, err := template.New("body").Parse(t.Body); err != nil {
		return fmt.Errorf("body template: %w", err)
	}
	return nil
}

func renderOne(name, src string, ctx TemplateContext) (string, error) {
	tmpl, err := template.New(name).Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("execute %s template: %w", name, err)
	}
	return buf.String(), nil
}
