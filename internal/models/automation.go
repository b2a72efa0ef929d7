package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// AutomationTrigger identifies what fires an automation.
type AutomationTrigger string

const (
	TriggerInvoiceCreated AutomationTrigger = "invoice_created"
	TriggerInvoiceSent    AutomationTrigger = "invoice_sent"
	TriggerInvoiceOverdue AutomationTrigger = "invoice_overdue"
	TriggerInvoicePaid    AutomationTrigger = "invoice_paid"
	TriggerScheduled      AutomationTrigger = "scheduled"
)

// Valid reports whether t is one of the known triggers.
func (t AutomationTrigger) Valid() bool {
	switch t {
	case TriggerInvoiceCreated, TriggerInvoiceSent, TriggerInvoiceOverdue,
		TriggerInvoicePaid, TriggerScheduled:
		return true
	}
	return false
}

// TriggerData is the trigger-specific payload stored as a JSON column.
// The shape is keyed by the automation's trigger: scheduled automations
// carry a cron schedule, overdue automations an optional grace period, and
// plain event triggers carry nothing.
type TriggerData json.RawMessage

// Value implements driver.Valuer.
func (d TriggerData) Value() (driver.Value, error) {
	if len(d) == 0 {
		return nil, nil
	}
	return string(d), nil
}

// Scan implements sql.Scanner.
func (d *TriggerData) Scan(value any) error {
	if value == nil {
		*d = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*d = append((*d)[0:0], v...)
	case string:
		*d = TriggerData(v)
	default:
		return fmt.Errorf("unsupported trigger_data type %T", value)
	}
	return nil
}

// MarshalJSON renders the raw payload, or null when absent.
func (d TriggerData) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

// UnmarshalJSON stores the raw payload as-is.
func (d *TriggerData) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = nil
		return nil
	}
	*d = append((*d)[0:0], data...)
	return nil
}

// ScheduleConfig is the payload of a scheduled trigger.
type ScheduleConfig struct {
	// Schedule is a standard 5-field cron expression.
	Schedule string `json:"schedule"`
}

// OverdueConfig is the payload of an invoice_overdue trigger.
type OverdueConfig struct {
	// GraceDays delays the overdue transition past the due date.
	GraceDays int `json:"grace_days"`
}

// Automation wires a trigger to an email template. When the trigger fires
// and the automation is active, the template is rendered against the
// triggering invoice and emailed to its client.
type Automation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// UserID is the owner of this automation
	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	Name string `gorm:"size:255;not null" json:"name"`
	// Column named trigger_type: "trigger" is a reserved word in SQLite.
	Trigger     AutomationTrigger `gorm:"column:trigger_type;size:50;not null" json:"trigger"`
	TriggerData TriggerData       `gorm:"type:text" json:"trigger_data,omitempty"`

	EmailTemplateID *uint          `gorm:"index" json:"email_template_id,omitempty"`
	EmailTemplate   *EmailTemplate `gorm:"foreignKey:EmailTemplateID" json:"email_template,omitempty"`

	Active bool `gorm:"default:true" json:"active"`

	// LastRunAt tracks the last scheduled dispatch; nil until the first run.
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
}

// ScheduleConfig decodes the payload of a scheduled automation and
// validates the cron expression.
func (a *Automation) ScheduleConfig() (ScheduleConfig, error) {
	var cfg ScheduleConfig
	if a.Trigger != TriggerScheduled {
		return cfg, fmt.Errorf("trigger %q has no schedule", a.Trigger)
	}
	if len(a.TriggerData) == 0 {
		return cfg, errors.New("scheduled automation requires trigger_data.schedule")
	}
	if err := json.Unmarshal(a.TriggerData, &cfg); err != nil {
		return cfg, fmt.Errorf("decode trigger_data: %w", err)
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return cfg, fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
	}
	return cfg, nil
}

// OverdueConfig decodes the payload of an invoice_overdue automation.
// A missing payload means no grace period.
func (a *Automation) OverdueConfig() (OverdueConfig, error) {
	var cfg OverdueConfig
	if a.Trigger != TriggerInvoiceOverdue {
		return cfg, fmt.Errorf("trigger %q has no overdue config", a.Trigger)
	}
	if len(a.TriggerData) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(a.TriggerData, &cfg); err != nil {
		return cfg, fmt.Errorf("decode trigger_data: %w", err)
	}
	if cfg.GraceDays < 0 {
		return cfg, errors.New("grace_days must not be negative")
	}
	return cfg, nil
}

// ValidateTriggerData checks that the payload matches the trigger kind.
// Plain event triggers must not carry a payload.
func (a *Automation) ValidateTriggerData() error {
	switch a.Trigger {
	case TriggerScheduled:
		_, err := a.ScheduleConfig()
		return err
	case TriggerInvoiceOverdue:
		_, err := a.OverdueConfig()
		return err
	default:
		if len(a.TriggerData) > 0 && string(a.TriggerData) != "null" && string(a.TriggerData) != "{}" {
			return fmt.Errorf("trigger %q takes no trigger_data", a.Trigger)
		}
		return nil
	}
}

// AutomationRunStatus is the outcome of one automation dispatch.
type AutomationRunStatus string

const (
	RunStatusSent    AutomationRunStatus = "sent"
	RunStatusFailed  AutomationRunStatus = "failed"
	RunStatusSkipped AutomationRunStatus = "skipped"
)

// AutomationRun is the delivery log for a single dispatch of an automation.
// It doubles as the idempotency record: overdue dispatch fires at most once
// per (automation, invoice) pair.
type AutomationRun struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	AutomationID uint        `gorm:"index;not null" json:"automation_id"`
	Automation   *Automation `gorm:"foreignKey:AutomationID" json:"-"`

	// InvoiceID is nil for scheduled dispatches not tied to an invoice.
	InvoiceID *uint `gorm:"index" json:"invoice_id,omitempty"`

	Recipient string              `gorm:"size:255" json:"recipient,omitempty"`
	Subject   string              `gorm:"size:500" json:"subject,omitempty"`
	Status    AutomationRunStatus `gorm:"size:20;not null" json:"status"`
	Error     string              `gorm:"type:text" json:"error,omitempty"`
	RanAt     time.Time           `gorm:"not null" json:"ran_at"`
}
