package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/billflow/billflow/internal/mailer"
	"github.com/billflow/billflow/internal/models"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// AutomationEngine evaluates triggers and delivers automation email.
// Event triggers (created/sent/paid) are fired synchronously from the
// invoice lifecycle; overdue and scheduled triggers are driven by a
// periodic sweep. Every dispatch, including failures and skips, is
// recorded as an AutomationRun.
type AutomationEngine struct {
	db     *gorm.DB
	sender mailer.Sender
	cron   *cron.Cron
	// now is swappable so tests can drive the sweep with a fixed clock.
	now func() time.Time
}

func NewAutomationEngine(db *gorm.DB, sender mailer.Sender) *AutomationEngine {
	return &AutomationEngine{db: db, sender: sender, now: time.Now}
}

// Start registers the periodic sweep with the given cron spec and starts
// the scheduler. Returns an error for a malformed spec.
func (e *AutomationEngine) Start(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx := context.Background()
		if err := e.SweepOverdue(ctx); err != nil {
			log.Printf("automation: overdue sweep failed: %v", err)
		}
		if err := e.RunScheduled(ctx); err != nil {
			log.Printf("automation: scheduled run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}
	e.cron = c
	c.Start()
	log.Printf("automation scheduler started (spec %q)", spec)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (e *AutomationEngine) Stop() {
	if e.cron != nil {
		<-e.cron.Stop().Done()
	}
}

// Fire dispatches all active automations of the given trigger owned by the
// invoice's user. A failing automation is logged and does not block the
// others.
func (e *AutomationEngine) Fire(ctx context.Context, trigger models.AutomationTrigger, inv *models.Invoice) {
	var automations []models.Automation
	err := e.db.WithContext(ctx).
		Where("user_id = ? AND trigger_type = ? AND active = ?", inv.UserID, trigger, true).
		Preload("EmailTemplate").
		Find(&automations).Error
	if err != nil {
		log.Printf("automation: load %s automations: %v", trigger, err)
		return
	}
	for i := range automations {
		e.dispatch(ctx, &automations[i], inv)
	}
}

// dispatch renders the automation's template against the invoice and sends
// it to the invoice's client, recording the outcome.
func (e *AutomationEngine) dispatch(ctx context.Context, a *models.Automation, inv *models.Invoice) {
	run := models.AutomationRun{
		AutomationID: a.ID,
		RanAt:        e.now(),
	}
	if inv != nil {
		run.InvoiceID = &inv.ID
	}

	switch {
	case a.EmailTemplate == nil:
		run.Status = models.RunStatusSkipped
		run.Error = "no email template configured"
	case inv != nil && (inv.Client == nil || inv.Client.Email == ""):
		run.Status = models.RunStatusSkipped
		run.Error = "client has no email address"
	default:
		var user models.User
		if err := e.db.WithContext(ctx).First(&user, a.UserID).Error; err != nil {
			run.Status = models.RunStatusFailed
			run.Error = err.Error()
			break
		}
		recipient := user.Email
		if inv != nil {
			recipient = inv.Client.Email
		}
		subject, body, err := a.EmailTemplate.Render(models.NewTemplateContext(&user, inv))
		if err != nil {
			run.Status = models.RunStatusFailed
			run.Error = err.Error()
			break
		}
		run.Recipient = recipient
		run.Subject = subject
		if err := e.sender.Send(ctx, mailer.Message{To: recipient, Subject: subject, Body: body}); err != nil {
			run.Status = models.RunStatusFailed
			run.Error = err.Error()
		} else {
			run.Status = models.RunStatusSent
		}
	}

	if err := e.db.WithContext(ctx).Create(&run).Error; err != nil {
		log.Printf("automation %d: record run: %v", a.ID, err)
	}
	if run.Status == models.RunStatusFailed {
		log.Printf("automation %d (%s): %s", a.ID, a.Name, run.Error)
	}
}

// SweepOverdue flips sent invoices past their due date to overdue and
// fires invoice_overdue automations. An automation's grace period delays
// its dispatch past the due date; the AutomationRun log guarantees at most
// one dispatch per (automation, invoice) pair.
func (e *AutomationEngine) SweepOverdue(ctx context.Context) error {
	now := e.now()

	// Status transition first: an invoice is overdue the moment its due
	// date passes, independent of any automation's grace period.
	var due []models.Invoice
	err := e.db.WithContext(ctx).
		Where("status = ? AND due_date < ?", models.InvoiceStatusSent, now).
		Preload("Client").
		Find(&due).Error
	if err != nil {
		return err
	}
	for i := range due {
		if err := e.db.WithContext(ctx).Model(&due[i]).Update("status", models.InvoiceStatusOverdue).Error; err != nil {
			return err
		}
		due[i].Status = models.InvoiceStatusOverdue
	}

	// Dispatch against every overdue invoice that has not been handled
	// yet, not just the ones flipped this sweep, so automations created
	// after an invoice went overdue still fire.
	var overdue []models.Invoice
	err = e.db.WithContext(ctx).
		Where("status = ?", models.InvoiceStatusOverdue).
		Preload("Client").
		Find(&overdue).Error
	if err != nil {
		return err
	}

	var automations []models.Automation
	err = e.db.WithContext(ctx).
		Where("trigger_type = ? AND active = ?", models.TriggerInvoiceOverdue, true).
		Preload("EmailTemplate").
		Find(&automations).Error
	if err != nil {
		return err
	}

	for i := range automations {
		a := &automations[i]
		cfg, err := a.OverdueConfig()
		if err != nil {
			log.Printf("automation %d: bad trigger_data: %v", a.ID, err)
			continue
		}
		for j := range overdue {
			inv := &overdue[j]
			if inv.UserID != a.UserID {
				continue
			}
			if now.Before(inv.DueDate.AddDate(0, 0, cfg.GraceDays)) {
				continue
			}
			handled, err := e.alreadyRan(ctx, a.ID, inv.ID)
			if err != nil {
				return err
			}
			if handled {
				continue
			}
			e.dispatch(ctx, a, inv)
		}
	}
	return nil
}

// RunScheduled fires every active scheduled automation whose cron schedule
// has elapsed since its last run (or since creation for the first run).
func (e *AutomationEngine) RunScheduled(ctx context.Context) error {
	now := e.now()

	var automations []models.Automation
	err := e.db.WithContext(ctx).
		Where("trigger_type = ? AND active = ?", models.TriggerScheduled, true).
		Preload("EmailTemplate").
		Find(&automations).Error
	if err != nil {
		return err
	}

	for i := range automations {
		a := &automations[i]
		cfg, err := a.ScheduleConfig()
		if err != nil {
			log.Printf("automation %d: bad schedule: %v", a.ID, err)
			continue
		}
		sched, err := cron.ParseStandard(cfg.Schedule)
		if err != nil {
			log.Printf("automation %d: parse schedule: %v", a.ID, err)
			continue
		}
		last := a.CreatedAt
		if a.LastRunAt != nil {
			last = *a.LastRunAt
		}
		if sched.Next(last).After(now) {
			continue
		}
		e.dispatch(ctx, a, nil)
		if err := e.db.WithContext(ctx).Model(a).Update("last_run_at", now).Error; err != nil {
			return err
		}
		a.LastRunAt = &now
	}
	return nil
}

func (e *AutomationEngine) alreadyRan(ctx context.Context, automationID, invoiceID uint) (bool, error) {
	var count int64
	err := e.db.WithContext(ctx).Model(&models.AutomationRun{}).
		Where("automation_id = ? AND invoice_id = ?", automationID, invoiceID).
		Count(&count).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	return count > 0, nil
}
