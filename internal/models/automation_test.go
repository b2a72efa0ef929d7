package models

import (
	"testing"
)

func TestAutomationTrigger_Valid(t *testing.T) {
	for _, tr := range []AutomationTrigger{TriggerInvoiceCreated, TriggerInvoiceSent, TriggerInvoiceOverdue, TriggerInvoicePaid, TriggerScheduled} {
		if !tr.Valid() {
			t.Errorf("%s should be valid", tr)
		}
	}
	if AutomationTrigger("invoice_viewed").Valid() {
		t.Error("unknown trigger should not be valid")
	}
}

func TestAutomation_ScheduleConfig(t *testing.T) {
	tests := []struct {
		name    string
		trigger AutomationTrigger
		data    string
		wantErr bool
		want    string
	}{
		{"valid daily", TriggerScheduled, `{"schedule":"0 9 * * *"}`, false, "0 9 * * *"},
		{"missing payload", TriggerScheduled, "", true, ""},
		{"bad cron expression", TriggerScheduled, `{"schedule":"not a cron"}`, true, ""},
		{"wrong trigger kind", TriggerInvoicePaid, `{"schedule":"0 9 * * *"}`, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Automation{Trigger: tt.trigger, TriggerData: TriggerData(tt.data)}
			cfg, err := a.ScheduleConfig()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ScheduleConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && cfg.Schedule != tt.want {
				t.Errorf("Schedule = %q, want %q", cfg.Schedule, tt.want)
			}
		})
	}
}

func TestAutomation_OverdueConfig(t *testing.T) {
	a := &Automation{Trigger: TriggerInvoiceOverdue, TriggerData: TriggerData(`{"grace_days":3}`)}
	cfg, err := a.OverdueConfig()
	if err != nil {
		t.Fatalf("OverdueConfig() error = %v", err)
	}
	if cfg.GraceDays != 3 {
		t.Errorf("GraceDays = %d, want 3", cfg.GraceDays)
	}

	// No payload means no grace period.
	a = &Automation{Trigger: TriggerInvoiceOverdue}
	cfg, err = a.OverdueConfig()
	if err != nil {
		t.Fatalf("OverdueConfig() without payload error = %v", err)
	}
	if cfg.GraceDays != 0 {
		t.Errorf("GraceDays = %d, want 0", cfg.GraceDays)
	}

	a = &Automation{Trigger: TriggerInvoiceOverdue, TriggerData: TriggerData(`{"grace_days":-1}`)}
	if _, err := a.OverdueConfig(); err == nil {
		t.Error("negative grace_days should be rejected")
	}
}

func TestAutomation_ValidateTriggerData(t *testing.T) {
	tests := []struct {
		name    string
		trigger AutomationTrigger
		data    string
		wantErr bool
	}{
		{"event trigger without payload", TriggerInvoiceCreated, "", false},
		{"event trigger with empty object", TriggerInvoiceSent, `{}`, false},
		{"event trigger with payload", TriggerInvoicePaid, `{"schedule":"x"}`, true},
		{"scheduled with valid payload", TriggerScheduled, `{"schedule":"*/10 * * * *"}`, false},
		{"scheduled without payload", TriggerScheduled, "", true},
		{"overdue with grace", TriggerInvoiceOverdue, `{"grace_days":7}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Automation{Trigger: tt.trigger, TriggerData: TriggerData(tt.data)}
			err := a.ValidateTriggerData()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTriggerData() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTriggerData_Scan(t *testing.T) {
	var d TriggerData
	if err := d.Scan([]byte(`{"grace_days":1}`)); err != nil {
		t.Fatalf("Scan bytes: %v", err)
	}
	if string(d) != `{"grace_days":1}` {
		t.Errorf("scanned %q", string(d))
	}
	if err := d.Scan(nil); err != nil {
		t.Fatalf("Scan nil: %v", err)
	}
	if d != nil {
		t.Error("nil scan should clear the payload")
	}
	if err := d.Scan(42); err == nil {
		t.Error("unsupported type should error")
	}
}

func TestTriggerData_JSON(t *testing.T) {
	var d TriggerData
	if err := d.UnmarshalJSON([]byte("null")); err != nil {
		t.Fatalf("UnmarshalJSON null: %v", err)
	}
	out, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(out) != "null" {
		t.Errorf("empty payload marshals to %q, want null", out)
	}

	if err := d.UnmarshalJSON([]byte(`{"schedule":"0 9 * * 1"}`)); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	out, _ = d.MarshalJSON()
	if string(out) != `{"schedule":"0 9 * * 1"}` {
		t.Errorf("round trip = %q", out)
	}
}
