package validation

import (
	"math"
	"testing"
	"time"
)

func TestRequired(t *testing.T) {
	v := make(Violations)
	Required("name", "Acme", v)
	Required("email", "   ", v)
	if _, ok := v["name"]; ok {
		t.Error("non-empty value flagged")
	}
	if v["email"] != "required" {
		t.Errorf("email violation = %q, want required", v["email"])
	}
}

func TestPositive(t *testing.T) {
	tests := []struct {
		name string
		val  float64
		want string
	}{
		{"positive", 1.5, ""},
		{"zero", 0, "must_be_positive"},
		{"negative", -2, "must_be_positive"},
		{"nan", math.NaN(), "not_a_number"},
		{"inf", math.Inf(1), "not_a_number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := make(Violations)
			Positive("quantity", tt.val, v)
			if v["quantity"] != tt.want {
				t.Errorf("violation = %q, want %q", v["quantity"], tt.want)
			}
		})
	}
}

func TestNonNegative(t *testing.T) {
	v := make(Violations)
	NonNegative("unit_price", 0, v)
	if !v.Empty() {
		t.Error("zero should be allowed")
	}
	NonNegative("unit_price", -1, v)
	if v["unit_price"] != "must_not_be_negative" {
		t.Errorf("violation = %q", v["unit_price"])
	}
}

func TestDateOrder(t *testing.T) {
	issue := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	v := make(Violations)
	DateOrder("due_date", issue, issue.AddDate(0, 0, 30), v)
	if !v.Empty() {
		t.Error("later due date should be allowed")
	}
	DateOrder("due_date", issue, issue, v)
	if !v.Empty() {
		t.Error("same-day due date should be allowed")
	}
	DateOrder("due_date", issue, issue.AddDate(0, 0, -1), v)
	if v["due_date"] != "before_issue_date" {
		t.Errorf("violation = %q", v["due_date"])
	}
}
