package validation

import (
	"math"
	"strings"
	"time"
)

// Violations maps field names to stable violation codes, returned verbatim
// in 400 responses.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

// Positive rejects zero, negative, and non-finite values.
func Positive(field string, val float64, v Violations) {
	if !isFinite(val) {
		v[field] = "not_a_number"
		return
	}
	if val <= 0 {
		v[field] = "must_be_positive"
	}
}

// NonNegative rejects negative and non-finite values.
func NonNegative(field string, val float64, v Violations) {
	if !isFinite(val) {
		v[field] = "not_a_number"
		return
	}
	if val < 0 {
		v[field] = "must_not_be_negative"
	}
}

// DateOrder checks that end does not precede start.
func DateOrder(field string, start, end time.Time, v Violations) {
	if end.Before(start) {
		v[field] = "before_issue_date"
	}
}

func isFinite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}
