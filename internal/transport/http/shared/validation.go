package shared

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"agencyerp/internal/transport/http/api"
)

type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Validator accumulates field problems across a whole payload so the client
// sees everything wrong at once instead of one error per round trip.
type Validator struct {
	byField map[string][]string
}

func NewValidator() *Validator {
	return &Validator{byField: map[string][]string{}}
}

func (v *Validator) Add(field, reason string) {
	if v == nil {
		return
	}
	field = strings.TrimSpace(field)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return
	}
	v.byField[field] = append(v.byField[field], reason)
}

func (v *Validator) Required(field, value, reason string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, reason)
	}
}

// Enum flags a value outside the allowed set. Blank values pass; pair with
// Required when the field is mandatory.
func (v *Validator) Enum(field, value string, allowed []string, reason string) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return
	}
	for _, option := range allowed {
		if value == strings.ToLower(strings.TrimSpace(option)) {
			return
		}
	}
	v.Add(field, reason)
}

func (v *Validator) Date(field, raw string) (time.Time, bool) {
	parsed, err := ParseDate(strings.TrimSpace(raw))
	if err != nil || parsed.IsZero() {
		v.Add(field, "must be a valid date in YYYY-MM-DD format")
		return time.Time{}, false
	}
	return parsed, true
}

func (v *Validator) DateOrder(startField string, start time.Time, endField string, end time.Time) {
	if start.IsZero() || end.IsZero() {
		return
	}
	if end.Before(start) {
		v.Add(startField, "must be on or before "+endField)
		v.Add(endField, "must be on or after "+startField)
	}
}

func (v *Validator) HasIssues() bool {
	return v != nil && len(v.byField) > 0
}

// Issues flattens the collected problems ordered by field so responses are
// stable regardless of check order.
func (v *Validator) Issues() []ValidationIssue {
	if !v.HasIssues() {
		return nil
	}
	fields := make([]string, 0, len(v.byField))
	for field := range v.byField {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var out []ValidationIssue
	for _, field := range fields {
		reasons := v.byField[field]
		sort.Strings(reasons)
		for _, reason := range reasons {
			out = append(out, ValidationIssue{Field: field, Reason: reason})
		}
	}
	return out
}

// Reject writes the validation failure and reports whether the handler
// should stop.
func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if !v.HasIssues() {
		return false
	}
	FailValidation(w, requestID, v.Issues())
	return true
}

func FailValidation(w http.ResponseWriter, requestID string, issues []ValidationIssue) {
	api.FailWithDetails(
		w,
		http.StatusBadRequest,
		"validation_error",
		"payload validation failed",
		map[string]any{"fields": issues},
		requestID,
	)
}
