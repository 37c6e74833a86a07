package validation

import (
	"regexp"
	"sort"
	"strings"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Err returns nil when v is empty, an *Error otherwise.
func (v Violations) Err() error {
	if v.Empty() {
		return nil
	}
	return &Error{Violations: v}
}

// Error carries field violations back to the HTTP layer.
type Error struct {
	Violations Violations
}

func (e *Error) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for f, code := range e.Violations {
		fields = append(fields, f+": "+code)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func PositiveFloat(field string, val float64, v Violations) {
	if val <= 0 {
		v[field] = "must_be_positive"
	}
}

func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if val < minVal || val > maxVal {
		v[field] = "out_of_range"
	}
}

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// HexColor accepts an empty value or #RRGGBB.
func HexColor(field, value string, v Violations) {
	if value != "" && !hexColor.MatchString(value) {
		v[field] = "invalid_color"
	}
}

// UniqueKeys rejects duplicates and keys outside allowed (when allowed is non-empty).
func UniqueKeys(field string, keys, allowed []string, v Violations) {
	known := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		known[k] = true
	}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if len(known) > 0 && !known[k] {
			v[field] = "unknown_key"
			return
		}
		if seen[k] {
			v[field] = "duplicate_key"
			return
		}
		seen[k] = true
	}
}
