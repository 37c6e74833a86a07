// Package status defines, per document type, the legal status set, the user-visible subset
// and the mapping of legacy values kept for historical records.
package status

import (
	"errors"
	"fmt"

	"github.com/diewo77/go-docflow/internal/models"
)

var (
	ErrUnknownStatus = errors.New("unknown status")
	ErrUnknownType   = errors.New("unknown document type")
)

// Canonical status values. Several types share the same value.
const (
	Draft      = "draft"
	Sent       = "sent"
	Accepted   = "accepted"
	Rejected   = "rejected"
	Active     = "active"
	Completed  = "completed"
	Cancelled  = "cancelled"
	Scheduled  = "scheduled"
	Delivered  = "delivered"
	InProgress = "in_progress"
	Paid       = "paid"
	Overdue    = "overdue"
	Open       = "open"
	Resolved   = "resolved"
	Closed     = "closed"
)

// Legacy values still present on old rows.
const (
	LegacyDeclined  = "declined"
	LegacyFinal     = "final"
	LegacySigned    = "signed"
	LegacyDismissed = "dismissed"
)

var labels = map[string]string{
	Draft:      "Draft",
	Sent:       "Sent",
	Accepted:   "Accepted",
	Rejected:   "Rejected",
	Active:     "Active",
	Completed:  "Completed",
	Cancelled:  "Cancelled",
	Scheduled:  "Scheduled",
	Delivered:  "Delivered",
	InProgress: "In progress",
	Paid:       "Paid",
	Overdue:    "Overdue",
	Open:       "Open",
	Resolved:   "Resolved",
	Closed:     "Closed",
}

// legacy maps a deprecated value to the canonical value it displays as.
var legacy = map[string]string{
	LegacyDeclined:  Rejected,
	LegacyFinal:     Sent,
	LegacySigned:    Active,
	LegacyDismissed: Closed,
}

type policy struct {
	visible []string
	legacy  []string
}

var policies = map[models.DocumentType]policy{
	models.TypeQuote:             {visible: []string{Draft, Sent, Accepted, Rejected}, legacy: []string{LegacyDeclined}},
	models.TypeSpecialQuote:      {visible: []string{Draft, Sent, Accepted, Rejected}, legacy: []string{LegacyDeclined}},
	models.TypeContract:          {visible: []string{Draft, Active, Completed, Cancelled}, legacy: []string{LegacySigned}},
	models.TypeDeliveryNote:      {visible: []string{Draft, Scheduled, Delivered, Cancelled}},
	models.TypeInstallationOrder: {visible: []string{Draft, Scheduled, InProgress, Completed, Cancelled}},
	models.TypeInvoice:           {visible: []string{Draft, Sent, Paid, Overdue, Cancelled}, legacy: []string{LegacyFinal}},
	models.TypeComplaint:         {visible: []string{Open, InProgress, Resolved, Closed}, legacy: []string{LegacyDismissed}},
}

func lookup(t models.DocumentType) (policy, error) {
	p, ok := policies[t]
	if !ok {
		return policy{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return p, nil
}

// LegalStatuses returns every value a document of type t may hold, legacy values included.
func LegalStatuses(t models.DocumentType) ([]string, error) {
	p, err := lookup(t)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(p.visible)+len(p.legacy))
	out = append(out, p.visible...)
	out = append(out, p.legacy...)
	return out, nil
}

// VisibleStatuses returns the values offered as choices, legacy values excluded.
func VisibleStatuses(t models.DocumentType) ([]string, error) {
	p, err := lookup(t)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), p.visible...), nil
}

// IsLegal reports whether s belongs to the legal set of t.
func IsLegal(t models.DocumentType, s string) (bool, error) {
	legal, err := LegalStatuses(t)
	if err != nil {
		return false, err
	}
	for _, v := range legal {
		if v == s {
			return true, nil
		}
	}
	return false, nil
}

// Validate returns ErrUnknownStatus when s is not legal for t.
func Validate(t models.DocumentType, s string) error {
	ok, err := IsLegal(t, s)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q for %s", ErrUnknownStatus, s, t)
	}
	return nil
}

// IsLegacy reports whether s is a deprecated value.
func IsLegacy(s string) (bool, error) {
	if _, ok := legacy[s]; ok {
		return true, nil
	}
	if _, ok := labels[s]; ok {
		return false, nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Canonical maps legacy values onto their replacement and returns other known values unchanged.
func Canonical(s string) (string, error) {
	if c, ok := legacy[s]; ok {
		return c, nil
	}
	if _, ok := labels[s]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// DisplayLabel returns the label shown for s. Legacy values use their canonical label.
func DisplayLabel(s string) (string, error) {
	c, err := Canonical(s)
	if err != nil {
		return "", err
	}
	return labels[c], nil
}
