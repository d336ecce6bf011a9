package domain

import (
	"regexp"
	"strings"
	"time"

	"go.trai.ch/zerr"
)

// deviceIDPattern is the identifier grammar for clearance, De Novo and approval numbers.
var deviceIDPattern = regexp.MustCompile(`^(K|DEN|BK|P)(\d{6})$`)

// DeviceRecord is a regulatory clearance record.
type DeviceRecord struct {
	ID           string    `json:"id"`
	Applicant    string    `json:"applicant"`
	DecisionDate time.Time `json:"decision_date"`
	DecisionCode string    `json:"decision_code"`
	ProductCode  string    `json:"product_code"`
	DeviceName   string    `json:"device_name"`
	Description  string    `json:"description,omitempty"`
	RecallCount  int       `json:"recall_count"`
	// PredicatesCited is populated only from citation extraction.
	PredicatesCited []string `json:"predicates_cited,omitempty"`
	// CitedBy is derived from the citation graph.
	CitedBy []string `json:"cited_by,omitempty"`
}

// ValidDeviceID reports whether id matches the identifier grammar.
func ValidDeviceID(id string) bool {
	return deviceIDPattern.MatchString(id)
}

// ParseDeviceID normalizes id and validates it.
func ParseDeviceID(id string) (string, error) {
	norm := strings.ToUpper(strings.TrimSpace(id))
	if !ValidDeviceID(norm) {
		return "", zerr.With(zerr.Wrap(ErrInvalidDeviceID, "identifier rejected"), "id", id)
	}
	return norm, nil
}

// DevicePrefix returns the letter prefix of a valid identifier.
func DevicePrefix(id string) string {
	m := deviceIDPattern.FindStringSubmatch(id)
	if m == nil {
		return ""
	}
	return m[1]
}

// DeviceYear returns the two digit year embedded after the prefix of a valid identifier.
func DeviceYear(id string) string {
	m := deviceIDPattern.FindStringSubmatch(id)
	if m == nil {
		return ""
	}
	return m[2][:2]
}
