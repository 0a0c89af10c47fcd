package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Status represents the lifecycle state of a submission.
type Status string

const (
	StatusDraft       Status = "DRAFT"
	StatusSubmitted   Status = "SUBMITTED"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusAccepted    Status = "ACCEPTED"
	StatusRejected    Status = "REJECTED"
	StatusPublished   Status = "PUBLISHED"
	StatusWithdrawn   Status = "WITHDRAWN"
)

var allStatuses = []Status{
	StatusDraft,
	StatusSubmitted,
	StatusUnderReview,
	StatusAccepted,
	StatusRejected,
	StatusPublished,
	StatusWithdrawn,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var terminalStatuses = map[Status]struct{}{
	StatusPublished: {},
	StatusRejected:  {},
	StatusWithdrawn: {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToUpper(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := statusSet[s]
	return ok
}

// IsTerminal reports whether no further transitions leave s.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// Label returns the human readable form, e.g. "UNDER REVIEW".
func (s Status) Label() string {
	return strings.ReplaceAll(string(s), "_", " ")
}

func (s Status) String() string {
	return string(s)
}

// UnmarshalJSON rejects values outside the enumeration so that a malformed
// payload never produces a submission with an unknown status.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("status must be a string: %w", err)
	}
	parsed, ok := ParseStatus(raw)
	if !ok {
		return fmt.Errorf("unknown status %q", raw)
	}
	*s = parsed
	return nil
}

// Scan implements sql.Scanner.
func (s *Status) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Status", src)
	}
	parsed, ok := ParseStatus(raw)
	if !ok {
		return fmt.Errorf("unknown status %q", raw)
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer.
func (s Status) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown status %q", string(s))
	}
	return string(s), nil
}
