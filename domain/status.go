package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the lifecycle state shared by sales and sale items.
// The zero value is StatusActive, so a freshly built entity is always valid.
type Status uint8

const (
	StatusActive Status = iota
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// ParseStatus accepts the status name in any letter case.
func ParseStatus(v string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "active":
		return StatusActive, nil
	case "cancelled", "canceled":
		return StatusCancelled, nil
	default:
		return 0, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, v)
	}
}

func (s Status) IsCancelled() bool { return s == StatusCancelled }

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	// An omitted status keeps the zero value.
	if raw == "" {
		*s = StatusActive
		return nil
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value stores the status by name.
func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

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
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
