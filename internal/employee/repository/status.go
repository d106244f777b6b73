package repository

import (
	"database/sql/driver"
	"fmt"
)

// EvaluationStatus is the tri-state evaluation workflow status. It is
// persisted as NULL / "False" / "True" to stay compatible with the
// historical data, and serialized the same way on the wire.
type EvaluationStatus string

const (
	// EvaluationNotStarted means the employee was never dispatched
	EvaluationNotStarted EvaluationStatus = ""
	// EvaluationPending means the employee was dispatched and awaits scores
	EvaluationPending EvaluationStatus = "False"
	// EvaluationEvaluated means scores were submitted
	EvaluationEvaluated EvaluationStatus = "True"
)

// Value implements driver.Valuer. NotStarted maps to NULL.
func (s EvaluationStatus) Value() (driver.Value, error) {
	switch s {
	case EvaluationNotStarted:
		return nil, nil
	case EvaluationPending, EvaluationEvaluated:
		return string(s), nil
	}
	return nil, fmt.Errorf("invalid evaluation status %q", string(s))
}

// Scan implements sql.Scanner
func (s *EvaluationStatus) Scan(src interface{}) error {
	if src == nil {
		*s = EvaluationNotStarted
		return nil
	}
	switch v := src.(type) {
	case string:
		*s = EvaluationStatus(v)
	case []byte:
		*s = EvaluationStatus(v)
	default:
		return fmt.Errorf("cannot scan %T into EvaluationStatus", src)
	}
	switch *s {
	case EvaluationPending, EvaluationEvaluated:
		return nil
	}
	return fmt.Errorf("invalid evaluation status %q", string(*s))
}

// MarshalJSON serializes the status with its wire representation,
// NotStarted as null.
func (s EvaluationStatus) MarshalJSON() ([]byte, error) {
	if s == EvaluationNotStarted {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", string(s))), nil
}

// UnmarshalJSON accepts null / "False" / "True"
func (s *EvaluationStatus) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "null":
		*s = EvaluationNotStarted
	case `"False"`:
		*s = EvaluationPending
	case `"True"`:
		*s = EvaluationEvaluated
	default:
		return fmt.Errorf("invalid evaluation status %s", string(data))
	}
	return nil
}
