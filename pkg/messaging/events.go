package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Evaluation workflow notifications
	EventEvaluationDispatched = "evaluation.dispatched"
	EventTeamEvaluated        = "evaluation.team.completed"
)

// Exchange names
const (
	ExchangeCompetencyEvents = "competency.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// EvaluationDispatchedEvent is published when HR sends a set of employees
// into an evaluation cycle. Recipients are the email addresses of the
// affected reporting managers.
type EvaluationDispatchedEvent struct {
	Recipients      []string `json:"recipients"`
	Subject         string   `json:"subject"`
	EmployeeNumbers []string `json:"employee_numbers"`
	DispatchedBy    string   `json:"dispatched_by"`
}

// TeamEvaluatedEvent is published when the last pending direct report of
// an evaluator has been evaluated.
type TeamEvaluatedEvent struct {
	Recipients    []string `json:"recipients"`
	Subject       string   `json:"subject"`
	ManagerNumber string   `json:"manager_number"`
	ManagerName   string   `json:"manager_name"`
}
