package amqp

import (
	"encoding/json"
	"time"
)

// Event types published after a successful store mutation.
const (
	EventCreated  = "expense.created"
	EventUpdated  = "expense.updated"
	EventDeleted  = "expense.deleted"
	EventImported = "expense.imported"
	EventGoalSet  = "goal.set"
)

// MutationEvent is a lightweight notification that the persisted snapshot
// changed. Consumers fetch the current state from the snapshot store; the
// event carries only what happened and to which records.
type MutationEvent struct {
	Type           string    `json:"type"`
	RecordIDs      []string  `json:"record_ids,omitempty"`
	RecurringGroup string    `json:"recurring_group,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewMutationEvent creates an event stamped with the current time.
func NewMutationEvent(eventType string, recordIDs []string, group string) *MutationEvent {
	return &MutationEvent{
		Type:           eventType,
		RecordIDs:      recordIDs,
		RecurringGroup: group,
		Timestamp:      time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (m *MutationEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MutationEventFromJSON creates an event from JSON bytes.
func MutationEventFromJSON(data []byte) (*MutationEvent, error) {
	var msg MutationEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
