package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"spendable/internal/core"
)

// EventKind discriminates the ledger events flowing through the queue.
type EventKind string

const (
	KindTransactionRecorded EventKind = "transaction.recorded"
	KindRolloverCommitted   EventKind = "rollover.committed"
)

// TransactionPayload references a recorded ledger entry by ID; the worker
// fetches the full row from storage, so the message stays tiny.
type TransactionPayload struct {
	ID int64 `json:"id"`
}

// RolloverPayload announces that a repeating period was advanced and
// committed. Entity is "income", "savings" or "fixed_expense" (with ID).
type RolloverPayload struct {
	Entity      string `json:"entity"`
	ID          int64  `json:"id,omitempty"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

// Event is the single envelope published to the ledger queue. Exactly one
// payload field is set, matching Kind.
type Event struct {
	Kind        EventKind           `json:"kind"`
	Transaction *TransactionPayload `json:"transaction,omitempty"`
	Rollover    *RolloverPayload    `json:"rollover,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
}

// NewTransactionEvent builds a transaction.recorded event.
func NewTransactionEvent(id int64) *Event {
	return &Event{
		Kind:        KindTransactionRecorded,
		Transaction: &TransactionPayload{ID: id},
		Timestamp:   time.Now(),
	}
}

// NewRolloverEvent builds a rollover.committed event for an entity's new period.
func NewRolloverEvent(entity string, id int64, p core.Period) *Event {
	return &Event{
		Kind: KindRolloverCommitted,
		Rollover: &RolloverPayload{
			Entity:      entity,
			ID:          id,
			PeriodStart: p.Start.String(),
			PeriodEnd:   p.End.String(),
		},
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event and checks the envelope is coherent.
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Kind {
	case KindTransactionRecorded:
		if e.Transaction == nil {
			return nil, errors.New("transaction event without payload")
		}
	case KindRolloverCommitted:
		if e.Rollover == nil {
			return nil, errors.New("rollover event without payload")
		}
	default:
		return nil, errors.New("unknown event kind: " + string(e.Kind))
	}
	return &e, nil
}
