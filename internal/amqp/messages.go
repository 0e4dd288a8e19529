package amqp

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

func (k EventKind) IsValid() bool {
	return k == EventCreated || k == EventUpdated || k == EventDeleted
}

// TransactionEvent announces a committed write. It carries ids only; the
// consumer reads the current row from the store.
type TransactionEvent struct {
	Kind      EventKind `json:"kind"`
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Timestamp time.Time `json:"timestamp"`
	// RequestID is the HTTP request that caused the write, if any.
	RequestID string `json:"request_id,omitempty"`
}

func NewTransactionEvent(kind EventKind, id, ownerID int64) TransactionEvent {
	return TransactionEvent{
		Kind:      kind,
		ID:        id,
		OwnerID:   ownerID,
		Timestamp: time.Now().UTC(),
	}
}

// WithRequestID returns a copy of e tagged with the originating request.
func (e TransactionEvent) WithRequestID(id string) TransactionEvent {
	e.RequestID = id
	return e
}

func (e TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and checks an event body.
func TransactionEventFromJSON(data []byte) (TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return TransactionEvent{}, err
	}
	if !ev.Kind.IsValid() {
		return TransactionEvent{}, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	if ev.ID <= 0 || ev.OwnerID <= 0 {
		return TransactionEvent{}, fmt.Errorf("event without transaction or owner id")
	}
	return ev, nil
}
