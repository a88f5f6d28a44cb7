package amqp

import (
	"encoding/json"
	"time"
)

// LedgerChangedMessage tells consumers that a slice of the ledger changed.
// It carries only the scope; consumers re-read whatever they need from the
// database.
type LedgerChangedMessage struct {
	Scope     string    `json:"scope"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerChangedMessage creates a change notification for a scope
// (instances, bills, income, expenses).
func NewLedgerChangedMessage(scope string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Scope:     scope,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
