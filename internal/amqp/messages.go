package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// LedgerSyncMessage announces that a ledger entry needs mirroring.
// It carries only the identity; the worker loads the row itself.
type LedgerSyncMessage struct {
	Kind      core.TransactionType `json:"kind"`
	ID        int64                `json:"id"`
	Version   int64                `json:"version"`
	Timestamp time.Time            `json:"timestamp"`
}

func NewLedgerSyncMessage(kind core.TransactionType, id, version int64) *LedgerSyncMessage {
	return &LedgerSyncMessage{
		Kind:      kind,
		ID:        id,
		Version:   version,
		Timestamp: time.Now().UTC(),
	}
}

func (m *LedgerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerSyncMessageFromJSON decodes and checks a message body.
func LedgerSyncMessageFromJSON(data []byte) (*LedgerSyncMessage, error) {
	var msg LedgerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case core.TransactionIncome, core.TransactionExpense:
	default:
		return nil, fmt.Errorf("unknown ledger kind %q", msg.Kind)
	}
	if msg.ID <= 0 {
		return nil, fmt.Errorf("invalid ledger id %d", msg.ID)
	}
	return &msg, nil
}
