package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// SyncOp is the change a sync message announces.
type SyncOp string

const (
	OpUpsert SyncOp = "upsert"
	OpDelete SyncOp = "delete"
)

// TransactionSyncMessage announces that a transaction changed in SQLite and
// must be mirrored to Google Sheets. It carries only the id and version; the
// worker reads the row itself so a stale message never overwrites newer data.
type TransactionSyncMessage struct {
	ID        string    `json:"id"`
	Op        SyncOp    `json:"op"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(id string, op SyncOp, version int64) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		ID:        id,
		Op:        op,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionSyncMessageFromJSON decodes and validates a message.
func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("sync message without id")
	}
	switch msg.Op {
	case OpUpsert, OpDelete:
	case "":
		msg.Op = OpUpsert
	default:
		return nil, fmt.Errorf("unknown sync op %q", msg.Op)
	}
	return &msg, nil
}
