package amqp

import (
	"encoding/json"
	"time"
)

// ExpenseExportMessage asks the export worker to push one expense to the
// spreadsheet. It carries only the ID; the worker fetches the full record
// from the database. TemplateID is set when the expense was generated from
// a recurring template.
type ExpenseExportMessage struct {
	ID         string    `json:"id"`
	TemplateID string    `json:"template_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewExpenseExportMessage creates an export message for a manually created expense.
func NewExpenseExportMessage(id string) *ExpenseExportMessage {
	return &ExpenseExportMessage{
		ID:        id,
		Timestamp: time.Now(),
	}
}

// NewGeneratedExportMessage creates an export message for a generated occurrence.
func NewGeneratedExportMessage(id, templateID string) *ExpenseExportMessage {
	return &ExpenseExportMessage{
		ID:         id,
		TemplateID: templateID,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseExportMessageFromJSON creates a message from JSON bytes
func ExpenseExportMessageFromJSON(data []byte) (*ExpenseExportMessage, error) {
	var msg ExpenseExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
