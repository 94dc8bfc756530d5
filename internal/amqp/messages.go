// Package amqp carries expense mutation events between the web process
// and the sheet mirror worker.
package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event actions carried on the wire.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ExpenseEventMessage is a lightweight change notification. It carries
// only the expense ID and the action; the worker fetches the current
// row from the database before mirroring.
type ExpenseEventMessage struct {
	ExpenseID string    `json:"expense_id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseEventMessage(expenseID, action string) *ExpenseEventMessage {
	return &ExpenseEventMessage{
		ExpenseID: expenseID,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ExpenseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseEventMessageFromJSON(data []byte) (*ExpenseEventMessage, error) {
	var msg ExpenseEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ExpenseID == "" {
		return nil, fmt.Errorf("message missing expense_id")
	}
	switch msg.Action {
	case ActionCreated, ActionUpdated, ActionDeleted:
	default:
		return nil, fmt.Errorf("unknown action %q", msg.Action)
	}
	return &msg, nil
}
