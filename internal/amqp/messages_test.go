package amqp

import (
	"testing"
	"time"
)

func TestExpenseEventMessageRoundTrip(t *testing.T) {
	msg := NewExpenseEventMessage("exp-123", ActionCreated)
	if msg.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error: %v", err)
	}

	got, err := ExpenseEventMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON() error: %v", err)
	}
	if got.ExpenseID != "exp-123" || got.Action != ActionCreated {
		t.Errorf("got %+v", got)
	}
	if !got.Timestamp.Equal(msg.Timestamp.Truncate(time.Nanosecond)) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, msg.Timestamp)
	}
}

func TestExpenseEventMessageFromJSONRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{broken"},
		{"missing id", `{"action": "created"}`},
		{"unknown action", `{"expense_id": "x", "action": "exploded"}`},
		{"empty action", `{"expense_id": "x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ExpenseEventMessageFromJSON([]byte(tt.data)); err == nil {
				t.Error("FromJSON() = nil error, want failure")
			}
		})
	}
}
