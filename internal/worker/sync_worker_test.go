package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"smartreceipt/internal/amqp"
	"smartreceipt/internal/core"
	"smartreceipt/internal/log"
	"smartreceipt/internal/sheets/memory"
	"smartreceipt/internal/store"
)

type fakeSyncStore struct {
	expenses map[string]core.Expense
	pending  []string
	synced   []string
	errored  []string
}

func newFakeSyncStore() *fakeSyncStore {
	return &fakeSyncStore{expenses: make(map[string]core.Expense)}
}

func (f *fakeSyncStore) add(e core.Expense) {
	f.expenses[e.ID] = e
	f.pending = append(f.pending, e.ID)
}

func (f *fakeSyncStore) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	e, ok := f.expenses[id]
	if !ok {
		return core.Expense{}, store.ErrNotFound
	}
	return e, nil
}

func (f *fakeSyncStore) GetPendingSync(ctx context.Context, limit int) ([]core.Expense, error) {
	var out []core.Expense
	for _, id := range f.pending {
		if len(out) == limit {
			break
		}
		out = append(out, f.expenses[id])
	}
	return out, nil
}

func (f *fakeSyncStore) MarkSynced(ctx context.Context, id string) error {
	f.synced = append(f.synced, id)
	f.removePending(id)
	return nil
}

// Errored rows stay queued, mirroring the repository's retry behavior.
func (f *fakeSyncStore) MarkSyncError(ctx context.Context, id string) error {
	f.errored = append(f.errored, id)
	return nil
}

func (f *fakeSyncStore) removePending(id string) {
	kept := f.pending[:0]
	for _, p := range f.pending {
		if p != id {
			kept = append(kept, p)
		}
	}
	f.pending = kept
}

func testLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func testExpense(id string) core.Expense {
	d, _ := core.ParseDate("2024-05-20")
	return core.Expense{
		ID:       id,
		Amount:   core.Money{Cents: 1234},
		Merchant: "Cafe",
		Category: core.CategoryFood,
		Date:     d,
	}
}

func TestHandleEventMirrorsAndMarksSynced(t *testing.T) {
	st := newFakeSyncStore()
	st.add(testExpense("e1"))
	appender := memory.New()
	w := NewSyncWorker(st, appender, 10, testLogger())

	msg := amqp.NewExpenseEventMessage("e1", amqp.ActionCreated)
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleEvent() error: %v", err)
	}

	rows := appender.Rows()
	if len(rows) != 1 || rows[0].ID != "e1" {
		t.Errorf("rows = %+v", rows)
	}
	if len(st.synced) != 1 || st.synced[0] != "e1" {
		t.Errorf("synced = %v", st.synced)
	}
}

func TestHandleEventDeleteIsSkipped(t *testing.T) {
	st := newFakeSyncStore()
	appender := memory.New()
	w := NewSyncWorker(st, appender, 10, testLogger())

	msg := amqp.NewExpenseEventMessage("gone", amqp.ActionDeleted)
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleEvent() error: %v", err)
	}
	if len(appender.Rows()) != 0 {
		t.Error("delete event must not touch the sheet")
	}
}

func TestHandleEventMissingExpenseIsSkipped(t *testing.T) {
	st := newFakeSyncStore()
	w := NewSyncWorker(st, memory.New(), 10, testLogger())

	msg := amqp.NewExpenseEventMessage("vanished", amqp.ActionCreated)
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Errorf("HandleEvent() error: %v, want nil for vanished expense", err)
	}
}

func TestHandleEventAppendFailureMarksError(t *testing.T) {
	st := newFakeSyncStore()
	st.add(testExpense("e1"))
	appender := memory.New()
	appender.FailWith = errors.New("quota exceeded")
	w := NewSyncWorker(st, appender, 10, testLogger())

	msg := amqp.NewExpenseEventMessage("e1", amqp.ActionUpdated)
	if err := w.HandleEvent(context.Background(), msg); err == nil {
		t.Fatal("HandleEvent() = nil, want error")
	}
	if len(st.errored) != 1 || st.errored[0] != "e1" {
		t.Errorf("errored = %v, want [e1]", st.errored)
	}
	if len(st.synced) != 0 {
		t.Errorf("synced = %v, want empty", st.synced)
	}
}

func TestProcessPending(t *testing.T) {
	st := newFakeSyncStore()
	for _, id := range []string{"a", "b", "c"} {
		st.add(testExpense(id))
	}
	appender := memory.New()
	w := NewSyncWorker(st, appender, 2, testLogger())

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending() error: %v", err)
	}
	// Batch size caps one sweep
	if len(appender.Rows()) != 2 {
		t.Errorf("rows = %d, want 2", len(appender.Rows()))
	}

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending() error: %v", err)
	}
	if len(appender.Rows()) != 3 {
		t.Errorf("rows = %d, want 3 after second sweep", len(appender.Rows()))
	}
}

func TestProcessPendingEmptyQueue(t *testing.T) {
	w := NewSyncWorker(newFakeSyncStore(), memory.New(), 10, testLogger())
	if err := w.ProcessPending(context.Background()); err != nil {
		t.Errorf("ProcessPending() error: %v", err)
	}
}

func TestStartupSyncCheck(t *testing.T) {
	st := newFakeSyncStore()
	for _, id := range []string{"a", "b", "c", "d"} {
		st.add(testExpense(id))
	}
	appender := memory.New()
	// batchSize 1 but startup uses a 5x batch
	w := NewSyncWorker(st, appender, 1, testLogger())

	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("StartupSyncCheck() error: %v", err)
	}
	if len(appender.Rows()) != 4 {
		t.Errorf("rows = %d, want 4", len(appender.Rows()))
	}
	if len(st.pending) != 0 {
		t.Errorf("pending = %v, want empty", st.pending)
	}
}

func TestStartupSyncCheckContinuesPastFailures(t *testing.T) {
	st := newFakeSyncStore()
	st.add(testExpense("a"))
	st.add(testExpense("b"))
	appender := memory.New()
	appender.FailWith = errors.New("down")
	w := NewSyncWorker(st, appender, 10, testLogger())

	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("StartupSyncCheck() error: %v", err)
	}
	if len(st.errored) != 2 {
		t.Errorf("errored = %v, want both marked", st.errored)
	}
}
