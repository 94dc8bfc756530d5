package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"smartreceipt/internal/core"
	"smartreceipt/internal/log"
	"smartreceipt/internal/scan"
)

type fakeStore struct {
	expenses []core.Expense
	settings core.Settings

	saveErr error
	listErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{settings: core.DefaultSettings()}
}

func (f *fakeStore) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]core.Expense, len(f.expenses))
	copy(out, f.expenses)
	return out, nil
}

func (f *fakeStore) SaveExpense(ctx context.Context, e core.Expense) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.expenses = append(f.expenses, e)
	return nil
}

func (f *fakeStore) UpdateExpense(ctx context.Context, e core.Expense) error {
	for i := range f.expenses {
		if f.expenses[i].ID == e.ID {
			f.expenses[i] = e
		}
	}
	return nil
}

func (f *fakeStore) DeleteExpense(ctx context.Context, id string) error {
	kept := f.expenses[:0]
	for _, e := range f.expenses {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	f.expenses = kept
	return nil
}

func (f *fakeStore) LoadSettings(ctx context.Context) (core.Settings, error) {
	return f.settings, nil
}

func (f *fakeStore) SaveSettings(ctx context.Context, s core.Settings) error {
	f.settings = s
	return nil
}

type fakeScanner struct {
	guess scan.Guess
	err   error
	calls int
}

func (f *fakeScanner) ScanReceipt(ctx context.Context, image []byte, mimeType string) (scan.Guess, error) {
	f.calls++
	return f.guess, f.err
}

type fakePublisher struct {
	events []string
	err    error
}

func (f *fakePublisher) PublishExpenseEvent(ctx context.Context, expenseID, action string) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, action+":"+expenseID)
	return nil
}

func testLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func newTestController(t *testing.T, st *fakeStore, opts ...Option) *Controller {
	t.Helper()
	c := NewController(st, st, testLogger(), opts...)
	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	return c
}

func validInput() ExpenseInput {
	return ExpenseInput{
		Amount:   "20.00",
		Merchant: "Blue Bottle",
		Category: core.CategoryFood,
		Date:     "2024-05-22",
	}
}

func TestAddExpense(t *testing.T) {
	st := newFakeStore()
	c := newTestController(t, st)

	e, err := c.AddExpense(context.Background(), validInput())
	if err != nil {
		t.Fatalf("AddExpense() error: %v", err)
	}
	if e.ID == "" {
		t.Error("ID not assigned")
	}
	if e.Amount.Cents != 2000 {
		t.Errorf("amount = %d, want 2000", e.Amount.Cents)
	}
	if len(st.expenses) != 1 {
		t.Fatalf("stored = %d, want 1", len(st.expenses))
	}

	// Snapshot refreshed after the write
	history := c.History(context.Background(), core.Filter{})
	if history.Count != 1 {
		t.Errorf("history count = %d, want 1", history.Count)
	}
}

func TestAddExpenseValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ExpenseInput)
		wantErr error
	}{
		{"negative amount", func(i *ExpenseInput) { i.Amount = "-5" }, core.ErrInvalidAmount},
		{"unparseable amount", func(i *ExpenseInput) { i.Amount = "abc" }, core.ErrInvalidAmount},
		{"blank merchant", func(i *ExpenseInput) { i.Merchant = "   " }, core.ErrEmptyMerchant},
		{"blank category", func(i *ExpenseInput) { i.Category = "" }, core.ErrEmptyCategory},
		{"bad date", func(i *ExpenseInput) { i.Date = "22/05/2024" }, core.ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStore()
			c := newTestController(t, st)

			input := validInput()
			tt.mutate(&input)
			_, err := c.AddExpense(context.Background(), input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if len(st.expenses) != 0 {
				t.Error("invalid input must not be stored")
			}
		})
	}
}

func TestZeroAmountAllowed(t *testing.T) {
	c := newTestController(t, newFakeStore())

	input := validInput()
	input.Amount = "0"
	if _, err := c.AddExpense(context.Background(), input); err != nil {
		t.Errorf("AddExpense() error: %v, want nil for zero amount", err)
	}
}

func TestCustomCategoryAllowed(t *testing.T) {
	c := newTestController(t, newFakeStore())

	input := validInput()
	input.Category = "Pet Supplies"
	e, err := c.AddExpense(context.Background(), input)
	if err != nil {
		t.Fatalf("AddExpense() error: %v", err)
	}
	if e.Category != "Pet Supplies" {
		t.Errorf("category = %q", e.Category)
	}
}

func TestUpdateExpense(t *testing.T) {
	st := newFakeStore()
	c := newTestController(t, st)

	e, err := c.AddExpense(context.Background(), validInput())
	if err != nil {
		t.Fatalf("AddExpense() error: %v", err)
	}

	input := validInput()
	input.Amount = "35.50"
	updated, err := c.UpdateExpense(context.Background(), e.ID, input)
	if err != nil {
		t.Fatalf("UpdateExpense() error: %v", err)
	}
	if updated.Amount.Cents != 3550 {
		t.Errorf("amount = %d, want 3550", updated.Amount.Cents)
	}
	if st.expenses[0].Amount.Cents != 3550 {
		t.Errorf("stored amount = %d, want 3550", st.expenses[0].Amount.Cents)
	}
}

func TestUpdateUnknownIDIsNoOp(t *testing.T) {
	st := newFakeStore()
	c := newTestController(t, st)

	if _, err := c.UpdateExpense(context.Background(), "missing", validInput()); err != nil {
		t.Errorf("UpdateExpense() error: %v, want nil", err)
	}
	if len(st.expenses) != 0 {
		t.Error("no-op update must not create a record")
	}
}

func TestDeleteExpense(t *testing.T) {
	st := newFakeStore()
	c := newTestController(t, st)

	e, _ := c.AddExpense(context.Background(), validInput())
	if err := c.DeleteExpense(context.Background(), e.ID); err != nil {
		t.Fatalf("DeleteExpense() error: %v", err)
	}
	if len(st.expenses) != 0 {
		t.Error("expense not removed")
	}
	// Unknown ID is a no-op
	if err := c.DeleteExpense(context.Background(), "missing"); err != nil {
		t.Errorf("DeleteExpense(missing) error: %v", err)
	}
	if err := c.DeleteExpense(context.Background(), "  "); !errors.Is(err, core.ErrEmptyID) {
		t.Errorf("blank ID error = %v, want ErrEmptyID", err)
	}
}

func TestUpdateDailyLimit(t *testing.T) {
	st := newFakeStore()
	c := newTestController(t, st)

	s, err := c.UpdateDailyLimit(context.Background(), "75.00")
	if err != nil {
		t.Fatalf("UpdateDailyLimit() error: %v", err)
	}
	if s.DailyLimit.Cents != 7500 {
		t.Errorf("limit = %d, want 7500", s.DailyLimit.Cents)
	}
	if got := c.Settings(context.Background()); got.DailyLimit.Cents != 7500 {
		t.Errorf("snapshot limit = %d, want 7500", got.DailyLimit.Cents)
	}

	if _, err := c.UpdateDailyLimit(context.Background(), "-3"); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("negative limit error = %v, want ErrInvalidAmount", err)
	}
}

func TestDashboard(t *testing.T) {
	st := newFakeStore()
	c := newTestController(t, st)
	ctx := context.Background()

	today, _ := core.ParseDate("2024-05-22")
	for _, cents := range []int64{2000, 4000, 1500} {
		input := validInput()
		input.Amount = core.Money{Cents: cents}.String()
		if _, err := c.AddExpense(ctx, input); err != nil {
			t.Fatalf("AddExpense() error: %v", err)
		}
	}
	// Yesterday's expense must not count toward today
	old := validInput()
	old.Date = "2024-05-21"
	old.Amount = "99.00"
	if _, err := c.AddExpense(ctx, old); err != nil {
		t.Fatalf("AddExpense() error: %v", err)
	}

	view := c.dashboardFor(today)
	if view.TodayTotal.Cents != 7500 {
		t.Errorf("today total = %d, want 7500", view.TodayTotal.Cents)
	}
	if !view.OverLimit {
		t.Error("expected over limit with $75 spent against $50")
	}
	if !view.PercentKnown || view.OverLimitPercent != 50 {
		t.Errorf("percent = %v (known=%v), want 50", view.OverLimitPercent, view.PercentKnown)
	}
	if view.WeekTotal.Cents != 7500+9900 {
		t.Errorf("week total = %d, want %d", view.WeekTotal.Cents, 7500+9900)
	}
	if len(view.Week) != 7 {
		t.Errorf("week series = %d points, want 7", len(view.Week))
	}
	if len(view.Recent) != 4 {
		t.Errorf("recent = %d, want 4", len(view.Recent))
	}
	// Newest first
	if view.Recent[0].Date.ISO() != "2024-05-22" {
		t.Errorf("recent[0] date = %s", view.Recent[0].Date.ISO())
	}
}

func TestRange(t *testing.T) {
	st := newFakeStore()
	c := newTestController(t, st)
	ctx := context.Background()

	for _, day := range []string{"2024-05-20", "2024-05-21", "2024-05-22"} {
		input := validInput()
		input.Date = day
		if _, err := c.AddExpense(ctx, input); err != nil {
			t.Fatalf("AddExpense() error: %v", err)
		}
	}

	start, _ := core.ParseDate("2024-05-20")
	end, _ := core.ParseDate("2024-05-21")
	got := c.Range(ctx, start, end)
	if got.Count != 2 {
		t.Errorf("count = %d, want 2", got.Count)
	}
	if got.Total.Cents != 4000 {
		t.Errorf("total = %d, want 4000", got.Total.Cents)
	}
}

func TestDashboardRecentCapped(t *testing.T) {
	st := newFakeStore()
	c := newTestController(t, st)
	ctx := context.Background()

	for i := 0; i < recentCount+3; i++ {
		if _, err := c.AddExpense(ctx, validInput()); err != nil {
			t.Fatalf("AddExpense() error: %v", err)
		}
	}

	today, _ := core.ParseDate("2024-05-22")
	view := c.dashboardFor(today)
	if len(view.Recent) != recentCount {
		t.Errorf("recent = %d, want %d", len(view.Recent), recentCount)
	}
}

func TestPublishOnWrites(t *testing.T) {
	st := newFakeStore()
	pub := &fakePublisher{}
	c := newTestController(t, st, WithPublisher(pub))
	ctx := context.Background()

	e, err := c.AddExpense(ctx, validInput())
	if err != nil {
		t.Fatalf("AddExpense() error: %v", err)
	}
	if _, err := c.UpdateExpense(ctx, e.ID, validInput()); err != nil {
		t.Fatalf("UpdateExpense() error: %v", err)
	}
	if err := c.DeleteExpense(ctx, e.ID); err != nil {
		t.Fatalf("DeleteExpense() error: %v", err)
	}

	want := []string{
		ActionCreated + ":" + e.ID,
		ActionUpdated + ":" + e.ID,
		ActionDeleted + ":" + e.ID,
	}
	if len(pub.events) != len(want) {
		t.Fatalf("events = %v, want %v", pub.events, want)
	}
	for i := range want {
		if pub.events[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, pub.events[i], want[i])
		}
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	st := newFakeStore()
	pub := &fakePublisher{err: errors.New("broker down")}
	c := newTestController(t, st, WithPublisher(pub))

	if _, err := c.AddExpense(context.Background(), validInput()); err != nil {
		t.Errorf("AddExpense() error: %v, want nil despite publish failure", err)
	}
	if len(st.expenses) != 1 {
		t.Error("expense must still be stored")
	}
}

func TestScanReceiptCachesByImageHash(t *testing.T) {
	sc := &fakeScanner{guess: scan.Guess{Amount: 12.34, Merchant: "Cafe"}}
	c := newTestController(t, newFakeStore(), WithScanner(sc))
	ctx := context.Background()

	image := []byte("same-bytes")
	for i := 0; i < 3; i++ {
		guess, err := c.ScanReceipt(ctx, image, "image/jpeg")
		if err != nil {
			t.Fatalf("ScanReceipt() error: %v", err)
		}
		if guess.Merchant != "Cafe" {
			t.Errorf("guess = %+v", guess)
		}
	}
	if sc.calls != 1 {
		t.Errorf("scanner calls = %d, want 1 (cached)", sc.calls)
	}

	if _, err := c.ScanReceipt(ctx, []byte("different"), "image/jpeg"); err != nil {
		t.Fatalf("ScanReceipt() error: %v", err)
	}
	if sc.calls != 2 {
		t.Errorf("scanner calls = %d, want 2", sc.calls)
	}
}

func TestScanReceiptErrorsNotCached(t *testing.T) {
	sc := &fakeScanner{err: scan.ErrScanFailed}
	c := newTestController(t, newFakeStore(), WithScanner(sc))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.ScanReceipt(ctx, []byte("img"), "image/jpeg"); !errors.Is(err, scan.ErrScanFailed) {
			t.Errorf("error = %v, want ErrScanFailed", err)
		}
	}
	if sc.calls != 2 {
		t.Errorf("scanner calls = %d, want 2 (errors must not be cached)", sc.calls)
	}
}

func TestScanReceiptDisabled(t *testing.T) {
	c := newTestController(t, newFakeStore())
	if _, err := c.ScanReceipt(context.Background(), []byte("img"), "image/jpeg"); !errors.Is(err, ErrScanDisabled) {
		t.Errorf("error = %v, want ErrScanDisabled", err)
	}
	if c.ScanEnabled() {
		t.Error("ScanEnabled() = true, want false")
	}
}
