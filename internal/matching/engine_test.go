package matching

import (
	"context"
	"testing"
	"time"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/apperr"
	"fixmate_backend/platform/logger"
)

type fakeStore struct {
	pool    []Candidate
	stamped map[int64]time.Time
	exclude []int64
}

func newFakeStore(pool ...Candidate) *fakeStore {
	return &fakeStore{pool: pool, stamped: make(map[int64]time.Time)}
}

func (f *fakeStore) LockCandidates(_ context.Context, exclude []int64) ([]Candidate, error) {
	f.exclude = exclude
	return f.pool, nil
}

func (f *fakeStore) LockFixer(_ context.Context, fixerID int64) (domain.Fixer, error) {
	for _, c := range f.pool {
		if c.Fixer.ID == fixerID {
			return c.Fixer, nil
		}
	}
	return domain.Fixer{}, apperr.NotFound("fixer not found")
}

func (f *fakeStore) StampAssigned(_ context.Context, fixerID int64, at time.Time) error {
	f.stamped[fixerID] = at
	return nil
}

func newTestEngine(store FixerStore, now time.Time) *Engine {
	e := NewEngine(store, logger.New("development"))
	e.now = func() time.Time { return now }
	return e
}

func TestSelectBestFixerStampsWinner(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(approved(1, "plumbing"), approved(2, "plumbing"))
	engine := newTestEngine(store, now)

	fixer, err := engine.SelectBestFixer(context.Background(), domain.Job{Category: domain.CategoryPlumbing}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fixer == nil || fixer.ID != 1 {
		t.Fatalf("expected fixer 1, got %+v", fixer)
	}
	if got, ok := store.stamped[1]; !ok || !got.Equal(now) {
		t.Fatalf("expected fixer 1 to be stamped at now")
	}
	if fixer.LastAssignedAt == nil || !fixer.LastAssignedAt.Equal(now) {
		t.Fatalf("expected returned fixer to carry the stamp")
	}
}

func TestSelectBestFixerHonoursExclusions(t *testing.T) {
	store := newFakeStore(approved(1, "plumbing"), approved(2, "plumbing"))
	engine := newTestEngine(store, time.Now())

	fixer, err := engine.SelectBestFixer(context.Background(), domain.Job{Category: domain.CategoryPlumbing}, []int64{1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fixer == nil || fixer.ID != 2 {
		t.Fatalf("expected fixer 2 after excluding 1, got %+v", fixer)
	}
	if len(store.exclude) != 1 || store.exclude[0] != 1 {
		t.Fatalf("expected exclusions to reach the store")
	}
}

func TestSelectBestFixerEmptyPool(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store, time.Now())

	fixer, err := engine.SelectBestFixer(context.Background(), domain.Job{Category: domain.CategoryGeneral}, nil)
	if err != nil || fixer != nil {
		t.Fatalf("expected nil, nil for empty pool, got %+v, %v", fixer, err)
	}
	if len(store.stamped) != 0 {
		t.Fatalf("nothing should be stamped")
	}
}

func TestReserveRejectsIneligibleFixer(t *testing.T) {
	inactive := approved(5, "plumbing")
	inactive.Fixer.IsActive = false
	engine := newTestEngine(newFakeStore(inactive), time.Now())

	if _, err := engine.Reserve(context.Background(), 5); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := engine.Reserve(context.Background(), 99); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
