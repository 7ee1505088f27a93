package db

import (
	"context"
	"errors"
	"testing"
)

func TestLocalTransactorRunsHooksOnCommit(t *testing.T) {
	var ran []string

	err := LocalTransactor{}.WithinTx(context.Background(), func(ctx context.Context) error {
		AfterCommit(ctx, func(context.Context) { ran = append(ran, "first") })
		AfterCommit(ctx, func(context.Context) { ran = append(ran, "second") })
		if len(ran) != 0 {
			t.Fatalf("hooks ran before commit")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ran) != 2 || ran[0] != "first" || ran[1] != "second" {
		t.Fatalf("expected hooks in registration order, got %v", ran)
	}
}

func TestLocalTransactorDropsHooksOnError(t *testing.T) {
	ran := false
	boom := errors.New("boom")

	err := LocalTransactor{}.WithinTx(context.Background(), func(ctx context.Context) error {
		AfterCommit(ctx, func(context.Context) { ran = true })
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if ran {
		t.Fatalf("hook must not run after rollback")
	}
}

func TestNestedUnitJoinsOuterHooks(t *testing.T) {
	ran := 0
	tx := LocalTransactor{}

	err := tx.WithinTx(context.Background(), func(ctx context.Context) error {
		return tx.WithinTx(ctx, func(inner context.Context) error {
			AfterCommit(inner, func(context.Context) { ran++ })
			return nil
		})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ran != 1 {
		t.Fatalf("expected hook to run once, got %d", ran)
	}
}

func TestAfterCommitOutsideUnitRunsImmediately(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func(context.Context) { ran = true })
	if !ran {
		t.Fatalf("expected immediate execution")
	}
}
