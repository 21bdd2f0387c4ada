package ident

import (
	"context"
	"errors"
	"testing"

	"github.com/attendd/attendd/internal/model"
	"github.com/attendd/attendd/internal/store"
)

func TestPeekSeedsCounter(t *testing.T) {
	ctx := context.Background()
	st := store.NewMem()
	a := NewAllocator(st)

	uid, sid, err := a.Peek(ctx)
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	if uid != Seed+1 || sid != "10019" {
		t.Errorf("first allocation = %d, %q", uid, sid)
	}

	c, err := st.Counter(ctx, CounterName)
	if err != nil || c == nil {
		t.Fatalf("counter not created: %+v, %v", c, err)
	}
	if c.Value != Seed {
		t.Errorf("seed value = %d", c.Value)
	}
}

func TestPeekDoesNotBurn(t *testing.T) {
	ctx := context.Background()
	a := NewAllocator(store.NewMem())

	first, _, err := a.Peek(ctx)
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	second, _, err := a.Peek(ctx)
	if err != nil {
		t.Fatalf("second Peek failed: %v", err)
	}
	if first != second {
		t.Errorf("Peek moved the sequence: %d then %d", first, second)
	}
}

func TestIncrementAdvances(t *testing.T) {
	ctx := context.Background()
	a := NewAllocator(store.NewMem())

	uid, _, _ := a.Peek(ctx)
	if err := a.Increment(ctx); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	next, _, err := a.Peek(ctx)
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	if next != uid+1 {
		t.Errorf("after increment Peek = %d, want %d", next, uid+1)
	}
}

func TestSyncFollowsRemote(t *testing.T) {
	ctx := context.Background()
	a := NewAllocator(store.NewMem())

	// Remote handed out 10345; the local sequence must continue from
	// there.
	if err := a.Sync(ctx, 10345); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	uid, sid, err := a.Peek(ctx)
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	if uid != 10346 || sid != "10346" {
		t.Errorf("after sync Peek = %d, %q", uid, sid)
	}
}

func TestSyncNeverRetreats(t *testing.T) {
	ctx := context.Background()
	a := NewAllocator(store.NewMem())

	if err := a.Sync(ctx, 10345); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	// A remote answer below the local sequence must not pull it back:
	// the values in between may already identify stored students.
	if err := a.Sync(ctx, 10100); err != nil {
		t.Fatalf("retreating Sync failed: %v", err)
	}
	uid, _, err := a.Peek(ctx)
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	if uid != 10346 {
		t.Errorf("after retreating sync Peek = %d, want 10346", uid)
	}
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()
	a := NewAllocator(store.NewMem())

	if err := a.Initialize(ctx, 20000); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	v, err := a.Value(ctx)
	if err != nil || v != 20000 {
		t.Fatalf("Value = %d, %v", v, err)
	}
}

func TestExhaustion(t *testing.T) {
	ctx := context.Background()
	st := store.NewMem()
	if err := st.SaveCounter(ctx, &model.Counter{Name: CounterName, Value: MaxUID}); err != nil {
		t.Fatalf("SaveCounter failed: %v", err)
	}

	_, _, err := NewAllocator(st).Peek(ctx)
	if !errors.Is(err, ErrCounterExhausted) {
		t.Fatalf("expected ErrCounterExhausted, got %v", err)
	}
}
