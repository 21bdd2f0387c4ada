// Package ident allocates student identifiers from the persisted
// student_sequence counter. The counter holds the last value handed
// out, so the next identity is always value+1. Allocation is split in
// two: Peek reserves nothing, Increment burns the value once the
// registration it identifies has been durably stored. A failed
// registration therefore never leaves a hole in the sequence.
package ident

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/attendd/attendd/internal/model"
	"github.com/attendd/attendd/internal/store"
)

const (
	// CounterName is the sequence document shared with the historical
	// deployments of this database.
	CounterName = "student_sequence"

	// Seed is the value a missing counter is created with. The next
	// allocation is Seed+1.
	Seed = 10018

	// MaxUID is the upper bound of the device namespace. ZK scanners
	// address users with a 16-bit field and firmware reserves the top
	// of the range.
	MaxUID = 60000
)

// ErrCounterExhausted means the sequence hit MaxUID. Registration must
// refuse new students until an operator re-seeds the namespace.
var ErrCounterExhausted = errors.New("student id space exhausted")

// Allocator hands out uid / student_id pairs backed by the store.
type Allocator struct {
	store store.Store
}

// NewAllocator returns an allocator over st.
func NewAllocator(st store.Store) *Allocator {
	return &Allocator{store: st}
}

// Peek returns the next uid and student_id without consuming them. Two
// Peeks with no Increment between them answer the same pair.
func (a *Allocator) Peek(ctx context.Context) (int, string, error) {
	c, err := a.counter(ctx)
	if err != nil {
		return 0, "", err
	}
	next := c.Value + 1
	if next > MaxUID {
		return 0, "", fmt.Errorf("%w: counter at %d", ErrCounterExhausted, c.Value)
	}
	return next, strconv.Itoa(next), nil
}

// Increment burns the current value. Call it only after the student
// using the peeked identity has been durably written.
func (a *Allocator) Increment(ctx context.Context) error {
	c, err := a.counter(ctx)
	if err != nil {
		return err
	}
	c.Value++
	return a.store.SaveCounter(ctx, c)
}

// Sync advances the counter so the next Peek answers uid+1. Used when
// the remote hands out an identity: the local sequence follows the
// remote one instead of advancing on its own. A uid at or below the
// current value is ignored; the counter never retreats.
func (a *Allocator) Sync(ctx context.Context, uid int) error {
	c, err := a.counter(ctx)
	if err != nil {
		return err
	}
	if uid <= c.Value {
		return nil
	}
	c.Value = uid
	return a.store.SaveCounter(ctx, c)
}

// Initialize force-sets the counter. Operator tooling only.
func (a *Allocator) Initialize(ctx context.Context, value int) error {
	c, err := a.counter(ctx)
	if err != nil {
		return err
	}
	c.Value = value
	return a.store.SaveCounter(ctx, c)
}

// Value returns the counter's current value, creating it at the seed
// if this edge has never allocated before.
func (a *Allocator) Value(ctx context.Context) (int, error) {
	c, err := a.counter(ctx)
	if err != nil {
		return 0, err
	}
	return c.Value, nil
}

func (a *Allocator) counter(ctx context.Context) (*model.Counter, error) {
	c, err := a.store.Counter(ctx, CounterName)
	if err != nil {
		return nil, fmt.Errorf("read counter: %w", err)
	}
	if c != nil {
		return c, nil
	}
	c = &model.Counter{Name: CounterName, Value: Seed}
	if err := a.store.SaveCounter(ctx, c); err != nil {
		return nil, fmt.Errorf("seed counter: %w", err)
	}
	return c, nil
}
