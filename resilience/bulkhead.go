package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

var (
	ErrBulkheadFull    = errors.New("bulkhead is full")
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig bounds how many calls run at once.
type BulkheadConfig struct {
	Name          string `yaml:"name" mapstructure:"name"`
	MaxConcurrent int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	// MaxWait is how long a call may queue for a slot. Zero rejects at once.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
	// OnReject is called with Name for every rejected call.
	OnReject func(name string) `yaml:"-" mapstructure:"-"`
}

// Bulkhead admits at most MaxConcurrent calls. Callers beyond that wait up
// to MaxWait and are then rejected.
type Bulkhead struct {
	config   BulkheadConfig
	sem      *semaphore.Weighted
	inUse    atomic.Int64
	rejected atomic.Int64
}

func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 1
	}
	return &Bulkhead{config: config, sem: semaphore.NewWeighted(int64(config.MaxConcurrent))}
}

// Execute runs fn in a slot. It returns ErrBulkheadFull or
// ErrBulkheadTimeout without calling fn when no slot frees up, and ctx's
// error when ctx ends while waiting.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.acquire(ctx); err != nil {
		b.rejected.Add(1)
		if b.config.OnReject != nil {
			b.config.OnReject(b.config.Name)
		}
		return err
	}
	b.inUse.Add(1)
	defer func() {
		b.inUse.Add(-1)
		b.sem.Release(1)
	}()
	return fn()
}

// ExecuteWithResult is Execute for functions that return a value.
func ExecuteWithResult[T any](ctx context.Context, b *Bulkhead, fn func() (T, error)) (T, error) {
	var result T
	err := b.Execute(ctx, func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	if b.sem.TryAcquire(1) {
		return nil
	}
	if b.config.MaxWait <= 0 {
		return ErrBulkheadFull
	}

	waitCtx, cancel := context.WithTimeout(ctx, b.config.MaxWait)
	defer cancel()
	if err := b.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrBulkheadTimeout
	}
	return nil
}

// InUse is the number of calls currently running.
func (b *Bulkhead) InUse() int { return int(b.inUse.Load()) }

// Rejected is the number of calls turned away since creation.
func (b *Bulkhead) Rejected() int64 { return b.rejected.Load() }

func (b *Bulkhead) MaxConcurrent() int { return b.config.MaxConcurrent }
