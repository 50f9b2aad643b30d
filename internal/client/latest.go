package client

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded reports that a newer call started before this one finished.
var ErrSuperseded = errors.New("superseded by a newer request")

// Latest lets only the most recent call win. Starting a call cancels the one
// in flight, and the older call returns ErrSuperseded whatever it produced.
type Latest struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// Call is one call registered with a Latest.
type Call struct {
	l      *Latest
	seq    uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// Start registers a new call and cancels the one in flight. Calls rank by
// the order Start was invoked, not by the order their work runs.
func (l *Latest) Start(ctx context.Context) *Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	return &Call{l: l, seq: l.seq, ctx: ctx, cancel: cancel}
}

// Context is cancelled when a newer call starts.
func (c *Call) Context() context.Context {
	return c.ctx
}

// Finish ends the call. It returns ErrSuperseded when a newer call started,
// err otherwise.
func (c *Call) Finish(err error) error {
	c.l.mu.Lock()
	defer c.l.mu.Unlock()
	if c.seq != c.l.seq {
		return ErrSuperseded
	}
	c.cancel()
	c.l.cancel = nil
	return err
}

// Do runs fn under a context that is cancelled when a newer call starts.
func (l *Latest) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	call := l.Start(ctx)
	return call.Finish(fn(call.Context()))
}
