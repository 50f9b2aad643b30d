package client

import (
	"context"
	"errors"
	"testing"
)

func TestLatestSupersedesInFlightCall(t *testing.T) {
	var l Latest
	started := make(chan struct{})
	firstDone := make(chan error, 1)

	go func() {
		firstDone <- l.Do(context.Background(), func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})
	}()
	<-started

	if err := l.Do(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("latest call failed: %v", err)
	}
	if err := <-firstDone; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
}

func TestLatestPassesErrors(t *testing.T) {
	var l Latest
	boom := errors.New("boom")
	if err := l.Do(context.Background(), func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestLatestRanksByStartOrder(t *testing.T) {
	var l Latest
	older := l.Start(context.Background())
	newer := l.Start(context.Background())

	if older.Context().Err() == nil {
		t.Fatalf("older call must be cancelled once a newer one starts")
	}
	// the newer call finishes first; the older one must still lose
	if err := newer.Finish(nil); err != nil {
		t.Fatalf("newer call failed: %v", err)
	}
	if err := older.Finish(nil); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
}
