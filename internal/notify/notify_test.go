package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingNotifier collects delivered events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
	block  chan struct{}
}

func (n *recordingNotifier) Notify(ctx context.Context, ev Event) error {
	if n.block != nil {
		select {
		case <-n.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func TestDispatcher_Delivers(t *testing.T) {
	sink := &recordingNotifier{}
	d := NewDispatcher(sink, Options{})
	defer d.Stop()

	d.Publish(Event{UserID: 1, Kind: KindSwapExecuted, Message: "done"})

	deadline := time.After(time.Second)
	for sink.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("event never delivered")
		case <-time.After(5 * time.Millisecond):
		}
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.events[0].UserID != 1 || sink.events[0].Kind != KindSwapExecuted {
		t.Errorf("event mismatch: %+v", sink.events[0])
	}
	if sink.events[0].At.IsZero() {
		t.Error("At not stamped")
	}
}

func TestDispatcher_PublishNeverBlocks(t *testing.T) {
	// A sink that blocks forever must not stall publishers.
	sink := &recordingNotifier{block: make(chan struct{})}
	d := NewDispatcher(sink, Options{QueueSize: 2, SendTimeout: 50 * time.Millisecond})
	defer d.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			d.Publish(Event{UserID: int64(i), Kind: KindSwapFailed})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a stuck sink")
	}
}

func TestDispatcher_SinkErrorsAbsorbed(t *testing.T) {
	sink := &recordingNotifier{err: errors.New("delivery down")}
	d := NewDispatcher(sink, Options{})

	d.Publish(Event{UserID: 1, Kind: KindReferralCredit})

	deadline := time.After(time.Second)
	for sink.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("event never attempted")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Stop returns cleanly despite the failing sink.
	d.Stop()
}
