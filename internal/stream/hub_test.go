package stream

import (
	"testing"
	"time"
)

func TestHubSubscribePublish(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe()
	defer cancel()

	if n := hub.Subscribers(); n != 1 {
		t.Fatalf("subscribers = %d, want 1", n)
	}

	snap := testSnapshot(1, time.Now())
	hub.Publish(snap)

	select {
	case got := <-ch:
		if got != snap {
			t.Error("received a different snapshot than published")
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub()

	_, cancel1 := hub.Subscribe()
	_, cancel2 := hub.Subscribe()
	if n := hub.Subscribers(); n != 2 {
		t.Fatalf("subscribers = %d, want 2", n)
	}

	cancel1()
	if n := hub.Subscribers(); n != 1 {
		t.Errorf("subscribers after cancel = %d, want 1", n)
	}

	// Cancelling twice must be harmless.
	cancel1()
	cancel2()
	if n := hub.Subscribers(); n != 0 {
		t.Errorf("subscribers after all cancelled = %d, want 0", n)
	}

	// Publishing into an empty hub is a no-op.
	hub.Publish(testSnapshot(1, time.Now()))
}

func TestHubSlowSubscriberSkipped(t *testing.T) {
	hub := NewHub()

	slow, cancelSlow := hub.Subscribe()
	defer cancelSlow()
	fast, cancelFast := hub.Subscribe()
	defer cancelFast()

	// Fill the slow subscriber's buffer and keep publishing; the hub must
	// never block, and the fast subscriber must keep receiving.
	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Publish(testSnapshot(1, time.Now()))
		select {
		case <-fast:
		case <-time.After(time.Second):
			t.Fatalf("fast subscriber starved at publish %d", i)
		}
	}

	// The slow subscriber holds at most its buffer worth of snapshots.
	drained := 0
	for {
		select {
		case <-slow:
			drained++
		default:
			if drained != subscriberBuffer {
				t.Errorf("slow subscriber drained %d snapshots, want %d", drained, subscriberBuffer)
			}
			return
		}
	}
}

func TestHubPublishNil(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Publish(nil)

	select {
	case got := <-ch:
		t.Errorf("nil publish delivered %v", got)
	case <-time.After(50 * time.Millisecond):
	}
}
