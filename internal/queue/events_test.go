package queue_test

import (
	"context"
	"testing"
	"time"

	"deckhand/internal/queue"
	"deckhand/internal/testsupport"
)

func collectEvents(t *testing.T, ch <-chan queue.Event, want int) []queue.Event {
	t.Helper()
	events := make([]queue.Event, 0, want)
	deadline := time.After(2 * time.Second)
	for len(events) < want {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("event channel closed after %d events, want %d", len(events), want)
			}
			events = append(events, ev)
		case <-deadline:
			t.Fatalf("timed out after %d events, want %d", len(events), want)
		}
	}
	return events
}

func TestStoreLifecycleEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	hub := queue.NewHub(nil)
	defer hub.Close()
	store.SetHub(hub)

	ch, cancel := hub.Subscribe(16)
	defer cancel()

	ctx := context.Background()
	job := testsupport.NewPendingJob(t, store, "/docs/tracked.pdf")

	job.Status = queue.StatusProcessing
	if _, err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	job.SetCompleted("/out/tracked_slides.pdf")
	if _, err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if _, err := store.Remove(ctx, job.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	events := collectEvents(t, ch, 4)
	expected := []queue.EventType{queue.EventQueued, queue.EventStarted, queue.EventCompleted, queue.EventRemoved}
	for i, want := range expected {
		if events[i].Type != want {
			t.Fatalf("event %d: got %s, want %s", i, events[i].Type, want)
		}
		if events[i].Job == nil || events[i].Job.ID != job.ID {
			t.Fatalf("event %d missing job snapshot", i)
		}
	}
}

func TestUpdateWithoutStatusChangeStaysQuiet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	hub := queue.NewHub(nil)
	defer hub.Close()
	store.SetHub(hub)

	ch, cancel := hub.Subscribe(4)
	defer cancel()

	job := testsupport.NewPendingJob(t, store, "/docs/quiet.pdf")
	<-ch // queued

	job.WorkspaceID = "nb-42"
	if _, err := store.Update(context.Background(), job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event for same-status update: %s", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := queue.NewHub(nil)
	defer hub.Close()

	ch, cancel := hub.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			hub.Publish(queue.Event{Type: queue.EventProgress})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	// Exactly one event fit the buffer; the rest were dropped.
	<-ch
	select {
	case ev, ok := <-ch:
		if ok {
			t.Fatalf("expected drops, got extra event %s", ev.Type)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	hub := queue.NewHub(nil)
	defer hub.Close()

	ch, cancel := hub.Subscribe(4)
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after cancel")
	}
	if hub.SubscriberCount() != 0 {
		t.Fatalf("expected no subscribers, got %d", hub.SubscriberCount())
	}

	// Publishing after cancel must not panic.
	hub.Publish(queue.Event{Type: queue.EventQueued})
}
