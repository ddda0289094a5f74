package queue

import (
	"log/slog"
	"sync"
	"time"

	"deckhand/internal/logging"
)

// EventType classifies a queue lifecycle event.
type EventType string

const (
	EventQueued    EventType = "queued"
	EventStarted   EventType = "started"
	EventProgress  EventType = "progress"
	EventRequeued  EventType = "requeued"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	EventRemoved   EventType = "removed"
)

// Event is one queue lifecycle notification. Job carries a snapshot taken at
// publish time; subscribers may hold it without racing the store.
type Event struct {
	Type    EventType
	Job     *Job
	Message string
	Time    time.Time
}

// DefaultSubscriberBuffer is the channel depth handed to subscribers that do
// not size their own.
const DefaultSubscriberBuffer = 32

// Hub fans queue events out to subscribers. Publishing never blocks: a
// subscriber whose buffer is full loses the event, keeping slow consumers
// (a stalled websocket, a wedged notifier) from stalling the scheduler.
type Hub struct {
	mu          sync.Mutex
	logger      *slog.Logger
	subscribers map[uint64]chan Event
	nextID      uint64
	closed      bool
}

// NewHub creates an event hub. A nil logger silences drop reporting.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		logger:      logging.NewComponentLogger(logger, "events"),
		subscribers: make(map[uint64]chan Event),
	}
}

// Subscribe registers a new subscriber and returns its event channel plus a
// cancel function. The channel closes on cancel or hub shutdown. A buffer
// <= 0 selects DefaultSubscriberBuffer.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	ch := make(chan Event, buffer)
	h.subscribers[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subscribers[id]; ok {
			delete(h.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber that has buffer room.
func (h *Hub) Publish(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for id, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			h.logger.Debug("event dropped for slow subscriber",
				logging.String(logging.FieldEventType, string(event.Type)),
				logging.Any("subscriber", id))
		}
	}
}

// Close shuts the hub down and closes all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subscribers {
		delete(h.subscribers, id)
		close(ch)
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
