package notify

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Event is the minimal job projection pushed to an owner's channel.
type Event struct {
	OwnerID      int64  `json:"-"`
	JobID        string `json:"job_id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	HasOutput    bool   `json:"has_output"`
	OutputURL    string `json:"output_url"`
}

// Publisher accepts job-status events. Implementations must be safe for
// concurrent use and must never block the caller for long.
type Publisher interface {
	Publish(Event)
}

// Noop is a Publisher that discards every event. It stands in for the
// hub in tests and in deployments with push updates disabled.
type Noop struct{}

// Publish discards the event.
func (Noop) Publish(Event) {}

const defaultSubscriberBuffer = 16

// Subscriber is one connected client's view of an owner's event stream.
type Subscriber struct {
	ownerID int64
	events  chan Event
}

// Events returns the channel delivering this subscriber's updates. The
// channel is closed when the subscriber is removed or the hub shuts down.
func (s *Subscriber) Events() <-chan Event {
	return s.events
}

// Hub fans job-status events out to per-owner subscriber groups.
type Hub struct {
	logger *slog.Logger
	events chan Event
	done   chan struct{}

	mu          sync.Mutex
	subscribers map[int64]map[*Subscriber]struct{}
	closed      bool

	dropped atomic.Int64
}

// NewHub creates a hub with the given event buffer and starts its drain
// goroutine. Call Close to stop it.
func NewHub(logger *slog.Logger, buffer int) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = 256
	}
	h := &Hub{
		logger:      logger,
		events:      make(chan Event, buffer),
		done:        make(chan struct{}),
		subscribers: make(map[int64]map[*Subscriber]struct{}),
	}
	go h.run()
	return h
}

// Publish enqueues an event for delivery. It never blocks: when the hub
// buffer is full or the hub is shut down the event is dropped.
func (h *Hub) Publish(event Event) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.events <- event:
	default:
		h.dropped.Add(1)
		h.logger.Debug("notification dropped, hub buffer full",
			"job_id", event.JobID,
			"status", event.Status,
		)
	}
}

// Subscribe registers a new subscriber for ownerID's updates.
func (h *Hub) Subscribe(ownerID int64) *Subscriber {
	sub := &Subscriber{ownerID: ownerID, events: make(chan Event, defaultSubscriberBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.events)
		return sub
	}
	group := h.subscribers[ownerID]
	if group == nil {
		group = make(map[*Subscriber]struct{})
		h.subscribers[ownerID] = group
	}
	group[sub] = struct{}{}
	return sub
}

// Unsubscribe removes a subscriber and closes its event channel.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.subscribers[sub.ownerID]
	if !ok {
		return
	}
	if _, ok := group[sub]; !ok {
		return
	}
	delete(group, sub)
	if len(group) == 0 {
		delete(h.subscribers, sub.ownerID)
	}
	close(sub.events)
}

// Dropped returns how many events were discarded due to backpressure.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close stops the drain goroutine and closes all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.done)
	for owner, group := range h.subscribers {
		for sub := range group {
			close(sub.events)
		}
		delete(h.subscribers, owner)
	}
	h.mu.Unlock()
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return
		case event := <-h.events:
			h.fanOut(event)
		}
	}
}

func (h *Hub) fanOut(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers[event.OwnerID] {
		select {
		case sub.events <- event:
		default:
			h.dropped.Add(1)
		}
	}
}

var _ Publisher = (*Hub)(nil)
var _ Publisher = Noop{}
