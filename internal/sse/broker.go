// Package sse streams idea change events to connected clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/starford/ideacards/internal/idea"
)

// Event types emitted by the broker.
const (
	TypeCreated = "idea.created"
	TypeUpdated = "idea.updated"
	TypeStatus  = "idea.status"
	TypeChanged = "ideas.changed"
)

const (
	defaultThrottle  = 2 * time.Second
	defaultHeartbeat = 25 * time.Second
	subscriberBuffer = 64
)

// Event is one SSE frame.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// IdeaData is the payload of the per-idea events.
type IdeaData struct {
	IdeaID int64       `json:"idea_id"`
	Status idea.Status `json:"status"`
}

// Subscription is one connected client. C is closed when the client is
// removed or the broker shuts down.
type Subscription struct {
	C <-chan []byte

	out    chan []byte
	status idea.Status
}

// Option configures a Broker.
type Option func(*Broker)

// WithHeartbeat sets the interval of keep-alive comments on open streams.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.heartbeat = d
		}
	}
}

// Broker fans idea events out to subscribers. A subscriber bound to a status
// only receives idea events for ideas that have it; ideas.changed goes to
// everyone, at most once per throttle interval.
type Broker struct {
	throttle  time.Duration
	heartbeat time.Duration

	mu         sync.Mutex
	subs       map[*Subscription]struct{}
	seq        uint64
	lastChange time.Time
	closed     bool
}

// NewBroker returns a broker that emits ideas.changed at most once per
// throttle.
func NewBroker(throttle time.Duration, opts ...Option) *Broker {
	if throttle <= 0 {
		throttle = defaultThrottle
	}
	b := &Broker{
		throttle:  throttle,
		heartbeat: defaultHeartbeat,
		subs:      make(map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a client. An empty status receives every event.
func (b *Broker) Subscribe(status idea.Status) *Subscription {
	out := make(chan []byte, subscriberBuffer)
	sub := &Subscription{C: out, out: out, status: status}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(out)
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its channel. Unknown or already removed
// subscriptions are ignored.
func (b *Broker) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.out)
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close drops every subscriber. Later publishes are no-ops.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.out)
	}
	clear(b.subs)
}

// Publish sends ev to every subscriber.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sendLocked(ev, "")
}

// PublishIdea emits eventType for it followed by a throttled ideas.changed.
func (b *Broker) PublishIdea(eventType string, it *idea.Idea) {
	if it == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sendLocked(Event{Type: eventType, Data: IdeaData{IdeaID: it.IdeaID, Status: it.Status}}, it.Status)

	now := time.Now()
	if now.Sub(b.lastChange) < b.throttle {
		return
	}
	b.lastChange = now
	b.sendLocked(Event{Type: TypeChanged, Data: struct{}{}}, "")
}

// sendLocked frames ev once and offers it to each matching subscriber. A
// subscriber with a full buffer misses the frame.
func (b *Broker) sendLocked(ev Event, status idea.Status) {
	if b.closed || len(b.subs) == 0 {
		return
	}
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return
	}
	b.seq++
	frame := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", b.seq, ev.Type, payload))

	for sub := range b.subs {
		if sub.status != "" && status != "" && sub.status != status {
			continue
		}
		select {
		case sub.out <- frame:
		default:
		}
	}
}

// ServeHTTP streams events (GET /api/events). The optional status query
// parameter narrows idea events to ideas with that status.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var status idea.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		s, err := idea.ParseStatus(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		status = s
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := b.Subscribe(status)
	defer b.Unsubscribe(sub)

	beat := time.NewTicker(b.heartbeat)
	defer beat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-beat.C:
			_, _ = w.Write([]byte(": ping " + strconv.FormatInt(time.Now().Unix(), 10) + "\n\n"))
			flusher.Flush()
		case frame, ok := <-sub.C:
			if !ok {
				return
			}
			_, _ = w.Write(frame)
			flusher.Flush()
		}
	}
}
