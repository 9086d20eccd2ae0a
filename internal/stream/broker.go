package stream

import (
	"sync"
	"sync/atomic"
	"time"
)

const dateLayout = "02.01.2006"

// Event types sent to clients.
const (
	EventStatus   = "status"
	EventProgress = "progress"
	EventDone     = "done"
	EventFailed   = "failed"
)

// Event is one message about a catalogue run.
type Event struct {
	Type string `json:"type"`
	Date string `json:"date"`
	Data any    `json:"data,omitempty"`
}

// Terminal reports whether no further events follow for the run.
func (e Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventFailed
}

// Broker fans out run events to subscribers keyed by date. Slow subscribers
// lose events rather than blocking the run.
type Broker struct {
	mu     sync.Mutex
	subs   map[string]map[chan Event]struct{}
	latest map[string]Event
	buffer int

	dropped atomic.Int64
}

// NewBroker creates a Broker with the given per-subscriber buffer.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 64
	}
	return &Broker{
		subs:   make(map[string]map[chan Event]struct{}),
		latest: make(map[string]Event),
		buffer: buffer,
	}
}

// Publish delivers ev to every subscriber of ev.Date.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest[ev.Date] = ev
	for ch := range b.subs[ev.Date] {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// Begin announces a new run for date. It replaces a final event left by an
// earlier run, so clients that connect now follow the new run.
func (b *Broker) Begin(date string) {
	b.Publish(Event{Type: EventStatus, Date: date, Data: map[string]string{"state": "running"}})
}

// PruneBefore forgets the latest event of dates before cutoff and of keys
// that are not DD.MM.YYYY dates. It returns how many were removed.
func (b *Broker) PruneBefore(cutoff time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	var removed int
	for key := range b.latest {
		d, err := time.Parse(dateLayout, key)
		if err == nil && !d.Before(cutoff) {
			continue
		}
		delete(b.latest, key)
		removed++
	}
	return removed
}

// Subscribe returns a channel of events for date and a function that ends
// the subscription.
func (b *Broker) Subscribe(date string) (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	if b.subs[date] == nil {
		b.subs[date] = make(map[chan Event]struct{})
	}
	b.subs[date][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[date], ch)
			if len(b.subs[date]) == 0 {
				delete(b.subs, date)
			}
			b.mu.Unlock()
		})
	}
}

// Latest returns the most recent event published for date.
func (b *Broker) Latest(date string) (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ev, ok := b.latest[date]
	return ev, ok
}

// Subscribers returns the number of subscribers for date.
func (b *Broker) Subscribers(date string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[date])
}

// Dropped returns how many events were discarded for full subscribers.
func (b *Broker) Dropped() int64 {
	return b.dropped.Load()
}
