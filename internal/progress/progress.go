// Package progress is the single notification channel every operation
// reports human-readable progress and error messages through, so a host UI
// can surface real-time status without polling.
package progress

import (
	"fmt"
	"sync"
	"time"
)

// Level distinguishes progress events from error events.
type Level string

const (
	LevelProgress Level = "progress"
	LevelError    Level = "error"
)

// Event is one notification.
type Event struct {
	Level   Level
	Message string
	Time    time.Time
}

// Notifier is the reporting interface handed to the managers.
type Notifier interface {
	Progressf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Hub fans events out to subscribers. Emission never blocks: a subscriber
// that falls behind loses events rather than stalling package operations.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers a listener. The returned cancel func must be called
// when the listener is done.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan Event, 64)
	h.subs[id] = ch
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
}

func (h *Hub) emit(level Level, format string, args ...interface{}) {
	ev := Event{Level: level, Message: fmt.Sprintf(format, args...), Time: time.Now()}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Progressf reports a progress message.
func (h *Hub) Progressf(format string, args ...interface{}) {
	h.emit(LevelProgress, format, args...)
}

// Errorf reports an error message.
func (h *Hub) Errorf(format string, args ...interface{}) {
	h.emit(LevelError, format, args...)
}

// Nop is a Notifier that discards everything.
type Nop struct{}

func (Nop) Progressf(string, ...interface{}) {}
func (Nop) Errorf(string, ...interface{})    {}
