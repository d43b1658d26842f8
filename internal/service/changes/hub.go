package changes

import "sync"

// Hub fans schedule change notices out to in-process subscribers such as
// open SSE streams. Slow subscribers miss notices rather than block.
type Hub struct {
	mu   sync.Mutex
	subs map[chan int64]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[chan int64]struct{}{}}
}

// Subscribe returns a channel of changed schedule event ids and a func that
// unsubscribes and closes it.
func (h *Hub) Subscribe() (<-chan int64, func()) {
	ch := make(chan int64, 16)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Notify(scheduleEventID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- scheduleEventID:
		default:
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
