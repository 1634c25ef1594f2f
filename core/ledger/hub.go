package ledger

import "sync"

// Hub fans appended blocks out to subscribers. A subscriber that does not keep up loses blocks
// instead of blocking the writer.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]chan Block
	next    uint64
	bufSize int
	closed  bool
}

func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 64
	}
	return &Hub{subs: make(map[uint64]chan Block), bufSize: bufSize}
}

// Subscribe returns a channel of new blocks and a cancel func that closes it.
func (h *Hub) Subscribe() (<-chan Block, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Block, h.bufSize)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
}

func (h *Hub) Broadcast(b Block) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- b:
		default: // slow subscriber
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close closes every subscription; later subscriptions are returned closed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
