package memory

import (
	"sync"
	"time"
)

// DefaultShortTermCapacity bounds the short-term buffer when no explicit
// capacity is configured.
const DefaultShortTermCapacity = 100

// Exchange is one user/assistant turn held in short-term memory.
type Exchange struct {
	Utterance string    `json:"utterance"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// ShortTermBuffer is a bounded FIFO of recent exchanges. When the buffer is
// full the oldest exchange is evicted. Safe for concurrent use.
type ShortTermBuffer struct {
	mu       sync.Mutex
	capacity int
	items    []Exchange
}

// NewShortTermBuffer creates a buffer holding at most capacity exchanges.
// A non-positive capacity falls back to DefaultShortTermCapacity.
func NewShortTermBuffer(capacity int) *ShortTermBuffer {
	if capacity <= 0 {
		capacity = DefaultShortTermCapacity
	}
	return &ShortTermBuffer{capacity: capacity}
}

// Add appends an exchange, evicting the oldest entry when full.
func (b *ShortTermBuffer) Add(ex Exchange) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ex.Timestamp.IsZero() {
		ex.Timestamp = time.Now()
	}
	if len(b.items) >= b.capacity {
		b.items = b.items[1:]
	}
	b.items = append(b.items, ex)
}

// Items returns a copy of the buffered exchanges, oldest first.
func (b *ShortTermBuffer) Items() []Exchange {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Exchange, len(b.items))
	copy(out, b.items)
	return out
}

// Recent returns up to n of the newest exchanges, oldest first.
func (b *ShortTermBuffer) Recent(n int) []Exchange {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 || n > len(b.items) {
		n = len(b.items)
	}
	out := make([]Exchange, n)
	copy(out, b.items[len(b.items)-n:])
	return out
}

// Len reports the current number of buffered exchanges.
func (b *ShortTermBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Clear drops all buffered exchanges.
func (b *ShortTermBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = nil
}

// Capacity returns the configured maximum number of exchanges.
func (b *ShortTermBuffer) Capacity() int { return b.capacity }
