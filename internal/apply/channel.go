// Package apply commits synthesized rule sets to the document store and
// watches the host engine's diagnostic channel for validation fallout.
package apply

import (
	"sync"
)

// ValidationChannel is the host engine's push-only diagnostic stream. There
// is no acknowledgement protocol: subscribers get whatever is emitted while
// they are installed and nothing else. The token identifies the subscriber;
// hosts whose stream supports correlation can use it to scope delivery,
// the in-process Broadcaster delivers everything to everyone.
type ValidationChannel interface {
	Subscribe(token string) (<-chan string, func())
}

// Broadcaster is an in-process ValidationChannel: a fan-out of string
// diagnostics with non-blocking sends. Slow subscribers lose messages rather
// than stalling the emitter, matching the best-effort contract of the window
// monitor.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[string]chan string
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]chan string)}
}

// Subscribe installs a subscriber and returns its channel plus an uninstall
// function. Uninstalling closes the channel.
func (b *Broadcaster) Subscribe(token string) (<-chan string, func()) {
	ch := make(chan string, 64)
	b.mu.Lock()
	b.subs[token] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, token)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish fans a diagnostic out to every installed subscriber without
// blocking. A full subscriber buffer drops the message for that subscriber.
func (b *Broadcaster) Publish(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- message:
		default:
		}
	}
}
