package events

import (
	"context"
	"sync"
)

// MemoryBroker delivers events within one process. Slow subscribers drop
// events instead of blocking publishers.
type MemoryBroker struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]chan Message
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: map[string]map[int]chan Message{}}
}

func (b *MemoryBroker) Publish(_ context.Context, sessionID, typ string, data any) error {
	msg, err := newMessage(sessionID, typ, data)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[sessionID] {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, sessionID string) (<-chan Message, func(), error) {
	ch := make(chan Message, 16)

	b.mu.Lock()
	id := b.next
	b.next++
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = map[int]chan Message{}
	}
	b.subs[sessionID][id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[sessionID], id)
			if len(b.subs[sessionID]) == 0 {
				delete(b.subs, sessionID)
			}
			close(ch)
			b.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel, nil
}
