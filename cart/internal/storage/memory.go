package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps everything in process. Every Service sharing one MemoryStore behaves like a
// browser tab sharing one local storage.
type MemoryStore struct {
	values      map[string]string
	subscribers map[int]chan Event
	mu          sync.RWMutex
	nextID      int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:      map[string]string{},
		subscribers: map[int]chan Event{},
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Publish never blocks. A subscriber whose buffer is full misses the event, the next one still
// makes it reload the latest state.
func (s *MemoryStore) Publish(_ context.Context, event Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (s *MemoryStore) Subscribe(c context.Context) (<-chan Event, func(), error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	ch := make(chan Event, subscriberBuffer)
	s.subscribers[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			close(ch)
			s.mu.Unlock()
		})
	}
	go func() {
		<-c.Done()
		cancel()
	}()
	return ch, cancel, nil
}
