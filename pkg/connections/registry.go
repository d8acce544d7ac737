package connections

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 32

// Observer is an open connection that receives broadcast updates
type Observer interface {
	Send(message []byte) error
}

type Entry struct {
	Token    string
	Observer Observer
}

type shard struct {
	sync.RWMutex
	observers map[string]Observer
}

// Registry tracks open observer connections by session token. Tokens are spread over
// independently locked shards.
type Registry struct {
	shards [shardCount]*shard
}

func NewRegistry() *Registry {
	registry := &Registry{}
	for i := range registry.shards {
		registry.shards[i] = &shard{observers: map[string]Observer{}}
	}

	return registry
}

func (r *Registry) shardFor(token string) *shard {
	return r.shards[xxhash.Sum64String(token)%shardCount]
}

// Register stores the observer for token, replacing and returning any previous one
func (r *Registry) Register(token string, observer Observer) (Observer, bool) {
	s := r.shardFor(token)

	s.Lock()
	previous, replaced := s.observers[token]
	s.observers[token] = observer
	s.Unlock()

	return previous, replaced
}

// Unregister removes whatever is registered for token. Unknown tokens are ignored.
func (r *Registry) Unregister(token string) {
	s := r.shardFor(token)

	s.Lock()
	delete(s.observers, token)
	s.Unlock()
}

// Release removes token only while it still maps to observer, so a closing connection
// never removes the connection that replaced it
func (r *Registry) Release(token string, observer Observer) bool {
	s := r.shardFor(token)

	s.Lock()
	defer s.Unlock()

	if current, exists := s.observers[token]; !exists || current != observer {
		return false
	}
	delete(s.observers, token)

	return true
}

func (r *Registry) Get(token string) (Observer, bool) {
	s := r.shardFor(token)

	s.RLock()
	observer, exists := s.observers[token]
	s.RUnlock()

	return observer, exists
}

// ListActive returns a snapshot of the registered observers
func (r *Registry) ListActive() []Entry {
	var entries []Entry

	for _, s := range r.shards {
		s.RLock()
		for token, observer := range s.observers {
			entries = append(entries, Entry{Token: token, Observer: observer})
		}
		s.RUnlock()
	}

	return entries
}

func (r *Registry) Len() int {
	count := 0

	for _, s := range r.shards {
		s.RLock()
		count += len(s.observers)
		s.RUnlock()
	}

	return count
}
