// Package session provides the in-memory conversation history cache.
//
// Entries expire lazily: a read past the TTL deletes the record and returns
// an empty history. Every mutation trims the history to the most recent
// 2*maxRounds messages (oldest dropped first) and refreshes the timestamp.
// Mutations on the same key are serialized by a per-key mutex; unrelated
// keys do not contend beyond the map lookup.
package session

import (
	"sync"
	"time"

	"github.com/xiaot623/gogo/relay/domain"
)

const (
	DefaultTTL       = 7200 * time.Second
	DefaultMaxRounds = 10
)

type record struct {
	mu       sync.Mutex
	messages []domain.Message
	touched  time.Time
}

// Store maps a session key to its ordered message history.
type Store struct {
	mu        sync.Mutex
	records   map[string]*record
	ttl       time.Duration
	maxRounds int
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides the default record lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithMaxRounds overrides the retained round count (2*maxRounds messages).
func WithMaxRounds(rounds int) Option {
	return func(s *Store) { s.maxRounds = rounds }
}

// WithClock injects the time source, used by expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		records:   make(map[string]*record),
		ttl:       DefaultTTL,
		maxRounds: DefaultMaxRounds,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lookup returns the live record for key, deleting it if expired.
func (s *Store) lookup(key string) *record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil
	}
	rec.mu.Lock()
	expired := s.now().Sub(rec.touched) > s.ttl
	rec.mu.Unlock()
	if expired {
		delete(s.records, key)
		return nil
	}
	return rec
}

// getOrCreate returns the live record for key, inserting a fresh one when
// absent or expired.
func (s *Store) getOrCreate(key string) *record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if ok {
		rec.mu.Lock()
		expired := s.now().Sub(rec.touched) > s.ttl
		rec.mu.Unlock()
		if !expired {
			return rec
		}
	}
	rec = &record{touched: s.now()}
	s.records[key] = rec
	return rec
}

// Get returns a copy of the history for key, or an empty slice when the key
// is unknown or expired. Expired records are deleted as a side effect.
func (s *Store) Get(key string) []domain.Message {
	rec := s.lookup(key)
	if rec == nil {
		return []domain.Message{}
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]domain.Message, len(rec.messages))
	copy(out, rec.messages)
	return out
}

// Append adds one message to the history for key, trimming to the window.
func (s *Store) Append(key string, msg domain.Message) {
	rec := s.getOrCreate(key)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.messages = append(rec.messages, msg)
	rec.messages = trim(rec.messages, s.maxRounds)
	rec.touched = s.now()
}

// Set replaces the history for key wholesale, applying the same trim rule.
func (s *Store) Set(key string, messages []domain.Message) {
	rec := s.getOrCreate(key)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	msgs := make([]domain.Message, len(messages))
	copy(msgs, messages)
	rec.messages = trim(msgs, s.maxRounds)
	rec.touched = s.now()
}

// Has reports whether a live (non-expired) record exists for key, without
// refreshing it.
func (s *Store) Has(key string) bool {
	return s.lookup(key) != nil
}

func trim(messages []domain.Message, maxRounds int) []domain.Message {
	limit := maxRounds * 2
	if len(messages) > limit {
		return messages[len(messages)-limit:]
	}
	return messages
}
