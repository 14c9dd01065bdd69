package state

import "sync"

// Key identifies a conversation: one user in one chat.
type Key struct {
	ChatID int64
	UserID int64
}

type slot[T any] struct {
	mu      sync.Mutex
	session *T
	active  bool
	refs    int
}

// Store holds at most one session per key.
type Store[T any] struct {
	mu    sync.Mutex
	slots map[Key]*slot[T]
}

// NewStore returns an empty store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{slots: make(map[Key]*slot[T])}
}

// Do runs fn with exclusive access to the session under key. fn receives the
// current session, nil when there is none, and returns the session to keep.
// Returning nil ends the conversation. A panic in fn also ends it.
func (s *Store[T]) Do(key Key, fn func(cur *T) (*T, error)) (err error) {
	sl := s.acquire(key)
	sl.mu.Lock()

	var next *T
	defer func() {
		sl.session = next
		s.mu.Lock()
		sl.refs--
		sl.active = next != nil
		if sl.refs == 0 && next == nil {
			delete(s.slots, key)
		}
		s.mu.Unlock()
		sl.mu.Unlock()
	}()

	next, err = fn(sl.session)
	return err
}

// Active reports whether key has a session.
func (s *Store[T]) Active(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[key]
	return ok && sl.active
}

// Clear ends the session under key and reports whether there was one.
func (s *Store[T]) Clear(key Key) bool {
	var had bool
	_ = s.Do(key, func(cur *T) (*T, error) {
		had = cur != nil
		return nil, nil
	})
	return had
}

// Len returns the number of live sessions.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sl := range s.slots {
		if sl.active {
			n++
		}
	}
	return n
}

func (s *Store[T]) acquire(key Key) *slot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[key]
	if !ok {
		sl = &slot[T]{}
		s.slots[key] = sl
	}
	sl.refs++
	return sl
}
