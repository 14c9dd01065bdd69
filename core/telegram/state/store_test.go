package state

import (
	"errors"
	"sync"
	"testing"
)

type counter struct{ n int }

func TestDoKeepsAndEndsSessions(t *testing.T) {
	s := NewStore[counter]()
	key := Key{ChatID: 1, UserID: 2}

	if s.Active(key) {
		t.Fatal("new store should have no sessions")
	}
	err := s.Do(key, func(cur *counter) (*counter, error) {
		if cur != nil {
			t.Fatalf("expected nil session, got %+v", cur)
		}
		return &counter{n: 1}, nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !s.Active(key) || s.Len() != 1 {
		t.Fatalf("session not kept: active=%v len=%d", s.Active(key), s.Len())
	}
	if s.Active(Key{ChatID: 1, UserID: 3}) {
		t.Fatal("other user in the same chat must not share the session")
	}

	boom := errors.New("boom")
	err = s.Do(key, func(cur *counter) (*counter, error) {
		if cur == nil || cur.n != 1 {
			t.Fatalf("unexpected session %+v", cur)
		}
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if s.Active(key) || s.Len() != 0 {
		t.Fatal("session should end when fn returns nil")
	}
}

func TestClear(t *testing.T) {
	s := NewStore[counter]()
	key := Key{ChatID: 5, UserID: 5}
	if s.Clear(key) {
		t.Fatal("clearing an empty key should report false")
	}
	_ = s.Do(key, func(*counter) (*counter, error) { return &counter{}, nil })
	if !s.Clear(key) {
		t.Fatal("clear should report the dropped session")
	}
	if s.Active(key) {
		t.Fatal("session still active after clear")
	}
}

func TestPanicEndsSession(t *testing.T) {
	s := NewStore[counter]()
	key := Key{ChatID: 9, UserID: 9}
	_ = s.Do(key, func(*counter) (*counter, error) { return &counter{n: 4}, nil })

	func() {
		defer func() { _ = recover() }()
		_ = s.Do(key, func(*counter) (*counter, error) { panic("handler bug") })
	}()

	if s.Active(key) {
		t.Fatal("panicking handler should drop the session")
	}
	// The key must not stay locked.
	if err := s.Do(key, func(*counter) (*counter, error) { return nil, nil }); err != nil {
		t.Fatalf("Do after panic: %v", err)
	}
}

func TestDoSerialisesPerKey(t *testing.T) {
	s := NewStore[counter]()
	key := Key{ChatID: 1, UserID: 1}
	const workers = 50

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = s.Do(key, func(cur *counter) (*counter, error) {
				if cur == nil {
					cur = &counter{}
				}
				cur.n++
				return cur, nil
			})
		}()
	}
	wg.Wait()

	var got int
	_ = s.Do(key, func(cur *counter) (*counter, error) {
		got = cur.n
		return cur, nil
	})
	if got != workers {
		t.Fatalf("lost updates: got %d, want %d", got, workers)
	}
}
