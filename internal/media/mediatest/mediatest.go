// Package mediatest provides an in-memory media.ObjectStorage for tests.
package mediatest

import (
	"context"
	"errors"
	"sync"
)

// ErrInjected is returned by Put while failures are pending.
var ErrInjected = errors.New("mediatest: injected failure")

// Storage keeps objects in a map. URLs are "mem://" + key.
type Storage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failures map[string]int
	puts     int
}

// New returns an empty Storage.
func New() *Storage {
	return &Storage{objects: map[string][]byte{}, failures: map[string]int{}}
}

// FailNext makes the next n Put calls for keys starting with prefix fail.
// An empty prefix matches every key.
func (s *Storage) FailNext(prefix string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[prefix] += n
}

func (s *Storage) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	for prefix, n := range s.failures {
		if n > 0 && len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			s.failures[prefix] = n - 1
			return "", ErrInjected
		}
	}
	s.objects[key] = append([]byte(nil), data...)
	return "mem://" + key, nil
}

func (s *Storage) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Len reports how many objects are stored.
func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// Puts reports how many Put calls were made, including failed ones.
func (s *Storage) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

// Has reports whether key is stored.
func (s *Storage) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}
