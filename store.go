package acoustica

import "sync/atomic"

// Store holds the most recent Result. Writers race and the last Set wins;
// readers never observe a partially written result.
type Store struct {
	latest atomic.Pointer[Result]
}

func NewStore() *Store {
	return &Store{}
}

// Set replaces the stored result.
func (s *Store) Set(result *Result) {
	s.latest.Store(result)
}

// Get returns the stored result, and false if nothing was ever stored.
func (s *Store) Get() (*Result, bool) {
	result := s.latest.Load()

	return result, result != nil
}
