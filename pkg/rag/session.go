package rag

import (
	"sync"
	"time"
)

// QueryRecord is one entry of the in-process query history.
type QueryRecord struct {
	Query     string    `json:"query"`
	Mode      string    `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionState keeps a bounded history of recent queries. The engine never
// touches it; the owning caller decides what to record and when.
type SessionState struct {
	mu      sync.Mutex
	limit   int
	entries []QueryRecord
}

func NewSessionState(limit int) *SessionState {
	if limit <= 0 {
		limit = 50
	}
	return &SessionState{limit: limit}
}

// Add appends a record, evicting the oldest entry once the limit is reached.
func (s *SessionState) Add(rec QueryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, rec)
	if len(s.entries) > s.limit {
		s.entries = s.entries[len(s.entries)-s.limit:]
	}
}

// Recent returns up to n records, newest first.
func (s *SessionState) Recent(n int) []QueryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]QueryRecord, n)
	for i := 0; i < n; i++ {
		out[i] = s.entries[len(s.entries)-1-i]
	}
	return out
}

func (s *SessionState) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *SessionState) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}
