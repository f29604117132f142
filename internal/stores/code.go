package stores

import (
	"context"
	"crypto/subtle"
	"errors"
	"sync"
	"time"
)

var (
	// ErrCodeNotFound is an exported constant or variable used by the authentication engine.
	ErrCodeNotFound = errors.New("challenge code not found")
	// ErrCodeExpired is an exported constant or variable used by the authentication engine.
	ErrCodeExpired = errors.New("challenge code expired")
	// ErrCodeMismatch is an exported constant or variable used by the authentication engine.
	ErrCodeMismatch = errors.New("challenge code mismatch")
	// ErrCodeAttemptsExceeded is an exported constant or variable used by the authentication engine.
	ErrCodeAttemptsExceeded = errors.New("challenge code attempts exceeded")
	// ErrCodeBackend is an exported constant or variable used by the authentication engine.
	ErrCodeBackend = errors.New("challenge code backend unavailable")
)

// CodeStore holds at most one pending challenge code per key. Put replaces
// any previous code for the key. Verify consumes the record on a match,
// counts a failed attempt on a mismatch, and destroys the record once
// maxAttempts failures accumulate.
type CodeStore interface {
	Put(ctx context.Context, key, code string, ttl time.Duration) error
	Verify(ctx context.Context, key, code string, maxAttempts int) error
	Delete(ctx context.Context, key string) error
}

type memoryCode struct {
	code      string
	expiresAt time.Time
	attempts  int
}

// MemoryCodeStore is the in-process CodeStore implementation.
type MemoryCodeStore struct {
	mu    sync.Mutex
	codes map[string]*memoryCode
	now   func() time.Time
}

// NewMemoryCodeStore creates a store. The now func is injectable for tests;
// pass nil for the wall clock.
func NewMemoryCodeStore(now func() time.Time) *MemoryCodeStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryCodeStore{
		codes: make(map[string]*memoryCode),
		now:   now,
	}
}

func (s *MemoryCodeStore) Put(_ context.Context, key, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.codes[key] = &memoryCode{
		code:      code,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryCodeStore) Verify(_ context.Context, key, code string, maxAttempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.codes[key]
	if entry == nil {
		return ErrCodeNotFound
	}
	if s.now().After(entry.expiresAt) {
		delete(s.codes, key)
		return ErrCodeExpired
	}

	if subtle.ConstantTimeCompare([]byte(entry.code), []byte(code)) == 1 {
		delete(s.codes, key)
		return nil
	}

	entry.attempts++
	if entry.attempts >= maxAttempts {
		delete(s.codes, key)
		return ErrCodeAttemptsExceeded
	}
	return ErrCodeMismatch
}

func (s *MemoryCodeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, key)
	return nil
}
