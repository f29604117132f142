package memstore

import (
	"context"
	"sync"

	"github.com/academix-io/authcore"
)

// MFAStore is a mutex-guarded in-memory authcore.MFAStore.
type MFAStore struct {
	mu          sync.RWMutex
	enrollments map[string]*authcore.Enrollment
}

// NewMFAStore creates an empty store.
func NewMFAStore() *MFAStore {
	return &MFAStore{
		enrollments: make(map[string]*authcore.Enrollment),
	}
}

func (s *MFAStore) GetEnrollment(_ context.Context, email string) (*authcore.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	enrollment, ok := s.enrollments[email]
	if !ok {
		return nil, authcore.ErrEnrollmentNotFound
	}
	return cloneEnrollment(enrollment), nil
}

func (s *MFAStore) SaveEnrollment(_ context.Context, email string, enrollment *authcore.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enrollments[email] = cloneEnrollment(enrollment)
	return nil
}

func cloneEnrollment(enrollment *authcore.Enrollment) *authcore.Enrollment {
	out := *enrollment
	if len(enrollment.BackupCodes) > 0 {
		out.BackupCodes = make([]string, len(enrollment.BackupCodes))
		copy(out.BackupCodes, enrollment.BackupCodes)
	}
	return &out
}
