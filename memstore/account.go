package memstore

import (
	"context"
	"sync"

	"github.com/academix-io/authcore"
)

// AccountStore is a mutex-guarded in-memory authcore.AccountStore.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*authcore.Account
	nextID   int64
}

// NewAccountStore creates an empty store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[string]*authcore.Account),
		nextID:   1,
	}
}

func (s *AccountStore) FindByEmail(_ context.Context, email string) (*authcore.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[email]
	if !ok {
		return nil, authcore.ErrAccountNotFound
	}
	return cloneAccount(account), nil
}

func (s *AccountStore) FindByVerificationToken(_ context.Context, token string) (*authcore.Account, error) {
	if token == "" {
		return nil, authcore.ErrAccountNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, account := range s.accounts {
		if account.VerificationToken == token {
			return cloneAccount(account), nil
		}
	}
	return nil, authcore.ErrAccountNotFound
}

func (s *AccountStore) FindByResetToken(_ context.Context, token string) (*authcore.Account, error) {
	if token == "" {
		return nil, authcore.ErrAccountNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, account := range s.accounts {
		if account.ResetToken == token {
			return cloneAccount(account), nil
		}
	}
	return nil, authcore.ErrAccountNotFound
}

func (s *AccountStore) Save(_ context.Context, account *authcore.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts[account.Email] = cloneAccount(account)
	return nil
}

func (s *AccountStore) NextID(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	return id, nil
}

func cloneAccount(account *authcore.Account) *authcore.Account {
	out := *account
	return &out
}
