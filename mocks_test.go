package tripauth_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/tourgether/tripauth"
	"github.com/goliatone/go-errors"
)

// memStore is an in-memory SessionStore + CodeStore with TTL bookkeeping.
type memStore struct {
	mu       sync.Mutex
	sessions map[string][2]string // sessionID -> {refresh, owner}
	owners   map[string]string    // owner -> sessionID
	kv       map[string]memEntry
	now      func() time.Time
	failAll  bool
}

type memEntry struct {
	value     string
	expiresAt time.Time
}

func newMemStore() *memStore {
	return &memStore{
		sessions: map[string][2]string{},
		owners:   map[string]string{},
		kv:       map[string]memEntry{},
		now:      time.Now,
	}
}

var errStoreDown = errors.New("store unavailable", errors.CategoryInternal)

func (s *memStore) Put(ctx context.Context, sessionID, refreshToken, ownerEmail string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errStoreDown
	}
	if prev, ok := s.owners[ownerEmail]; ok && prev != sessionID {
		delete(s.sessions, prev)
	}
	s.sessions[sessionID] = [2]string{refreshToken, ownerEmail}
	s.owners[ownerEmail] = sessionID
	return nil
}

func (s *memStore) GetRefresh(ctx context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return "", errStoreDown
	}
	rec, ok := s.sessions[sessionID]
	if !ok {
		return "", tripauth.ErrSessionNotFound
	}
	return rec[0], nil
}

func (s *memStore) Owner(ctx context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return "", errStoreDown
	}
	rec, ok := s.sessions[sessionID]
	if !ok {
		return "", tripauth.ErrSessionNotFound
	}
	return rec[1], nil
}

func (s *memStore) SessionIDByOwner(ctx context.Context, ownerEmail string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return "", errStoreDown
	}
	id, ok := s.owners[ownerEmail]
	if !ok {
		return "", tripauth.ErrSessionNotFound
	}
	return id, nil
}

func (s *memStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errStoreDown
	}
	if rec, ok := s.sessions[sessionID]; ok {
		if s.owners[rec[1]] == sessionID {
			delete(s.owners, rec[1])
		}
		delete(s.sessions, sessionID)
	}
	return nil
}

func (s *memStore) DeleteByOwner(ctx context.Context, ownerEmail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errStoreDown
	}
	if id, ok := s.owners[ownerEmail]; ok {
		delete(s.sessions, id)
		delete(s.owners, ownerEmail)
	}
	return nil
}

func (s *memStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errStoreDown
	}
	s.kv[key] = memEntry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *memStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return false, errStoreDown
	}
	if entry, ok := s.kv[key]; ok && s.now().Before(entry.expiresAt) {
		return false, nil
	}
	s.kv[key] = memEntry{value: value, expiresAt: s.now().Add(ttl)}
	return true, nil
}

func (s *memStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return "", errStoreDown
	}
	entry, ok := s.kv[key]
	if !ok || !s.now().Before(entry.expiresAt) {
		return "", errors.New("key not found", errors.CategoryNotFound)
	}
	return entry.value, nil
}

func (s *memStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errStoreDown
	}
	for _, key := range keys {
		delete(s.kv, key)
	}
	return nil
}

func (s *memStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return 0, errStoreDown
	}
	entry, ok := s.kv[key]
	if !ok {
		return 0, nil
	}
	remaining := entry.expiresAt.Sub(s.now())
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// memCarrier is a CredentialCarrier backed by plain fields.
type memCarrier struct {
	accessToken    string
	sessionID      string
	setAccessCalls []string
	cleared        bool
}

func (c *memCarrier) AccessToken() string { return c.accessToken }
func (c *memCarrier) SessionID() string   { return c.sessionID }

func (c *memCarrier) SetAccessCookie(token string) {
	c.accessToken = token
	c.setAccessCalls = append(c.setAccessCalls, token)
}

func (c *memCarrier) SetSessionCookie(sessionID string) {
	c.sessionID = sessionID
}

func (c *memCarrier) ClearAuthCookies() {
	c.accessToken = ""
	c.sessionID = ""
	c.cleared = true
}

// MockStatusWriter implements tripauth.StatusWriter
type MockStatusWriter struct {
	mock.Mock
}

func (m *MockStatusWriter) UpdateStatus(ctx context.Context, account *tripauth.Account, status tripauth.AccountStatus) (*tripauth.Account, error) {
	args := m.Called(ctx, account, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tripauth.Account), args.Error(1)
}

// MockMessenger implements tripauth.Messenger
type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) SendCode(ctx context.Context, phoneNumber, code string) error {
	args := m.Called(ctx, phoneNumber, code)
	return args.Error(0)
}

// memAccounts is an AccountSource over a fixed account set.
type memAccounts struct {
	byEmail map[string]*tripauth.Account
	err     error
}

func (m *memAccounts) ByEmail(ctx context.Context, email string) (*tripauth.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	if account, ok := m.byEmail[email]; ok {
		return account, nil
	}
	return nil, errors.New("account not found", errors.CategoryNotFound)
}
