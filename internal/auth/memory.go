package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradelog/internal/models"
	"tradelog/internal/utils"
)

// MemoryTokenStore keeps token rows in a map. It backs tests and single-node
// development setups; production wiring uses GormTokenStore.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*models.RefreshToken
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[uuid.UUID]*models.RefreshToken)}
}

func (s *MemoryTokenStore) FindByHash(_ context.Context, hash string) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.TokenHash == hash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryTokenStore) Insert(_ context.Context, token *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *token
	s.tokens[token.ID] = &cp
	return nil
}

func (s *MemoryTokenStore) Revoke(_ context.Context, id uuid.UUID, at time.Time, ip string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revokeLocked(id, at, ip), nil
}

func (s *MemoryTokenStore) Rotate(_ context.Context, oldID uuid.UUID, next *models.RefreshToken, at time.Time, ip string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.revokeLocked(oldID, at, ip) {
		return false, nil
	}
	cp := *next
	s.tokens[next.ID] = &cp
	return true, nil
}

func (s *MemoryTokenStore) RevokeFamily(_ context.Context, family uuid.UUID, at time.Time, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tokens {
		if t.TokenFamily == family && t.RevokedAt == nil {
			s.revokeLocked(id, at, ip)
		}
	}
	return nil
}

func (s *MemoryTokenStore) RevokeAllForUser(_ context.Context, userID uuid.UUID, at time.Time, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			s.revokeLocked(id, at, ip)
		}
	}
	return nil
}

func (s *MemoryTokenStore) revokeLocked(id uuid.UUID, at time.Time, ip string) bool {
	t, ok := s.tokens[id]
	if !ok || t.RevokedAt != nil {
		return false
	}
	revokedAt := at
	t.RevokedAt = &revokedAt
	if ip != "" {
		revokedIP := ip
		t.RevokedByIP = &revokedIP
	}
	return true
}

// ByPlaintext resolves the stored row for a plaintext secret.
func (s *MemoryTokenStore) ByPlaintext(plaintext string) *models.RefreshToken {
	hash := utils.SHA256Hex(plaintext)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.TokenHash == hash {
			cp := *t
			return &cp
		}
	}
	return nil
}

// ActiveCount reports how many usable tokens a user currently holds.
func (s *MemoryTokenStore) ActiveCount(userID uuid.UUID, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tokens {
		if t.UserID == userID && t.Active(now) {
			n++
		}
	}
	return n
}

// MemoryUserStore is the matching in-memory identity lookup.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]models.User
}

func NewMemoryUserStore(users ...models.User) *MemoryUserStore {
	s := &MemoryUserStore{users: make(map[uuid.UUID]models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *MemoryUserStore) ByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *MemoryUserStore) Put(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}
