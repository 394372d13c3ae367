package devapi

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken  = errors.New("username taken")
	ErrBadCredentials = errors.New("invalid username or password")
)

type user struct {
	Name         string
	Username     string
	PasswordHash []byte
}

type userStore struct {
	cost int

	mu         sync.RWMutex
	byUsername map[string]user
}

func newUserStore(cost int) *userStore {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &userStore{cost: cost, byUsername: make(map[string]user)}
}

func (s *userStore) create(name, username, password string) (user, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return user{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byUsername[username]; exists {
		return user{}, ErrUsernameTaken
	}
	u := user{Name: name, Username: username, PasswordHash: hash}
	s.byUsername[username] = u
	return u, nil
}

func (s *userStore) authenticate(username, password string) (user, error) {
	s.mu.RLock()
	u, ok := s.byUsername[username]
	s.mu.RUnlock()
	if !ok {
		return user{}, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return user{}, ErrBadCredentials
	}
	return u, nil
}
