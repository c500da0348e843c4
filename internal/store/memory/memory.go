// Package memory is an in-process document store used for development and
// tests. Documents are copied on every read and write so callers never share
// state with the store.
package memory

import (
	"context"
	"sync"

	"service-finder/internal/providers"
	"service-finder/internal/store"
	"service-finder/internal/users"
)

// Users is a mutex-guarded users collection.
type Users struct {
	mu      sync.RWMutex
	byEmail map[string]users.User
}

func NewUsers() *Users {
	return &Users{byEmail: make(map[string]users.User)}
}

func (s *Users) Create(_ context.Context, u *users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[u.Email]; ok {
		return store.ErrDuplicate
	}
	s.byEmail[u.Email] = *u
	return nil
}

func (s *Users) FindByEmail(_ context.Context, email string) (*users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byEmail[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

// Providers is a mutex-guarded providers collection. List returns documents
// in insertion order.
type Providers struct {
	mu      sync.RWMutex
	order   []string
	byID    map[string]*providers.Provider
	byEmail map[string]string
}

func NewProviders() *Providers {
	return &Providers{
		byID:    make(map[string]*providers.Provider),
		byEmail: make(map[string]string),
	}
}

func (s *Providers) Create(_ context.Context, p *providers.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[p.Email]; ok {
		return store.ErrDuplicate
	}
	if _, ok := s.byID[p.ID]; ok {
		return store.ErrDuplicate
	}
	s.byID[p.ID] = clone(p)
	s.byEmail[p.Email] = p.ID
	s.order = append(s.order, p.ID)
	return nil
}

func (s *Providers) FindByEmail(_ context.Context, email string) (*providers.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(s.byID[id]), nil
}

func (s *Providers) FindByID(_ context.Context, id string) (*providers.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(p), nil
}

func (s *Providers) List(_ context.Context, category providers.Category) ([]*providers.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*providers.Provider, 0, len(s.order))
	for _, id := range s.order {
		p := s.byID[id]
		if category != "" && p.ServiceCategory != category {
			continue
		}
		out = append(out, clone(p))
	}
	return out, nil
}

func (s *Providers) AppendReview(_ context.Context, id string, r providers.Review) (*providers.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.Reviews = append(p.Reviews, r)
	return clone(p), nil
}

func clone(p *providers.Provider) *providers.Provider {
	cp := *p
	cp.Reviews = make([]providers.Review, len(p.Reviews))
	copy(cp.Reviews, p.Reviews)
	return &cp
}
