package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/artpar/apphost/domain/transition"
	"github.com/artpar/apphost/ports"
)

// TransitionStore is an in-memory implementation of ports.TransitionStore.
type TransitionStore struct {
	mu          sync.RWMutex
	transitions map[string]transition.Record // by ID
}

// NewTransitionStore creates a new in-memory transition store.
func NewTransitionStore() *TransitionStore {
	return &TransitionStore{
		transitions: make(map[string]transition.Record),
	}
}

// Create stores a new transition.
func (s *TransitionStore) Create(ctx context.Context, r transition.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.transitions {
		if existing.Name == r.Name {
			return ports.ErrDuplicateName
		}
	}
	s.transitions[r.ID] = clone(r)
	return nil
}

// Get retrieves a transition by ID.
func (s *TransitionStore) Get(ctx context.Context, id string) (transition.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.transitions[id]
	if !ok {
		return transition.Record{}, ports.ErrTransitionAbsent
	}
	return clone(r), nil
}

// GetByName retrieves a transition by name.
func (s *TransitionStore) GetByName(ctx context.Context, name string) (transition.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.transitions {
		if r.Name == name {
			return clone(r), nil
		}
	}
	return transition.Record{}, ports.ErrTransitionAbsent
}

// Update replaces a stored transition.
func (s *TransitionStore) Update(ctx context.Context, r transition.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transitions[r.ID]; !ok {
		return ports.ErrTransitionAbsent
	}
	s.transitions[r.ID] = clone(r)
	return nil
}

// List returns transitions ordered by creation time, optionally for one app.
func (s *TransitionStore) List(ctx context.Context, appID string) ([]transition.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []transition.Record
	for _, r := range s.transitions {
		if appID == "" || r.AppID == appID {
			result = append(result, clone(r))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func clone(r transition.Record) transition.Record {
	r.Settings = maps.Clone(r.Settings)
	return r
}

// Ensure interface compliance.
var _ ports.TransitionStore = (*TransitionStore)(nil)
