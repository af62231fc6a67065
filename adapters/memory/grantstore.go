// Package memory provides in-memory store implementations for tests and
// for running the host without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/artpar/apphost/core/capability"
	"github.com/artpar/apphost/ports"
)

// GrantStore is an in-memory implementation of ports.GrantStore.
type GrantStore struct {
	mu   sync.RWMutex
	apps map[string]ports.App
	now  func() time.Time
}

// NewGrantStore creates a new in-memory grant store.
func NewGrantStore() *GrantStore {
	return &GrantStore{
		apps: make(map[string]ports.App),
		now:  time.Now,
	}
}

// GrantedPermissions returns the app's grants. Unknown apps have none.
func (s *GrantStore) GrantedPermissions(ctx context.Context, appID string) ([]capability.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.apps[appID]
	if !ok {
		return nil, nil
	}
	return append([]capability.Permission(nil), a.Permissions...), nil
}

// SetGrants replaces the app's grants.
func (s *GrantStore) SetGrants(ctx context.Context, appID string, perms []capability.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.apps[appID] = ports.App{
		ID:          appID,
		Permissions: append([]capability.Permission(nil), perms...),
		UpdatedAt:   s.now().UTC(),
	}
	return nil
}

// Revoke removes the app.
func (s *GrantStore) Revoke(ctx context.Context, appID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.apps, appID)
	return nil
}

// ListApps returns all apps sorted by id.
func (s *GrantStore) ListApps(ctx context.Context) ([]ports.App, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ports.App, 0, len(s.apps))
	for _, a := range s.apps {
		a.Permissions = append([]capability.Permission(nil), a.Permissions...)
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Ensure interface compliance.
var _ ports.GrantStore = (*GrantStore)(nil)
