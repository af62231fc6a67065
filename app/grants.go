package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/artpar/apphost/core/capability"
	"github.com/artpar/apphost/ports"
)

// AppGrant is a declared app and its permission names, as read from config
// or the admin API.
type AppGrant struct {
	ID          string
	Permissions []string
}

// GrantService manages the permissions granted to platform apps.
type GrantService struct {
	store  ports.GrantStore
	logger zerolog.Logger
}

// NewGrantService creates a new grant service.
func NewGrantService(store ports.GrantStore, logger zerolog.Logger) *GrantService {
	return &GrantService{store: store, logger: logger}
}

// Set replaces an app's grants. Permission names are parsed strictly; an
// unknown name rejects the whole update.
func (s *GrantService) Set(ctx context.Context, appID string, names []string) ([]capability.Permission, error) {
	if appID == "" {
		return nil, fmt.Errorf("app id is required")
	}
	perms, err := capability.ParseAll(names)
	if err != nil {
		return nil, fmt.Errorf("app %q: %w", appID, err)
	}

	perms = capability.NewSet(perms...).Slice()
	if err := s.store.SetGrants(ctx, appID, perms); err != nil {
		return nil, fmt.Errorf("store grants for %q: %w", appID, err)
	}

	s.logger.Info().Str("app_id", appID).Int("permissions", len(perms)).Msg("app grants updated")
	return perms, nil
}

// Revoke removes an app and its grants.
func (s *GrantService) Revoke(ctx context.Context, appID string) error {
	if err := s.store.Revoke(ctx, appID); err != nil {
		return fmt.Errorf("revoke %q: %w", appID, err)
	}
	s.logger.Info().Str("app_id", appID).Msg("app grants revoked")
	return nil
}

// Get returns the app's grants, sorted.
func (s *GrantService) Get(ctx context.Context, appID string) ([]capability.Permission, error) {
	perms, err := s.store.GrantedPermissions(ctx, appID)
	if err != nil {
		return nil, err
	}
	return capability.NewSet(perms...).Slice(), nil
}

// List returns all known apps.
func (s *GrantService) List(ctx context.Context) ([]ports.App, error) {
	return s.store.ListApps(ctx)
}

// Seed applies declared grants. Apps missing from the declaration are left
// untouched unless prune is set. Every declaration is validated before the
// store is written.
func (s *GrantService) Seed(ctx context.Context, declared []AppGrant, prune bool) error {
	parsed := make(map[string][]capability.Permission, len(declared))
	for _, d := range declared {
		perms, err := capability.ParseAll(d.Permissions)
		if err != nil {
			return fmt.Errorf("app %q: %w", d.ID, err)
		}
		parsed[d.ID] = capability.NewSet(perms...).Slice()
	}

	ids := make([]string, 0, len(parsed))
	for id := range parsed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := s.store.SetGrants(ctx, id, parsed[id]); err != nil {
			return fmt.Errorf("seed %q: %w", id, err)
		}
	}

	if prune {
		apps, err := s.store.ListApps(ctx)
		if err != nil {
			return err
		}
		for _, a := range apps {
			if _, keep := parsed[a.ID]; !keep {
				if err := s.store.Revoke(ctx, a.ID); err != nil {
					return fmt.Errorf("prune %q: %w", a.ID, err)
				}
			}
		}
	}

	s.logger.Info().Int("apps", len(ids)).Bool("prune", prune).Msg("app grants seeded")
	return nil
}
