// Package engine provides the in-process transition engine that apps'
// translated configurations are delegated to.
package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/artpar/apphost/domain/transition"
	"github.com/artpar/apphost/ports"
)

// Transitions registers transitions into a store. Mutation of the
// transition set is serialized; reads go straight to the store.
type Transitions struct {
	mu     sync.Mutex
	store  ports.TransitionStore
	ids    ports.IDGenerator
	clock  ports.Clock
	logger zerolog.Logger
}

// NewTransitions creates the engine.
func NewTransitions(store ports.TransitionStore, ids ports.IDGenerator, clock ports.Clock, logger zerolog.Logger) *Transitions {
	return &Transitions{store: store, ids: ids, clock: clock, logger: logger}
}

// CreateTransition registers a transition.
func (e *Transitions) CreateTransition(ctx context.Context, kind transition.EngineKind, name string, cfg transition.Config) (transition.Handle, error) {
	if kind != transition.EngineStinger {
		return transition.Handle{}, fmt.Errorf("unknown transition kind %q", kind)
	}
	if strings.TrimSpace(name) == "" {
		return transition.Handle{}, errors.New("transition name is required")
	}
	if cfg.PropertiesManagerSettings.AppID == "" {
		return transition.Handle{}, errors.New("transition has no owning app")
	}
	if err := ctx.Err(); err != nil {
		return transition.Handle{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.store.GetByName(ctx, name); err == nil {
		return transition.Handle{}, fmt.Errorf("transition %q: %w", name, ports.ErrDuplicateName)
	} else if !errors.Is(err, ports.ErrTransitionAbsent) {
		return transition.Handle{}, fmt.Errorf("lookup transition %q: %w", name, err)
	}

	now := e.clock.Now().UTC()
	rec := transition.Record{
		Handle: transition.Handle{
			ID:        e.ids.New(),
			Kind:      kind,
			Name:      name,
			AppID:     cfg.PropertiesManagerSettings.AppID,
			Locked:    cfg.PropertiesManagerSettings.Locked,
			CreatedAt: now,
		},
		Settings:  maps.Clone(cfg.Settings),
		UpdatedAt: now,
	}

	if err := e.store.Create(ctx, rec); err != nil {
		return transition.Handle{}, fmt.Errorf("store transition %q: %w", name, err)
	}

	e.logger.Info().
		Str("transition_id", rec.ID).
		Str("app_id", rec.AppID).
		Str("name", name).
		Bool("locked", rec.Locked).
		Msg("transition created")

	return rec.Handle, nil
}

// UpdateSettings merges settings into an existing transition. Locked
// transitions cannot be edited.
func (e *Transitions) UpdateSettings(ctx context.Context, id string, settings map[string]any) (transition.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.store.Get(ctx, id)
	if err != nil {
		return transition.Record{}, err
	}
	if rec.Locked {
		return transition.Record{}, fmt.Errorf("transition %q: %w", rec.Name, ports.ErrLocked)
	}

	if rec.Settings == nil {
		rec.Settings = make(map[string]any, len(settings))
	}
	maps.Copy(rec.Settings, settings)
	rec.UpdatedAt = e.clock.Now().UTC()

	if err := e.store.Update(ctx, rec); err != nil {
		return transition.Record{}, fmt.Errorf("update transition %q: %w", rec.Name, err)
	}
	return rec, nil
}

// List returns registered transitions, optionally for one app.
func (e *Transitions) List(ctx context.Context, appID string) ([]transition.Record, error) {
	return e.store.List(ctx, appID)
}

// Ensure interface compliance.
var _ ports.TransitionEngine = (*Transitions)(nil)
