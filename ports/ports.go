// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/artpar/apphost/core/capability"
	"github.com/artpar/apphost/domain/invocation"
	"github.com/artpar/apphost/domain/transition"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// Hasher hashes and verifies admin tokens.
type Hasher interface {
	Hash(plaintext string) ([]byte, error)
	Compare(hash []byte, plaintext string) bool
}

// -----------------------------------------------------------------------------
// Collaborator Ports
// -----------------------------------------------------------------------------

// AssetResolver maps an app-relative asset path to an absolute URL inside
// the app's private asset namespace.
type AssetResolver interface {
	AssetURL(appID, relativePath string) (string, error)
}

// MimeClassifier derives a MIME type from a file name's extension.
type MimeClassifier interface {
	Classify(filename string) (mimeType string, ok bool)
}

// TransitionEngine is the internal service that registers transitions.
type TransitionEngine interface {
	// CreateTransition registers a transition built from a translated
	// configuration. The configuration is handed off exactly once.
	CreateTransition(ctx context.Context, kind transition.EngineKind, name string, cfg transition.Config) (transition.Handle, error)

	// UpdateSettings models an end-user edit. It fails with ErrLocked when
	// the owning app locked the transition.
	UpdateSettings(ctx context.Context, id string, settings map[string]any) (transition.Record, error)

	// List returns registered transitions, optionally for one app.
	List(ctx context.Context, appID string) ([]transition.Record, error)
}

// Engine errors.
var (
	ErrLocked           = errors.New("transition is locked by its app")
	ErrDuplicateName    = errors.New("transition name already in use")
	ErrTransitionAbsent = errors.New("transition not found")
)

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// App is a platform app known to the host.
type App struct {
	ID          string
	Permissions []capability.Permission
	UpdatedAt   time.Time
}

// GrantStore persists the permissions granted to each app. It backs the
// Context Resolver.
type GrantStore interface {
	capability.GrantSource

	// SetGrants replaces the app's grants. The app is created if unknown.
	SetGrants(ctx context.Context, appID string, perms []capability.Permission) error

	// Revoke removes the app and all its grants.
	Revoke(ctx context.Context, appID string) error

	// ListApps returns all apps sorted by id.
	ListApps(ctx context.Context) ([]App, error)
}

// TransitionStore persists transitions registered through the engine.
type TransitionStore interface {
	Create(ctx context.Context, r transition.Record) error
	Get(ctx context.Context, id string) (transition.Record, error)
	GetByName(ctx context.Context, name string) (transition.Record, error)
	Update(ctx context.Context, r transition.Record) error
	List(ctx context.Context, appID string) ([]transition.Record, error)
}

// InvocationLog is the audit log of dispatched invocations.
type InvocationLog interface {
	Append(ctx context.Context, r invocation.Record) error
	List(ctx context.Context, f invocation.Filter) ([]invocation.Record, error)
}
