package capability

import (
	"context"
	"time"

	"github.com/artpar/apphost/pkg/apierror"
)

// GrantSource returns the permissions granted to an app.
// Unknown apps have no grants and must return an empty list, not an error.
type GrantSource interface {
	GrantedPermissions(ctx context.Context, appID string) ([]Permission, error)
}

// Context is the per-invocation context handed to module methods.
// It is created by the Resolver and discarded when the call returns.
type Context struct {
	// AppID identifies the calling platform app.
	AppID string

	// Granted is the app's resolved permission set.
	Granted Set

	// CorrelationID ties log lines, spans and audit records of one call together.
	CorrelationID string

	// ReceivedAt is when the invocation entered the dispatcher.
	ReceivedAt time.Time

	Module string
	Method string
}

// Has reports whether the calling app holds p.
func (c *Context) Has(p Permission) bool {
	return c.Granted.Has(p)
}

type correlationKey struct{}

// WithCorrelationID returns a context carrying id. The Resolver uses it for
// the Context it builds instead of minting a new one.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id stored by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// Resolver turns an app identity into an authorized Context.
//
// Usage:
//
//	resolver := capability.NewResolver(grantStore, uuid.New().String, time.Now)
//	ictx, err := resolver.Resolve(ctx, "app-1", "SceneTransitions", "createTransition", mod.Permissions)
type Resolver struct {
	grants GrantSource
	newID  func() string
	now    func() time.Time
}

// NewResolver creates a resolver. newID and now may be nil.
func NewResolver(grants GrantSource, newID func() string, now func() time.Time) *Resolver {
	if newID == nil {
		newID = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &Resolver{grants: grants, newID: newID, now: now}
}

// Resolve loads the app's grants and checks that every required permission
// is present. The first missing permission is reported as permission_denied.
func (r *Resolver) Resolve(ctx context.Context, appID, module, method string, required []Permission) (*Context, error) {
	granted, err := r.Granted(ctx, appID)
	if err != nil {
		return nil, err
	}

	if p, missing := Missing(required, granted); missing {
		return nil, apierror.PermissionDenied(module, p.String())
	}

	id := CorrelationID(ctx)
	if id == "" {
		id = r.newID()
	}

	return &Context{
		AppID:         appID,
		Granted:       granted,
		CorrelationID: id,
		ReceivedAt:    r.now(),
		Module:        module,
		Method:        method,
	}, nil
}

// Granted returns the app's permission set without checking requirements.
func (r *Resolver) Granted(ctx context.Context, appID string) (Set, error) {
	if appID == "" {
		return Set{}, nil
	}
	perms, err := r.grants.GrantedPermissions(ctx, appID)
	if err != nil {
		return nil, apierror.Internal("resolve app permissions", err)
	}
	return NewSet(perms...), nil
}
