// Package assets resolves app-relative asset paths into absolute URLs
// inside each app's private namespace.
package assets

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/artpar/apphost/ports"
)

// Errors returned by Resolver.AssetURL.
var (
	ErrEmptyPath      = errors.New("asset path is empty")
	ErrOutsideAppRoot = errors.New("asset path escapes the app's asset root")
	ErrInvalidAppID   = errors.New("invalid app id")
)

// Resolver builds URLs of the form {base}/apps/{appID}/{path}.
type Resolver struct {
	base *url.URL
}

// New creates a resolver for the given absolute base URL.
func New(baseURL string) (*Resolver, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse asset base url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("asset base url %q must be absolute", baseURL)
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return &Resolver{base: u}, nil
}

// AssetURL resolves relativePath for appID. The result is deterministic and
// never leaves the app's namespace.
func (r *Resolver) AssetURL(appID, relativePath string) (string, error) {
	if appID == "" || strings.ContainsAny(appID, "/\\") || appID == "." || appID == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidAppID, appID)
	}

	p := strings.ReplaceAll(strings.TrimSpace(relativePath), "\\", "/")
	if p == "" {
		return "", ErrEmptyPath
	}
	if strings.Contains(p, "://") || strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: %q is not relative", ErrOutsideAppRoot, relativePath)
	}

	// Reject traversal before cleaning; Clean would silently fold it.
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrOutsideAppRoot, relativePath)
		}
	}

	clean := path.Clean(p)
	if clean == "." {
		return "", ErrEmptyPath
	}

	u := *r.base
	u.Path = r.base.Path + "/apps/" + appID + "/" + clean
	return u.String(), nil
}

// Ensure interface compliance.
var _ ports.AssetResolver = (*Resolver)(nil)
