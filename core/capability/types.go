// Package capability defines the permissions platform apps can be granted
// and resolves the invocation context for a call.
//
// A permission is a named right to invoke operations in one category.
// A module declares the permissions it requires; an app may only call the
// module when every required permission is in its granted set.
//
// The permission set is closed: new permissions are added here, never at runtime.
package capability

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Permission is an opaque permission identifier.
type Permission string

// Known permissions.
const (
	SceneTransitions Permission = "scene_transitions" // Create scene transitions
	Notifications    Permission = "notifications"     // Push notifications to the streamer
	ScenesSources    Permission = "scenes_sources"    // Read and edit scenes and sources
	SceneCollections Permission = "scene_collections" // Manage scene collections
	Hotkeys          Permission = "hotkeys"           // Register hotkeys
	Streamlabels     Permission = "streamlabels"      // Read stream labels
	ExternalWindows  Permission = "external_windows"  // Open windows outside the app frame
	Display          Permission = "display"           // Render into the host display
	Replay           Permission = "replay"            // Control the replay buffer
	StreamInfo       Permission = "stream_info"       // Read channel and stream info
)

// all lists every permission in declaration order.
var all = []Permission{
	SceneTransitions,
	Notifications,
	ScenesSources,
	SceneCollections,
	Hotkeys,
	Streamlabels,
	ExternalWindows,
	Display,
	Replay,
	StreamInfo,
}

// names maps the exported Go-style name of each permission to its value.
var names = map[string]Permission{
	"SceneTransitions": SceneTransitions,
	"Notifications":    Notifications,
	"ScenesSources":    ScenesSources,
	"SceneCollections": SceneCollections,
	"Hotkeys":          Hotkeys,
	"Streamlabels":     Streamlabels,
	"ExternalWindows":  ExternalWindows,
	"Display":          Display,
	"Replay":           Replay,
	"StreamInfo":       StreamInfo,
}

// All returns every known permission in declaration order.
func All() []Permission {
	out := make([]Permission, len(all))
	copy(out, all)
	return out
}

// String returns the permission value.
func (p Permission) String() string {
	return string(p)
}

// IsValid reports whether p is a known permission.
func (p Permission) IsValid() bool {
	for _, known := range all {
		if p == known {
			return true
		}
	}
	return false
}

// Parse parses a permission by value ("scene_transitions") or by
// name ("SceneTransitions").
func Parse(s string) (Permission, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("permission cannot be empty")
	}
	if p, ok := names[s]; ok {
		return p, nil
	}
	p := Permission(strings.ToLower(s))
	if p.IsValid() {
		return p, nil
	}
	return "", fmt.Errorf("unknown permission %q", s)
}

// ParseAll parses a list of permissions, failing on the first unknown entry.
func ParseAll(values []string) ([]Permission, error) {
	out := make([]Permission, 0, len(values))
	for _, v := range values {
		p, err := Parse(v)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Set is an unordered set of permissions.
type Set map[Permission]struct{}

// NewSet builds a set from the given permissions.
func NewSet(perms ...Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Has reports whether p is in the set.
func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Slice returns the permissions sorted by value.
func (s Set) Slice() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Missing returns the first permission in required that granted lacks.
// Required is walked in order, so the result is deterministic.
// This is a PURE function.
func Missing(required []Permission, granted Set) (Permission, bool) {
	for _, p := range required {
		if !granted.Has(p) {
			return p, true
		}
	}
	return "", false
}
