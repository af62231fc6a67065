// Package transition provides the app-facing scene transition request
// variants and their translation into engine settings.
//
// Apps describe transitions in a stable, semantically named vocabulary
// (audioFadeStyle, transitionPointType, ...). The engine consumes a
// different, internal settings schema (audio_fade_style, tp_type, ...).
// Everything in this package is pure: collaborators are passed in.
package transition

import "time"

// Kind is the app-facing discriminant of a request variant.
type Kind string

// Supported request kinds.
const (
	KindStinger Kind = "stinger"
)

// Kinds returns every supported request kind.
func Kinds() []Kind {
	return []Kind{KindStinger}
}

// AudioFadeStyle is how audio fades during a stinger.
type AudioFadeStyle string

const (
	FadeOut   AudioFadeStyle = "fadeOut"
	CrossFade AudioFadeStyle = "crossFade"
)

// PointType is the unit of TransitionPoint.
type PointType string

const (
	PointTime  PointType = "time"
	PointFrame PointType = "frame"
)

// Request is one case of the closed set of transition request variants.
// Only types in this package implement it.
type Request interface {
	Kind() Kind
	isRequest()
}

// Stinger requests a stinger transition: a video played over the scene cut.
type Stinger struct {
	// Name of the transition as shown to the streamer.
	Name string

	// URL is a path to a video asset, relative to the app's asset root.
	URL string

	// AudioFadeStyle defaults to FadeOut.
	AudioFadeStyle *AudioFadeStyle

	// ShouldLock prevents the streamer from editing the transition. Defaults to false.
	ShouldLock *bool

	// ShouldMonitorAudio defaults to false.
	ShouldMonitorAudio *bool

	// TransitionPoint is when the scene cut happens, in milliseconds or frames.
	TransitionPoint *int64

	// TransitionPointType defaults to PointTime.
	TransitionPointType *PointType
}

// Kind returns KindStinger.
func (Stinger) Kind() Kind { return KindStinger }

func (Stinger) isRequest() {}

// EngineKind identifies a transition type inside the engine.
type EngineKind string

const (
	EngineStinger EngineKind = "stinger_transition"
)

// ManagerSettings lets the engine re-identify the app that owns a
// transition and whether end users may edit it.
type ManagerSettings struct {
	AppID  string `json:"appId"`
	Locked bool   `json:"locked"`
}

// Config is the translated, engine-consumable configuration.
type Config struct {
	PropertiesManagerSettings ManagerSettings `json:"propertiesManagerSettings"`
	Settings                  map[string]any  `json:"settings"`
}

// Creation is everything the engine needs to register a transition.
type Creation struct {
	Kind   EngineKind `json:"kind"`
	Name   string     `json:"name"`
	Config Config     `json:"config"`
}

// Handle identifies a transition registered with the engine.
type Handle struct {
	ID        string     `json:"id"`
	Kind      EngineKind `json:"kind"`
	Name      string     `json:"name"`
	AppID     string     `json:"appId"`
	Locked    bool       `json:"locked"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Record is a stored transition including its engine settings.
type Record struct {
	Handle
	Settings  map[string]any `json:"settings"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func ptr[T any](v T) *T {
	return &v
}
