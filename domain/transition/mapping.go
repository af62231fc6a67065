package transition

import (
	"fmt"

	"github.com/artpar/apphost/pkg/apierror"
)

// Field identifies an app-facing request field.
type Field int

const (
	FieldType Field = iota
	FieldName
	FieldURL
	FieldAudioFadeStyle
	FieldShouldLock
	FieldShouldMonitorAudio
	FieldTransitionPoint
	FieldTransitionPointType

	fieldCount
)

var fieldNames = [fieldCount]string{
	FieldType:                "type",
	FieldName:                "name",
	FieldURL:                 "url",
	FieldAudioFadeStyle:      "audioFadeStyle",
	FieldShouldLock:          "shouldLock",
	FieldShouldMonitorAudio:  "shouldMonitorAudio",
	FieldTransitionPoint:     "transitionPoint",
	FieldTransitionPointType: "transitionPointType",
}

// String returns the app-facing field name.
func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldNames[f]
}

// Engine enum values.
const (
	engineFadeOut   = 0
	engineCrossFade = 1

	enginePointTime  = 0
	enginePointFrame = 1
)

type transformFunc func(env *translateEnv, v any) (any, error)

// mapping describes where a field lands in engine settings.
// A dropped field is consumed upstream and has no settings slot.
type mapping struct {
	internal  string
	transform transformFunc
	drop      bool
}

// mappings is the field mapping table. Every Field must have an entry that
// either maps it or drops it; mapping_test enforces this.
var mappings = [fieldCount]mapping{
	FieldType:                {drop: true},
	FieldName:                {drop: true},
	FieldURL:                 {internal: "path", transform: resolveAsset},
	FieldAudioFadeStyle:      {internal: "audio_fade_style", transform: audioFadeStyleValue},
	FieldShouldLock:          {drop: true},
	FieldShouldMonitorAudio:  {internal: "audio_monitoring", transform: boolFlag},
	FieldTransitionPoint:     {internal: "transition_point"},
	FieldTransitionPointType: {internal: "tp_type", transform: pointTypeValue},
}

// InternalName returns the engine settings key for f, or "" when f is dropped.
func InternalName(f Field) string {
	if f < 0 || f >= fieldCount {
		return ""
	}
	return mappings[f].internal
}

func audioFadeStyleValue(_ *translateEnv, v any) (any, error) {
	switch v {
	case FadeOut:
		return engineFadeOut, nil
	case CrossFade:
		return engineCrossFade, nil
	default:
		return nil, unmapped(FieldAudioFadeStyle, v)
	}
}

func pointTypeValue(_ *translateEnv, v any) (any, error) {
	switch v {
	case PointTime:
		return enginePointTime, nil
	case PointFrame:
		return enginePointFrame, nil
	default:
		return nil, unmapped(FieldTransitionPointType, v)
	}
}

func boolFlag(_ *translateEnv, v any) (any, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, unmapped(FieldShouldMonitorAudio, v)
	}
	if b {
		return 1, nil
	}
	return 0, nil
}

func resolveAsset(env *translateEnv, v any) (any, error) {
	rel, ok := v.(string)
	if !ok {
		return nil, unmapped(FieldURL, v)
	}
	u, err := env.assets.AssetURL(env.appID, rel)
	if err != nil {
		return nil, apierror.New(apierror.KindInvalidAsset, err.Error()).
			Field(FieldURL.String()).
			Cause(err).
			Build()
	}
	return u, nil
}

func unmapped(f Field, v any) error {
	return apierror.Newf(apierror.KindUnsupportedOperation, "no engine mapping for %s value %v", f, v).
		Field(f.String()).
		Build()
}
