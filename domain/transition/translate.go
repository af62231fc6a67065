package transition

import (
	"fmt"
	"path"
	"strings"

	"github.com/artpar/apphost/pkg/apierror"
)

// AssetResolver resolves a path relative to an app's asset root into an
// absolute, app-namespaced URL.
type AssetResolver interface {
	AssetURL(appID, relativePath string) (string, error)
}

// Classifier derives a MIME type from a file name's extension.
type Classifier interface {
	Classify(filename string) (mimeType string, ok bool)
}

type translateEnv struct {
	appID  string
	assets AssetResolver
}

type fieldValue struct {
	field Field
	value any
}

// fields lists the fields present on s in declaration order.
func (s Stinger) fields() []fieldValue {
	out := []fieldValue{
		{FieldType, string(KindStinger)},
		{FieldName, s.Name},
		{FieldURL, s.URL},
	}
	if s.AudioFadeStyle != nil {
		out = append(out, fieldValue{FieldAudioFadeStyle, *s.AudioFadeStyle})
	}
	if s.ShouldLock != nil {
		out = append(out, fieldValue{FieldShouldLock, *s.ShouldLock})
	}
	if s.ShouldMonitorAudio != nil {
		out = append(out, fieldValue{FieldShouldMonitorAudio, *s.ShouldMonitorAudio})
	}
	if s.TransitionPoint != nil {
		out = append(out, fieldValue{FieldTransitionPoint, *s.TransitionPoint})
	}
	if s.TransitionPointType != nil {
		out = append(out, fieldValue{FieldTransitionPointType, *s.TransitionPointType})
	}
	return out
}

// Build turns a parsed request into an engine Creation: it checks the asset
// category, applies defaults and translates. Nothing is returned unless every
// step succeeds.
func Build(appID string, req Request, assets AssetResolver, mimes Classifier) (Creation, error) {
	switch v := req.(type) {
	case *Stinger:
		if v == nil {
			return Creation{}, unsupported(nil)
		}
		return Build(appID, *v, assets, mimes)
	case Stinger:
		if !IsVideo(v.URL, mimes) {
			return Creation{}, apierror.InvalidAsset(FieldURL.String(),
				"invalid file specified, you must provide a video file")
		}

		d := v.WithDefaults()
		cfg, err := Translate(appID, *d.ShouldLock, d, assets)
		if err != nil {
			return Creation{}, err
		}
		return Creation{Kind: EngineStinger, Name: d.Name, Config: cfg}, nil
	default:
		return Creation{}, unsupported(req)
	}
}

// Translate maps every present field of req through the mapping table and
// wraps the result with manager metadata. Dropped fields are skipped. The
// url field is resolved into the app's asset namespace.
// Translation is all-or-nothing: on error no Config is returned.
func Translate(appID string, shouldLock bool, req Request, assets AssetResolver) (Config, error) {
	var fields []fieldValue
	switch v := req.(type) {
	case Stinger:
		fields = v.fields()
	case *Stinger:
		if v == nil {
			return Config{}, unsupported(nil)
		}
		fields = v.fields()
	default:
		return Config{}, unsupported(req)
	}

	env := &translateEnv{appID: appID, assets: assets}
	settings := make(map[string]any, len(fields))

	for _, fv := range fields {
		m := mappings[fv.field]
		if m.drop {
			continue
		}

		val := fv.value
		if m.transform != nil {
			var err error
			if val, err = m.transform(env, fv.value); err != nil {
				return Config{}, err
			}
		}
		settings[m.internal] = val
	}

	return Config{
		PropertiesManagerSettings: ManagerSettings{AppID: appID, Locked: shouldLock},
		Settings:                  settings,
	}, nil
}

// IsVideo reports whether the file name's extension classifies as video/*.
// Only the base name is inspected; file contents are never read.
func IsVideo(name string, mimes Classifier) bool {
	if mimes == nil || name == "" {
		return false
	}
	mt, ok := mimes.Classify(path.Base(name))
	return ok && strings.HasPrefix(mt, "video/")
}

func unsupported(req Request) error {
	if req == nil {
		return apierror.UnsupportedOperation("missing transition request")
	}
	return apierror.UnsupportedOperation(fmt.Sprintf("transition type %q is not implemented", req.Kind()))
}
