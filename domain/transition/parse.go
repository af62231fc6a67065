package transition

import (
	"strings"

	"github.com/artpar/apphost/core/schema"
	"github.com/artpar/apphost/pkg/apierror"
)

// Parse validates raw app arguments and returns the matching request variant.
// The "type" tag selects the variant; fields of other variants are never read.
// Unknown fields are ignored. Defaults are not applied here.
// This is a PURE function.
func Parse(raw any) (Request, error) {
	r := schema.NewReader(raw)
	tag := r.RequiredString(FieldType.String())
	if err := r.Err(); err != nil {
		return nil, err
	}

	switch Kind(tag) {
	case KindStinger:
		s := parseStinger(r)
		if err := r.Err(); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, apierror.Validation(FieldType.String(), schema.ConstraintOneOf,
			"type must be one of: "+joinKinds(Kinds()))
	}
}

func parseStinger(r *schema.Reader) Stinger {
	s := Stinger{
		Name: r.NonEmptyString(FieldName.String()),
		URL:  r.RequiredString(FieldURL.String()),
	}

	if v := r.OptionalEnum(FieldAudioFadeStyle.String(), string(FadeOut), string(CrossFade)); v != nil {
		s.AudioFadeStyle = ptr(AudioFadeStyle(*v))
	}
	s.ShouldLock = r.OptionalBool(FieldShouldLock.String())
	s.ShouldMonitorAudio = r.OptionalBool(FieldShouldMonitorAudio.String())
	s.TransitionPoint = r.OptionalInt(FieldTransitionPoint.String())
	if v := r.OptionalEnum(FieldTransitionPointType.String(), string(PointTime), string(PointFrame)); v != nil {
		s.TransitionPointType = ptr(PointType(*v))
	}

	return s
}

func joinKinds(kinds []Kind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}
