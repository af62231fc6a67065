package transition_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/artpar/apphost/core/schema"
	"github.com/artpar/apphost/domain/transition"
	"github.com/artpar/apphost/pkg/apierror"
)

func TestParse_StingerMinimal(t *testing.T) {
	req, err := transition.Parse(map[string]any{
		"type": "stinger",
		"name": "Intro",
		"url":  "assets/intro.webm",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	s, ok := req.(transition.Stinger)
	if !ok {
		t.Fatalf("expected Stinger, got %T", req)
	}
	if s.Kind() != transition.KindStinger {
		t.Errorf("Kind = %s", s.Kind())
	}
	if s.Name != "Intro" || s.URL != "assets/intro.webm" {
		t.Errorf("Name/URL = %s/%s", s.Name, s.URL)
	}
	if s.AudioFadeStyle != nil || s.ShouldLock != nil || s.ShouldMonitorAudio != nil ||
		s.TransitionPoint != nil || s.TransitionPointType != nil {
		t.Error("Parse must not apply defaults")
	}
}

func TestParse_StingerAllFields(t *testing.T) {
	req, err := transition.Parse(map[string]any{
		"type":                "stinger",
		"name":                "Outro",
		"url":                 "clips/outro.mp4",
		"audioFadeStyle":      "crossFade",
		"shouldLock":          true,
		"shouldMonitorAudio":  true,
		"transitionPoint":     1500.0,
		"transitionPointType": "frame",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	s := req.(transition.Stinger)
	if *s.AudioFadeStyle != transition.CrossFade {
		t.Errorf("AudioFadeStyle = %s", *s.AudioFadeStyle)
	}
	if !*s.ShouldLock || !*s.ShouldMonitorAudio {
		t.Error("expected ShouldLock and ShouldMonitorAudio true")
	}
	if *s.TransitionPoint != 1500 {
		t.Errorf("TransitionPoint = %d", *s.TransitionPoint)
	}
	if *s.TransitionPointType != transition.PointFrame {
		t.Errorf("TransitionPointType = %s", *s.TransitionPointType)
	}
}

func TestParse_UnknownFieldsIgnored(t *testing.T) {
	req, err := transition.Parse(map[string]any{
		"type":        "stinger",
		"name":        "Intro",
		"url":         "intro.webm",
		"sparkles":    true,
		"colorFilter": map[string]any{"hue": 12},
	})
	if err != nil {
		t.Fatalf("unknown fields must not be rejected: %v", err)
	}
	if req.Kind() != transition.KindStinger {
		t.Errorf("Kind = %s", req.Kind())
	}
}

func TestParse_TransitionPointFromUseNumber(t *testing.T) {
	tests := []struct {
		name    string
		point   string
		want    int64
		wantErr bool
	}{
		{"integer", "1000", 1000, false},
		{"integral decimal", "1000.0", 1000, false},
		{"exponent", "1e3", 1000, false},
		{"fractional", "1000.5", 0, true},
		{"beyond int64", "9223372036854775808", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"type":"stinger","name":"Intro","url":"intro.webm","transitionPoint":` + tt.point + `}`
			dec := json.NewDecoder(strings.NewReader(body))
			dec.UseNumber()
			var raw any
			if err := dec.Decode(&raw); err != nil {
				t.Fatal(err)
			}

			req, err := transition.Parse(raw)
			if tt.wantErr {
				if apiErr, ok := apierror.As(err); !ok || apiErr.Field != "transitionPoint" {
					t.Fatalf("err = %v, want validation error on transitionPoint", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got := *req.(transition.Stinger).TransitionPoint; got != tt.want {
				t.Errorf("TransitionPoint = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name       string
		raw        any
		field      string
		constraint string
	}{
		{"not an object", "stinger", "", schema.ConstraintObject},
		{"missing type", map[string]any{"name": "x", "url": "a.mp4"}, "type", schema.ConstraintRequired},
		{"unsupported type", map[string]any{"type": "wipe", "name": "X"}, "type", schema.ConstraintOneOf},
		{"missing name", map[string]any{"type": "stinger", "url": "a.mp4"}, "name", schema.ConstraintRequired},
		{"blank name", map[string]any{"type": "stinger", "name": " ", "url": "a.mp4"}, "name", schema.ConstraintNotEmpty},
		{"missing url", map[string]any{"type": "stinger", "name": "x"}, "url", schema.ConstraintRequired},
		{"url not string", map[string]any{"type": "stinger", "name": "x", "url": 3.0}, "url", schema.ConstraintString},
		{
			"bad fade style",
			map[string]any{"type": "stinger", "name": "x", "url": "a.mp4", "audioFadeStyle": "dissolve"},
			"audioFadeStyle", schema.ConstraintOneOf,
		},
		{
			"lock not bool",
			map[string]any{"type": "stinger", "name": "x", "url": "a.mp4", "shouldLock": "yes"},
			"shouldLock", schema.ConstraintBool,
		},
		{
			"fractional point",
			map[string]any{"type": "stinger", "name": "x", "url": "a.mp4", "transitionPoint": 10.5},
			"transitionPoint", schema.ConstraintInteger,
		},
		{
			"point beyond int64",
			map[string]any{"type": "stinger", "name": "x", "url": "a.mp4", "transitionPoint": float64(1 << 63)},
			"transitionPoint", schema.ConstraintInteger,
		},
		{
			"bad point type",
			map[string]any{"type": "stinger", "name": "x", "url": "a.mp4", "transitionPointType": "beat"},
			"transitionPointType", schema.ConstraintOneOf,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := transition.Parse(tt.raw)
			if req != nil {
				t.Errorf("expected nil request, got %#v", req)
			}
			apiErr, ok := apierror.As(err)
			if !ok {
				t.Fatalf("expected *apierror.Error, got %v", err)
			}
			if apiErr.Kind != apierror.KindValidation {
				t.Errorf("Kind = %s", apiErr.Kind)
			}
			if apiErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", apiErr.Field, tt.field)
			}
			if apiErr.Constraint != tt.constraint {
				t.Errorf("Constraint = %q, want %q", apiErr.Constraint, tt.constraint)
			}
		})
	}
}

func TestParse_DoesNotMutateInput(t *testing.T) {
	raw := map[string]any{"type": "stinger", "name": "Intro", "url": "intro.webm"}
	if _, err := transition.Parse(raw); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(raw) != 3 {
		t.Errorf("input map was modified: %v", raw)
	}
}
