package transition

import "testing"

func TestMappings_CoverEveryField(t *testing.T) {
	for f := Field(0); f < fieldCount; f++ {
		m := mappings[f]
		if m.drop && m.internal != "" {
			t.Errorf("%s is both dropped and mapped to %q", f, m.internal)
		}
		if !m.drop && m.internal == "" {
			t.Errorf("%s has no mapping entry; map it or mark it dropped", f)
		}
		if m.drop && m.transform != nil {
			t.Errorf("%s is dropped but declares a transform", f)
		}
	}
}

func TestMappings_InternalNamesUnique(t *testing.T) {
	seen := make(map[string]Field)
	for f := Field(0); f < fieldCount; f++ {
		name := mappings[f].internal
		if name == "" {
			continue
		}
		if prev, ok := seen[name]; ok {
			t.Errorf("%s and %s both map to %q", prev, f, name)
		}
		seen[name] = f
	}
}

func TestFieldNames(t *testing.T) {
	seen := make(map[string]bool)
	for f := Field(0); f < fieldCount; f++ {
		name := f.String()
		if name == "" {
			t.Errorf("field %d has no name", int(f))
		}
		if seen[name] {
			t.Errorf("duplicate field name %q", name)
		}
		seen[name] = true
	}

	if got := Field(99).String(); got != "field(99)" {
		t.Errorf("out of range String() = %q", got)
	}
	if got := Field(-1).String(); got != "field(-1)" {
		t.Errorf("negative String() = %q", got)
	}
}

func TestInternalName(t *testing.T) {
	tests := []struct {
		field Field
		want  string
	}{
		{FieldAudioFadeStyle, "audio_fade_style"},
		{FieldTransitionPointType, "tp_type"},
		{FieldShouldMonitorAudio, "audio_monitoring"},
		{FieldTransitionPoint, "transition_point"},
		{FieldURL, "path"},
		{FieldType, ""},
		{FieldName, ""},
		{FieldShouldLock, ""},
		{Field(42), ""},
	}

	for _, tt := range tests {
		if got := InternalName(tt.field); got != tt.want {
			t.Errorf("InternalName(%s) = %q, want %q", tt.field, got, tt.want)
		}
	}
}

func TestValueTransforms(t *testing.T) {
	tests := []struct {
		name    string
		fn      transformFunc
		in      any
		want    any
		wantErr bool
	}{
		{"fadeOut", audioFadeStyleValue, FadeOut, 0, false},
		{"crossFade", audioFadeStyleValue, CrossFade, 1, false},
		{"unknown fade", audioFadeStyleValue, AudioFadeStyle("dissolve"), nil, true},
		{"untyped fade string", audioFadeStyleValue, "fadeOut", nil, true},
		{"time", pointTypeValue, PointTime, 0, false},
		{"frame", pointTypeValue, PointFrame, 1, false},
		{"unknown point", pointTypeValue, PointType("beat"), nil, true},
		{"monitor on", boolFlag, true, 1, false},
		{"monitor off", boolFlag, false, 0, false},
		{"monitor not bool", boolFlag, "true", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(nil, tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
