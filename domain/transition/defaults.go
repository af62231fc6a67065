package transition

// stingerDefaults is the default overlay for stinger requests.
var stingerDefaults = Stinger{
	AudioFadeStyle:      ptr(FadeOut),
	ShouldLock:          ptr(false),
	ShouldMonitorAudio:  ptr(false),
	TransitionPointType: ptr(PointTime),
}

// WithDefaults returns a copy of s with absent optional fields filled from
// the default overlay. Fields the caller supplied are kept as-is.
// This is a PURE function.
func (s Stinger) WithDefaults() Stinger {
	if s.AudioFadeStyle == nil {
		s.AudioFadeStyle = ptr(*stingerDefaults.AudioFadeStyle)
	}
	if s.ShouldLock == nil {
		s.ShouldLock = ptr(*stingerDefaults.ShouldLock)
	}
	if s.ShouldMonitorAudio == nil {
		s.ShouldMonitorAudio = ptr(*stingerDefaults.ShouldMonitorAudio)
	}
	if s.TransitionPointType == nil {
		s.TransitionPointType = ptr(*stingerDefaults.TransitionPointType)
	}
	return s
}

// WithDefaults applies the default overlay for req's variant.
// Requests of unknown variants are returned unchanged.
func WithDefaults(req Request) Request {
	switch v := req.(type) {
	case Stinger:
		return v.WithDefaults()
	case *Stinger:
		if v == nil {
			return req
		}
		return v.WithDefaults()
	default:
		return req
	}
}
