package app_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/apphost/adapters/assets"
	"github.com/artpar/apphost/adapters/clock"
	"github.com/artpar/apphost/adapters/engine"
	"github.com/artpar/apphost/adapters/idgen"
	"github.com/artpar/apphost/adapters/memory"
	"github.com/artpar/apphost/adapters/mimetype"
	"github.com/artpar/apphost/app"
	"github.com/artpar/apphost/core/capability"
	"github.com/artpar/apphost/core/events"
	"github.com/artpar/apphost/core/registry"
	"github.com/artpar/apphost/core/runtime"
	"github.com/artpar/apphost/domain/transition"
	"github.com/artpar/apphost/pkg/apierror"
	"github.com/artpar/apphost/ports"
)

// spyMimes counts classifier calls.
type spyMimes struct {
	inner ports.MimeClassifier
	calls atomic.Int32
}

func (s *spyMimes) Classify(filename string) (string, bool) {
	s.calls.Add(1)
	return s.inner.Classify(filename)
}

// spyEngine records delegations.
type spyEngine struct {
	ports.TransitionEngine
	calls atomic.Int32
	last  transition.Config
}

func (s *spyEngine) CreateTransition(ctx context.Context, kind transition.EngineKind, name string, cfg transition.Config) (transition.Handle, error) {
	s.calls.Add(1)
	s.last = cfg
	return s.TransitionEngine.CreateTransition(ctx, kind, name, cfg)
}

type fixture struct {
	dispatcher *runtime.Dispatcher
	grants     *memory.GrantStore
	mimes      *spyMimes
	engine     *spyEngine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	resolver, err := assets.New("https://assets.example")
	if err != nil {
		t.Fatalf("assets: %v", err)
	}

	f := &fixture{
		grants: memory.NewGrantStore(),
		mimes:  &spyMimes{inner: mimetype.New()},
		engine: &spyEngine{TransitionEngine: engine.NewTransitions(
			memory.NewTransitionStore(),
			idgen.NewSequential("tr-"),
			clock.NewFake(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
			zerolog.Nop(),
		)},
	}

	mod := app.NewSceneTransitionsModule(app.SceneTransitionsDeps{
		Engine: f.engine,
		Assets: resolver,
		Mimes:  f.mimes,
	})

	reg := registry.New()
	reg.MustRegister(mod.Definition())
	reg.Freeze()

	f.dispatcher = runtime.New(reg,
		capability.NewResolver(f.grants, idgen.NewSequential("inv-").Func(), nil),
		runtime.Config{Events: events.NewBus(zerolog.Nop()), Logger: zerolog.Nop()},
	)
	return f
}

func (f *fixture) grant(t *testing.T, appID string, perms ...capability.Permission) {
	t.Helper()
	if err := f.grants.SetGrants(context.Background(), appID, perms); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) create(appID string, args map[string]any) (any, error) {
	return f.dispatcher.Invoke(context.Background(), runtime.Invocation{
		AppID:  appID,
		Module: app.SceneTransitionsModuleName,
		Method: "createTransition",
		Args:   args,
	})
}

func TestSceneTransitions_CreateStinger(t *testing.T) {
	f := newFixture(t)
	f.grant(t, "app-1", capability.SceneTransitions)

	result, err := f.create("app-1", map[string]any{
		"type": "stinger",
		"name": "Intro",
		"url":  "assets/intro.webm",
	})
	if err != nil {
		t.Fatalf("createTransition failed: %v", err)
	}

	h, ok := result.(transition.Handle)
	if !ok {
		t.Fatalf("result is %T, want transition.Handle", result)
	}
	if h.Name != "Intro" || h.AppID != "app-1" || h.Locked || h.Kind != transition.EngineStinger {
		t.Errorf("handle = %+v", h)
	}

	cfg := f.engine.last
	want := map[string]any{
		"audio_fade_style": 0,
		"tp_type":          0,
		"audio_monitoring": 0,
		"path":             "https://assets.example/apps/app-1/assets/intro.webm",
	}
	for k, v := range want {
		if cfg.Settings[k] != v {
			t.Errorf("settings[%s] = %#v, want %#v", k, cfg.Settings[k], v)
		}
	}
	if len(cfg.Settings) != len(want) {
		t.Errorf("settings = %v", cfg.Settings)
	}
	if cfg.PropertiesManagerSettings != (transition.ManagerSettings{AppID: "app-1", Locked: false}) {
		t.Errorf("manager = %+v", cfg.PropertiesManagerSettings)
	}
}

func TestSceneTransitions_LockedTransitionRejectsEdits(t *testing.T) {
	f := newFixture(t)
	f.grant(t, "app-1", capability.SceneTransitions)

	result, err := f.create("app-1", map[string]any{
		"type":       "stinger",
		"name":       "Locked",
		"url":        "intro.mp4",
		"shouldLock": true,
	})
	if err != nil {
		t.Fatalf("createTransition failed: %v", err)
	}
	h := result.(transition.Handle)

	_, err = f.engine.UpdateSettings(context.Background(), h.ID, map[string]any{"tp_type": 1})
	if !errors.Is(err, ports.ErrLocked) {
		t.Errorf("expected ErrLocked, got %v", err)
	}
}

func TestSceneTransitions_PermissionDenied(t *testing.T) {
	f := newFixture(t)
	f.grant(t, "app-1", capability.Notifications)

	_, err := f.create("app-1", map[string]any{
		"type": "stinger",
		"name": "Intro",
		"url":  "assets/intro.webm",
	})
	if !apierror.Is(err, apierror.KindPermissionDenied) {
		t.Fatalf("expected permission_denied, got %v", err)
	}
	if n := f.mimes.calls.Load(); n != 0 {
		t.Errorf("classifier called %d times before permission check", n)
	}
	if n := f.engine.calls.Load(); n != 0 {
		t.Errorf("engine called %d times", n)
	}
}

func TestSceneTransitions_NonVideoAsset(t *testing.T) {
	f := newFixture(t)
	f.grant(t, "app-1", capability.SceneTransitions)

	_, err := f.create("app-1", map[string]any{
		"type": "stinger",
		"name": "Bad",
		"url":  "doc.pdf",
	})
	if !apierror.Is(err, apierror.KindInvalidAsset) {
		t.Fatalf("expected invalid_asset, got %v", err)
	}
	if n := f.engine.calls.Load(); n != 0 {
		t.Errorf("engine called %d times for a non-video asset", n)
	}
}

func TestSceneTransitions_UnknownType(t *testing.T) {
	f := newFixture(t)
	f.grant(t, "app-1", capability.SceneTransitions)

	_, err := f.create("app-1", map[string]any{"type": "wipe", "name": "X"})
	if !apierror.Is(err, apierror.KindValidation) {
		t.Fatalf("expected validation_error, got %v", err)
	}
	if ae, _ := apierror.As(err); ae.Field != "type" {
		t.Errorf("field = %q, want type", ae.Field)
	}
	if n := f.mimes.calls.Load(); n != 0 {
		t.Errorf("classifier called %d times", n)
	}
}

func TestSceneTransitions_AssetOutsideAppRoot(t *testing.T) {
	f := newFixture(t)
	f.grant(t, "app-1", capability.SceneTransitions)

	_, err := f.create("app-1", map[string]any{
		"type": "stinger",
		"name": "Escape",
		"url":  "../other-app/intro.webm",
	})
	if !apierror.Is(err, apierror.KindInvalidAsset) {
		t.Fatalf("expected invalid_asset, got %v", err)
	}
	if n := f.engine.calls.Load(); n != 0 {
		t.Errorf("engine called %d times", n)
	}
}

func TestSceneTransitions_DuplicateName(t *testing.T) {
	f := newFixture(t)
	f.grant(t, "app-1", capability.SceneTransitions)

	args := map[string]any{"type": "stinger", "name": "Intro", "url": "intro.webm"}
	if _, err := f.create("app-1", args); err != nil {
		t.Fatal(err)
	}

	_, err := f.create("app-1", args)
	if !apierror.Is(err, apierror.KindEngine) {
		t.Fatalf("expected engine_error, got %v", err)
	}
	if !errors.Is(err, ports.ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName in chain, got %v", err)
	}
}

func TestSceneTransitions_Definition(t *testing.T) {
	mod := app.NewSceneTransitionsModule(app.SceneTransitionsDeps{}).Definition()

	if err := mod.Validate(); err != nil {
		t.Fatalf("definition invalid: %v", err)
	}
	if mod.Name != "SceneTransitions" {
		t.Errorf("name = %s", mod.Name)
	}
	if len(mod.Permissions) != 1 || mod.Permissions[0] != capability.SceneTransitions {
		t.Errorf("permissions = %v", mod.Permissions)
	}
	if _, ok := mod.Method("createTransition"); !ok {
		t.Error("createTransition not declared")
	}
}

func TestSceneTransitions_UnexpectedStageInput(t *testing.T) {
	f := newFixture(t)
	mod, _ := f.dispatcher.Registry().Lookup(app.SceneTransitionsModuleName)
	meth, _ := mod.Method("createTransition")
	cc := &capability.Context{AppID: "app-1"}

	tests := []struct {
		name  string
		stage registry.StageFunc
	}{
		{"translate", meth.Translate},
		{"handle", meth.Handle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.stage(context.Background(), cc, "not a request")
			if !apierror.Is(err, apierror.KindInternal) {
				t.Errorf("err = %v, want internal_error", err)
			}
		})
	}

	if n := f.engine.calls.Load(); n != 0 {
		t.Errorf("engine called %d times", n)
	}
}
