package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/apphost/adapters/clock"
	"github.com/artpar/apphost/adapters/engine"
	"github.com/artpar/apphost/adapters/idgen"
	"github.com/artpar/apphost/adapters/memory"
	"github.com/artpar/apphost/domain/transition"
	"github.com/artpar/apphost/ports"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newEngine() (*engine.Transitions, *clock.Fake) {
	clk := clock.NewFake(t0)
	return engine.NewTransitions(memory.NewTransitionStore(), idgen.NewSequential("tr-"), clk, zerolog.Nop()), clk
}

func config(appID string, locked bool) transition.Config {
	return transition.Config{
		PropertiesManagerSettings: transition.ManagerSettings{AppID: appID, Locked: locked},
		Settings:                  map[string]any{"path": "https://assets.example/a.webm", "tp_type": 0},
	}
}

func TestCreateTransition(t *testing.T) {
	e, _ := newEngine()
	ctx := context.Background()

	h, err := e.CreateTransition(ctx, transition.EngineStinger, "Intro", config("app-1", true))
	if err != nil {
		t.Fatalf("CreateTransition: %v", err)
	}
	if h.ID != "tr-1" || h.AppID != "app-1" || !h.Locked || !h.CreatedAt.Equal(t0) {
		t.Errorf("handle = %+v", h)
	}

	list, _ := e.List(ctx, "app-1")
	if len(list) != 1 || list[0].Settings["tp_type"] != 0 {
		t.Errorf("List = %+v", list)
	}
}

func TestCreateTransition_Rejections(t *testing.T) {
	tests := []struct {
		name string
		kind transition.EngineKind
		tn   string
		cfg  transition.Config
	}{
		{"unknown kind", "fade_transition", "Intro", config("app-1", false)},
		{"blank name", transition.EngineStinger, "  ", config("app-1", false)},
		{"no owner", transition.EngineStinger, "Intro", config("", false)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newEngine()
			if _, err := e.CreateTransition(context.Background(), tt.kind, tt.tn, tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCreateTransition_DuplicateName(t *testing.T) {
	e, _ := newEngine()
	ctx := context.Background()

	if _, err := e.CreateTransition(ctx, transition.EngineStinger, "Intro", config("app-1", false)); err != nil {
		t.Fatal(err)
	}
	_, err := e.CreateTransition(ctx, transition.EngineStinger, "Intro", config("app-2", false))
	if !errors.Is(err, ports.ErrDuplicateName) {
		t.Errorf("err = %v, want ErrDuplicateName", err)
	}
}

func TestCreateTransition_ConfigNotAliased(t *testing.T) {
	e, _ := newEngine()
	ctx := context.Background()

	cfg := config("app-1", false)
	h, err := e.CreateTransition(ctx, transition.EngineStinger, "Intro", cfg)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Settings["path"] = "changed"

	list, _ := e.List(ctx, "")
	if list[0].ID != h.ID || list[0].Settings["path"] == "changed" {
		t.Error("engine state changed through caller's settings map")
	}
}

func TestCreateTransition_ConcurrentSameName(t *testing.T) {
	e, _ := newEngine()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.CreateTransition(context.Background(), transition.EngineStinger, "Race", config("app-1", false)); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("created = %d, want exactly 1", created)
	}
}

func TestUpdateSettings(t *testing.T) {
	e, clk := newEngine()
	ctx := context.Background()

	h, _ := e.CreateTransition(ctx, transition.EngineStinger, "Editable", config("app-1", false))
	clk.Advance(time.Minute)

	rec, err := e.UpdateSettings(ctx, h.ID, map[string]any{"tp_type": 1})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if rec.Settings["tp_type"] != 1 || rec.Settings["path"] == nil {
		t.Errorf("settings = %v", rec.Settings)
	}
	if !rec.UpdatedAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("UpdatedAt = %v", rec.UpdatedAt)
	}
}

func TestUpdateSettings_Locked(t *testing.T) {
	e, _ := newEngine()
	ctx := context.Background()

	h, _ := e.CreateTransition(ctx, transition.EngineStinger, "Locked", config("app-1", true))

	_, err := e.UpdateSettings(ctx, h.ID, map[string]any{"tp_type": 1})
	if !errors.Is(err, ports.ErrLocked) {
		t.Errorf("err = %v, want ErrLocked", err)
	}
}

func TestUpdateSettings_NotFound(t *testing.T) {
	e, _ := newEngine()
	_, err := e.UpdateSettings(context.Background(), "missing", nil)
	if !errors.Is(err, ports.ErrTransitionAbsent) {
		t.Errorf("err = %v, want ErrTransitionAbsent", err)
	}
}
