package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/artpar/apphost/adapters/memory"
	"github.com/artpar/apphost/domain/transition"
	"github.com/artpar/apphost/ports"
)

func newRecord(id, name, appID string, created time.Time) transition.Record {
	return transition.Record{
		Handle: transition.Handle{
			ID:        id,
			Kind:      transition.EngineStinger,
			Name:      name,
			AppID:     appID,
			CreatedAt: created,
		},
		Settings: map[string]any{"tp_type": 1},
	}
}

func TestTransitionStore_CreateAndGet(t *testing.T) {
	store := memory.NewTransitionStore()
	ctx := context.Background()

	if err := store.Create(ctx, newRecord("t1", "Intro", "app-1", time.Now())); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	r, err := store.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if r.Name != "Intro" {
		t.Errorf("expected Intro, got %s", r.Name)
	}

	r, err = store.GetByName(ctx, "Intro")
	if err != nil || r.ID != "t1" {
		t.Errorf("GetByName = %+v, %v", r, err)
	}

	if _, err := store.Get(ctx, "nope"); !errors.Is(err, ports.ErrTransitionAbsent) {
		t.Errorf("expected ErrTransitionAbsent, got %v", err)
	}
	if _, err := store.GetByName(ctx, "nope"); !errors.Is(err, ports.ErrTransitionAbsent) {
		t.Errorf("expected ErrTransitionAbsent, got %v", err)
	}
}

func TestTransitionStore_DuplicateName(t *testing.T) {
	store := memory.NewTransitionStore()
	ctx := context.Background()

	store.Create(ctx, newRecord("t1", "Intro", "app-1", time.Now()))
	err := store.Create(ctx, newRecord("t2", "Intro", "app-2", time.Now()))
	if !errors.Is(err, ports.ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
}

func TestTransitionStore_SettingsIsolated(t *testing.T) {
	store := memory.NewTransitionStore()
	ctx := context.Background()

	r := newRecord("t1", "Intro", "app-1", time.Now())
	store.Create(ctx, r)
	r.Settings["tp_type"] = 0

	got, _ := store.Get(ctx, "t1")
	got.Settings["path"] = "elsewhere"

	again, _ := store.Get(ctx, "t1")
	if again.Settings["tp_type"] != 1 {
		t.Errorf("caller mutation leaked into store: %v", again.Settings)
	}
	if _, ok := again.Settings["path"]; ok {
		t.Errorf("returned map aliases stored map: %v", again.Settings)
	}
}

func TestTransitionStore_UpdateAndList(t *testing.T) {
	store := memory.NewTransitionStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	store.Create(ctx, newRecord("t2", "Outro", "app-1", base.Add(time.Minute)))
	store.Create(ctx, newRecord("t1", "Intro", "app-1", base))
	store.Create(ctx, newRecord("t3", "Other", "app-2", base))

	list, _ := store.List(ctx, "app-1")
	if len(list) != 2 || list[0].ID != "t1" || list[1].ID != "t2" {
		t.Fatalf("expected [t1 t2] by creation time, got %+v", list)
	}

	all, _ := store.List(ctx, "")
	if len(all) != 3 {
		t.Errorf("expected 3 transitions, got %d", len(all))
	}

	r := list[0]
	r.Locked = true
	if err := store.Update(ctx, r); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, _ := store.Get(ctx, "t1")
	if !got.Locked {
		t.Error("update not stored")
	}

	if err := store.Update(ctx, newRecord("ghost", "x", "y", base)); !errors.Is(err, ports.ErrTransitionAbsent) {
		t.Errorf("expected ErrTransitionAbsent, got %v", err)
	}
}
