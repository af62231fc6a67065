package idgen_test

import (
	"regexp"
	"sort"
	"sync"
	"testing"

	"github.com/artpar/apphost/adapters/idgen"
)

func TestUUID_New(t *testing.T) {
	id := idgen.UUID{}.New()

	// UUID v7 format: 8-4-4-4-12 hex chars, version nibble 7
	uuidRegex := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	if !uuidRegex.MatchString(id) {
		t.Errorf("ID %s doesn't match UUID v7 format", id)
	}
}

func TestUUID_New_UniqueAndOrdered(t *testing.T) {
	gen := idgen.UUID{}.Func()

	ids := make([]string, 1000)
	seen := make(map[string]bool, len(ids))
	for i := range ids {
		ids[i] = gen()
		if seen[ids[i]] {
			t.Fatalf("duplicate ID generated: %s", ids[i])
		}
		seen[ids[i]] = true
	}

	if !sort.StringsAreSorted(ids) {
		t.Error("v7 ids generated in sequence should sort in generation order")
	}
}

func TestSequential(t *testing.T) {
	g := idgen.NewSequential("tr-")

	for _, want := range []string{"tr-1", "tr-2", "tr-3"} {
		if got := g.New(); got != want {
			t.Errorf("New() = %s, want %s", got, want)
		}
	}
}

func TestSequential_Concurrent(t *testing.T) {
	g := idgen.NewSequential("")

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := g.New()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != 100 {
		t.Errorf("unique ids = %d, want 100", len(seen))
	}
}
