package bootstrap_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/artpar/apphost/bootstrap"
	"github.com/artpar/apphost/core/capability"
	"github.com/artpar/apphost/core/runtime"
	"github.com/artpar/apphost/pkg/apierror"
)

const adminToken = "bootstrap-admin-token"

func writeConfig(t *testing.T, path, driver, dsn string, extra string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	content := `
assets:
  base_url: https://assets.example
database:
  driver: ` + driver + `
  dsn: "` + dsn + `"
logging:
  level: debug
metrics:
  enabled: true
admin:
  enabled: true
  token_hash: "` + string(hash) + `"
apps:
  - id: app-1
    permissions: [SceneTransitions]
` + extra
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newApp(t *testing.T, path string) *bootstrap.App {
	t.Helper()
	a, err := bootstrap.New(context.Background(), bootstrap.Options{
		ConfigPath: path,
		Version:    "test",
		LogOutput:  io.Discard,
	})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	t.Cleanup(func() { a.Shutdown() })
	return a
}

func createIntro(t *testing.T, a *bootstrap.App, appID string) (any, error) {
	t.Helper()
	return a.Dispatcher.Invoke(context.Background(), runtime.Invocation{
		AppID:  appID,
		Module: "SceneTransitions",
		Method: "createTransition",
		Args:   map[string]any{"type": "stinger", "name": "Intro " + appID, "url": "intro.webm"},
	})
}

func TestNew_MemoryDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apphost.yaml")
	writeConfig(t, path, "memory", "", "")

	a := newApp(t, path)

	if a.DB != nil {
		t.Error("memory driver should not open a database")
	}
	if a.HTTPServer == nil || a.HTTPServer.Addr != "127.0.0.1:8080" {
		t.Fatalf("HTTPServer = %+v", a.HTTPServer)
	}
	if _, ok := a.Registry.Lookup("SceneTransitions"); !ok {
		t.Error("SceneTransitions module not registered")
	}

	if _, err := createIntro(t, a, "app-1"); err != nil {
		t.Fatalf("invoke as granted app: %v", err)
	}
	_, err := createIntro(t, a, "app-2")
	if !apierror.Is(err, apierror.KindPermissionDenied) {
		t.Errorf("invoke as unknown app: err = %v, want permission_denied", err)
	}
}

func TestNew_HTTPSurface(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apphost.yaml")
	writeConfig(t, path, "sqlite", filepath.Join(t.TempDir(), "test.db"), "")

	a := newApp(t, path)
	srv := httptest.NewServer(a.HTTPServer.Handler)
	defer srv.Close()

	get := func(path string, token string) *http.Response {
		req, _ := http.NewRequest("GET", srv.URL+path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	tests := []struct {
		path   string
		token  string
		status int
	}{
		{"/health", "", http.StatusOK},
		{"/health/ready", "", http.StatusOK},
		{"/version", "", http.StatusOK},
		{"/admin/modules", "", http.StatusUnauthorized},
		{"/admin/modules", adminToken, http.StatusOK},
		{"/admin/apps", adminToken, http.StatusOK},
	}
	for _, tt := range tests {
		if resp := get(tt.path, tt.token); resp.StatusCode != tt.status {
			t.Errorf("GET %s: status = %d, want %d", tt.path, resp.StatusCode, tt.status)
		}
	}

	if _, err := createIntro(t, a, "app-1"); err != nil {
		t.Fatal(err)
	}

	resp := get("/metrics", "")
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "apphost_invocations_total") {
		t.Error("metrics output missing apphost_invocations_total")
	}

	resp = get("/admin/invocations?app_id=app-1", adminToken)
	var list struct {
		Total int `json:"total"`
	}
	json.NewDecoder(resp.Body).Decode(&list)
	if list.Total != 1 {
		t.Errorf("audited invocations = %d, want 1", list.Total)
	}
}

func TestNew_SQLitePersistsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apphost.yaml")
	writeConfig(t, path, "sqlite", filepath.Join(dir, "persist.db"), "")

	first, err := bootstrap.New(context.Background(), bootstrap.Options{ConfigPath: path, LogOutput: io.Discard})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := createIntro(t, first, "app-1"); err != nil {
		t.Fatal(err)
	}
	first.Shutdown()

	second := newApp(t, path)
	list, err := second.Engine.List(context.Background(), "app-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "Intro app-1" {
		t.Errorf("transitions after restart = %+v", list)
	}
}

func TestNew_EnvOnly(t *testing.T) {
	t.Setenv("APPHOST_ASSETS_BASE_URL", "https://cdn.example")
	t.Setenv("APPHOST_DATABASE_DRIVER", "memory")

	a := newApp(t, filepath.Join(t.TempDir(), "missing.yaml"))

	if a.Config.Assets.BaseURL != "https://cdn.example" {
		t.Errorf("BaseURL = %q", a.Config.Assets.BaseURL)
	}
	if err := a.Reload(); err != nil {
		t.Errorf("Reload without a file should be a no-op, got %v", err)
	}
}

func TestNew_NoConfiguration(t *testing.T) {
	t.Setenv("APPHOST_ASSETS_BASE_URL", "")

	_, err := bootstrap.New(context.Background(), bootstrap.Options{
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
		LogOutput:  io.Discard,
	})
	if err == nil {
		t.Fatal("expected error without file or environment")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apphost.yaml")
	content := `
assets:
  base_url: https://assets.example
database:
  driver: memory
apps:
  - id: app-1
    permissions: [Teleport]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := bootstrap.New(context.Background(), bootstrap.Options{ConfigPath: path, LogOutput: io.Discard})
	if err == nil || !strings.Contains(err.Error(), "Teleport") {
		t.Fatalf("err = %v, want unknown permission error", err)
	}
}

func TestReload_AppliesGrantsAndPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apphost.yaml")
	writeConfig(t, path, "memory", "", "")

	a := newApp(t, path)

	writeConfig(t, path, "memory", "", `  - id: app-2
    permissions: [scene_transitions, notifications]
policy:
  conceal_unauthorized: true
  prune_apps: true
`)
	if err := a.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	perms, err := a.Grants.Get(context.Background(), "app-2")
	if err != nil {
		t.Fatal(err)
	}
	want := []capability.Permission{capability.Notifications, capability.SceneTransitions}
	if len(perms) != len(want) || perms[0] != want[0] || perms[1] != want[1] {
		t.Errorf("app-2 grants = %v, want %v", perms, want)
	}

	if _, err := createIntro(t, a, "app-2"); err != nil {
		t.Errorf("invoke after reload: %v", err)
	}
}

func TestReload_InvalidKeepsRunningConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apphost.yaml")
	writeConfig(t, path, "memory", "", "")

	a := newApp(t, path)

	if err := os.WriteFile(path, []byte("assets: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := a.Reload(); err == nil {
		t.Fatal("expected reload error")
	}

	if _, err := createIntro(t, a, "app-1"); err != nil {
		t.Errorf("app-1 lost its grants after a failed reload: %v", err)
	}
}
