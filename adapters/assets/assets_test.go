package assets_test

import (
	"errors"
	"testing"

	"github.com/artpar/apphost/adapters/assets"
)

func TestNew(t *testing.T) {
	for _, bad := range []string{"", "assets/", "/relative", "://broken"} {
		if _, err := assets.New(bad); err == nil {
			t.Errorf("New(%q) should fail", bad)
		}
	}
	if _, err := assets.New("https://assets.example/base/?x=1"); err != nil {
		t.Errorf("New: %v", err)
	}
}

func TestAssetURL(t *testing.T) {
	r, err := assets.New("https://assets.example/")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		app  string
		path string
		want string
	}{
		{"app-1", "assets/intro.webm", "https://assets.example/apps/app-1/assets/intro.webm"},
		{"app-1", "./intro.webm", "https://assets.example/apps/app-1/intro.webm"},
		{"app-1", "a//b/./c.mp4", "https://assets.example/apps/app-1/a/b/c.mp4"},
		{"app-1", `dir\clip.mp4`, "https://assets.example/apps/app-1/dir/clip.mp4"},
		{"app-1", "my clip.mp4", "https://assets.example/apps/app-1/my%20clip.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := r.AssetURL(tt.app, tt.path)
			if err != nil {
				t.Fatalf("AssetURL: %v", err)
			}
			if got != tt.want {
				t.Errorf("AssetURL = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAssetURL_KeepsBasePath(t *testing.T) {
	r, _ := assets.New("https://cdn.example/platform")
	got, err := r.AssetURL("app-9", "x.webm")
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://cdn.example/platform/apps/app-9/x.webm" {
		t.Errorf("AssetURL = %s", got)
	}
}

func TestAssetURL_Rejects(t *testing.T) {
	r, _ := assets.New("https://assets.example")

	tests := []struct {
		name string
		app  string
		path string
		want error
	}{
		{"empty", "app-1", "", assets.ErrEmptyPath},
		{"dot", "app-1", ".", assets.ErrEmptyPath},
		{"parent", "app-1", "../app-2/secret.webm", assets.ErrOutsideAppRoot},
		{"nested parent", "app-1", "a/../../b.webm", assets.ErrOutsideAppRoot},
		{"absolute", "app-1", "/etc/passwd", assets.ErrOutsideAppRoot},
		{"full url", "app-1", "https://evil.example/x.webm", assets.ErrOutsideAppRoot},
		{"no app", "", "x.webm", assets.ErrInvalidAppID},
		{"app with slash", "app/../other", "x.webm", assets.ErrInvalidAppID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.AssetURL(tt.app, tt.path)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
