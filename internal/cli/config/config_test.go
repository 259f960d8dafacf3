package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"http://portal:8000", "http://portal:8000"},
		{"http://portal:8000/", "http://portal:8000"},
		{"https://portal.example.com", "https://portal.example.com"},
		{"portal:8000", "http://portal:8000"},
		{"  portal:8000/  ", "http://portal:8000"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := NormalizeURL(tc.in); got != tc.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, ConfigFileName)

	cfg := &Config{
		Portals: []Portal{
			{URL: "http://lab-portal:8000", Alias: "lab"},
			{URL: "http://staging:8000", Alias: "staging"},
		},
	}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if len(loaded.Portals) != 2 {
		t.Fatalf("expected 2 portals, got %d", len(loaded.Portals))
	}
	if loaded.Portals[0].Alias != "lab" || loaded.Portals[1].URL != "http://staging:8000" {
		t.Errorf("unexpected portals: %+v", loaded.Portals)
	}
}

func TestFindConfigFile_SearchesParents(t *testing.T) {
	tempDir := t.TempDir()

	cfgPath := filepath.Join(tempDir, ConfigFileName)
	if err := Save(cfgPath, &Config{Portals: []Portal{{URL: "http://p:8000", Alias: "p"}}}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	nested := filepath.Join(tempDir, "experiments", "run-1")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}

	t.Chdir(nested)

	found, err := FindConfigFile()
	if err != nil {
		t.Fatalf("expected config to be found from nested dir: %v", err)
	}

	// Resolve symlinks before comparing (macOS tempdirs)
	wantPath, _ := filepath.EvalSymlinks(cfgPath)
	gotPath, _ := filepath.EvalSymlinks(found)
	if gotPath != wantPath {
		t.Errorf("expected %s, got %s", wantPath, gotPath)
	}
}

func TestFindConfigFile_NotFound(t *testing.T) {
	t.Chdir(t.TempDir())

	if _, err := FindConfigFile(); err == nil {
		t.Error("expected error when no config exists")
	}
}

func TestGetPortalByAlias(t *testing.T) {
	cfg := &Config{
		Portals: []Portal{
			{URL: "http://a:8000", Alias: "a"},
			{URL: "http://b:8000", Alias: "b"},
		},
	}

	portal, err := cfg.GetPortalByAlias("b")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if portal.URL != "http://b:8000" {
		t.Errorf("expected portal b, got %+v", portal)
	}

	if _, err := cfg.GetPortalByAlias("missing"); err == nil {
		t.Error("expected error for unknown alias")
	}
}

func TestGetDefaultPortal(t *testing.T) {
	cfg := &Config{}
	if _, err := cfg.GetDefaultPortal(); err == nil {
		t.Error("expected error with no portals configured")
	}

	cfg.Portals = []Portal{{URL: "http://a:8000", Alias: "a"}}
	portal, err := cfg.GetDefaultPortal()
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if portal.Alias != "a" {
		t.Errorf("expected first portal, got %+v", portal)
	}
}
