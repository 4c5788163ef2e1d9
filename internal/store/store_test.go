package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestInit(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".atlas")

	if err := Init(home, false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(home, "data"))
	if err != nil {
		t.Error("expected data directory to exist")
	} else if !info.IsDir() {
		t.Error("expected data to be a directory")
	}

	cfgInfo, err := os.Stat(filepath.Join(home, "config.yaml"))
	if err != nil {
		t.Fatal("expected config.yaml to exist")
	}
	if cfgInfo.Mode().Perm() != 0644 {
		t.Errorf("config.yaml mode = %v, want 0644", cfgInfo.Mode().Perm())
	}

	// Second init should fail without force
	if err := Init(home, false); err == nil {
		t.Error("expected error on duplicate init")
	}

	// Force should succeed
	if err := Init(home, true); err != nil {
		t.Errorf("expected force init to succeed: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".atlas")
	Init(home, false)

	s, err := Load(home)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Home != home {
		t.Errorf("expected Home=%s, got %s", home, s.Home)
	}
	if got, want := s.RecordsLocation(), filepath.Join(home, "data", "records.json"); got != want {
		t.Errorf("RecordsLocation() = %s, want %s", got, want)
	}
	if got, want := s.CapabilitiesLocation(), filepath.Join(home, "data", "capabilities.json"); got != want {
		t.Errorf("CapabilitiesLocation() = %s, want %s", got, want)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error loading missing home")
	}
}

func TestPath(t *testing.T) {
	s := &Store{Home: "/tmp/.atlas"}
	got := s.Path("data", "records.json")
	want := filepath.Join("/tmp/.atlas", "data", "records.json")
	if got != want {
		t.Errorf("Path() = %s, want %s", got, want)
	}
}

func TestRemoteLocationNotResolved(t *testing.T) {
	s := &Store{Home: "/tmp/.atlas", Config: DefaultConfig()}
	s.Config.Sources.Records = "https://example.com/records.json"
	if got := s.RecordsLocation(); got != "https://example.com/records.json" {
		t.Errorf("RecordsLocation() = %s", got)
	}
}

func TestCheckHealth(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".atlas")
	Init(home, false)

	issues := CheckHealth(home)
	if len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}

	// Remove a directory to trigger an issue
	os.RemoveAll(filepath.Join(home, "data"))
	issues = CheckHealth(home)
	if len(issues) == 0 {
		t.Error("expected issues after removing data dir")
	}
}

func TestCheckHealth_BadValues(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".atlas")
	Init(home, false)
	os.WriteFile(filepath.Join(home, "config.yaml"), []byte("log:\n  level: loud\nsources:\n  timeout: soon\n"), 0644)

	issues := CheckHealth(home)
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %v", issues)
	}
	for _, i := range issues {
		if i.Severity != "warning" {
			t.Errorf("expected warning, got %s: %s", i.Severity, i.Message)
		}
	}
}

func TestCheckHealth_InvalidYAML(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".atlas")
	Init(home, false)
	os.WriteFile(filepath.Join(home, "config.yaml"), []byte("sources: [unclosed"), 0644)

	issues := CheckHealth(home)
	if len(issues) != 1 || issues[0].Severity != "error" {
		t.Errorf("expected one error, got %v", issues)
	}
}

func TestHomeEnvVar(t *testing.T) {
	t.Setenv("ATLAS_HOME", "/custom/path")
	if got := Home(); got != "/custom/path" {
		t.Errorf("Home() = %s, want /custom/path", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Sources.Records != "data/records.json" {
		t.Errorf("expected default records source, got %s", cfg.Sources.Records)
	}
	if cfg.Assets.Icons != "images/icons/" {
		t.Errorf("expected default icon base images/icons/, got %s", cfg.Assets.Icons)
	}
	if cfg.Display.CardWidth != 38 {
		t.Errorf("expected card_width 38, got %d", cfg.Display.CardWidth)
	}
	if cfg.FetchTimeout() != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", cfg.FetchTimeout())
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level info, got %s", cfg.Log.Level)
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".atlas")
	Init(home, false)

	// Write a minimal config with only version
	os.WriteFile(filepath.Join(home, "config.yaml"), []byte("version: \"1\"\n"), 0644)

	s, err := Load(home)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Config.Sources.Capabilities != "data/capabilities.json" {
		t.Errorf("expected default capabilities source, got %s", s.Config.Sources.Capabilities)
	}
	if s.Config.Display.CardWidth != 38 {
		t.Errorf("expected default card_width, got %d", s.Config.Display.CardWidth)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".atlas")
	Init(home, false)

	t.Setenv("ATLAS_SOURCES_RECORDS", "https://example.com/records.json")
	t.Setenv("ATLAS_DISPLAY_COLUMNS", "3")

	s, err := Load(home)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Config.Sources.Records != "https://example.com/records.json" {
		t.Errorf("env override not applied, got %s", s.Config.Sources.Records)
	}
	if s.Config.Display.Columns != 3 {
		t.Errorf("expected columns 3, got %d", s.Config.Display.Columns)
	}
	if got := s.Overrides(); len(got) != 2 {
		t.Errorf("expected 2 overrides, got %v", got)
	}

	// Saving another key must not write the override to disk.
	if err := s.SetConfigValue("log.level", "debug"); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(filepath.Join(home, "config.yaml"))
	if strings.Contains(string(data), "example.com") {
		t.Errorf("env override leaked into config.yaml:\n%s", data)
	}
}

func TestLoad_InvalidEnvOverride(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".atlas")
	Init(home, false)

	t.Setenv("ATLAS_LOG_LEVEL", "chatty")
	_, err := Load(home)
	if err == nil || !strings.Contains(err.Error(), "ATLAS_LOG_LEVEL") {
		t.Errorf("expected error naming ATLAS_LOG_LEVEL, got %v", err)
	}
}

func TestEnvVar(t *testing.T) {
	if got := EnvVar("display.card_width"); got != "ATLAS_DISPLAY_CARD_WIDTH" {
		t.Errorf("EnvVar() = %s", got)
	}
}

func TestSetConfigValue(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".atlas")
	Init(home, false)
	s, _ := Load(home)

	if err := s.SetConfigValue("sources.records", "/srv/challenges.json"); err != nil {
		t.Fatal(err)
	}
	if s.Config.Sources.Records != "/srv/challenges.json" {
		t.Errorf("expected updated source, got %s", s.Config.Sources.Records)
	}

	// Reload and verify persistence
	s2, _ := Load(home)
	if s2.Config.Sources.Records != "/srv/challenges.json" {
		t.Errorf("config not persisted, got %s", s2.Config.Sources.Records)
	}
	if v, _ := s2.Config.Get("sources.records"); v != "/srv/challenges.json" {
		t.Errorf("Get() = %s", v)
	}
}

func TestSetConfigValue_InvalidKey(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".atlas")
	Init(home, false)
	s, _ := Load(home)

	if err := s.SetConfigValue("nonexistent.key", "value"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestSetConfigValue_InvalidValues(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".atlas")
	Init(home, false)
	s, _ := Load(home)

	bad := map[string]string{
		"display.columns":    "notanumber",
		"display.card_width": "5",
		"sources.timeout":    "forever",
		"log.level":          "trace",
		"sources.records":    "",
	}
	for key, value := range bad {
		if err := s.SetConfigValue(key, value); err == nil {
			t.Errorf("expected error for %s=%q", key, value)
		}
	}
}

func TestFixIssues(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".atlas")
	Init(home, false)

	os.RemoveAll(filepath.Join(home, "data"))
	os.Remove(filepath.Join(home, "config.yaml"))

	fixed := FixIssues(home)
	if len(fixed) != 2 {
		t.Errorf("expected two fixes, got %v", fixed)
	}

	if _, err := os.Stat(filepath.Join(home, "data")); err != nil {
		t.Error("data dir not recreated")
	}
	if _, err := Load(home); err != nil {
		t.Errorf("config not recreated: %v", err)
	}
}

func TestLoad_LayersDefaultsFileAndEnv(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".atlas")
	Init(home, false)
	os.WriteFile(filepath.Join(home, "config.yaml"), []byte("version: \"1\"\ndisplay:\n  card_width: 44\n  columns: 2\nlog:\n  level: warn\n"), 0644)

	t.Setenv("ATLAS_DISPLAY_CARD_WIDTH", "50")

	s, err := Load(home)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Config.Display.CardWidth != 50 {
		t.Errorf("env should win over file, got card_width %d", s.Config.Display.CardWidth)
	}
	if s.Config.Display.Columns != 2 || s.Config.Log.Level != "warn" {
		t.Errorf("file values not applied: %+v", s.Config)
	}
	if s.Config.Sources.Timeout != "10s" {
		t.Errorf("default not applied, got timeout %q", s.Config.Sources.Timeout)
	}

	if err := s.SaveConfig(); err != nil {
		t.Fatal(err)
	}
	s2, _ := Load(home)
	if s2.file.Display.CardWidth != 44 {
		t.Errorf("file config should keep 44, got %d", s2.file.Display.CardWidth)
	}
}

func TestLoad_InvalidFileValueFallsBackToDefault(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".atlas")
	Init(home, false)
	os.WriteFile(filepath.Join(home, "config.yaml"), []byte("display:\n  card_width: 5\n"), 0644)

	s, err := Load(home)
	if err != nil {
		t.Fatalf("invalid file values should not block Load: %v", err)
	}
	if s.Config.Display.CardWidth != 38 {
		t.Errorf("expected default card_width, got %d", s.Config.Display.CardWidth)
	}
	if issues := CheckHealth(home); len(issues) == 0 {
		t.Error("doctor should still report the invalid value")
	}
}
