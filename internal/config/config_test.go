package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.API.Key = "secret"
	cfg.Properties = []PropertyConfig{{ID: "101", Name: "Redroofs", Code: "RR"}}
	return cfg
}

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("first-run load: %v", err)
	}
	if cfg.API.BaseURL == "" || cfg.Feeds.OutDir == "" {
		t.Fatal("defaults not populated")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("config perms = %o, want 0600", perm)
	}

	// The template is not runnable until properties are added.
	if err := cfg.Validate(); err == nil {
		t.Fatal("template config should fail validation")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := validConfig()
	cfg.Feeds.SplitDays = true
	cfg.Normalizer.ExtrasAllowList = []string{"pet", "cot"}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Feeds.SplitDays {
		t.Fatal("split_days lost in round trip")
	}
	if len(got.Properties) != 1 || got.Properties[0].ID != "101" {
		t.Fatalf("properties = %v", got.Properties)
	}
	if len(got.Normalizer.ExtrasAllowList) != 2 {
		t.Fatalf("allow list = %v", got.Normalizer.ExtrasAllowList)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("round-tripped config invalid: %v", err)
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.Normalize()
	if cfg.API.BaseURL == "" || cfg.API.TimeoutSeconds != 30 || cfg.Feeds.RefreshCron == "" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := validConfig()
	cfg.API.BaseURL = "not a url"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "BaseURL") {
		t.Fatalf("err = %v, want BaseURL failure", err)
	}

	cfg = validConfig()
	cfg.Properties = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing properties should fail validation")
	}

	cfg = validConfig()
	cfg.Properties = []PropertyConfig{{Name: "No ID"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("property without ID should fail validation")
	}

	cfg = validConfig()
	cfg.API.Key = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing API key should fail validation")
	}
}

func TestLoadAPIKeyFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := validConfig()
	cfg.API.Key = ""
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	t.Setenv("BOOKSTER_API_KEY", "from-env")
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.API.Key != "from-env" {
		t.Fatalf("key = %q, want env override", got.API.Key)
	}
}

func TestPropertyCodes(t *testing.T) {
	cfg := validConfig()
	cfg.Properties = append(cfg.Properties, PropertyConfig{ID: "102", Name: "Seaview"})
	codes := cfg.PropertyCodes()
	if codes["Redroofs"] != "RR" {
		t.Fatalf("codes = %v", codes)
	}
	if _, ok := codes["Seaview"]; ok {
		t.Fatal("property without code must not appear in the table")
	}
}
