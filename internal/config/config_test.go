package config

import (
	"errors"
	"os"
	"testing"

	"pgregory.net/rapid"
)

func TestConfigMergePrecedence(t *testing.T) {
	nonEmptyString := rapid.StringMatching(`[a-zA-Z0-9/_.-]{1,20}`)

	// Generator for a Config with each field either unset or set.
	configGen := rapid.Custom(func(t *rapid.T) *Config {
		cfg := &Config{}
		if rapid.Bool().Draw(t, "hasStateDir") {
			cfg.StateDir = nonEmptyString.Draw(t, "stateDir")
		}
		if rapid.Bool().Draw(t, "hasHost") {
			cfg.Host = nonEmptyString.Draw(t, "host")
		}
		if rapid.Bool().Draw(t, "hasPort") {
			cfg.Port = rapid.IntRange(1, 65535).Draw(t, "port")
		}
		if rapid.Bool().Draw(t, "hasGimpBinary") {
			cfg.GimpBinary = nonEmptyString.Draw(t, "gimpBinary")
		}
		if rapid.Bool().Draw(t, "hasHistoryDepth") {
			cfg.HistoryDepth = rapid.IntRange(1, 500).Draw(t, "historyDepth")
		}
		return cfg
	})

	rapid.Check(t, func(t *rapid.T) {
		global := configGen.Draw(t, "global")
		project := configGen.Draw(t, "project")

		merged := Merge(global, project)
		defaults := Defaults()

		checkStringField(t, "StateDir", global.StateDir, project.StateDir, defaults.StateDir, merged.StateDir)
		checkStringField(t, "Host", global.Host, project.Host, defaults.Host, merged.Host)
		checkStringField(t, "GimpBinary", global.GimpBinary, project.GimpBinary, defaults.GimpBinary, merged.GimpBinary)
		checkIntField(t, "Port", global.Port, project.Port, defaults.Port, merged.Port)
		checkIntField(t, "HistoryDepth", global.HistoryDepth, project.HistoryDepth, defaults.HistoryDepth, merged.HistoryDepth)
	})
}

// checkStringField asserts the merge precedence rule for a single string field:
//   - project non-empty  → merged == project
//   - project empty, global non-empty → merged == global
//   - both empty → merged == defaultVal
func checkStringField(t *rapid.T, name, globalVal, projectVal, defaultVal, mergedVal string) {
	t.Helper()
	switch {
	case projectVal != "":
		if mergedVal != projectVal {
			t.Fatalf("%s: both set — expected project value %q, got %q", name, projectVal, mergedVal)
		}
	case globalVal != "":
		if mergedVal != globalVal {
			t.Fatalf("%s: only global set — expected global value %q, got %q", name, globalVal, mergedVal)
		}
	default:
		if mergedVal != defaultVal {
			t.Fatalf("%s: neither set — expected default %q, got %q", name, defaultVal, mergedVal)
		}
	}
}

func checkIntField(t *rapid.T, name string, globalVal, projectVal, defaultVal, mergedVal int) {
	t.Helper()
	switch {
	case projectVal != 0:
		if mergedVal != projectVal {
			t.Fatalf("%s: both set — expected project value %d, got %d", name, projectVal, mergedVal)
		}
	case globalVal != 0:
		if mergedVal != globalVal {
			t.Fatalf("%s: only global set — expected global value %d, got %d", name, globalVal, mergedVal)
		}
	default:
		if mergedVal != defaultVal {
			t.Fatalf("%s: neither set — expected default %d, got %d", name, defaultVal, mergedVal)
		}
	}
}

func TestDefaultsValues(t *testing.T) {
	d := Defaults()
	if d.Host != "127.0.0.1" {
		t.Errorf("Host: want %q, got %q", "127.0.0.1", d.Host)
	}
	if d.Port != 41749 {
		t.Errorf("Port: want %d, got %d", 41749, d.Port)
	}
	if d.HistoryDepth != 50 {
		t.Errorf("HistoryDepth: want %d, got %d", 50, d.HistoryDepth)
	}
}

func TestLoadGlobalMissingFileReturnsDefaults(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config, got nil")
	}
	defaults := Defaults()
	if cfg.Host != defaults.Host || cfg.Port != defaults.Port {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadProjectMissingFileReturnsNil(t *testing.T) {
	tmp := t.TempDir()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(tmp); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(orig) })

	cfg, err := LoadProject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Errorf("expected nil config, got %+v", cfg)
	}
}

func TestLoadGlobalParseError(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	cfgDir := tmp + "/.config/gimpbridge"
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfgDir+"/config.json", []byte("{invalid json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadGlobal()
	if err == nil {
		t.Fatal("expected an error for invalid JSON, got nil")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("expected *ParseError, got %T: %v", err, err)
	}
}
