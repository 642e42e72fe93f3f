package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/syncarch/pkg/pipeline"
)

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	dir, err := configDir()
	if err != nil {
		t.Fatalf("configDir() error: %v", err)
	}

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".config", appName)
	if dir != expected {
		t.Errorf("configDir() = %q, want %q", dir, expected)
	}
}

func TestConfigDirXDG(t *testing.T) {
	custom := filepath.Join(t.TempDir(), "config")
	t.Setenv("XDG_CONFIG_HOME", custom)

	dir, err := configDir()
	if err != nil {
		t.Fatalf("configDir() error: %v", err)
	}

	expected := filepath.Join(custom, appName)
	if dir != expected {
		t.Errorf("configDir() with XDG_CONFIG_HOME = %q, want %q", dir, expected)
	}
}

func TestLoadOptions(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	// No config file: defaults
	opts, err := loadOptions("")
	if err != nil {
		t.Fatalf("loadOptions() error = %v", err)
	}
	if opts.Debug || !opts.Simplify || !opts.MergeIslands {
		t.Errorf("loadOptions() = %+v, want defaults", opts)
	}

	// User config file
	dir := filepath.Join(configHome, appName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, configFile), []byte("debug = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	opts, err = loadOptions("")
	if err != nil {
		t.Fatalf("loadOptions() error = %v", err)
	}
	if !opts.Debug {
		t.Error("loadOptions() did not read the user config file")
	}

	// Explicit path wins
	explicit := filepath.Join(t.TempDir(), "run.toml")
	if err := os.WriteFile(explicit, []byte("simplify = false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	opts, err = loadOptions(explicit)
	if err != nil {
		t.Fatalf("loadOptions(%q) error = %v", explicit, err)
	}
	if opts.Debug || opts.Simplify {
		t.Errorf("loadOptions(%q) = %+v, want simplify off and debug default", explicit, opts)
	}
	if opts.MaxSimplifyIterations != pipeline.DefaultMaxSimplifyIterations {
		t.Errorf("MaxSimplifyIterations = %d, want %d", opts.MaxSimplifyIterations, pipeline.DefaultMaxSimplifyIterations)
	}
}

func TestParseFormats(t *testing.T) {
	if got := parseFormats(""); got != nil {
		t.Errorf("parseFormats(\"\") = %v, want nil", got)
	}
	if got := strings.Join(parseFormats("dot,json"), "|"); got != "dot|json" {
		t.Errorf("parseFormats(\"dot,json\") = %q, want %q", got, "dot|json")
	}
}
