package config

import (
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BuildDir != "build" || cfg.StaticDir != "json" || cfg.IndexPath != "index.js" {
		t.Errorf("paths = %q, %q, %q", cfg.BuildDir, cfg.StaticDir, cfg.IndexPath)
	}
	if cfg.Workers != 6 || cfg.FetchConcurrency != 8 || cfg.RequestsPerSecond != 20 || cfg.MaxRetries != 4 {
		t.Errorf("limits = %+v", cfg)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v, want 30s", cfg.HTTPTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STRATZ_TOKEN", "secret")
	t.Setenv("DOTACONSTANTS_WORKERS", "2")
	t.Setenv("DOTACONSTANTS_HTTP_TIMEOUT", "5s")
	t.Setenv("DOTACONSTANTS_STORE_PATH", "/tmp/store.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StratzToken != "secret" || cfg.Workers != 2 || cfg.HTTPTimeout != 5*time.Second || cfg.StorePath != "/tmp/store.db" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name, key, value, want string
	}{
		{"malformed int", "DOTACONSTANTS_WORKERS", "many", "parse env:"},
		{"zero workers", "DOTACONSTANTS_WORKERS", "0", "DOTACONSTANTS_WORKERS must be positive"},
		{"zero fetches", "DOTACONSTANTS_FETCH_CONCURRENCY", "0", "DOTACONSTANTS_FETCH_CONCURRENCY must be positive"},
		{"malformed duration", "DOTACONSTANTS_HTTP_TIMEOUT", "soon", "parse env:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load() error = %v, want %q", err, tt.want)
			}
		})
	}
}

// Exitf calls os.Exit, so it runs in a subprocess.
func TestExitf(t *testing.T) {
	if os.Getenv("TEST_EXITF_SUBPROCESS") == "1" {
		Exitf("fatal: %s", "something broke")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestExitf$")
	cmd.Env = append(os.Environ(), "TEST_EXITF_SUBPROCESS=1")
	out, err := cmd.CombinedOutput()

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected *exec.ExitError, got %T: %v", err, err)
	}
	if exitErr.ExitCode() != 1 {
		t.Fatalf("exit code = %d, want 1", exitErr.ExitCode())
	}
	if !strings.Contains(string(out), "fatal: something broke") {
		t.Fatalf("output = %q", out)
	}
}
