package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eitatech/gatomia/pkg/storage"
)

func writeConfig(t *testing.T, root, body string) {
	t.Helper()
	dir := filepath.Join(root, storage.DataDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, storage.ConfigFile), []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_FileValues(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "request_timeout: 3s\nlog_format: json\n")

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Errorf("RequestTimeout = %s, want 3s", cfg.RequestTimeout)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
	if cfg.SyncTimeout != Default().SyncTimeout {
		t.Errorf("unset key lost its default: %s", cfg.SyncTimeout)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "request_timeout: 3s\nlog_level: info\n")
	t.Setenv("GATOMIA_REQUEST_TIMEOUT", "750ms")
	t.Setenv("GATOMIA_LOG_LEVEL", "debug")

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.RequestTimeout != 750*time.Millisecond {
		t.Errorf("RequestTimeout = %s, want 750ms", cfg.RequestTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "bad yaml", body: "request_timeout: [\n"},
		{name: "zero timeout", body: "request_timeout: 0s\n"},
		{name: "bad format", body: "log_format: xml\n"},
		{name: "bad level", body: "log_level: loud\n"},
		{name: "bad env duration", env: map[string]string{"GATOMIA_SYNC_TIMEOUT": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			if tt.body != "" {
				writeConfig(t, root, tt.body)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(root); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"

	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "spec_id", "a")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, `"spec_id":"a"`) {
		t.Errorf("expected JSON attributes, got %q", out)
	}
}
