package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/smile-viewer/internal"
	"github.com/iksnae/smile-viewer/internal/stub"
)

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{
			name: "version flag",
			args: []string{"--version"},
			want: "dev",
		},
		{
			name: "help flag",
			args: []string{"--help"},
			want: "smile-viewer",
		},
		{
			name:    "nonexistent command",
			args:    []string{"nonexistent-command"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCommand(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("rootCmd.Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.want != "" && !strings.Contains(out, tt.want) {
				t.Errorf("output should contain %q, got:\n%s", tt.want, out)
			}
		})
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	want := []string{"watch", "history", "fetch", "export", "healthcheck", "stub"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("%s command not registered", name)
		}
	}
}

func TestLoadConfig_Layers(t *testing.T) {
	_, url := startStub(t, stub.DefaultConfig())

	dir := t.TempDir()
	configFile := filepath.Join(dir, "viewer.yaml")
	if err := os.WriteFile(configFile, []byte("base_url: http://unused.invalid:1\nrequest_timeout: 3s\n"), 0644); err != nil {
		t.Fatal(err)
	}

	// --base-url wins over the config file
	if _, err := runCommand(t, "--config", configFile, "--base-url", url, "history"); err != nil {
		t.Fatalf("history error = %v", err)
	}
	if cfg.BaseURL != url {
		t.Errorf("cfg.BaseURL = %q, want %q", cfg.BaseURL, url)
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Errorf("cfg.RequestTimeout = %v, want 3s from the config file", cfg.RequestTimeout)
	}
}

func TestLoadConfig_FlagsDoNotLeakBetweenRuns(t *testing.T) {
	_, url := startStub(t, stub.DefaultConfig())

	if _, err := runCommand(t, "--base-url", url, "--timeout", "200ms", "history", "--limit", "1"); err != nil {
		t.Fatalf("history error = %v", err)
	}
	if cfg.RequestTimeout != 200*time.Millisecond {
		t.Fatalf("cfg.RequestTimeout = %v, want 200ms from --timeout", cfg.RequestTimeout)
	}

	t.Setenv(internal.EnvBaseURL, url)
	out, err := runCommand(t, "history")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if cfg.RequestTimeout != internal.DefaultConfig().RequestTimeout {
		t.Errorf("cfg.RequestTimeout = %v, want the default after a run without --timeout", cfg.RequestTimeout)
	}
	if cfg.BaseURL != url {
		t.Errorf("cfg.BaseURL = %q, want %q from the environment", cfg.BaseURL, url)
	}
	if !strings.Contains(out, "10:05:00.125") {
		t.Errorf("--limit from the previous run leaked into this one, got:\n%s", out)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing config file", args: []string{"--config", "/nonexistent/viewer.yaml", "history"}},
		{name: "relative base url", args: []string{"--base-url", "localhost:5000", "history"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCommand(t, tt.args...)
			if err == nil {
				t.Fatal("expected a config error")
			}
			if !strings.Contains(err.Error(), "config") && !strings.Contains(err.Error(), "base_url") {
				t.Errorf("error = %v, want a config error", err)
			}
		})
	}
}

func TestNewClient(t *testing.T) {
	cfg = internal.DefaultConfig()
	client, err := newClient()
	if err != nil {
		t.Fatalf("newClient() error = %v", err)
	}
	if client.BaseURL() != cfg.BaseURL {
		t.Errorf("BaseURL() = %q, want %q", client.BaseURL(), cfg.BaseURL)
	}
}
