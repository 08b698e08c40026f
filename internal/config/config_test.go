package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
[window]
title = "planets"
width = 640
height = 480

[renderer]
frames_in_flight = 2
max_stale_retries = 3

[camera]
tracking = "snapshot"

[log]
level = "debug"
stats_interval = "250ms"
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Window.Title != "planets" {
		t.Errorf("Window.Title = %q, want %q", cfg.Window.Title, "planets")
	}
	if cfg.Window.Width != 640 || cfg.Window.Height != 480 {
		t.Errorf("Window size = %dx%d, want 640x480", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Renderer.FramesInFlight != 2 {
		t.Errorf("FramesInFlight = %d, want 2", cfg.Renderer.FramesInFlight)
	}
	if cfg.Renderer.MaxStaleRetries != 3 {
		t.Errorf("MaxStaleRetries = %d, want 3", cfg.Renderer.MaxStaleRetries)
	}
	// untouched keys keep their defaults
	if cfg.Renderer.SlotsPerBlock != 256 {
		t.Errorf("SlotsPerBlock = %d, want default 256", cfg.Renderer.SlotsPerBlock)
	}
	if cfg.Mesh.Subdivisions != 4 {
		t.Errorf("Mesh.Subdivisions = %d, want default 4", cfg.Mesh.Subdivisions)
	}
	if cfg.Camera.Tracking != TrackingSnapshot {
		t.Errorf("Camera.Tracking = %q, want %q", cfg.Camera.Tracking, TrackingSnapshot)
	}
	if cfg.Log.StatsInterval.Duration != 250*time.Millisecond {
		t.Errorf("StatsInterval = %v, want 250ms", cfg.Log.StatsInterval.Duration)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "[window]\ncolour = 1\n"},
		{"zero frames in flight", "[renderer]\nframes_in_flight = 0\n"},
		{"zero stale retries", "[renderer]\nmax_stale_retries = 0\n"},
		{"negative width", "[window]\nwidth = -1\n"},
		{"bad tracking", "[camera]\ntracking = \"follow\"\n"},
		{"bad duration", "[log]\nstats_interval = \"soon\"\n"},
		{"subdivisions too high", "[mesh]\nsubdivisions = 12\n"},
		{"missing shader", "[shaders]\nvertex = \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", tt.doc)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "incipisphere.toml")
	if err := os.WriteFile(path, []byte("[mesh]\nsubdivisions = 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Mesh.Subdivisions != 2 {
		t.Errorf("Mesh.Subdivisions = %d, want 2", cfg.Mesh.Subdivisions)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Load(missing) succeeded, want error")
	}
}

func TestResolveFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	if err := os.WriteFile(path, []byte("[window]\ntitle = \"env\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvPath, path)

	cfg, source, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if source != path {
		t.Errorf("source = %q, want %q", source, path)
	}
	if cfg.Window.Title != "env" {
		t.Errorf("Window.Title = %q, want %q", cfg.Window.Title, "env")
	}
}
