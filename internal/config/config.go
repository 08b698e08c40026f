package config

import (
	"bytes"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

// EnvPath names the environment variable that points at a config file.
const EnvPath = "INCIPISPHERE_CONFIG"

// DefaultPath is read when present and EnvPath is unset.
const DefaultPath = "incipisphere.toml"

const (
	TrackingTrack    = "track"
	TrackingSnapshot = "snapshot"
)

type Config struct {
	Window   Window   `toml:"window"`
	Renderer Renderer `toml:"renderer"`
	Shaders  Shaders  `toml:"shaders"`
	Mesh     Mesh     `toml:"mesh"`
	Camera   Camera   `toml:"camera"`
	Log      Log      `toml:"log"`
}

type Window struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

type Renderer struct {
	Validation bool `toml:"validation"`
	// FramesInFlight of 1 blocks on every frame's completion before Draw returns.
	FramesInFlight int `toml:"frames_in_flight"`
	// MaxStaleRetries is how many rebuilds one frame may absorb before the
	// surface is treated as lost.
	MaxStaleRetries int `toml:"max_stale_retries"`
	FallbackWidth   int `toml:"fallback_width"`
	FallbackHeight  int `toml:"fallback_height"`
	SlotsPerBlock   int `toml:"uniform_slots_per_block"`
}

type Shaders struct {
	Vertex   string `toml:"vertex"`
	Fragment string `toml:"fragment"`
	Watch    bool   `toml:"watch"`
}

type Mesh struct {
	Subdivisions int `toml:"subdivisions"`
	// Path, when set, replaces the icosphere with an OBJ file.
	Path string `toml:"path"`
}

type Camera struct {
	Tracking string `toml:"tracking"`
}

type Log struct {
	Level         string   `toml:"level"`
	StatsInterval Duration `toml:"stats_interval"`
}

// Duration decodes TOML strings such as "5s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", text)
	}
	d.Duration = parsed
	return nil
}

func Default() *Config {
	return &Config{
		Window: Window{
			Title:  "Incipisphere Renderer",
			Width:  1024,
			Height: 768,
		},
		Renderer: Renderer{
			Validation:      false,
			FramesInFlight:  1,
			MaxStaleRetries: 8,
			FallbackWidth:   1024,
			FallbackHeight:  768,
			SlotsPerBlock:   256,
		},
		Shaders: Shaders{
			Vertex:   "shaders/vert.spv",
			Fragment: "shaders/frag.spv",
			Watch:    false,
		},
		Mesh: Mesh{
			Subdivisions: 4,
		},
		Camera: Camera{
			Tracking: TrackingTrack,
		},
		Log: Log{
			Level:         "info",
			StatsInterval: Duration{5 * time.Second},
		},
	}
}

// Load reads a TOML file on top of the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve picks the config source: EnvPath, then DefaultPath if it exists,
// then the built-in defaults.
func Resolve() (*Config, string, error) {
	if path := os.Getenv(EnvPath); path != "" {
		cfg, err := Load(path)
		return cfg, path, err
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		cfg, err := Load(DefaultPath)
		return cfg, DefaultPath, err
	}
	return Default(), "", nil
}

func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Newf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Renderer.FramesInFlight < 1 {
		return errors.Newf("renderer.frames_in_flight must be at least 1, got %d", c.Renderer.FramesInFlight)
	}
	if c.Renderer.MaxStaleRetries < 1 {
		return errors.Newf("renderer.max_stale_retries must be at least 1, got %d", c.Renderer.MaxStaleRetries)
	}
	if c.Renderer.FallbackWidth <= 0 || c.Renderer.FallbackHeight <= 0 {
		return errors.Newf("fallback extent must be positive, got %dx%d", c.Renderer.FallbackWidth, c.Renderer.FallbackHeight)
	}
	if c.Renderer.SlotsPerBlock < 1 {
		return errors.Newf("renderer.uniform_slots_per_block must be at least 1, got %d", c.Renderer.SlotsPerBlock)
	}
	if c.Shaders.Vertex == "" || c.Shaders.Fragment == "" {
		return errors.New("shaders.vertex and shaders.fragment are required")
	}
	if c.Mesh.Path == "" && (c.Mesh.Subdivisions < 0 || c.Mesh.Subdivisions > 7) {
		return errors.Newf("mesh.subdivisions must be within 0..7, got %d", c.Mesh.Subdivisions)
	}
	switch c.Camera.Tracking {
	case TrackingTrack, TrackingSnapshot:
	default:
		return errors.Newf("camera.tracking must be %q or %q, got %q", TrackingTrack, TrackingSnapshot, c.Camera.Tracking)
	}
	return nil
}
