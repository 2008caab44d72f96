// Package config loads traceflow settings from TOML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/meikuraledutech/traceflow/layout"
	"github.com/meikuraledutech/traceflow/scene"
	"github.com/meikuraledutech/traceflow/view"
)

// Config holds traceflow configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Live   LiveConfig   `toml:"live"`
	Layout LayoutConfig `toml:"layout"`
	Render RenderConfig `toml:"render"`
	Store  StoreConfig  `toml:"store"`
	Demo   DemoConfig   `toml:"demo"`
	Log    LogConfig    `toml:"log"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr         string `toml:"addr"`
	HistoryLimit int    `toml:"history_limit"`
	// Containers are registered on the view surface at startup.
	Containers []string `toml:"containers"`
}

// LiveConfig controls the websocket frame feed.
type LiveConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
	Path    string `toml:"path"`
}

// LayoutConfig mirrors layout.Params plus the loop cadence.
type LayoutConfig struct {
	Width          float64       `toml:"width"`
	Height         float64       `toml:"height"`
	LinkDistance   float64       `toml:"link_distance"`
	Charge         float64       `toml:"charge"`
	CenterStrength float64       `toml:"center_strength"`
	VelocityDecay  float64       `toml:"velocity_decay"`
	AlphaMin       float64       `toml:"alpha_min"`
	ReheatAlpha    float64       `toml:"reheat_alpha"`
	TickInterval   time.Duration `toml:"tick_interval"`
	Randomize      bool          `toml:"randomize"`
	// MaxTicks bounds headless renders.
	MaxTicks int `toml:"max_ticks"`
}

// RenderConfig controls drawing and trace handling.
type RenderConfig struct {
	NodeRadius     float64 `toml:"node_radius"`
	EdgeColor      string  `toml:"edge_color"`
	HitSlack       float64 `toml:"hit_slack"`
	StrictEdges    bool    `toml:"strict_edges"`
	EmptyMessage   string  `toml:"empty_message"`
	NoNodesMessage string  `toml:"no_nodes_message"`
}

// StoreConfig selects the trace store.
type StoreConfig struct {
	Driver      string `toml:"driver"` // "memory" or "postgres"
	DatabaseURL string `toml:"database_url"`
	AutoMigrate bool   `toml:"auto_migrate"`
}

// DemoConfig controls the mock pipeline.
type DemoConfig struct {
	StepDelay time.Duration `toml:"step_delay"`
	// RefetchDelay is how long clients wait after triggering a run.
	RefetchDelay time.Duration `toml:"refetch_delay"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the default configuration.
func Default() *Config {
	p := layout.DefaultParams()
	return &Config{
		Server: ServerConfig{Addr: ":3000", HistoryLimit: 20, Containers: []string{"flow-graph"}},
		Live:   LiveConfig{Enabled: true, Addr: ":3001", Path: "/ws"},
		Layout: LayoutConfig{
			Width:          p.Width,
			Height:         p.Height,
			LinkDistance:   p.LinkDistance,
			Charge:         p.Charge,
			CenterStrength: p.CenterStrength,
			VelocityDecay:  p.VelocityDecay,
			AlphaMin:       p.AlphaMin,
			ReheatAlpha:    p.ReheatAlpha,
			TickInterval:   16 * time.Millisecond,
			MaxTicks:       1000,
		},
		Render: RenderConfig{
			NodeRadius:     30,
			EdgeColor:      "#999",
			HitSlack:       6,
			EmptyMessage:   view.DefaultEmptyMessage,
			NoNodesMessage: view.DefaultNoNodesMessage,
		},
		Store: StoreConfig{Driver: "memory", AutoMigrate: true},
		Demo:  DemoConfig{StepDelay: 300 * time.Millisecond, RefetchDelay: time.Second},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads the TOML file at path over the defaults and then applies
// environment overrides. An empty path falls back to $TRACEFLOW_CONFIG; if
// that is unset too, or the fallback file does not exist, only defaults and
// environment apply. A path given explicitly must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("TRACEFLOW_CONFIG")
	}
	if path != "" {
		_, err := toml.DecodeFile(path, cfg)
		switch {
		case err == nil:
		case !explicit && errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("traceflow: load config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Store.DatabaseURL = v
		c.Store.Driver = "postgres"
	}
	if v := os.Getenv("TRACEFLOW_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("TRACEFLOW_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("traceflow: store driver postgres needs database_url")
		}
	default:
		return fmt.Errorf("traceflow: unknown store driver %q", c.Store.Driver)
	}
	if c.Layout.TickInterval <= 0 {
		return fmt.Errorf("traceflow: layout.tick_interval must be positive")
	}
	if c.Live.Enabled && c.Live.Addr == c.Server.Addr {
		return fmt.Errorf("traceflow: live.addr must differ from server.addr")
	}
	return nil
}

// Params converts the layout section.
func (c *Config) Params() layout.Params {
	l := c.Layout
	return layout.Params{
		Width:          l.Width,
		Height:         l.Height,
		LinkDistance:   l.LinkDistance,
		Charge:         l.Charge,
		CenterStrength: l.CenterStrength,
		VelocityDecay:  l.VelocityDecay,
		AlphaMin:       l.AlphaMin,
		ReheatAlpha:    l.ReheatAlpha,
	}
}

// RenderOptions converts the render section.
func (c *Config) RenderOptions() scene.Options {
	return scene.Options{
		Width:      c.Layout.Width,
		Height:     c.Layout.Height,
		NodeRadius: c.Render.NodeRadius,
		EdgeColor:  c.Render.EdgeColor,
		HitSlack:   c.Render.HitSlack,
	}
}

// View builds the surface configuration.
func (c *Config) View() view.Config {
	return view.Config{
		Layout:         c.Params(),
		Render:         c.RenderOptions(),
		TickInterval:   c.Layout.TickInterval,
		StrictEdges:    c.Render.StrictEdges,
		RandomizeStart: c.Layout.Randomize,
		EmptyMessage:   c.Render.EmptyMessage,
		NoNodesMessage: c.Render.NoNodesMessage,
	}
}

// Write encodes cfg as TOML.
func Write(w io.Writer, cfg *Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}
