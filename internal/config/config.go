// Package config loads pierce-mcp settings from a YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/pierce-mcp/internal/dispatch"
	"github.com/ironsheep/pierce-mcp/internal/hittest"
)

// EnvPath names the environment variable holding the config file path.
const EnvPath = "PIERCE_MCP_CONFIG"

// Config is the top-level configuration.
type Config struct {
	// ImgSelector picks the candidate images inside the container.
	ImgSelector string `yaml:"img_selector"`
	// ParentSelector groups images under their closest matching ancestor
	// for hiding and hover.
	ParentSelector string `yaml:"parent_selector"`

	// TransparentPercent is the opacity threshold, 0..100.
	TransparentPercent *int              `yaml:"transparent_percent"`
	DynamicProperties  DynamicProperties `yaml:"dynamic_properties"`

	// Empty class names disable the class.
	CursorClass *string `yaml:"cursor_class"`
	HoverClass  *string `yaml:"hover_class"`

	MouseOffCheck bool `yaml:"mouse_off_check"`
	LogTimeTaken  bool `yaml:"log_time_taken"`
	MaxDepth      int  `yaml:"max_depth"`

	Browser BrowserConfig `yaml:"browser"`
	HTTP    HTTPConfig    `yaml:"http"`
}

// DynamicProperties lists the geometry re-read before every sample.
type DynamicProperties struct {
	Width              bool `yaml:"width"`
	Height             bool `yaml:"height"`
	Position           bool `yaml:"position"`
	BackgroundPosition bool `yaml:"background_position"`
}

// BrowserConfig controls the Chromium host.
type BrowserConfig struct {
	Remote   string        `yaml:"remote"` // DevTools websocket URL; empty launches a local browser
	Headless *bool         `yaml:"headless"`
	Timeout  time.Duration `yaml:"timeout"`
}

// HTTPConfig enables the HTTP transport when Addr is set.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Load reads the file at path, or at $PIERCE_MCP_CONFIG when path is empty.
// With neither set it returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ImgSelector == "" {
		c.ImgSelector = "img"
	}
	if c.TransparentPercent == nil {
		c.TransparentPercent = ptr(hittest.DefaultTransparentPercent)
	}
	if c.CursorClass == nil {
		c.CursorClass = ptr("cursor")
	}
	if c.HoverClass == nil {
		c.HoverClass = ptr("hover")
	}
	if c.Browser.Headless == nil {
		c.Browser.Headless = ptr(true)
	}
	if c.Browser.Timeout <= 0 {
		c.Browser.Timeout = 30 * time.Second
	}
}

func (c *Config) validate() error {
	if p := *c.TransparentPercent; p < 0 || p > 100 {
		return fmt.Errorf("transparent_percent %d outside 0..100", p)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth %d is negative", c.MaxDepth)
	}
	return nil
}

// Group returns the containment grouping for the configured parent
// selector.
func (c *Config) Group(closer hittest.Closer) hittest.Grouping {
	return hittest.ClosestGroup(closer, c.ParentSelector)
}

// ResolverOptions converts the configuration into resolver options.
func (c *Config) ResolverOptions(group hittest.Grouping, log *slog.Logger) hittest.Options {
	threshold := *c.TransparentPercent
	if threshold == 0 {
		// An explicit zero counts every pixel as opaque.
		threshold = -1
	}
	return hittest.Options{
		TransparentPercent: threshold,
		Dynamic: hittest.DynamicProperties{
			Width:              c.DynamicProperties.Width,
			Height:             c.DynamicProperties.Height,
			Position:           c.DynamicProperties.Position,
			BackgroundPosition: c.DynamicProperties.BackgroundPosition,
		},
		Group:        group,
		MaxDepth:     c.MaxDepth,
		LogTimeTaken: c.LogTimeTaken,
		Logger:       log,
	}
}

// DispatchOptions converts the configuration into dispatcher options. The
// hover target is the group when a parent selector is set, else the
// parent element.
func (c *Config) DispatchOptions(group hittest.Grouping, log *slog.Logger) dispatch.Options {
	opts := dispatch.Options{
		CursorClass:   *c.CursorClass,
		HoverClass:    *c.HoverClass,
		MouseOffCheck: c.MouseOffCheck,
		Logger:        log,
	}
	if c.ParentSelector != "" {
		opts.Group = group
	}
	return opts
}

func ptr[T any](v T) *T {
	return &v
}
