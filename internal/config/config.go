// Package config holds the daemon's operational tuning constants.
//
// Persistent, user-editable layout configuration is explicitly out of
// scope for mstack (see spec Non-goals) — there is no layout picker or
// theme file here. What remains is the handful of timing and geometry
// constants the core algorithms need, expressed as overridable fields
// so tests can shrink timers and operators can nudge animation feel
// without a rebuild.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/mstack/internal/runtimepath"
)

// Config holds every tunable constant referenced by spec.md §6.3.
type Config struct {
	// Discovery
	DiscoveryPeriod  time.Duration `yaml:"discovery_period"`
	BurstCount       int           `yaml:"burst_count"`
	BurstInterval    time.Duration `yaml:"burst_interval"`
	BrowserWhitelist []string      `yaml:"browser_whitelist"`

	// Layout
	Gap                   int            `yaml:"gap"`
	ZombieTTL             time.Duration  `yaml:"zombie_ttl"`
	StackMin              int            `yaml:"stack_min"`
	DefaultMinMasterWidth int            `yaml:"default_min_master_width"`
	AppMinWidths          map[string]int `yaml:"app_min_widths"`
	NewWindowSettle       time.Duration  `yaml:"new_window_settle"`
	ApplyLayoutDebounce   time.Duration  `yaml:"apply_layout_debounce"`
	MouseUpDelay          time.Duration  `yaml:"mouse_up_delay"`
	LayoutDeadZone        float64        `yaml:"layout_dead_zone"`

	// Animator
	AnimationDuration time.Duration `yaml:"animation_duration"`
	EaseExponent      float64       `yaml:"ease_exponent"`
	AnimatorDeadZone  float64       `yaml:"animator_dead_zone"`
	SpaceSuppression  time.Duration `yaml:"space_suppression"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// SocketPath is where the control IPC server listens. Empty means
	// "use runtimepath.SocketPath()" — resolved in Load, not Default,
	// since that resolution can fail and Default never returns an error.
	SocketPath string `yaml:"socket_path"`
}

// Default returns the bit-exact constants from spec.md §6.3.
func Default() *Config {
	return &Config{
		DiscoveryPeriod: 1500 * time.Millisecond,
		BurstCount:      7,
		BurstInterval:   200 * time.Millisecond,
		BrowserWhitelist: []string{
			"Brave Browser", "Google Chrome", "Arc", "Safari", "Firefox", "Microsoft Edge",
		},

		Gap:                   12,
		ZombieTTL:             2 * time.Second,
		StackMin:              400,
		DefaultMinMasterWidth: 400,
		AppMinWidths: map[string]int{
			"Xcode":           950,
			"Music":           600,
			"Spotify":         550,
			"Discord":         500,
			"System Settings": 600,
			"Brave Browser":   500,
			"Google Chrome":   500,
			"WhatsApp":        500,
			"Messages":        450,
		},
		NewWindowSettle:     50 * time.Millisecond,
		ApplyLayoutDebounce: 500 * time.Millisecond,
		MouseUpDelay:        200 * time.Millisecond,
		LayoutDeadZone:      1.0,

		AnimationDuration: 180 * time.Millisecond,
		EaseExponent:      5,
		AnimatorDeadZone:  2.0,
		SpaceSuppression:  800 * time.Millisecond,

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load merges an optional YAML tuning file and MSTACK_* environment
// variables over the built-in defaults. path may be empty, in which
// case only defaults + environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return finishLoad(cfg)
			}
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}

		var override Config
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		mergeOverride(cfg, &override)
	}

	return finishLoad(cfg)
}

// finishLoad applies environment overrides, resolves the default
// socket path if the operator didn't set one, and validates.
func finishLoad(cfg *Config) (*Config, error) {
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.SocketPath == "" {
		p, err := runtimepath.SocketPath()
		if err != nil {
			return nil, fmt.Errorf("config: resolve default socket path: %w", err)
		}
		cfg.SocketPath = p
	}

	return cfg, cfg.Validate()
}

// mergeOverride copies every non-zero field of override onto cfg.
func mergeOverride(cfg, override *Config) {
	if override.DiscoveryPeriod > 0 {
		cfg.DiscoveryPeriod = override.DiscoveryPeriod
	}
	if override.BurstCount > 0 {
		cfg.BurstCount = override.BurstCount
	}
	if override.BurstInterval > 0 {
		cfg.BurstInterval = override.BurstInterval
	}
	if len(override.BrowserWhitelist) > 0 {
		cfg.BrowserWhitelist = override.BrowserWhitelist
	}
	if override.Gap > 0 {
		cfg.Gap = override.Gap
	}
	if override.ZombieTTL > 0 {
		cfg.ZombieTTL = override.ZombieTTL
	}
	if override.StackMin > 0 {
		cfg.StackMin = override.StackMin
	}
	if override.DefaultMinMasterWidth > 0 {
		cfg.DefaultMinMasterWidth = override.DefaultMinMasterWidth
	}
	if len(override.AppMinWidths) > 0 {
		for k, v := range override.AppMinWidths {
			cfg.AppMinWidths[k] = v
		}
	}
	if override.NewWindowSettle > 0 {
		cfg.NewWindowSettle = override.NewWindowSettle
	}
	if override.ApplyLayoutDebounce > 0 {
		cfg.ApplyLayoutDebounce = override.ApplyLayoutDebounce
	}
	if override.MouseUpDelay > 0 {
		cfg.MouseUpDelay = override.MouseUpDelay
	}
	if override.LayoutDeadZone > 0 {
		cfg.LayoutDeadZone = override.LayoutDeadZone
	}
	if override.AnimationDuration > 0 {
		cfg.AnimationDuration = override.AnimationDuration
	}
	if override.EaseExponent > 0 {
		cfg.EaseExponent = override.EaseExponent
	}
	if override.AnimatorDeadZone > 0 {
		cfg.AnimatorDeadZone = override.AnimatorDeadZone
	}
	if override.SpaceSuppression > 0 {
		cfg.SpaceSuppression = override.SpaceSuppression
	}
	if override.LogLevel != "" {
		cfg.LogLevel = override.LogLevel
	}
	if override.LogFormat != "" {
		cfg.LogFormat = override.LogFormat
	}
	if override.SocketPath != "" {
		cfg.SocketPath = override.SocketPath
	}
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("MSTACK_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv("MSTACK_LOG_FORMAT"); ok {
		cfg.LogFormat = v
	}
	if v, ok := os.LookupEnv("MSTACK_SOCKET_PATH"); ok {
		cfg.SocketPath = v
	}
	if v, ok := os.LookupEnv("MSTACK_GAP"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: MSTACK_GAP: %w", err)
		}
		cfg.Gap = n
	}
	if v, ok := os.LookupEnv("MSTACK_DISCOVERY_PERIOD_MS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: MSTACK_DISCOVERY_PERIOD_MS: %w", err)
		}
		cfg.DiscoveryPeriod = time.Duration(n) * time.Millisecond
	}
	return nil
}

// Validate rejects configurations the core cannot safely run with.
func (c *Config) Validate() error {
	if c.Gap < 0 {
		return fmt.Errorf("config: gap must be >= 0, got %d", c.Gap)
	}
	if c.StackMin <= 0 {
		return fmt.Errorf("config: stack_min must be > 0, got %d", c.StackMin)
	}
	if c.DefaultMinMasterWidth <= 0 {
		return fmt.Errorf("config: default_min_master_width must be > 0, got %d", c.DefaultMinMasterWidth)
	}
	if c.ZombieTTL <= 0 {
		return fmt.Errorf("config: zombie_ttl must be > 0, got %s", c.ZombieTTL)
	}
	if c.EaseExponent < 1 {
		return fmt.Errorf("config: ease_exponent must be >= 1, got %f", c.EaseExponent)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("config: log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// MinMasterWidth returns the desired master-pane minimum width for the
// given application display name, falling back to the configured
// default when the app has no known preference (spec.md §4.2.3).
func (c *Config) MinMasterWidth(appName string) int {
	if w, ok := c.AppMinWidths[appName]; ok {
		return w
	}
	return c.DefaultMinMasterWidth
}

// IsBrowserWhitelisted reports whether appName is exempt from the
// compositor on-screen check (spec.md §4.1 step 4).
func (c *Config) IsBrowserWhitelisted(appName string) bool {
	for _, name := range c.BrowserWhitelist {
		if name == appName {
			return true
		}
	}
	return false
}
