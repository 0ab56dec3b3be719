package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// DirName is the per-workspace state directory.
const DirName = ".deck"

// Config holds all taskdeck configuration.
type Config struct {
	// Sources are glob patterns (relative to the workspace) of task files.
	Sources []string `yaml:"sources"`

	// Views are glob patterns of files that may contain view blocks.
	Views []string `yaml:"views"`

	// IndexPath is the SQLite index location, relative to the workspace unless absolute.
	IndexPath string `yaml:"index_path"`

	UI      UIConfig      `yaml:"ui"`
	Watch   WatchConfig   `yaml:"watch"`
	Logging LoggingConfig `yaml:"logging"`
}

// UIConfig holds terminal UI settings.
type UIConfig struct {
	Theme         string `yaml:"theme"` // auto, light, dark
	SearchOnStart bool   `yaml:"search_on_start"`
	ShowDone      bool   `yaml:"show_done"`
}

// WatchConfig configures the source watcher.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// ValidThemes lists accepted ui.theme values.
var ValidThemes = []string{"auto", "light", "dark"}

// DefaultConfig is the configuration written by deck init.
func DefaultConfig() *Config {
	return &Config{
		Sources:   []string{"tasks.md", "**/*.tasks.md"},
		Views:     []string{"daily.md", "views/**/*.md"},
		IndexPath: filepath.Join(DirName, "index.db"),
		UI: UIConfig{
			Theme: "auto",
		},
		Watch: WatchConfig{
			Debounce: "300ms",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Path returns the config file location for a workspace.
func Path(workspace string) string {
	return filepath.Join(workspace, DirName, "config.yaml")
}

// Load reads path, fills unset fields from DefaultConfig and applies DECK_* overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save writes c to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// applyEnvOverrides lets DECK_* variables win over the file.
func (c *Config) applyEnvOverrides() {
	if theme := os.Getenv("DECK_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if os.Getenv("DECK_DEBUG") == "1" {
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	}
	if path := os.Getenv("DECK_INDEX"); path != "" {
		c.IndexPath = path
	}
}

// GetDebounce returns the watcher debounce as a duration.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 300 * time.Millisecond
	}
	return d
}

// ResolveIndexPath returns the index path anchored at the workspace.
func (c *Config) ResolveIndexPath(workspace string) string {
	if c.IndexPath == ":memory:" || filepath.IsAbs(c.IndexPath) {
		return c.IndexPath
	}
	return filepath.Join(workspace, c.IndexPath)
}

// Validate rejects empty or malformed globs, unknown themes and bad durations.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("no task sources configured")
	}
	for _, p := range append(append([]string{}, c.Sources...), c.Views...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern: %q", p)
		}
	}

	validTheme := false
	for _, t := range ValidThemes {
		if c.UI.Theme == t {
			validTheme = true
			break
		}
	}
	if !validTheme {
		return fmt.Errorf("invalid ui theme: %s (valid: %v)", c.UI.Theme, ValidThemes)
	}

	if c.Watch.Debounce != "" {
		if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
			return fmt.Errorf("invalid watch debounce %q: %w", c.Watch.Debounce, err)
		}
	}
	return nil
}
