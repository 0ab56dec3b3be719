package config

// LoggingConfig configures the per-category debug log under .deck/logs.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	DebugMode  bool            `yaml:"debug_mode"` // nothing is written unless set
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// IsCategoryEnabled reports whether category writes. Categories absent from
// the map are on; everything is off outside debug mode.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	on, listed := c.Categories[category]
	return c.DebugMode && (on || !listed)
}
