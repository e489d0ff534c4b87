// Package config provides configuration management for go-stats-index.
package config

import "time"

// Config holds all configuration options for an indexing run.
type Config struct {
	// Input
	FilePath string `json:"file_path"`

	// Aggregation query
	Frame    int    `json:"frame"`
	FrameEnd int    `json:"frame_end"` // -1 = single frame
	TypeName string `json:"type_name"` // "" = all types

	// Export
	ChartOut    string `json:"chart_out"`
	CSVOut      string `json:"csv_out"`
	MetricsDump string `json:"metrics_dump"`

	// Observability
	MetricsAddr string `json:"metrics_addr"`
	Verbose     bool   `json:"verbose"`
	LogFormat   string `json:"log_format"` // json, text

	// Dashboard
	TUIEnabled   bool          `json:"tui"`
	TickInterval time.Duration `json:"tick_interval"`

	// Engine tuning
	EventBuffer int `json:"event_buffer"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// Aggregation: single frame 0, all types
		Frame:    0,
		FrameEnd: -1,

		// Observability
		MetricsAddr: "0.0.0.0:17092",
		Verbose:     false,
		LogFormat:   "json",

		// Dashboard
		TUIEnabled:   true,
		TickInterval: 500 * time.Millisecond,

		// Engine
		EventBuffer: 64,
	}
}
