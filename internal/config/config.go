package config

import (
	"fmt"
	"os"
	"time"

	"github.com/me/dsviz/internal/scheduler"
	"github.com/me/dsviz/pkg/model"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds configuration for the dsviz server.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`             // Listen address (default ":8080")
	LogLevel        string        `yaml:"log_level"`        // Log level: debug, info, warn, error
	LogFormat       string        `yaml:"log_format"`       // Log format: text, json
	DBPath          string        `yaml:"db_path"`          // SQLite database path (default ~/.dsviz/dsviz.db, ":memory:" for testing)
	MinPriority     int           `yaml:"min_priority"`     // Most urgent priority value
	MaxPriority     int           `yaml:"max_priority"`     // Least urgent priority value
	Policy          string        `yaml:"policy"`           // preemptive or non-preemptive
	SessionTTL      time.Duration `yaml:"session_ttl"`      // Idle sessions older than this are evicted (0 disables)
	JanitorInterval time.Duration `yaml:"janitor_interval"` // How often idle sessions are swept
	RunHistory      int           `yaml:"run_history"`      // Runs returned by the history endpoint
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	sc := scheduler.DefaultConfig()
	return ServerConfig{
		Addr:            ":8080",
		LogLevel:        "info",
		LogFormat:       "text",
		MinPriority:     sc.MinPriority,
		MaxPriority:     sc.MaxPriority,
		Policy:          string(sc.Policy),
		SessionTTL:      24 * time.Hour,
		JanitorInterval: 10 * time.Minute,
		RunHistory:      20,
	}
}

// LoadFile overlays the YAML file at path onto cfg. Fields absent from the
// file keep their current values.
func LoadFile(path string, cfg *ServerConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// SchedulerConfig derives the engine configuration.
func (c ServerConfig) SchedulerConfig() (scheduler.Config, error) {
	policy, err := model.ParsePolicy(c.Policy)
	if err != nil {
		return scheduler.Config{}, err
	}
	sc := scheduler.Config{
		MinPriority: c.MinPriority,
		MaxPriority: c.MaxPriority,
		Policy:      policy,
	}
	if err := sc.Validate(); err != nil {
		return scheduler.Config{}, err
	}
	return sc, nil
}
