// Package config provides YAML-based configuration for the intake server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/comp-report/intake/internal/models"
	"github.com/comp-report/intake/internal/report"
	"github.com/comp-report/intake/internal/session"
	"github.com/comp-report/intake/internal/upload"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// AppConfig represents the root configuration file.
type AppConfig struct {
	Server     ServerConfig            `yaml:"server"`
	Simulation SimulationConfig        `yaml:"simulation"`
	Sessions   SessionsConfig          `yaml:"sessions"`
	Slots      []models.SlotDefinition `yaml:"slots"`
	Logging    LoggingConfig           `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int           `yaml:"port"`
	BindAddress  string        `yaml:"bind_address"`
	EnableCORS   bool          `yaml:"enable_cors"`
	AllowOrigins []string      `yaml:"allow_origins"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	BodyLimit    string        `yaml:"body_limit"`
}

// SimulationConfig controls the simulated upload and report cadence.
type SimulationConfig struct {
	UploadStep         int           `yaml:"upload_step"`
	UploadTickInterval time.Duration `yaml:"upload_tick_interval"`
	UploadNotifyDelay  time.Duration `yaml:"upload_notify_delay"`
	ReportStep         int           `yaml:"report_step"`
	ReportTickInterval time.Duration `yaml:"report_tick_interval"`
	ResetTokenTTL      time.Duration `yaml:"reset_token_ttl"`
}

// SessionsConfig bounds concurrent sessions and their preview memory.
type SessionsConfig struct {
	MaxSessions     int           `yaml:"max_sessions"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	KeepAliveWindow time.Duration `yaml:"keep_alive_window"`
	EventBuffer     int           `yaml:"event_buffer"`
	RecentNotices   int           `yaml:"recent_notices"`
	MaxPreviewBytes int64         `yaml:"max_preview_bytes"` // Per preview; 0 disables the cap
}

// LoggingConfig selects the log level and encoding.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	up := upload.DefaultConfig()
	rep := report.DefaultConfig()
	opts := session.DefaultManagerOptions()
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: []string{"*"},
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
			BodyLimit:    "20M",
		},
		Simulation: SimulationConfig{
			UploadStep:         up.Step,
			UploadTickInterval: up.TickInterval,
			UploadNotifyDelay:  up.NotifyDelay,
			ReportStep:         rep.Step,
			ReportTickInterval: rep.TickInterval,
			ResetTokenTTL:      session.DefaultConfig().ResetTTL,
		},
		Sessions: SessionsConfig{
			MaxSessions:     opts.MaxSessions,
			IdleTimeout:     30 * time.Minute,
			CleanupInterval: 5 * time.Minute,
			KeepAliveWindow: opts.KeepAliveWindow,
			EventBuffer:     opts.EventBuffer,
			RecentNotices:   opts.RecentNotices,
			MaxPreviewBytes: 10 * 1024 * 1024,
		},
		Slots: session.DefaultSlots(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads configuration from a YAML file, writing the defaults
// there first if it does not exist.
func LoadConfig(configPath string) (*AppConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvironmentOverrides()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the configuration to a YAML file.
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Comparable report intake configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if level := os.Getenv("INTAKE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate checks that the slot set is the fixed checklist plus three
// comparables, in order, and that every cadence value is usable.
func (c *AppConfig) Validate() error {
	want := models.SlotIDs()
	if len(c.Slots) != len(want) {
		return fmt.Errorf("%w: expected %d slots, got %d", ErrInvalidConfig, len(want), len(c.Slots))
	}
	for i, def := range c.Slots {
		if def.ID != want[i] {
			return fmt.Errorf("%w: slot %d must be %q, got %q", ErrInvalidConfig, i, want[i], def.ID)
		}
		if def.MaxSizeBytes <= 0 {
			return fmt.Errorf("%w: slot %s: max_size_bytes must be positive", ErrInvalidConfig, def.ID)
		}
		if len(def.AcceptedExtensions) == 0 {
			return fmt.Errorf("%w: slot %s: no accepted extensions", ErrInvalidConfig, def.ID)
		}
		for _, ext := range def.AcceptedExtensions {
			if !strings.HasPrefix(ext, ".") || ext != strings.ToLower(ext) {
				return fmt.Errorf("%w: slot %s: extension %q must be lowercase and start with a dot", ErrInvalidConfig, def.ID, ext)
			}
		}
	}

	sim := c.Simulation
	if sim.UploadStep <= 0 || sim.UploadStep > 100 {
		return fmt.Errorf("%w: upload_step must be in (0,100]", ErrInvalidConfig)
	}
	if sim.ReportStep <= 0 || sim.ReportStep > 100 {
		return fmt.Errorf("%w: report_step must be in (0,100]", ErrInvalidConfig)
	}
	if sim.UploadTickInterval <= 0 || sim.ReportTickInterval <= 0 || sim.UploadNotifyDelay <= 0 {
		return fmt.Errorf("%w: simulation intervals must be positive", ErrInvalidConfig)
	}
	if sim.ResetTokenTTL <= 0 {
		return fmt.Errorf("%w: reset_token_ttl must be positive", ErrInvalidConfig)
	}

	if c.Sessions.IdleTimeout <= 0 || c.Sessions.CleanupInterval <= 0 {
		return fmt.Errorf("%w: session idle_timeout and cleanup_interval must be positive", ErrInvalidConfig)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}

// SessionConfig returns the per-session settings.
func (c *AppConfig) SessionConfig() session.Config {
	return session.Config{
		Slots: c.Slots,
		Upload: upload.Config{
			Step:         c.Simulation.UploadStep,
			TickInterval: c.Simulation.UploadTickInterval,
			NotifyDelay:  c.Simulation.UploadNotifyDelay,
		},
		Report: report.Config{
			Step:         c.Simulation.ReportStep,
			TickInterval: c.Simulation.ReportTickInterval,
		},
		ResetTTL: c.Simulation.ResetTokenTTL,
	}
}

// ManagerOptions returns the session manager limits.
func (c *AppConfig) ManagerOptions() session.ManagerOptions {
	return session.ManagerOptions{
		MaxSessions:     c.Sessions.MaxSessions,
		KeepAliveWindow: c.Sessions.KeepAliveWindow,
		EventBuffer:     c.Sessions.EventBuffer,
		RecentNotices:   c.Sessions.RecentNotices,
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}
