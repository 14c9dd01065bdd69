package app

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // IANA zones for potluck.timezone on hosts without zoneinfo

	coreconfig "github.com/m3rciful/potluckbot/core/config"
	"github.com/m3rciful/potluckbot/core/database"
	"github.com/m3rciful/potluckbot/potluck/jobs"
)

// PotluckConfig holds the bot's own settings.
type PotluckConfig struct {
	// Timezone is used to read and display event dates. Empty means UTC.
	Timezone string `yaml:"timezone" envconfig:"POTLUCK_TIMEZONE"`
	// SweepCron schedules the job that completes past events. "off"
	// disables the schedule; /sweep still works.
	SweepCron       string `yaml:"sweep_cron" envconfig:"POTLUCK_SWEEP_CRON"`
	SweepGraceHours int    `yaml:"sweep_grace_hours" envconfig:"POTLUCK_SWEEP_GRACE_HOURS"`

	location *time.Location
}

// Location returns the loaded timezone.
func (p PotluckConfig) Location() *time.Location {
	if p.location == nil {
		return time.UTC
	}
	return p.location
}

// SweepEnabled reports whether the sweep runs on a schedule.
func (p PotluckConfig) SweepEnabled() bool {
	return !strings.EqualFold(strings.TrimSpace(p.SweepCron), "off")
}

// SweepGrace returns the configured grace window.
func (p PotluckConfig) SweepGrace() time.Duration {
	return time.Duration(p.SweepGraceHours) * time.Hour
}

// Config is the complete potluck bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database database.Config `yaml:"database"`
	Potluck  PotluckConfig   `yaml:"potluck"`
}

// CoreConfig exposes the shared core section to the runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// LoadConfig reads path, applies environment overrides and validates the
// result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Read(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}

	p := &c.Potluck
	p.location = time.UTC
	if tz := strings.TrimSpace(p.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("invalid potluck.timezone %q: %w", p.Timezone, err)
		}
		p.location = loc
	}
	if strings.TrimSpace(p.SweepCron) == "" {
		p.SweepCron = jobs.DefaultSchedule
	}
	if p.SweepGraceHours < 0 {
		return fmt.Errorf("potluck.sweep_grace_hours must be >= 0")
	}
	if p.SweepGraceHours == 0 {
		p.SweepGraceHours = int(jobs.DefaultGrace / time.Hour)
	}
	return nil
}
