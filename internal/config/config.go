package config

import "time"

// Config is the root application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Log     LogConfig     `yaml:"log"`
	Tracker TrackerConfig `yaml:"tracker"`
}

// StoreConfig selects and tunes the key-value backend.
type StoreConfig struct {
	Driver  string        `yaml:"driver"  env:"STORE_DRIVER"  env-default:"sqlite"`
	DSN     string        `yaml:"dsn"     env:"STORE_DSN"     env-default:"timetracker.db"`
	Table   string        `yaml:"table"   env:"STORE_TABLE"   env-default:"kv"`
	Timeout time.Duration `yaml:"timeout" env:"STORE_TIMEOUT" env-default:"5s"`

	// Pool limits, ignored by the memory and sqlite drivers.
	MaxOpenConns    int           `yaml:"max_open_conns"    env:"STORE_MAX_OPEN_CONNS"    env-default:"4"`
	MaxIdleConns    int           `yaml:"max_idle_conns"    env:"STORE_MAX_IDLE_CONNS"    env-default:"2"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"STORE_CONN_MAX_LIFETIME" env-default:"30m"`
}

// LogConfig holds logging settings. File "-" means stderr.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
	File   string `yaml:"file"   env:"LOG_FILE"   env-default:"timetracker.log"`
}

// TrackerConfig holds engine and display settings.
type TrackerConfig struct {
	Timezone        string        `yaml:"timezone"         env:"TRACKER_TIMEZONE"         env-default:"Local"`
	RefreshInterval time.Duration `yaml:"refresh_interval" env:"TRACKER_REFRESH_INTERVAL" env-default:"1s"`

	// Location is resolved from Timezone during validation.
	Location *time.Location `yaml:"-" env:"-"`
}

// Drivers lists the supported store drivers.
var Drivers = []string{"memory", "sqlite", "mysql", "postgres"}
