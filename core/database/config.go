package database

import (
	"fmt"
	"net/url"
	"strings"
)

// Dialect selects the SQL backend.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Config holds database connection settings shared across bots.
type Config struct {
	Dialect        Dialect `yaml:"dialect" envconfig:"DB_DIALECT"`
	Host           string  `yaml:"host" envconfig:"DB_HOST"`
	Port           string  `yaml:"port" envconfig:"DB_PORT"`
	User           string  `yaml:"user" envconfig:"DB_USER"`
	Password       string  `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string  `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string  `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int     `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	// Path is the sqlite database file.
	Path string `yaml:"path" envconfig:"DB_PATH"`
}

// Normalize validates the settings and fills defaults.
func (c *Config) Normalize() error {
	d := Dialect(strings.ToLower(strings.TrimSpace(string(c.Dialect))))
	if d == "" {
		d = DialectPostgres
	}
	switch d {
	case DialectPostgres:
		if c.Host == "" || c.Name == "" {
			return fmt.Errorf("database.host and database.name are required for postgres")
		}
		if c.Port == "" {
			c.Port = "5432"
		}
		if c.SSLMode == "" {
			c.SSLMode = "disable"
		}
		if c.MaxConnections <= 0 {
			c.MaxConnections = 10
		}
	case DialectSQLite:
		if strings.TrimSpace(c.Path) == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
		// One writer at a time keeps capacity checks serialized.
		c.MaxConnections = 1
	default:
		return fmt.Errorf("invalid database.dialect %q; allowed: postgres, sqlite", c.Dialect)
	}
	c.Dialect = d
	return nil
}

// DriverName is the database/sql driver registered for the dialect.
func (c Config) DriverName() string {
	if c.Dialect == DialectSQLite {
		return "sqlite"
	}
	return "postgres"
}

// DSN is the connection string handed to the driver.
func (c Config) DSN() string {
	if c.Dialect == DialectSQLite {
		return "file:" + c.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// MigrateURL is the database URL understood by golang-migrate.
func (c Config) MigrateURL() string {
	if c.Dialect == DialectSQLite {
		return "sqlite://" + c.Path
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
