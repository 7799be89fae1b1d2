// Package config loads the server settings from flags, environment variables
// (HACKERNEWS_ prefix) and an optional config file, in that order of precedence.
package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to the upper-cased key with dots replaced by underscores, eg HACKERNEWS_DB_DSN
const EnvPrefix = "HACKERNEWS"

type (
	Config struct {
		Addr          string        // listen address
		Path          string        // URL path of the GraphQL endpoint
		Timeout       time.Duration // per request
		Introspection bool
		Concurrency   bool
		DB            DB
		Log           Log
	}

	DB struct {
		Driver        string // "sqlite" or "mysql"
		DSN           string
		MaxOpen       int
		SlowThreshold time.Duration
	}

	Log struct {
		Level  string
		Pretty bool // human readable output instead of JSON
	}
)

var defaults = map[string]interface{}{
	"addr":              "localhost:8080",
	"path":              "/graphql",
	"timeout":           15 * time.Second,
	"introspection":     true,
	"concurrency":       true,
	"db.driver":         "sqlite",
	"db.dsn":            "hackernews.db",
	"db.max_open":       10,
	"db.slow_threshold": 200 * time.Millisecond,
	"log.level":         "info",
	"log.pretty":        false,
}

// Flags adds a flag for every setting to fs
func Flags(fs *pflag.FlagSet) {
	fs.String("config", "", "Configuration file (JSON, YAML or TOML). Flags and environment variables take precedence.")
	fs.String("addr", defaults["addr"].(string), "Address to listen on")
	fs.String("path", defaults["path"].(string), "URL path of the GraphQL endpoint")
	fs.Duration("timeout", defaults["timeout"].(time.Duration), "Maximum time to handle a request")
	fs.Bool("introspection", defaults["introspection"].(bool), "Allow __schema and __type queries")
	fs.Bool("concurrency", defaults["concurrency"].(bool), "Resolve query fields concurrently")
	fs.String("db.driver", defaults["db.driver"].(string), "Database driver, one of [sqlite, mysql]")
	fs.String("db.dsn", defaults["db.dsn"].(string), "Database file (sqlite) or data source name (mysql)")
	fs.Int("db.max_open", defaults["db.max_open"].(int), "Maximum open database connections")
	fs.Duration("db.slow_threshold", defaults["db.slow_threshold"].(time.Duration), "Log queries slower than this as warnings")
	fs.String("log.level", defaults["log.level"].(string), "Log level, one of [trace, debug, info, warn, error]")
	fs.Bool("log.pretty", defaults["log.pretty"].(bool), "Log in human readable form rather than JSON")
}

// New returns a viper instance with the defaults and environment variables set up, bound to the flags (if any)
func New(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, errors.Wrap(err, "binding flags")
		}
	}
	return v, nil
}

// Load reads the settings, including the config file if one is named, and validates them
func Load(v *viper.Viper) (*Config, error) {
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", file)
		}
	}

	c := &Config{
		Addr:          v.GetString("addr"),
		Path:          v.GetString("path"),
		Timeout:       v.GetDuration("timeout"),
		Introspection: v.GetBool("introspection"),
		Concurrency:   v.GetBool("concurrency"),
		DB: DB{
			Driver:        v.GetString("db.driver"),
			DSN:           v.GetString("db.dsn"),
			MaxOpen:       v.GetInt("db.max_open"),
			SlowThreshold: v.GetDuration("db.slow_threshold"),
		},
		Log: Log{
			Level:  v.GetString("log.level"),
			Pretty: v.GetBool("log.pretty"),
		},
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks for settings that would stop the server working
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("addr must not be empty")
	case !strings.HasPrefix(c.Path, "/"):
		return errors.Errorf("path %q must start with /", c.Path)
	case c.Path == "/healthz" || c.Path == "/metrics":
		return errors.Errorf("path %q is used by the server", c.Path)
	case c.Timeout <= 0:
		return errors.Errorf("timeout %v must be positive", c.Timeout)
	case c.DB.Driver != "sqlite" && c.DB.Driver != "mysql":
		return errors.Errorf("unknown database driver %q", c.DB.Driver)
	case c.DB.DSN == "":
		return errors.New("db.dsn must not be empty")
	case c.DB.MaxOpen < 0:
		return errors.Errorf("db.max_open %d must not be negative", c.DB.MaxOpen)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	return nil
}

// Logger creates the root logger as configured. If w is nil output goes to stderr.
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if c.Log.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
