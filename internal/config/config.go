// Package config loads the compiler's runtime configuration: the database
// connection string, the scope to resolve, and the destructive-migration
// permission flag (spec.md §5 "allow_destructive"). Grounded on
// stokaro/ptah's cmd/generate + cmd/packagemigrator's viper/cobra/cobraflags
// wiring, generalized into a standalone loader so both a CLI entry point and
// library callers can obtain a validated Config the same way.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the full set of knobs a build/diff/migrate run needs. Struct
// tags drive both viper's key binding and go-playground/validator's
// validation, matching xaas-cloud-genai-toolbox's tool-config pattern.
type Config struct {
	// DatabaseURL is the PostgreSQL connection string used for schema
	// extraction (§6) and migration application (§5 "apply").
	DatabaseURL string `mapstructure:"database_url" validate:"required"`

	// Scope names the resolution scope to compile (spec.md §1 "scope");
	// empty means the default scope.
	Scope string `mapstructure:"scope"`

	// AllowDestructive permits destructive statements to run rather than
	// be commented out or abort the apply transaction (spec.md §5/§6).
	AllowDestructive bool `mapstructure:"allow_destructive"`

	// MigrationsDir is where generated migration files are written/read.
	MigrationsDir string `mapstructure:"migrations_dir" validate:"required"`

	// EnvPrefix is the prefix viper strips from environment variables
	// (e.g. "EXOPTAH" means EXOPTAH_DATABASE_URL binds to DatabaseURL).
	EnvPrefix string `mapstructure:"-"`
}

// defaults mirrors cmd/generate's flag defaults (e.g. "./migrations" for
// the output directory).
func defaults() Config {
	return Config{
		MigrationsDir: "./migrations",
		EnvPrefix:     "EXOPTAH",
	}
}

// Load reads configuration from an optional file at path (YAML, TOML, or
// any format viper's codecs support by extension) layered under
// environment variables and the package defaults, then validates the
// result. An empty path skips the file layer and reads only env+defaults,
// matching ptah's "config file is optional, env vars always apply" idiom.
func Load(path string) (*Config, error) {
	v := viper.New()
	d := defaults()

	v.SetDefault("database_url", d.DatabaseURL)
	v.SetDefault("scope", d.Scope)
	v.SetDefault("allow_destructive", d.AllowDestructive)
	v.SetDefault("migrations_dir", d.MigrationsDir)

	v.SetEnvPrefix(d.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
	}

	cfg := d
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.EnvPrefix = d.EnvPrefix

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate is shared across Load and any caller that builds a Config by
// hand (e.g. tests, or a library embedder that never touches viper).
var validate = validator.New()

// Validate runs struct-tag validation over cfg, wrapping the first
// validator error with context about which field failed.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
