package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// FixtureConfig is the shape of the TOML files integration tests use to
// describe a scenario's database and migration setup, kept separate from
// the YAML/env-driven Config above: grounded on Pieczasz-smf's toml-based
// config for the same "compiler over a schema DSL" problem shape, adopted
// here purely as an alternate format for test fixtures rather than for the
// runtime config path (which stays viper-driven like the teacher's CLI).
type FixtureConfig struct {
	Name             string `toml:"name"`
	DatabaseURL      string `toml:"database_url"`
	Scope            string `toml:"scope"`
	AllowDestructive bool   `toml:"allow_destructive"`
}

// LoadFixture decodes a TOML fixture file at path into a FixtureConfig.
func LoadFixture(path string) (*FixtureConfig, error) {
	var fc FixtureConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return nil, fmt.Errorf("failed to decode fixture config %q: %w", path, err)
	}
	return &fc, nil
}
