package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/bridgegen/errors"
)

// Save writes cfg as TOML to configPath, refusing to overwrite an existing file.
func Save(configPath string, cfg *Config) error {
	if _, err := os.Stat(configPath); err == nil {
		return errors.WithHint(
			errors.Newf("%s already exists", configPath),
			"edit the existing file or remove it first",
		)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to encode config")
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", configPath)
	}
	return nil
}

// Starter returns the configuration `bridgegen init` writes: defaults plus
// one unit for the given package.
func Starter(pkg string) *Config {
	cfg := Default()
	cfg.Units = []UnitConfig{{Package: pkg}}
	cfg.fillUnitNames()
	return cfg
}
