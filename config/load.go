package config

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/teranos/bridgegen/errors"
)

// Load reads configuration from configPath, or from the nearest bridgegen.toml
// above the working directory when configPath is empty. Environment variables
// prefixed BRIDGEGEN_ override file values (BRIDGEGEN_OUTPUT_DIR → output.dir);
// a .env file next to the config is loaded first.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = FindConfig()
		if configPath == "" {
			return nil, errors.WithHint(
				errors.Newf("no %s found in this directory or any parent", FileName),
				"run 'bridgegen init' to create one",
			)
		}
	}

	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", configPath)
	}

	// A missing .env is expected; only a malformed one is an error
	envPath := filepath.Join(filepath.Dir(abs), ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, errors.Wrapf(err, "failed to load %s", envPath)
		}
	}

	v := newViper()
	v.SetConfigFile(abs)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", abs)
	}

	cfg, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config from %s", abs)
	}
	cfg.BaseDir = filepath.Dir(abs)
	return cfg, nil
}

// LoadWithViper unmarshals and completes configuration from a prepared Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	cfg.fillUnitNames()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// newViper initializes Viper with environment binding and defaults
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("BRIDGEGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// FindConfig searches for bridgegen.toml by walking up the directory tree.
// Returns the path to the first config file found, or empty string if none found.
func FindConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// fillUnitNames derives missing unit names from the package path or schema file
func (c *Config) fillUnitNames() {
	for i := range c.Units {
		u := &c.Units[i]
		if u.Name != "" {
			continue
		}
		switch {
		case u.Package != "":
			u.Name = path.Base(u.Package)
		case u.Schema != "":
			u.Name = strings.TrimSuffix(filepath.Base(u.Schema), filepath.Ext(u.Schema))
		}
	}
}

// Resolve makes p absolute relative to the config file's directory.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	base := c.BaseDir
	if base == "" {
		base = "."
	}
	return filepath.Join(base, p)
}

// OutputDir is the absolute output directory.
func (c *Config) OutputDir() string {
	return c.Resolve(c.Output.Dir)
}

// BackendDir is the absolute backend module directory.
func (c *Config) BackendDir() string {
	return c.Resolve(c.Backend.Dir)
}
