// Package config loads bridgegen.toml: which backend packages form the
// generation units, where the frontend output lives, and how bindings and
// custom type mappings are rendered.
package config

// Config represents the bridgegen configuration
type Config struct {
	Backend  BackendConfig   `mapstructure:"backend" toml:"backend"`
	Output   OutputConfig    `mapstructure:"output" toml:"output"`
	Bindings BindingsConfig  `mapstructure:"bindings" toml:"bindings"`
	Watch    WatchConfig     `mapstructure:"watch" toml:"watch"`
	Workers  int             `mapstructure:"workers" toml:"workers"` // Units generated in parallel (default: 4)
	Units    []UnitConfig    `mapstructure:"units" toml:"units"`
	Mapping  []MappingConfig `mapstructure:"mapping" toml:"mapping,omitempty"`

	// BaseDir is the directory of the loaded config file; relative paths resolve against it
	BaseDir string `mapstructure:"-" toml:"-"`
}

// BackendConfig locates the Go backend
type BackendConfig struct {
	Dir       string   `mapstructure:"dir" toml:"dir"`                   // Module directory the packages load from (default: ".")
	BuildTags []string `mapstructure:"build_tags" toml:"build_tags"`     // Extra build tags passed to the loader
	Tests     bool     `mapstructure:"tests" toml:"tests,omitempty"`     // Include _test.go files when loading
}

// OutputConfig locates the frontend output tree
type OutputConfig struct {
	Dir   string `mapstructure:"dir" toml:"dir"`     // Directory generated files are written into
	Index bool   `mapstructure:"index" toml:"index"` // Write index.ts barrel export (default: true)
	Prune bool   `mapstructure:"prune" toml:"prune"` // Remove untouched generated files no unit produces any more (default: true)
}

// BindingsConfig shapes generated call-site bindings
type BindingsConfig struct {
	Enabled bool `mapstructure:"enabled" toml:"enabled"` // Emit function bindings (default: true)
	Async   bool `mapstructure:"async" toml:"async"`     // Wrap results in Promise<T> (default: false)
}

// WatchConfig configures regeneration on backend changes
type WatchConfig struct {
	DebounceMS int `mapstructure:"debounce_ms" toml:"debounce_ms"` // Quiet period before regenerating (default: 300)
}

// UnitConfig is one generation unit: a Go package or a schema document
type UnitConfig struct {
	Name    string   `mapstructure:"name" toml:"name"`                         // Artifact name (default: last package path element)
	Package string   `mapstructure:"package" toml:"package,omitempty"`         // Go import path
	Schema  string   `mapstructure:"schema" toml:"schema,omitempty"`           // Schema document (.json, .yaml, .toml)
	Exclude []string `mapstructure:"exclude" toml:"exclude,omitempty"`         // Declaration names to leave out
}

// MappingConfig overrides the target type of a fully qualified backend type
type MappingConfig struct {
	Type string `mapstructure:"type" toml:"type"` // e.g. "github.com/google/uuid.UUID"
	To   string `mapstructure:"to" toml:"to"`     // IR primitive: string, bool, int, float, bytes, time, unknown
}

// Default file name searched for upward from the working directory
const FileName = "bridgegen.toml"

// Mappings returns the overrides as a lookup table.
func (c *Config) Mappings() map[string]string {
	m := make(map[string]string, len(c.Mapping))
	for _, entry := range c.Mapping {
		m[entry.Type] = entry.To
	}
	return m
}

// Unit returns the unit named name.
func (c *Config) Unit(name string) (UnitConfig, bool) {
	for _, u := range c.Units {
		if u.Name == name {
			return u, true
		}
	}
	return UnitConfig{}, false
}
