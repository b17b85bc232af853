package config

import "github.com/spf13/viper"

// Defaults for every configuration option
const (
	DefaultBackendDir = "."
	DefaultOutputDir  = "frontend/src/generated"
	DefaultWorkers    = 4
	DefaultDebounceMS = 300
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend.dir", DefaultBackendDir)
	v.SetDefault("output.dir", DefaultOutputDir)
	v.SetDefault("output.index", true)
	v.SetDefault("output.prune", true)
	v.SetDefault("bindings.enabled", true)
	v.SetDefault("bindings.async", false)
	v.SetDefault("watch.debounce_ms", DefaultDebounceMS)
	v.SetDefault("workers", DefaultWorkers)
}

// Default returns a configuration populated with defaults only.
func Default() *Config {
	return &Config{
		Backend:  BackendConfig{Dir: DefaultBackendDir},
		Output:   OutputConfig{Dir: DefaultOutputDir, Index: true, Prune: true},
		Bindings: BindingsConfig{Enabled: true},
		Watch:    WatchConfig{DebounceMS: DefaultDebounceMS},
		Workers:  DefaultWorkers,
	}
}
