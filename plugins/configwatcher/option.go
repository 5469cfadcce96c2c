package configwatcher

import "github.com/bft-labs/traceship/pkg/traceship"

// WithConfigWatcher returns a traceship Option that enables config file
// watching. When enabled, the plugin monitors the given TOML file and
// retargets the collector destination when collector_url changes.
//
// Usage:
//
//	exp, err := traceship.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:          "/etc/traceship/config.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) traceship.Option {
	plugin := New(cfg)
	return traceship.WithPlugin(plugin)
}

// WithConfigFile returns a traceship Option that watches the given file
// with default settings (debounce 100ms).
//
// Usage:
//
//	exp, err := traceship.New(cfg, configwatcher.WithConfigFile(path))
func WithConfigFile(path string) traceship.Option {
	cfg := DefaultConfig()
	cfg.Path = path
	return WithConfigWatcher(cfg)
}
