// Package configwatcher provides config file monitoring for traceship.
// When enabled, it watches the exporter's TOML config file and retargets
// the collector destination when collector_url changes.
package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/traceship/pkg/traceship"
)

// Plugin implements config file watching.
// It monitors the TOML file the exporter was configured from and applies
// collector_url changes to the running exporter. The resolved protocol
// is never touched: negotiation happens once per exporter, not per
// destination.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	path          string
	debounceDelay time.Duration

	// Runtime state
	exporter    *traceship.Exporter
	logger      traceship.Logger
	lastApplied string
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	debounce    *time.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the TOML config file to watch. The plugin is disabled
	// when empty.
	Path string

	// DebounceDelay is the delay to wait after a file change before
	// applying it. Editors emit several events per save.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}

	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize stores the exporter handle and starts the file watcher.
func (p *Plugin) Initialize(ctx context.Context, cfg traceship.PluginConfig) error {
	p.mu.Lock()
	p.exporter = cfg.Exporter
	p.logger = cfg.Logger
	p.lastApplied = cfg.CollectorURL
	p.mu.Unlock()

	if p.path == "" || p.exporter == nil {
		p.logger.Warn("Config watcher disabled: no config file to watch")
		return nil
	}

	// Create cancellable context for the watcher loop
	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("Config watcher plugin initialized")

	// Start watcher loop
	p.wg.Add(1)
	go p.watchLoop(watchCtx)

	return nil
}

// Shutdown stops the config watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()

	return nil
}

// watchLoop watches the config file for changes.
func (p *Plugin) watchLoop(ctx context.Context) {
	defer p.wg.Done()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.logger.Error("Config watcher: failed to create watcher")
		return
	}
	defer watcher.Close()

	// Watch the directory rather than the file: editors replace files
	// on save, which drops inode-level watches.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		p.logger.Error("Config watcher: failed to watch directory")
		return
	}

	// Apply once at startup in case the file changed after the
	// exporter read it.
	p.applyConfig()

	base := filepath.Base(p.path)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceApply(p.debounceDelay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			_ = err // logged as generic error
			p.logger.Error("Config watcher: watcher error")
		}
	}
}

func (p *Plugin) debounceApply(delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}

	p.debounce = time.AfterFunc(delay, p.applyConfig)
}

// fileConfig is the subset of the config file the watcher acts on.
type fileConfig struct {
	CollectorURL string `toml:"collector_url"`
}

// applyConfig re-reads the config file and retargets the exporter when
// collector_url changed since the last apply.
func (p *Plugin) applyConfig() {
	target, err := readCollectorURL(p.path)
	if err != nil {
		_ = err // logged as generic error
		p.logger.Error("Config watcher: failed to read config file")
		return
	}
	if target == "" {
		return
	}

	p.mu.Lock()
	last := p.lastApplied
	p.mu.Unlock()

	if target == last {
		return
	}

	if err := p.exporter.SetDestination(target); err != nil {
		_ = err
		p.logger.Error("Config watcher: rejected collector URL")
		return
	}

	p.mu.Lock()
	p.lastApplied = target
	p.mu.Unlock()

	p.logger.Info("Config watcher: retargeted collector")
}

// readCollectorURL parses collector_url out of the TOML file at path.
func readCollectorURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return "", err
	}

	return fc.CollectorURL, nil
}

// Ensure Plugin implements traceship.Plugin.
var _ traceship.Plugin = (*Plugin)(nil)
