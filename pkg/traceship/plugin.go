package traceship

import "context"

// Plugin extends an Exporter with optional background functionality.
// Plugins are registered with WithPlugin, initialized during Start in
// registration order, and shut down during Stop in reverse order.
type Plugin interface {
	// Name returns the plugin identifier for logging.
	Name() string

	// Initialize sets up the plugin. The context is canceled when the
	// exporter stops; long-running plugin work should watch it.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown releases plugin resources. Called even if the exporter
	// crashed; implementations must tolerate repeated calls.
	Shutdown(ctx context.Context) error
}

// BasePlugin provides no-op defaults for the Plugin interface.
// Embed it to implement only the methods a plugin needs.
type BasePlugin struct {
	name string
}

// NewBasePlugin creates a base plugin with the given name.
func NewBasePlugin(name string) BasePlugin {
	return BasePlugin{name: name}
}

// Name returns the plugin identifier.
func (p BasePlugin) Name() string { return p.name }

// Initialize is a no-op.
func (p BasePlugin) Initialize(ctx context.Context, cfg PluginConfig) error { return nil }

// Shutdown is a no-op.
func (p BasePlugin) Shutdown(ctx context.Context) error { return nil }

// PluginConfig is passed to every plugin at initialization.
type PluginConfig struct {
	// CollectorURL is the configured collector endpoint.
	CollectorURL string

	// Protocol is the configured protocol pin, empty when negotiated.
	Protocol string

	// Hostname and RuntimeID identify this exporter instance.
	Hostname  string
	RuntimeID string

	// Logger is the exporter's logger.
	Logger Logger

	// Exporter is the running exporter, for plugins that act on it
	// (e.g. retargeting the collector destination).
	Exporter *Exporter
}
