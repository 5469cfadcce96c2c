package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/traceship/internal/cliconfig"
	logAdapter "github.com/bft-labs/traceship/pkg/log"
	"github.com/bft-labs/traceship/pkg/replay"
	"github.com/bft-labs/traceship/pkg/state"
	"github.com/bft-labs/traceship/pkg/traceship"
	"github.com/bft-labs/traceship/plugins/configwatcher"
	"github.com/bft-labs/traceship/plugins/metricsserver"
)

const helpBanner = `
████████╗██████╗  █████╗  ██████╗███████╗███████╗██╗  ██╗██╗██████╗
╚══██╔══╝██╔══██╗██╔══██╗██╔════╝██╔════╝██╔════╝██║  ██║██║██╔══██╗
   ██║   ██████╔╝███████║██║     █████╗  ███████╗███████║██║██████╔╝
   ██║   ██╔══██╗██╔══██║██║     ██╔══╝  ╚════██║██╔══██║██║██╔═══╝
   ██║   ██║  ██║██║  ██║╚██████╗███████╗███████║██║  ██║██║██║
   ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝╚══════╝╚══════╝╚═╝  ╚═╝╚═╝╚═╝
`

const helpDescription = `
Ship traces to your collector with automatic protocol negotiation.

Highlights:
  - Probes the collector once and settles on the newest protocol it speaks.
  - Queues traces while probing; nothing is lost during negotiation.
  - Applies per-service sample rates fed back by the collector.
  - Configure via file, environment (TRACESHIP_*), or flags; flags win.

Docs: https://github.com/bft-labs/traceship
`

var longHelp = strings.TrimSpace(helpBanner) + "\n\n" + strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  traceship --collector-url http://localhost:8126 --service checkout --count 500 --once
  traceship --config $HOME/.traceship/config.toml --replay traces.jsonl.gz
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// demoResources rotate through generated traces so the collector sees
// more than one resource name.
var demoResources = []string{
	"GET /api/orders",
	"GET /api/orders/{id}",
	"POST /api/orders",
	"GET /api/users/{id}",
	"POST /api/checkout",
}

// syntheticTrace builds a small parent/child trace for demo traffic.
func syntheticTrace(service string, seq int) traceship.Trace {
	traceID := rand.Uint64()
	start := time.Now().Add(-15 * time.Millisecond)

	root := traceship.Span{
		Service:  service,
		Name:     "http.request",
		Resource: demoResources[seq%len(demoResources)],
		Type:     "web",
		TraceID:  traceID,
		SpanID:   rand.Uint64(),
		Start:    start.UnixNano(),
		Duration: (15 * time.Millisecond).Nanoseconds(),
		Meta: map[string]string{
			"env": "demo",
			"seq": strconv.Itoa(seq),
		},
	}
	if seq%10 == 9 {
		root.Error = 1
		root.Meta["error.type"] = "timeout"
	}

	child := traceship.Span{
		Service:  service,
		Name:     "postgres.query",
		Resource: "SELECT FROM orders",
		Type:     "sql",
		TraceID:  traceID,
		SpanID:   rand.Uint64(),
		ParentID: root.SpanID,
		Start:    start.Add(2 * time.Millisecond).UnixNano(),
		Duration: (5 * time.Millisecond).Nanoseconds(),
	}

	return traceship.Trace{root, child}
}

// generate exports Count synthetic traces at the configured interval.
func generate(ctx context.Context, exp *traceship.Exporter, cfg cliconfig.Config, log zerolog.Logger) error {
	log.Info().Int("count", cfg.Count).Dur("interval", cfg.EmitInterval).Msg("generating traces")

	for i := 0; i < cfg.Count; i++ {
		if err := exp.Export(syntheticTrace(cfg.Service, i)); err != nil {
			if errors.Is(err, traceship.ErrWriterClosed) {
				return nil
			}
			return fmt.Errorf("export trace %d: %w", i, err)
		}
		if cfg.EmitInterval > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(cfg.EmitInterval):
			}
		} else if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

// replayFile feeds recorded traces from a replay file into the exporter.
func replayFile(ctx context.Context, exp *traceship.Exporter, cfg cliconfig.Config, logger traceship.Logger, log zerolog.Logger) error {
	r, err := replay.Open(cfg.ReplayFile, logger)
	if err != nil {
		return fmt.Errorf("open replay file: %w", err)
	}
	defer r.Close()

	log.Info().Str("file", cfg.ReplayFile).Msg("replaying traces")

	n := 0
	for {
		trace, err := r.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read replay file: %w", err)
		}

		if err := exp.Export(trace); err != nil {
			if errors.Is(err, traceship.ErrWriterClosed) {
				return nil
			}
			return fmt.Errorf("export replayed trace: %w", err)
		}
		n++

		if cfg.EmitInterval > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(cfg.EmitInterval):
			}
		}
	}

	log.Info().Int("traces", n).Int("skipped", r.Skipped()).Msg("replay complete")
	return nil
}

// runTracker accumulates delivery events for the final summary and the
// persisted run status.
type runTracker struct {
	traceship.BaseEventHandler

	mu     sync.Mutex
	status state.RunStatus
}

func newRunTracker() *runTracker {
	t := &runTracker{}
	t.status.StartedAt = time.Now()
	return t
}

// OnProtocolResolved records which protocol negotiation settled on.
func (t *runTracker) OnProtocolResolved(e traceship.ProtocolResolvedEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.RecordResolution(e.Protocol)
}

// OnSendSuccess records an accepted payload.
func (t *runTracker) OnSendSuccess(e traceship.SendSuccessEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.RecordSend(e.Traces, e.Bytes)
}

// OnSendError records a lost payload.
func (t *runTracker) OnSendError(e traceship.SendErrorEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.RecordError(e.Error)
	t.status.RecordDrop(e.Traces)
}

func (t *runTracker) snapshot() state.RunStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "traceship",
		Short:   "Ship traces to your collector with automatic protocol negotiation",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first (default $HOME/.traceship/config.toml), then apply flag overrides
			// Determine config path
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Apply environment variables (TRACESHIP_*)
			// These override file config but are overridden by flags (checked via changed map)
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			// Fill in hostname and container ID from the host if needed
			if err := cliconfig.LoadHostInfo(&cfg); err != nil {
				return err
			}

			// Validate and set derived defaults
			if err := cfg.Validate(); err != nil {
				return err
			}

			if cfg.Verbose {
				log = log.Level(zerolog.DebugLevel)
			} else {
				log = log.Level(zerolog.InfoLevel)
			}

			log.Info().Interface("config", cfg).Msg("configuration")

			// The container ID travels as a header so the collector can
			// attribute traces to the right container.
			var extraHeaders map[string]string
			if cfg.ContainerID != "" {
				extraHeaders = map[string]string{"X-Container-ID": cfg.ContainerID}
			}

			// Convert cliconfig.Config to traceship.Config
			libCfg := traceship.Config{
				CollectorURL:    cfg.CollectorURL,
				Protocol:        cfg.Protocol,
				BufferSize:      cfg.BufferSize,
				FlushInterval:   cfg.FlushInterval,
				ProbeRetryDelay: cfg.ProbeRetryDelay,
				HTTPTimeout:     cfg.HTTPTimeout,
				Hostname:        cfg.Hostname,
				ExtraHeaders:    extraHeaders,
			}

			// Create zerolog adapter for the library
			zerologAdapter := logAdapter.NewZerologAdapterWithLogger(log)

			tracker := newRunTracker()

			opts := []traceship.Option{
				traceship.WithLogger(zerologAdapter),
				traceship.WithEventHandler(tracker),
				// Enable config watcher plugin: collector_url edits in the
				// config file retarget the running exporter
				configwatcher.WithConfigWatcher(configwatcher.Config{Path: cfgFile}),
			}

			// Serve Prometheus metrics when an address is configured
			if cfg.MetricsAddr != "" {
				srv := metricsserver.New(metricsserver.Config{Addr: cfg.MetricsAddr})
				opts = append(opts, metricsserver.WithServer(srv)...)
			}

			exp, err := traceship.New(libCfg, opts...)
			if err != nil {
				return fmt.Errorf("create traceship: %w", err)
			}

			// Setup signal handling for graceful shutdown
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			// Start traceship
			if err := exp.Start(ctx); err != nil {
				return fmt.Errorf("start traceship: %w", err)
			}

			// Emit traces in the background; exports made while the
			// protocol is still negotiating are queued, not lost
			emitDone := make(chan struct{})
			go func() {
				defer close(emitDone)
				var err error
				if cfg.ReplayFile != "" {
					err = replayFile(ctx, exp, cfg, zerologAdapter, log)
				} else {
					err = generate(ctx, exp, cfg, log)
				}
				if err != nil {
					log.Error().Err(err).Msg("trace emission failed")
				}
			}()

			// Wait for signal or completion
			if cfg.Once {
				select {
				case <-sigCh:
					log.Info().Msg("received signal, stopping...")
					cancel()
				case <-emitDone:
					exp.Flush()
				}
			} else {
				<-sigCh
				log.Info().Msg("received signal, stopping...")
				cancel()
			}

			// Graceful shutdown
			stopErr := exp.Stop()

			status := tracker.snapshot()
			status.StoppedAt = time.Now()
			if status.Protocol == "" {
				if p := exp.Protocol(); p != "" {
					status.Protocol = p
				} else {
					status.Protocol = "unresolved"
				}
			}

			if cfg.StateDir != "" {
				repo := state.NewFileRepository(cfg.StateDir)
				if err := repo.Save(context.Background(), status); err != nil {
					log.Warn().Err(err).Msg("failed to persist run status")
				} else {
					log.Info().Str("path", repo.Path()).Msg("run status saved")
				}
			}

			log.Info().
				Str("protocol", status.Protocol).
				Uint64("traces_sent", status.TracesSent).
				Uint64("traces_dropped", status.TracesDropped).
				Uint64("payloads_sent", status.PayloadsSent).
				Uint64("bytes_sent", status.BytesSent).
				Msg("run summary")

			if stopErr != nil {
				return fmt.Errorf("stop traceship: %w", stopErr)
			}
			return nil
		},
	}

	// Flags
	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.traceship/config.toml)")
	root.Flags().StringVar(&cfg.CollectorURL, "collector-url", cfg.CollectorURL, "collector base URL (http, https, or unix socket)")
	root.Flags().StringVar(&cfg.Protocol, "protocol", cfg.Protocol, "pin the collector protocol, v1 or v2 (default: negotiate)")
	root.Flags().StringVar(&cfg.Service, "service", cfg.Service, "service name stamped on generated traces")
	root.Flags().StringVar(&cfg.Hostname, "hostname", cfg.Hostname, "hostname reported to the collector (default: os hostname)")

	root.Flags().IntVar(&cfg.Count, "count", cfg.Count, "number of synthetic traces to emit")
	root.Flags().DurationVar(&cfg.EmitInterval, "emit-interval", cfg.EmitInterval, "delay between emitted traces")
	root.Flags().StringVar(&cfg.ReplayFile, "replay", cfg.ReplayFile, "replay traces from a JSONL file (.gz supported) instead of generating")

	root.Flags().DurationVar(&cfg.FlushInterval, "flush-interval", cfg.FlushInterval, "how often buffered traces are shipped")
	root.Flags().DurationVar(&cfg.ProbeRetryDelay, "probe-retry-delay", cfg.ProbeRetryDelay, "wait between protocol probes after an ambiguous answer")
	root.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout")
	root.Flags().IntVar(&cfg.BufferSize, "buffer-size", cfg.BufferSize, "maximum encoded payload size in bytes")

	root.Flags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "state directory for status.json (disabled when empty)")
	if err := root.Flags().MarkHidden("state-dir"); err != nil {
		log.Info().Err(err).Msg("failed to hide state-dir flag")
	}
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "listen address for Prometheus metrics (disabled when empty)")

	root.Flags().BoolVar(&cfg.Once, "once", cfg.Once, "emit the configured traces, flush, and exit")
	root.Flags().BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable debug logging")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("traceship")
		os.Exit(1)
	}
}
