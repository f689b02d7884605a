package main

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	compose "github.com/pumped-fn/pumped-compose"
	"github.com/pumped-fn/pumped-compose/extensions"
)

type options struct {
	configPath string
	logLevel   string
	addr       string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "composectl",
		Short:         "Run component container scenarios",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Runtime config file (.yaml, .json or .toml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: trace|debug|info|warn|error (overrides config)")

	runCmd := &cobra.Command{
		Use:     "run <scenario>",
		Short:   "Execute a scenario and print the component tree",
		Example: "  composectl run scenario.yaml",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.rt.Dispose()
			return runAndPrint(env, args[0], cmd.OutOrStdout())
		},
	}

	serveCmd := &cobra.Command{
		Use:     "serve <scenario>",
		Short:   "Execute a scenario, then serve /metrics and /tree",
		Example: "  composectl serve --addr :9090 scenario.toml",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.rt.Dispose()
			if err := runAndPrint(env, args[0], cmd.OutOrStdout()); err != nil {
				return err
			}
			return serve(cmd.Context(), env, opts.addr)
		},
	}
	serveCmd.Flags().StringVar(&opts.addr, "addr", ":9090", "HTTP listen address")

	root.AddCommand(runCmd, serveCmd)
	return root
}

// env is the runtime and collaborators a command works with.
type env struct {
	rt       *compose.Runtime
	tree     *extensions.TreeDebugMonitor
	registry *prometheus.Registry
	logger   zerolog.Logger
}

func setup(opts *options, stderr io.Writer) (*env, error) {
	cfg := compose.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := compose.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if cfg.LogLevel == "disabled" {
		cfg.LogLevel = "info"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr}).Level(level).With().Timestamp().Logger()
	compose.SetLogger(logger)

	reg := prometheus.NewRegistry()
	metrics, err := extensions.NewMetricsMonitor(reg)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	tree := extensions.NewTreeDebugMonitor(extensions.NewSilentHandler())

	// The command always needs monitors; the config can still pick the policy.
	cfg.Monitoring = true
	rt, err := compose.NewRuntimeFromConfig(cfg,
		compose.WithLogger(logger),
		compose.WithMonitor(extensions.NewLoggingMonitor(logger)),
		compose.WithMonitor(metrics),
		compose.WithMonitor(tree),
	)
	if err != nil {
		return nil, err
	}

	return &env{rt: rt, tree: tree, registry: reg, logger: logger}, nil
}

func runAndPrint(e *env, path string, out io.Writer) error {
	sc, err := LoadScenario(path)
	if err != nil {
		return err
	}

	rep, err := RunScenario(e.rt, sc)
	if err != nil {
		return err
	}

	name := sc.Name
	if name == "" {
		name = path
	}
	fmt.Fprintf(out, "scenario %s: %d steps\n", name, rep.Steps)
	for _, k := range sortedKeys(rep.Live) {
		fmt.Fprintf(out, "  live %-20s %d\n", k, rep.Live[k])
	}
	for _, k := range sortedKeys(rep.Received) {
		fmt.Fprintf(out, "  recv %-20s %d\n", k, rep.Received[k])
	}
	fmt.Fprintln(out, extensions.RenderTree(e.tree.Snapshot()))
	return nil
}
