// Command biosphere runs a semantic-routing deliberation from the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hupe1980/biosphere"
	"github.com/hupe1980/biosphere/config"
	"github.com/hupe1980/biosphere/engine"
	"github.com/hupe1980/biosphere/internal/util"
	"github.com/hupe1980/biosphere/model"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	verbose    bool
	logDriver  string
}

type runFlags struct {
	maxTicks int
	provider string
	timeout  time.Duration
	history  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "biosphere",
		Short: "Self-organizing multi-agent deliberation with semantic routing",
		Long: `biosphere seeds a population of agents for a scenario and lets them
deliberate. Every utterance is embedded and delivered to the agents whose
receptors resonate with its meaning, through direct delivery, learned
synapses or spawned bridge agents, until the population reaches equilibrium.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "biosphere.yaml", "path to the YAML configuration")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&flags.logDriver, "log-driver", "zap", "log driver (zap or slog)")

	root.AddCommand(newRunCmd(flags), newConfigCmd(flags))

	return root
}

func (f *rootFlags) load() (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	if f.logDriver != "" {
		cfg.Logging.Driver = f.logDriver
	}
	if f.verbose {
		cfg.Logging.Level = "debug"
	}

	return cfg, cfg.Validate()
}

func newRunCmd(root *rootFlags) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "Run a deliberation for a scenario",
		Example: `  biosphere run "Decide how two villages share one river"
  BIOSPHERE_PROVIDER=openai OPENAI_API_KEY=... biosphere run --max-ticks 10 "Plan the harvest"`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}

			if len(args) > 0 {
				cfg.Scenario = strings.Join(args, " ")
			}
			if cfg.Scenario == "" {
				return fmt.Errorf("no scenario: pass it as argument or set scenario in %s", root.configPath)
			}
			if flags.maxTicks > 0 {
				cfg.Engine.MaxTicks = flags.maxTicks
			}
			if flags.provider != "" {
				cfg.Backend.Provider = flags.provider
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if flags.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, flags.timeout)
				defer cancel()
			}

			return run(ctx, cmd.OutOrStdout(), cfg, flags.history)
		},
	}

	cmd.Flags().IntVar(&flags.maxTicks, "max-ticks", 0, "override engine.max_ticks")
	cmd.Flags().StringVar(&flags.provider, "provider", "", "override backend.provider (mock, openai, anthropic, gemini)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "abort the run after this duration")
	cmd.Flags().BoolVar(&flags.history, "history", false, "print the full signal history at the end")

	return cmd
}

func run(ctx context.Context, out io.Writer, cfg *config.Config, printHistory bool) error {
	b, flush, err := biosphere.NewFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = flush() }()

	fmt.Fprintf(out, "scenario: %s\n", cfg.Scenario)

	snapCh, errCh := b.Live(ctx)

	var final engine.Snapshot
	for snap := range snapCh {
		printSnapshot(out, snap)
		final = snap
	}

	if err := <-errCh; err != nil {
		return err
	}

	fmt.Fprintf(out, "finished: %s after %d ticks, %d signals, %d agents\n",
		final.Status, final.Tick+1, final.HistoryLen, len(final.Agents))

	if mb, ok := b.Backend().(*model.Backend); ok {
		u := mb.Usage()
		fmt.Fprintf(out, "backend calls: %d embed, %d chat\n", u.Embed, u.Chat)
	}

	if printHistory {
		for _, sig := range b.History() {
			fmt.Fprintf(out, "  [%s] %s\n", sig.EmittedBy, sig.Thought)
		}
	}

	return nil
}

func printSnapshot(out io.Writer, snap engine.Snapshot) {
	fmt.Fprintf(out, "tick %d: %s, %d agents, %d new signals, %d synapses",
		snap.Tick, snap.Status, len(snap.Agents), len(snap.Signals), len(snap.Synapses))
	if res := snap.Equilibrium; res != nil {
		fmt.Fprintf(out, ", energy %.2f", res.Energy)
	}
	if snap.Intervened {
		fmt.Fprint(out, ", intervened")
	}
	fmt.Fprintln(out)

	for _, sig := range snap.Signals {
		fmt.Fprintf(out, "  %s: %s\n", sig.EmittedBy, util.FirstLine(sig.Thought))
	}
}

func newConfigCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}

			data, err := cfg.YAML()
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
