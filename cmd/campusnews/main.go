package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"campusnews/internal/app"
	"campusnews/internal/config"
	"campusnews/internal/logger"
	"campusnews/internal/usecase"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	rootCmd := &cobra.Command{
		Use:           "campusnews",
		Short:         "Campus press aggregator",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "Path to JSON or YAML config file")

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("could not load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}

	rootCmd.AddCommand(serveCmd(loadConfig))
	rootCmd.AddCommand(aggregateCmd(loadConfig))
	rootCmd.AddCommand(outletsCmd(loadConfig))
	rootCmd.AddCommand(cacheCmd(loadConfig))
	return rootCmd
}

type configLoader func() (*config.Config, error)

func serveCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server with the aggregation session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			application, err := app.New(cfg)
			if err != nil {
				return err
			}
			return application.Run()
		},
	}
}

// withCore собирает ядро для одноразовых команд. Логи идут в stderr, чтобы не мешать выводу.
func withCore(cmd *cobra.Command, load configLoader, fn func(ctx context.Context, core *app.Core) error) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	log := logger.NewWithWriters(cfg.Logger.Level, cmd.ErrOrStderr(), cmd.ErrOrStderr())
	slog.SetDefault(log)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	core, err := app.NewCore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer core.Close()
	return fn(ctx, core)
}

func aggregateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "aggregate",
		Short: "Run one cold aggregation, save the cache and print outlet statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, load, func(ctx context.Context, core *app.Core) error {
				start := time.Now()
				if err := core.Feed.Refresh(ctx); err != nil {
					return err
				}
				snap := core.Feed.Snapshot()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Aggregated %d posts from %d outlets in %s\n\n",
					len(snap.Posts), len(snap.Outcomes), time.Since(start).Round(time.Millisecond))
				printStats(out, core.Feed.Stats())
				return nil
			})
		},
	}
}

func printStats(out io.Writer, stats []usecase.OutletStat) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OUTLET\tPLATFORM\tSTATUS\tPOSTS\tERROR")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.Outlet, s.Platform, s.Status, s.Count, s.Error)
	}
	tw.Flush()
}

func outletsCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "outlets",
		Short: "List outlets from the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, load, func(ctx context.Context, core *app.Core) error {
				outlets, err := core.Registry.Load(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tPLATFORM\tUNIVERSITY\tCITY\tLINK")
				for _, o := range outlets {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.Name, o.Platform, o.University, o.City, o.Link)
				}
				return tw.Flush()
			})
		},
	}
}

func cacheCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the corpus cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the cached corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, load, func(ctx context.Context, core *app.Core) error {
				core.Cache.Clear()
				fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
				return nil
			})
		},
	})
	return cmd
}
