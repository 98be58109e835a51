package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"text/tabwriter"
	"time"

	"github.com/JonMunkholm/ibreport/internal/report"
	"github.com/JonMunkholm/ibreport/internal/web"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func runCommand(root *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "run SCRIPT [INFILE] [ARGS...]",
		Short: "Run a report script",
		Long: `Run a report script on an export.

Every script except readme takes the export as INFILE followed by its own
arguments. "ibreport list" shows the arguments of each script.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, ok := report.Get(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", report.ErrUnknownScript, args[0])
			}

			req := report.Request{Script: script.Name}
			rest := args[1:]
			if !script.NoInput {
				if len(rest) == 0 {
					return fmt.Errorf("%w: %s %s", report.ErrMissingInput, script.Name, script.Usage)
				}
				req.Input, rest = rest[0], rest[1:]
			}
			req.Args = rest

			_, err := root.runner().Run(cmd.Context(), req)
			return err
		},
	}
}

func listCommand(root *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available scripts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, group := range report.Groups() {
				fmt.Fprintf(tw, "%s:\n", group)
				for _, sc := range report.ByGroup(group) {
					fmt.Fprintf(tw, "  %s %s\t%s\n", sc.Name, sc.Usage, sc.Description)
				}
			}
			return tw.Flush()
		},
	}
}

func readmeCommand(root *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "readme",
		Short: "Show the recommended script sequence",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := root.runner().Run(cmd.Context(), report.Request{Script: "readme"})
			return err
		},
	}
}

func historyCommand(root *rootCommand) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs",
		Long: `Show recent runs, newest first.

Runs are only kept across invocations when DATABASE_URL points to PostgreSQL.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runs, err := root.recorder.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tSCRIPT\tSTATUS\tROWS\tDURATION\tINPUT")
			for _, run := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					run.StartedAt.Local().Format(time.DateTime),
					run.Script,
					run.Status,
					run.Rows,
					run.Duration().Round(time.Millisecond),
					run.Input,
				)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	return cmd
}

func serveCommand(root *rootCommand) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scripts over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.cfg.Server
			if addr == "" {
				addr = cfg.Addr()
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}

			server := web.NewServer(cfg, root.runner(), root.recorder, root.limiter)
			root.logger.Info("server starting", "addr", ln.Addr().String(), "scripts", report.Count())

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return server.Serve(ln)
			})
			g.Go(func() error {
				server.StartResultsJanitor(ctx)
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				root.logger.Info("shutting down...")

				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutdown: %w", err)
				}
				return nil
			})

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			root.logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default SERVER_HOST:SERVER_PORT)")
	return cmd
}
