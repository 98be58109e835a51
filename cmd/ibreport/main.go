package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/ibreport/internal/report"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	root := newRootCommand(os.Stdout, os.Stderr)
	err := root.cmd.ExecuteContext(ctx)
	root.close()
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if report.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, report.FormatUserError(err))
		}
		os.Exit(1)
	}
}
