package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"refreshc/internal/cli"
	"refreshc/internal/logx"
)

// main resolves the working directory once and hands everything else to
// cli.Run. SIGINT and SIGTERM cancel the context, which kills any running
// compiler; the temp directory is still released before exit.
func main() {
	logx.SetDefaultLogger(os.Stderr, slog.LevelInfo)

	wd, err := os.Getwd()
	if err != nil {
		slog.Error(err.Error())
		os.Exit(cli.ExitFailure)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	result, err := cli.Run(ctx, os.Args[1:], wd)
	stop()

	var invErr *cli.InvocationError
	if errors.As(err, &invErr) {
		if invErr.Help {
			fmt.Fprint(os.Stdout, invErr.Message)
		} else {
			slog.Error(invErr.Message)
		}
	}
	os.Exit(result.ExitCode)
}
