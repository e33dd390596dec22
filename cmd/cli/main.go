package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vk/cmdgrid/internal/app"
	"github.com/vk/cmdgrid/internal/cli"
	"github.com/vk/cmdgrid/internal/hcl"
)

// main is the entrypoint for the cmdgrid application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Args[1:])
	stop()

	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			fmt.Fprintln(os.Stderr, cli.Usage())
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW io.Writer, args []string) error {
	inv, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	cmdgrid, err := startApp(func() *app.App {
		return app.NewApp(outW, inv.Config, hcl.NewLoader())
	})
	if err != nil {
		return err
	}
	if inv.Mode == cli.ModePlan {
		return cmdgrid.Plan(ctx, outW)
	}
	return cmdgrid.Run(ctx)
}

// startApp builds the app. The app panics on definition errors, so we
// recover here to provide a clean error to the user. Panics raised later,
// while running, are not startup errors and are left alone.
func startApp(build func() *app.App) (a *app.App, err error) {
	defer func() {
		if r := recover(); r != nil {
			a, err = nil, fmt.Errorf("application startup panicked: %v", r)
		}
	}()
	return build(), nil
}
