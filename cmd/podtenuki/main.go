package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"podtenuki/internal/services"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	code := exitCode(ctx, err)
	switch {
	case code == services.ExitInterrupted:
		fmt.Fprintln(stderr, "Process interrupted by user")
	case err != nil:
		fmt.Fprintln(stderr, err)
	}
	return code
}

// exitCode treats any failure after the signal context ended as an interrupt,
// since remote errors then usually wrap the cancellation indirectly.
func exitCode(ctx context.Context, err error) int {
	if err != nil && ctx.Err() != nil && !errors.Is(err, context.Canceled) {
		return services.ExitInterrupted
	}
	return services.ExitCode(err)
}
