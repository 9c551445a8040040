package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	cerrors "cppdep/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and maps the outcome to an exit status: 0 clean,
// 1 fatal error, 2 findings at or above --fail-on.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout, stderr)
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var fail *failError
	if errors.As(err, &fail) {
		return 2
	}
	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	var ae *cerrors.AnalysisError
	if errors.As(err, &ae) && ae.SuggestedFix != "" {
		fmt.Fprintf(a.stderr, "Hint: %s\n", ae.SuggestedFix)
	}
	return 1
}

// failError signals that findings exceeded the --fail-on threshold.
type failError struct {
	count    int
	severity string
}

func (e *failError) Error() string {
	return fmt.Sprintf("%d findings at or above %s", e.count, e.severity)
}
