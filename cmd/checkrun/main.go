// Command checkrun plans accounts payable check runs, voids issued checks
// and manages the payables database schema.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	apppayables "github.com/erp/payables/internal/application/payables"
	"github.com/erp/payables/internal/domain/payables"
	"github.com/erp/payables/internal/domain/shared"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// Exit codes
const (
	exitOK          = 0
	exitError       = 1
	exitCheckInUse  = 2
	exitNotVoidable = 3
	exitNotFound    = 4
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rt := &runtime{}
	defer func() {
		if err := rt.close(context.WithoutCancel(ctx)); err != nil {
			fmt.Fprintln(stderr, "Error during shutdown:", err)
		}
	}()

	root := newRootCmd(rt)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	switch {
	case apppayables.IsCheckNumberInUse(err):
		return exitCheckInUse
	case errors.Is(err, payables.ErrCheckAlreadyVoided), errors.Is(err, payables.ErrCheckAlreadyCleared):
		return exitNotVoidable
	case errors.Is(err, shared.ErrNotFound):
		return exitNotFound
	}
	return exitError
}
