package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// workspaceRoot is the --root flag; empty means the current directory.
var workspaceRoot string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "gatomia",
	Version: Version,
	Short:   "Review and archive specifications from the terminal",
	Long: `Gatomia keeps specifications moving through review.
Specifications live in the review lane until every pending task,
checklist item and change request is resolved, then they can be archived.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := RootCmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}

	mapped := MapError(err)
	fmt.Fprintf(os.Stderr, "Error: %v\n", mapped)
	var cliErr *CLIError
	if errors.As(mapped, &cliErr) && cliErr.Hint != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", cliErr.Hint)
	}
	return mapped
}

// ExitCode returns the process exit code for an error returned by Execute.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) && cliErr.ExitCode != 0 {
		return cliErr.ExitCode
	}
	return 1
}

func init() {
	RootCmd.PersistentFlags().StringVar(&workspaceRoot, "root", "", "Workspace root (defaults to the current directory)")
}
