package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/eitatech/gatomia/pkg/storage"
)

var historyVerify bool

var reviewHistoryCmd = &cobra.Command{
	Use:   "history <spec-id>",
	Short: "Show the recorded lane moves and changes of a specification",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewHistory,
}

func init() {
	reviewHistoryCmd.Flags().BoolVar(&historyVerify, "verify", false, "Check the history hash chain")
	reviewCmd.AddCommand(reviewHistoryCmd)
}

func runReviewHistory(cmd *cobra.Command, args []string) error {
	root, err := getWorkspaceRoot()
	if err != nil {
		return err
	}
	history, err := storage.NewFileHistory(storage.NewFilesystemRepository(root).DataPath())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyVerify {
		violations, err := history.VerifyIntegrity()
		if err != nil {
			return err
		}
		if len(violations) > 0 {
			for _, v := range violations {
				fmt.Fprintf(out, "  ! %s\n", v)
			}
			return NewCLIError("history chain is broken", "The history file was edited outside gatomia", nil)
		}
		fmt.Fprintln(out, "History chain intact.")
	}

	entries, err := history.ForSpec(args[0])
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(out, "No history for %s.\n", args[0])
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-16s", e.Timestamp.Local().Format(time.DateTime), e.Type)
		if e.From != e.To {
			line += fmt.Sprintf(" %s -> %s", e.From, e.To)
		}
		if len(e.Fields) > 0 {
			line += " (" + strings.Join(e.Fields, ", ") + ")"
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
