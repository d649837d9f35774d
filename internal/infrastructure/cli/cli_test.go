package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/eitatech/gatomia/pkg/domain/review"
	"github.com/eitatech/gatomia/pkg/storage"
)

// runCLI executes the root command with args against a clean flag state.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	resetFlags(RootCmd)
	workspaceRoot = ""

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs(args)
	defer RootCmd.SetArgs(nil)

	err := RootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// newWorkspace writes lanes into a fresh workspace and returns its root.
func newWorkspace(t *testing.T, lanes *storage.Lanes) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("GATOMIA_LOG_LEVEL", "error")
	if lanes != nil {
		if err := storage.NewFilesystemRepository(root).SaveLanes(lanes); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func sampleLanes() *storage.Lanes {
	archivedAt := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return &storage.Lanes{
		Review: []review.Specification{
			{ID: "001-login", Title: "Login"},
			{
				ID:           "002-search",
				Title:        "Search",
				PendingTasks: 2,
				ChangeRequests: []review.ChangeRequest{
					{ID: "cr1", Status: review.ChangeRequestOpen},
				},
			},
		},
		Archived: []review.Specification{
			{ID: "000-setup", Title: "Setup", ArchivedAt: &archivedAt},
		},
	}
}
