package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/eitatech/gatomia/pkg/domain/review"
	"github.com/eitatech/gatomia/pkg/store"
)

// Flag variables for review commands
var (
	listLane string
	listJSON bool

	submitTitle          string
	submitOwner          string
	submitDocURL         string
	submitPendingTasks   int
	submitPendingItems   int
	submitCompletedAt    string
	submitReopen bool
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Inspect and move specifications between the review and archived lanes",
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List specifications with their archival status",
	Long: `List specifications with their archival status.

Examples:
  gatomia review list
  gatomia review list --lane archived
  gatomia review list --json`,
	Args: cobra.NoArgs,
	RunE: runReviewList,
}

var reviewBlockersCmd = &cobra.Command{
	Use:   "blockers <spec-id>",
	Short: "Show what prevents a specification from being archived",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewBlockers,
}

var reviewArchiveCmd = &cobra.Command{
	Use:   "archive <spec-id>",
	Short: "Archive a specification that has no blockers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLaneMove(cmd, args[0], true)
	},
}

var reviewUnarchiveCmd = &cobra.Command{
	Use:   "unarchive <spec-id>",
	Short: "Move an archived specification back to review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLaneMove(cmd, args[0], false)
	},
}

var reviewSubmitCmd = &cobra.Command{
	Use:   "submit <spec-id>",
	Short: "Submit field changes for a specification",
	Long: `Submit field changes for a specification. Only flags that are set
are sent.

Examples:
  gatomia review submit 001-login --title "Login flow"
  gatomia review submit 001-login --pending-tasks 0 --pending-checklist-items 0`,
	Args: cobra.ExactArgs(1),
	RunE: runReviewSubmit,
}

var reviewWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the lanes every time the specs file changes",
	Args:  cobra.NoArgs,
	RunE:  runReviewWatch,
}

func init() {
	reviewListCmd.Flags().StringVar(&listLane, "lane", "all", "Lane to list: review, archived or all")
	reviewListCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")

	reviewSubmitCmd.Flags().StringVar(&submitTitle, "title", "", "New title")
	reviewSubmitCmd.Flags().StringVar(&submitOwner, "owner", "", "New owner")
	reviewSubmitCmd.Flags().StringVar(&submitDocURL, "doc-url", "", "New document link")
	reviewSubmitCmd.Flags().IntVar(&submitPendingTasks, "pending-tasks", 0, "Pending task count")
	reviewSubmitCmd.Flags().IntVar(&submitPendingItems, "pending-checklist-items", 0, "Pending checklist item count")
	reviewSubmitCmd.Flags().StringVar(&submitCompletedAt, "completed-at", "", "Completion time (RFC 3339)")
	reviewSubmitCmd.Flags().BoolVar(&submitReopen, "reopen", false, "Clear the archive timestamp")

	reviewCmd.AddCommand(reviewListCmd, reviewBlockersCmd, reviewArchiveCmd, reviewUnarchiveCmd, reviewSubmitCmd, reviewWatchCmd)
	RootCmd.AddCommand(reviewCmd)
}

// specRow is the JSON form of one listed specification.
type specRow struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Owner      string   `json:"owner,omitempty"`
	Lane       string   `json:"lane"`
	Archivable bool     `json:"archivable"`
	Blockers   []string `json:"blockers"`
}

func runReviewList(cmd *cobra.Command, args []string) error {
	lanes, err := parseLaneFilter(listLane)
	if err != nil {
		return err
	}

	session, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer session.Close()

	rows := collectRows(session.Store.Snapshot(), lanes)
	out := cmd.OutOrStdout()
	if listJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	printRows(out, rows)
	return nil
}

func runReviewBlockers(cmd *cobra.Command, args []string) error {
	session, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer session.Close()

	spec, lane, ok := session.Store.Find(args[0])
	if !ok {
		return MapError(fmt.Errorf("%w: %s", errSpecNotListed, args[0]))
	}

	out := cmd.OutOrStdout()
	if lane == review.LaneArchived {
		fmt.Fprintf(out, "%s is archived.\n", spec.ID)
		return nil
	}
	blockers := review.ComputeArchivalBlockers(*spec)
	if len(blockers) == 0 {
		fmt.Fprintf(out, "%s can be archived.\n", spec.ID)
		return nil
	}
	fmt.Fprintf(out, "%s cannot be archived yet:\n", spec.ID)
	for _, b := range blockers {
		fmt.Fprintf(out, "  - %s\n", b)
	}
	return nil
}

func runLaneMove(cmd *cobra.Command, specID string, archive bool) error {
	session, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer session.Close()

	if _, _, ok := session.Store.Find(specID); !ok {
		return MapError(fmt.Errorf("%w: %s", errSpecNotListed, specID))
	}

	if archive {
		_, err = session.View.Archive(cmd.Context(), specID)
	} else {
		_, err = session.View.Unarchive(cmd.Context(), specID)
	}
	if err != nil {
		return MapError(err)
	}

	if archive {
		fmt.Fprintf(cmd.OutOrStdout(), "Archived %s.\n", specID)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Moved %s back to review.\n", specID)
	}
	return nil
}

func runReviewSubmit(cmd *cobra.Command, args []string) error {
	patch, err := patchFromFlags(cmd)
	if err != nil {
		return err
	}

	session, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer session.Close()

	if _, err := session.View.SubmitChanges(cmd.Context(), args[0], patch); err != nil {
		return MapError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %s\n", args[0], strings.Join(patch.Fields(), ", "))
	return nil
}

func runReviewWatch(cmd *cobra.Command, args []string) error {
	session, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer session.Close()

	out := cmd.OutOrStdout()
	lanes := []review.Lane{review.LaneReview, review.LaneArchived}
	printRows(out, collectRows(session.Store.Snapshot(), lanes))

	// Each change arrives as two pushes; print once the archived lane lands.
	changes := 0
	unsubscribe := session.Store.Subscribe(func() {
		changes++
		if changes%2 == 0 {
			fmt.Fprintln(out, "---")
			printRows(out, collectRows(session.Store.Snapshot(), lanes))
		}
	})
	defer unsubscribe()

	err = session.Watch(cmd.Context())
	if cmd.Context().Err() != nil {
		return nil
	}
	return err
}

func patchFromFlags(cmd *cobra.Command) (review.SpecPatch, error) {
	var patch review.SpecPatch
	flags := cmd.Flags()
	if flags.Changed("title") {
		patch.Title = &submitTitle
	}
	if flags.Changed("owner") {
		patch.Owner = &submitOwner
	}
	if flags.Changed("doc-url") {
		patch.DocURL = &submitDocURL
	}
	if flags.Changed("pending-tasks") {
		if submitPendingTasks < 0 {
			return patch, fmt.Errorf("--pending-tasks must not be negative")
		}
		patch.PendingTasks = &submitPendingTasks
	}
	if flags.Changed("pending-checklist-items") {
		if submitPendingItems < 0 {
			return patch, fmt.Errorf("--pending-checklist-items must not be negative")
		}
		patch.PendingChecklistItems = &submitPendingItems
	}
	if flags.Changed("completed-at") {
		t, err := time.Parse(time.RFC3339, submitCompletedAt)
		if err != nil {
			return patch, fmt.Errorf("--completed-at: %w", err)
		}
		patch.CompletedAt = &t
	}
	if flags.Changed("reopen") {
		patch.ClearArchivedAt = submitReopen
	}
	return patch, nil
}

func parseLaneFilter(s string) ([]review.Lane, error) {
	switch s {
	case "all", "":
		return []review.Lane{review.LaneReview, review.LaneArchived}, nil
	case string(review.LaneReview):
		return []review.Lane{review.LaneReview}, nil
	case string(review.LaneArchived):
		return []review.Lane{review.LaneArchived}, nil
	default:
		return nil, NewCLIError(fmt.Sprintf("unknown lane %q", s), "Use review, archived or all", nil)
	}
}

func collectRows(state *store.State, lanes []review.Lane) []specRow {
	rows := []specRow{}
	for _, lane := range lanes {
		for _, spec := range state.Lane(lane) {
			row := specRow{ID: spec.ID, Title: spec.Title, Owner: spec.Owner, Lane: string(lane), Blockers: []string{}}
			if lane == review.LaneReview {
				row.Blockers = review.ComputeArchivalBlockers(*spec)
				row.Archivable = len(row.Blockers) == 0
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func printRows(out io.Writer, rows []specRow) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No specifications.")
		return
	}
	for _, r := range rows {
		status := "archived"
		if r.Lane == string(review.LaneReview) {
			status = "ready"
			if !r.Archivable {
				status = "blocked: " + review.BlockerSummary(r.Blockers)
			}
		}
		fmt.Fprintf(out, "%-24s %-32s %s\n", r.ID, truncate(r.Title, 32), status)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
