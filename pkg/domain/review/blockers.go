package review

import (
	"fmt"
	"strings"
)

// BlockerIncompleteTasks is reported once, however many change requests
// still carry unfinished tasks.
const BlockerIncompleteTasks = "incomplete tasks in change requests"

// ComputeArchivalBlockers lists every reason the specification cannot be
// archived yet. Each condition is checked independently so all blockers are
// surfaced together. The result is empty when the specification is archivable.
func ComputeArchivalBlockers(s Specification) []string {
	blockers := []string{}

	if s.PendingTasks > 0 {
		blockers = append(blockers, countLabel(s.PendingTasks, "pending task"))
	}
	if s.PendingChecklistItems > 0 {
		blockers = append(blockers, countLabel(s.PendingChecklistItems, "pending checklist item"))
	}
	if open := s.OpenChangeRequests(); open > 0 {
		blockers = append(blockers, countLabel(open, "open change request"))
	}
	if s.HasIncompleteChangeRequestTasks() {
		blockers = append(blockers, BlockerIncompleteTasks)
	}

	return blockers
}

// IsArchivable returns true iff the specification has no archival blockers.
func IsArchivable(s Specification) bool {
	return len(ComputeArchivalBlockers(s)) == 0
}

// BlockerSummary renders blockers the way the review panel shows them.
func BlockerSummary(blockers []string) string {
	return strings.Join(blockers, ", ")
}

func countLabel(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
