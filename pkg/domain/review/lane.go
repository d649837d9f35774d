package review

import "time"

// Lane is one of the two partitioned collections a specification lives in.
type Lane string

const (
	LaneReview   Lane = "review"
	LaneArchived Lane = "archived"
)

func (l Lane) String() string {
	return string(l)
}

// IsValid returns true if the lane is known.
func (l Lane) IsValid() bool {
	return l == LaneReview || l == LaneArchived
}

// LaneOf returns the lane a specification belongs in given its timestamps.
func LaneOf(s Specification) Lane {
	if s.IsArchived() {
		return LaneArchived
	}
	return LaneReview
}

// Archive returns a copy of s stamped as archived at now. It refuses with an
// *ArchivalBlockedError when blockers remain. The archive timestamp never
// precedes CompletedAt.
func Archive(s Specification, now time.Time) (Specification, error) {
	if blockers := ComputeArchivalBlockers(s); len(blockers) > 0 {
		return s, &ArchivalBlockedError{SpecID: s.ID, Blockers: blockers}
	}

	at := now
	if s.CompletedAt != nil && at.Before(*s.CompletedAt) {
		at = *s.CompletedAt
	}

	out := s.Clone()
	out.ArchivedAt = &at
	return out, nil
}

// Unarchive returns a copy of s moved back to review. Reopening is always
// permitted, so no blockers are checked.
func Unarchive(s Specification) Specification {
	out := s.Clone()
	out.ArchivedAt = nil
	return out
}
