package watch

import (
	"path/filepath"
)

// PatternFilter selects which paths are worth reporting. Patterns are globs
// matched against both the base name and the full path.
type PatternFilter struct {
	Include []string
	Exclude []string
}

// NewPatternFilter creates a new pattern filter.
func NewPatternFilter(include, exclude []string) *PatternFilter {
	return &PatternFilter{
		Include: include,
		Exclude: exclude,
	}
}

// FileFilter reports only name, ignoring the temporary files atomic
// writes leave behind.
func FileFilter(name string) *PatternFilter {
	return NewPatternFilter([]string{name}, []string{"*.tmp", "*.swp", "*~"})
}

// Matches reports whether path passes the filter. Excludes win over
// includes; an empty include list admits everything not excluded.
func (f *PatternFilter) Matches(path string) bool {
	if f == nil {
		return true
	}
	if matchAny(f.Exclude, path) {
		return false
	}
	return len(f.Include) == 0 || matchAny(f.Include, path)
}

func matchAny(patterns []string, path string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, path); ok {
			return true
		}
	}
	return false
}
