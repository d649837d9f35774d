package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"gopkg.in/yaml.v3"

	"github.com/eitatech/gatomia/pkg/domain/review"
)

const DataDir = ".gatomia"
const SpecsFile = "specs.yaml"
const ConfigFile = "config.yaml"

var (
	// ErrConflict indicates the lanes file changed on disk since it was loaded.
	ErrConflict = errors.New("lanes file was modified concurrently")
	// ErrInvalidLanes indicates a lanes document failed validation.
	ErrInvalidLanes = errors.New("invalid lanes")
)

// ConflictError reports the version mismatch behind ErrConflict.
type ConflictError struct {
	Expected int
	Actual   int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("lanes version conflict: expected %d, found %d on disk", e.Expected, e.Actual)
}

// Is allows errors.Is to work with ConflictError.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Lanes is the persisted form of both specification lanes.
type Lanes struct {
	Version  int                    `yaml:"version"`
	Review   []review.Specification `yaml:"review"`
	Archived []review.Specification `yaml:"archived"`
}

// Validate checks every specification and the lane partition.
func (l *Lanes) Validate() []error {
	var errs []error
	seen := make(map[string]review.Lane)
	check := func(lane review.Lane, specs []review.Specification) {
		for _, s := range specs {
			for _, err := range s.Validate() {
				errs = append(errs, err)
			}
			if prev, ok := seen[s.ID]; ok && s.ID != "" {
				errs = append(errs, fmt.Errorf("specification '%s' appears in both the %s and %s lanes", s.ID, prev, lane))
			}
			seen[s.ID] = lane
		}
	}
	check(review.LaneReview, l.Review)
	check(review.LaneArchived, l.Archived)
	return errs
}

type FilesystemRepository struct {
	root        string
	retryConfig retry.Config
}

func NewFilesystemRepository(root string) *FilesystemRepository {
	return &FilesystemRepository{
		root: root,
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  10 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// Root returns the workspace root directory.
func (r *FilesystemRepository) Root() string {
	return r.root
}

// DataPath returns the .gatomia directory of the workspace.
func (r *FilesystemRepository) DataPath() string {
	return filepath.Join(r.root, DataDir)
}

// ResolvePath ensures the path is within the .gatomia directory and prevents traversal.
func (r *FilesystemRepository) ResolvePath(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}

	baseDir := r.DataPath()
	cleanPath := filepath.Clean(filepath.Join(baseDir, filename))

	if !strings.HasPrefix(cleanPath, baseDir) || filepath.Dir(cleanPath) != baseDir {
		return "", fmt.Errorf("invalid file path: %s", filename)
	}

	return cleanPath, nil
}

func (r *FilesystemRepository) Initialize() error {
	// G301: Use 0700 for directories
	if err := os.MkdirAll(r.DataPath(), 0700); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", DataDir, err)
	}
	return nil
}

func (r *FilesystemRepository) IsInitialized() bool {
	_, err := os.Stat(r.DataPath())
	return err == nil
}

// LoadLanes reads both lanes. A missing file yields empty lanes; a document
// that fails validation is rejected with ErrInvalidLanes.
func (r *FilesystemRepository) LoadLanes(ctx context.Context) (*Lanes, error) {
	retryer := retry.New[*Lanes](r.retryConfig)

	lanes, err := retryer.Do(ctx, func(ctx context.Context) (*Lanes, error) {
		path, err := r.ResolvePath(SpecsFile)
		if err != nil {
			return nil, err
		}

		// #nosec G304 -- Path is resolved and validated via ResolvePath
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return &Lanes{}, nil
			}
			return nil, fmt.Errorf("failed to read specs file: %w", err)
		}

		var lanes Lanes
		if err := yaml.Unmarshal(data, &lanes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal specs: %w", err)
		}
		return &lanes, nil
	})
	if err != nil {
		return nil, err
	}
	if errs := lanes.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%s: %w: %w", SpecsFile, ErrInvalidLanes, errors.Join(errs...))
	}
	return lanes, nil
}

// SaveLanes writes both lanes with optimistic locking on Version. On success
// lanes.Version is incremented.
func (r *FilesystemRepository) SaveLanes(lanes *Lanes) error {
	if errs := lanes.Validate(); len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidLanes, errors.Join(errs...))
	}

	path, err := r.ResolvePath(SpecsFile)
	if err != nil {
		return err
	}

	// #nosec G304 -- Path is resolved and validated via ResolvePath
	existing, err := os.ReadFile(path)
	if err == nil {
		var disk Lanes
		if yamlErr := yaml.Unmarshal(existing, &disk); yamlErr == nil && disk.Version != lanes.Version {
			return &ConflictError{Expected: lanes.Version, Actual: disk.Version}
		}
	}

	next := *lanes
	next.Version++

	data, err := yaml.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to marshal specs: %w", err)
	}

	if err := r.Initialize(); err != nil {
		return err
	}

	tmp := path + ".tmp"
	// G306: Use 0600 for files
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write specs file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace specs file: %w", err)
	}

	lanes.Version = next.Version
	return nil
}
