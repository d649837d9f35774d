package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eitatech/gatomia/internal/infrastructure/config"
	"github.com/eitatech/gatomia/internal/infrastructure/wiring"
)

func getWorkspaceRoot() (string, error) {
	if workspaceRoot != "" {
		abs, err := filepath.Abs(workspaceRoot)
		if err != nil {
			return "", fmt.Errorf("invalid workspace root %q: %w", workspaceRoot, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("workspace root %q: %w", abs, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("workspace root %q is not a directory", abs)
		}
		return abs, nil
	}
	return os.Getwd()
}

// openSession builds and opens a review session for the workspace. Logs go
// to stderr so command output stays parseable.
func openSession(ctx context.Context) (*wiring.Session, error) {
	root, err := getWorkspaceRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, NewCLIError("invalid configuration", "Check .gatomia/config.yaml and GATOMIA_* variables", err)
	}

	session, err := wiring.NewSession(root, cfg, cfg.NewLogger(os.Stderr))
	if err != nil {
		return nil, err
	}

	if err := session.Open(ctx, cfg.SyncTimeout+cfg.RequestTimeout); err != nil {
		_ = session.Close()
		return nil, NewCLIError("could not load specifications", "Check .gatomia/specs.yaml", err)
	}
	return session, nil
}
