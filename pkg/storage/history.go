package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eitatech/gatomia/pkg/domain/review"
)

const HistoryFile = "history.jsonl"

// FileHistory is an append-only, hash-chained JSON Lines log of applied
// specification changes.
type FileHistory struct {
	mu       sync.RWMutex
	path     string
	dir      string
	lastHash string
}

// NewFileHistory opens the history log in dir. The directory is created on
// first append.
func NewFileHistory(dir string) (*FileHistory, error) {
	h := &FileHistory{path: filepath.Join(dir, HistoryFile), dir: dir}

	entries, err := h.load()
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		h.lastHash = entries[len(entries)-1].Hash
	}
	return h, nil
}

// Append chains entry to the log, filling in ID and Timestamp when unset.
func (h *FileHistory) Append(entry *review.HistoryEntry) (err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	entry.PrevHash = h.lastHash
	entry.Hash = entry.CalculateHash()

	if err := os.MkdirAll(h.dir, 0700); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close history file: %w", cerr)
		}
	}()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write history entry: %w", err)
	}

	h.lastHash = entry.Hash
	return nil
}

// ForSpec returns the entries of one specification, oldest first.
func (h *FileHistory) ForSpec(specID string) ([]*review.HistoryEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	all, err := h.load()
	if err != nil {
		return nil, err
	}
	var out []*review.HistoryEntry
	for _, e := range all {
		if e.SpecID == specID {
			out = append(out, e)
		}
	}
	return out, nil
}

// VerifyIntegrity reports every broken link or altered entry in the chain.
func (h *FileHistory) VerifyIntegrity() ([]string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entries, err := h.load()
	if err != nil {
		return nil, err
	}

	var violations []string
	prev := ""
	for i, e := range entries {
		if e.PrevHash != prev {
			violations = append(violations, fmt.Sprintf("entry %d (%s): previous hash mismatch", i, e.ID))
		}
		if e.Hash != e.CalculateHash() {
			violations = append(violations, fmt.Sprintf("entry %d (%s): hash mismatch", i, e.ID))
		}
		prev = e.Hash
	}
	return violations, nil
}

func (h *FileHistory) load() ([]*review.HistoryEntry, error) {
	// #nosec G304 -- path is built from the workspace data directory
	f, err := os.Open(h.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	var out []*review.HistoryEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e review.HistoryEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("unmarshal history entry: %w", err)
		}
		out = append(out, &e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	return out, nil
}
