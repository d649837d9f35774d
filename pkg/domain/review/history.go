package review

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// History event types.
const (
	HistoryArchived   = "spec.archived"
	HistoryUnarchived = "spec.unarchived"
	HistoryChanged    = "spec.changed"
)

// HistoryEntry records one applied change to a specification. Entries are
// hash-chained so edits to the history file can be detected.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	SpecID    string    `json:"spec_id"`
	Timestamp time.Time `json:"timestamp"`
	From      Lane      `json:"from,omitempty"`
	To        Lane      `json:"to,omitempty"`
	Fields    []string  `json:"fields,omitempty"`
	PrevHash  string    `json:"prev_hash"`
	Hash      string    `json:"hash"`
}

// CalculateHash returns the SHA256 of the entry's content and PrevHash.
func (e *HistoryEntry) CalculateHash() string {
	h := sha256.New()
	h.Write([]byte(e.PrevHash))
	h.Write([]byte(e.ID))
	h.Write([]byte(e.Timestamp.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte(e.Type))
	h.Write([]byte(e.SpecID))
	h.Write([]byte(e.From))
	h.Write([]byte(e.To))
	h.Write([]byte(strings.Join(e.Fields, ",")))
	return hex.EncodeToString(h.Sum(nil))
}
