package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Outcomes recorded in Entry.Outcome.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)

// TimestampFormat is the layout of Entry.Timestamp.
const TimestampFormat = "2006-01-02T15:04:05.000000Z"

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp string `json:"ts"`      // RFC3339 with microseconds.
	Session   string `json:"session"` // Random per-process id.
	Operation string `json:"op"`      // Operation name.
	Outcome   string `json:"outcome"` // success, failure or partial.

	// Optional fields depending on operation.
	IDs       []int64 `json:"ids,omitempty"`       // For add/update/delete.
	Field     string  `json:"field,omitempty"`     // For list/update.
	Count     int     `json:"count,omitempty"`     // For list/rotate.
	Algorithm string  `json:"algorithm,omitempty"` // For login/rotate.
}

// Trail appends entries for one process to a log file.
type Trail struct {
	path    string
	session string
}

// Open returns a trail writing to path. The file is created on first write.
func Open(path string) *Trail {
	return &Trail{
		path:    path,
		session: uuid.New().String(),
	}
}

// DefaultPath returns the audit log location for a vault file.
func DefaultPath(vaultPath string) string {
	return vaultPath + ".audit.jsonl"
}

// Path returns the file the trail writes to, or "" for a nil trail.
func (t *Trail) Path() string {
	if t == nil {
		return ""
	}
	return t.path
}

// Session returns the id stamped on every entry of this trail.
func (t *Trail) Session() string {
	if t == nil {
		return ""
	}
	return t.session
}

// Log appends an entry to the audit log.
// If logging fails, it does not return an error.
// Operations should not fail just because audit logging failed.
func (t *Trail) Log(entry Entry) {
	if t == nil || t.path == "" {
		return
	}

	// Set timestamp if not already set.
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(TimestampFormat)
	}
	entry.Session = t.session
	if entry.Outcome == "" {
		entry.Outcome = OutcomeSuccess
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0700); err != nil {
		return
	}

	// The log reveals which records were touched, so it is private to the owner.
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	// Write entry with newline.
	_, _ = f.Write(append(data, '\n'))
}

// ReadEntries reads all entries from the audit log at path.
// Returns an empty slice if the log doesn't exist.
func ReadEntries(path string) ([]Entry, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				// Skip malformed entries.
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// Tail returns the last n entries, or all of them when n <= 0.
func Tail(entries []Entry, n int) []Entry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[len(entries)-n:]
}
