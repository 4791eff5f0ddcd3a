// Package offline keeps registrations that arrived while the database was
// unreachable. Entries are stored as JSON lines in a single file and replayed
// by an administrator once the database is back.
package offline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yigit/lingoschool/internal/pkg/logger"
)

const queueFile = "registrations.jsonl"

var (
	// ErrEntryNotFound is returned when removing an unknown offline ID
	ErrEntryNotFound = errors.New("offline entry not found")
	// ErrDuplicateID is returned by Append when the offline ID is already queued
	ErrDuplicateID = errors.New("offline ID already queued")
)

// Entry is one queued registration
type Entry struct {
	OfflineID string          `json:"offlineId"`
	QueuedAt  time.Time       `json:"queuedAt"`
	Payload   json.RawMessage `json:"payload"`
}

// line is one physical line of the queue file. raw is kept verbatim so that
// lines which do not decode survive a rewrite.
type line struct {
	raw   []byte
	entry *Entry
}

// Queue is a file-backed registration queue
type Queue struct {
	path string
	mu   sync.Mutex
}

// NewQueue creates the queue directory if needed
func NewQueue(dir string) (*Queue, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		logger.Error().Err(err).Str("path", dir).Msg("Failed to create offline registration directory")
		return nil, fmt.Errorf("failed to create offline directory %s: %w", dir, err)
	}
	return &Queue{path: filepath.Join(dir, queueFile)}, nil
}

// Append adds an entry. payload is marshalled to JSON. An ID that is already
// queued is rejected with ErrDuplicateID; callers pick a new one and retry.
func (q *Queue) Append(offlineID string, payload interface{}, queuedAt time.Time) (*Entry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode offline payload: %w", err)
	}
	entry := &Entry{OfflineID: offlineID, QueuedAt: queuedAt.UTC(), Payload: raw}
	encoded, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode offline entry: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	lines, err := q.readLocked()
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		if l.entry != nil && l.entry.OfflineID == offlineID {
			return nil, ErrDuplicateID
		}
	}

	f, err := os.OpenFile(q.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to open offline queue: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(encoded, '\n')); err != nil {
		return nil, fmt.Errorf("failed to write offline entry: %w", err)
	}
	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync offline queue: %w", err)
	}

	logger.Warn().Str("offlineId", offlineID).Msg("Registration queued offline")
	return entry, nil
}

// List returns all queued entries in arrival order. Lines that cannot be
// decoded are skipped and logged but stay in the file.
func (q *Queue) List() ([]Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	lines, err := q.readLocked()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(lines))
	for _, l := range lines {
		if l.entry != nil {
			entries = append(entries, *l.entry)
		}
	}
	return entries, nil
}

// Remove deletes one entry per given offline ID, the oldest first. Lines that
// cannot be decoded are written back unchanged.
func (q *Queue) Remove(offlineIDs ...string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	lines, err := q.readLocked()
	if err != nil {
		return err
	}

	drop := make(map[string]int, len(offlineIDs))
	for _, id := range offlineIDs {
		drop[id]++
	}

	kept := lines[:0]
	removed := 0
	for _, l := range lines {
		if l.entry != nil && drop[l.entry.OfflineID] > 0 {
			drop[l.entry.OfflineID]--
			removed++
			continue
		}
		kept = append(kept, l)
	}
	if removed == 0 && len(offlineIDs) > 0 {
		return ErrEntryNotFound
	}
	return q.rewriteLocked(kept)
}

func (q *Queue) readLocked() ([]line, error) {
	data, err := os.ReadFile(q.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read offline queue: %w", err)
	}

	var lines []line
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		l := line{raw: append([]byte(nil), raw...)}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			logger.Warn().Err(err).Int("line", lineNo).Msg("Skipping unreadable offline entry")
		} else {
			l.entry = &e
		}
		lines = append(lines, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan offline queue: %w", err)
	}
	return lines, nil
}

// rewriteLocked replaces the file atomically through a temp file and rename
func (q *Queue) rewriteLocked(lines []line) error {
	tmp := q.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("failed to open temp offline queue: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, l := range lines {
		w.Write(l.raw)
		if err := w.WriteByte('\n'); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("failed to write offline entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to flush offline queue: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close offline queue: %w", err)
	}
	return os.Rename(tmp, q.path)
}
