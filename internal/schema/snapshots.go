package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const defaultHistoryDir = "migrations/meta"

var snapshotNamePattern = regexp.MustCompile(`^(\d{4})_snapshot\.json$`)

// History persists schema snapshots as numbered JSON files so the next
// generation run can diff against the last recorded state.
type History struct {
	dir string
}

func NewHistory(dir string) *History {
	if strings.TrimSpace(dir) == "" {
		dir = defaultHistoryDir
	}
	return &History{dir: dir}
}

// Directory returns the configured snapshot directory.
func (h *History) Directory() string {
	return h.dir
}

// Latest loads the highest-numbered snapshot, or nil when none has been
// recorded yet.
func (h *History) Latest() (*Snapshot, error) {
	name, _, err := h.latestEntry()
	if err != nil || name == "" {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(h.dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", name, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", name, err)
	}

	return &snap, nil
}

// Save writes the snapshot under the next sequence number and returns the
// resulting path.
func (h *History) Save(snap Snapshot) (string, error) {
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	_, highest, err := h.latestEntry()
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	data = append(data, '\n')

	name := fmt.Sprintf("%04d_snapshot.json", highest+1)
	path := filepath.Join(h.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot %s: %w", name, err)
	}

	return path, nil
}

func (h *History) latestEntry() (string, int, error) {
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", 0, nil
		}
		return "", 0, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var name string
	highest := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := snapshotNamePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		number, err := strconv.Atoi(match[1])
		if err != nil || number <= highest {
			continue
		}
		highest = number
		name = entry.Name()
	}

	return name, highest, nil
}
