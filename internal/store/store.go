package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	defaultDir    = "migrations"
	maxSlugLength = 50
)

var (
	fileNamePattern = regexp.MustCompile(`^(\d{4})_([a-z0-9_]+)\.sql$`)
	slugSanitizer   = regexp.MustCompile(`[^a-z0-9_]+`)
)

// MigrationFile is one stored migration artifact.
type MigrationFile struct {
	Number   int
	Name     string
	Filename string
	Path     string
	SQL      string
}

// PendingMigration is a stored migration whose filename is not yet in the
// applied ledger.
type PendingMigration struct {
	Filename string
	SQL      string
}

// Store manages the numbered migration artifacts under a directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	if strings.TrimSpace(dir) == "" {
		dir = defaultDir
	}
	return &Store{dir: dir}
}

// Directory returns the configured migration directory.
func (s *Store) Directory() string {
	return s.dir
}

// Slug derives a filesystem-safe name from a free-text description: lower
// case, runs of characters outside [a-z0-9_] collapsed to one underscore,
// trimmed, capped, with a fixed fallback when nothing survives.
func Slug(description string) string {
	slug := strings.ToLower(strings.TrimSpace(description))
	slug = slugSanitizer.ReplaceAllString(slug, "_")
	slug = strings.Trim(slug, "_")
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}
	if slug == "" {
		return "migration"
	}
	return slug
}

// NextNumber returns one greater than the highest stored migration number, or
// 1 for an empty store.
func (s *Store) NextNumber() (int, error) {
	files, err := s.All()
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 1, nil
	}
	return files[len(files)-1].Number + 1, nil
}

// Save persists the SQL under the next sequence number with a slug derived
// from the description.
func (s *Store) Save(description, sqlText string) (MigrationFile, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return MigrationFile{}, fmt.Errorf("failed to create migration directory: %w", err)
	}

	number, err := s.NextNumber()
	if err != nil {
		return MigrationFile{}, err
	}

	name := Slug(description)
	filename := fmt.Sprintf("%04d_%s.sql", number, name)
	path := filepath.Join(s.dir, filename)

	if err := os.WriteFile(path, []byte(sqlText), 0o644); err != nil {
		return MigrationFile{}, fmt.Errorf("failed to write migration %s: %w", filename, err)
	}

	return MigrationFile{
		Number:   number,
		Name:     name,
		Filename: filename,
		Path:     path,
		SQL:      sqlText,
	}, nil
}

// All returns every stored migration in ascending numeric order. Filenames
// that do not follow the NNNN_name.sql convention are skipped, since the
// directory may hold incidental files.
func (s *Store) All() ([]MigrationFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}

	var files []MigrationFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := fileNamePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		number, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}

		files = append(files, MigrationFile{
			Number:   number,
			Name:     match[2],
			Filename: entry.Name(),
			Path:     path,
			SQL:      string(data),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Number < files[j].Number
	})

	return files, nil
}

// Pending returns the stored migrations whose filenames are absent from the
// applied set, preserving store order.
func (s *Store) Pending(applied []string) ([]PendingMigration, error) {
	files, err := s.All()
	if err != nil {
		return nil, err
	}

	appliedSet := make(map[string]struct{}, len(applied))
	for _, filename := range applied {
		appliedSet[filename] = struct{}{}
	}

	var pending []PendingMigration
	for _, file := range files {
		if _, ok := appliedSet[file.Filename]; ok {
			continue
		}
		pending = append(pending, PendingMigration{
			Filename: file.Filename,
			SQL:      file.SQL,
		})
	}

	return pending, nil
}
