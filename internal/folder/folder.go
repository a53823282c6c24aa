// Package folder abstracts directory listings so stage
// derivation and template validation can run against
// snapshots instead of a live filesystem.
package folder

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Lister enumerates the regular files of a folder. Only
// file names are returned, never subdirectories.
type Lister interface {
	List(folder string) ([]string, error)
	Size(folder, name string) (int64, error)
}

// OS is the Lister backed by the real filesystem.
type OS struct{}

func (OS) List(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}

	return names, nil
}

func (OS) Size(folder, name string) (int64, error) {
	info, err := os.Stat(filepath.Join(folder, name))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// ListMatching lists the files of folder whose names match
// the given glob pattern.
func ListMatching(l Lister, folder, pattern string) ([]string, error) {
	names, err := l.List(folder)
	if err != nil {
		return nil, err
	}

	matches := make([]string, 0)
	for _, name := range names {
		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, name)
		}
	}

	return matches, nil
}

// HasNonEmptyMatching reports whether folder holds at
// least one non-empty file matching the pattern. Multiple
// matches may exist; one non-empty match suffices.
func HasNonEmptyMatching(l Lister, folder, pattern string) (bool, error) {
	matches, err := ListMatching(l, folder, pattern)
	if err != nil {
		return false, err
	}

	for _, name := range matches {
		size, err := l.Size(folder, name)
		if err != nil {
			return false, err
		}
		if size > 0 {
			return true, nil
		}
	}

	return false, nil
}

// Mem is an in-memory Lister for tests: folder path to
// file name to file size.
type Mem map[string]map[string]int64

func (m Mem) List(folder string) ([]string, error) {
	files, ok := m[folder]
	if !ok {
		return nil, os.ErrNotExist
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

func (m Mem) Size(folder, name string) (int64, error) {
	files, ok := m[folder]
	if !ok {
		return 0, os.ErrNotExist
	}

	size, ok := files[name]
	if !ok {
		return 0, os.ErrNotExist
	}

	return size, nil
}
