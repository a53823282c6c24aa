// Package archive bundles the zip packing and unpacking
// used for project downloads and remote job results.
package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Zip packs the contents of folder into a zip archive at
// dest. Files already carrying a .zip suffix are skipped
// so a previously produced archive never nests itself.
func Zip(folder, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	w := zip.NewWriter(out)
	defer w.Close()

	return filepath.Walk(folder, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || strings.HasSuffix(path, ".zip") {
			return nil
		}

		rel, err := filepath.Rel(folder, path)
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		entry, err := w.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		_, err = io.Copy(entry, f)
		return err
	})
}

// Unzip extracts the archive at src into folder. Entries
// escaping the target folder are rejected.
func Unzip(src, folder string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, entry := range r.File {
		dest := filepath.Join(folder, filepath.FromSlash(entry.Name))

		if !strings.HasPrefix(dest, filepath.Clean(folder)+string(os.PathSeparator)) {
			return errors.Errorf("archive entry escapes target folder: %v", entry.Name)
		}

		if entry.FileInfo().IsDir() {
			if err = os.MkdirAll(dest, 0o755); err != nil {
				return err
			}
			continue
		}

		if err = os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}

		if err = extract(entry, dest); err != nil {
			return err
		}
	}

	return nil
}

func extract(entry *zip.File, dest string) error {
	in, err := entry.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
