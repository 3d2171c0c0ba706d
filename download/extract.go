package download

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// extractDir is the folder an archive unpacks into: its path minus the extension.
func extractDir(archive string) string {
	return strings.TrimSuffix(archive, filepath.Ext(archive))
}

func isArchive(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".zip")
}

// extract unpacks archive into extractDir(archive) and returns the files written.
// Entries that would land outside that folder are rejected.
func extract(archive string) ([]string, error) {
	reader, err := zip.OpenReader(archive)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	dest := extractDir(archive)
	var written []string
	for _, entry := range reader.File {
		if !filepath.IsLocal(entry.Name) {
			return written, fmt.Errorf("archive entry %q escapes %s", entry.Name, dest)
		}
		target := filepath.Join(dest, filepath.FromSlash(entry.Name))
		if entry.FileInfo().IsDir() {
			if err = os.MkdirAll(target, 0o755); err != nil {
				return written, err
			}
			continue
		}
		if err = extractFile(entry, target); err != nil {
			return written, fmt.Errorf("extract %s: %w", entry.Name, err)
		}
		written = append(written, target)
	}
	return written, nil
}

func extractFile(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err = io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
