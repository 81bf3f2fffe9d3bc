package fs

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// WriteToZip archives every entry below srcDir into a zip file at zipPath.
// Entry names are slash-separated and relative to srcDir. It returns the
// number of files added.
func (fs *FileSystem) WriteToZip(srcDir, zipPath string) (int, error) {
	cleanSrc := filepath.Clean(srcDir)
	cleanZip := filepath.Clean(zipPath)
	if cleanZip == cleanSrc || strings.HasPrefix(cleanZip, cleanSrc+string(filepath.Separator)) {
		return 0, fmt.Errorf("zip file %s must not be inside %s", zipPath, srcDir)
	}
	if !fs.IsDir(srcDir) {
		return 0, fmt.Errorf("source directory %s: %w", srcDir, os.ErrNotExist)
	}
	if err := fs.EnsureDir(filepath.Dir(zipPath)); err != nil {
		return 0, err
	}

	zipFile, err := fs.Fs.Create(zipPath)
	if err != nil {
		return 0, fmt.Errorf("error creating zip file: %w", err)
	}
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)

	fileCount := 0
	err = afero.Walk(fs.Fs, srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		// Skip root directory
		if rel == "." {
			return nil
		}
		entry := filepath.ToSlash(rel)

		if info.IsDir() {
			if _, err := zipWriter.Create(entry + "/"); err != nil {
				return fmt.Errorf("error creating zip entry for directory %s: %w", entry, err)
			}
			return nil
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return fmt.Errorf("error building zip header for %s: %w", entry, err)
		}
		header.Name = entry
		header.Method = zip.Deflate
		// Fixed timestamps keep archives of identical trees identical.
		header.Modified = zipEpoch

		writer, err := zipWriter.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("error creating zip entry for file %s: %w", entry, err)
		}

		file, err := fs.Fs.Open(path)
		if err != nil {
			return fmt.Errorf("error opening file %s: %w", path, err)
		}
		defer file.Close()

		if _, err = io.Copy(writer, file); err != nil {
			return fmt.Errorf("error writing file %s to zip: %w", path, err)
		}

		fileCount++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("error walking file system: %w", err)
	}

	if fileCount == 0 {
		return 0, fmt.Errorf("no files to zip")
	}

	if err := zipWriter.Close(); err != nil {
		return 0, fmt.Errorf("error closing zip writer: %w", err)
	}
	if err := zipFile.Close(); err != nil {
		return 0, fmt.Errorf("error closing zip file: %w", err)
	}
	return fileCount, nil
}

var zipEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)
