package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// FileSystem wraps the Afero Fs interface
type FileSystem struct {
	Fs afero.Fs
}

// NewMemoryFileSystem creates a new in-memory file system
func NewMemoryFileSystem() *FileSystem {
	return &FileSystem{
		Fs: afero.NewMemMapFs(),
	}
}

// NewOsFileSystem creates an OS-based file system rooted at root. All paths
// handed to the returned FileSystem are relative to root.
func NewOsFileSystem(root string) *FileSystem {
	return &FileSystem{
		Fs: afero.NewBasePathFs(afero.NewOsFs(), root),
	}
}

// Selector picks files below Base. Patterns are doublestar globs matched
// against slash-separated paths relative to Base.
type Selector struct {
	Base    string
	Include []string
	Exclude []string
}

func (s Selector) String() string {
	var b strings.Builder
	for i, p := range s.Include {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(filepath.ToSlash(filepath.Join(s.Base, p)))
	}
	for _, p := range s.Exclude {
		b.WriteString(", !")
		b.WriteString(filepath.ToSlash(filepath.Join(s.Base, p)))
	}
	return b.String()
}

// Match returns the paths, relative to sel.Base, of regular files selected by
// sel in lexical order. A missing Base yields no matches.
func (fs *FileSystem) Match(sel Selector) ([]string, error) {
	for _, p := range append(append([]string{}, sel.Include...), sel.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, doublestar.ErrBadPattern)
		}
	}

	var matches []string
	err := afero.Walk(fs.Fs, sel.Base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(sel.Base, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if matchAny(sel.Include, rel) && !matchAny(sel.Exclude, rel) {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking %s: %w", sel.Base, err)
	}

	sort.Strings(matches)
	return matches, nil
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if doublestar.MatchUnvalidated(p, name) {
			return true
		}
	}
	return false
}

// ReadFile returns the content of path.
func (fs *FileSystem) ReadFile(path string) ([]byte, error) {
	data, err := afero.ReadFile(fs.Fs, path)
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", path, err)
	}
	return data, nil
}

// WriteFile creates a new file with the given content or overwrites an
// existing file with the content, creating parent directories as needed.
func (fs *FileSystem) WriteFile(path string, content []byte) error {
	if err := fs.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := afero.WriteFile(fs.Fs, path, content, 0644); err != nil {
		return fmt.Errorf("error writing file %s: %w", path, err)
	}
	return nil
}

// CopyFile copies a file from src to dst
func (fs *FileSystem) CopyFile(src, dst string) error {
	sourceFile, err := fs.Fs.Open(src)
	if err != nil {
		return fmt.Errorf("error opening source file: %w", err)
	}
	defer sourceFile.Close()

	if err := fs.EnsureDir(filepath.Dir(dst)); err != nil {
		return err
	}

	dstFile, err := fs.Fs.Create(dst)
	if err != nil {
		return fmt.Errorf("error creating destination file: %w", err)
	}

	if _, err = io.Copy(dstFile, sourceFile); err != nil {
		dstFile.Close()
		return fmt.Errorf("error copying file: %w", err)
	}
	if err := dstFile.Close(); err != nil {
		return fmt.Errorf("error closing destination file: %w", err)
	}
	return nil
}

// EnsureDir ensures that the specified directory exists
func (fs *FileSystem) EnsureDir(dir string) error {
	if err := fs.Fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory %s: %w", dir, err)
	}
	return nil
}

// RemoveTree deletes root and everything below it, except regular files
// whose root-relative path matches one of the keep globs. Directories left
// empty are pruned; directories holding kept files survive.
func (fs *FileSystem) RemoveTree(root string, keep []string) error {
	if len(keep) == 0 {
		if err := fs.Fs.RemoveAll(root); err != nil {
			return fmt.Errorf("error removing %s: %w", root, err)
		}
		return nil
	}
	for _, p := range keep {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid keep pattern %q: %w", p, doublestar.ErrBadPattern)
		}
	}

	var dirs []string
	err := afero.Walk(fs.Fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			dirs = append(dirs, path)
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if matchAny(keep, filepath.ToSlash(rel)) {
			return nil
		}
		return fs.Fs.Remove(path)
	})
	if err != nil {
		return fmt.Errorf("error cleaning %s: %w", root, err)
	}

	// Deepest first so parents see their children already gone.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		empty, err := afero.IsEmpty(fs.Fs, dir)
		if err != nil {
			return fmt.Errorf("error inspecting %s: %w", dir, err)
		}
		if !empty {
			continue
		}
		if err := fs.Fs.Remove(dir); err != nil {
			return fmt.Errorf("error removing %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists checks if a file exists
func (fs *FileSystem) FileExists(path string) bool {
	_, err := fs.Fs.Stat(path)
	return err == nil
}

// IsDir checks if a path is a directory
func (fs *FileSystem) IsDir(path string) bool {
	info, err := fs.Fs.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
