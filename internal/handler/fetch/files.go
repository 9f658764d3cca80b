package fetch

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

var bracketed = regexp.MustCompile(`\[[^\]]*\]`)

// SanitizeFileName removes characters that are not allowed in file names on
// common file systems, drops [bracketed] segments, and trims surrounding
// whitespace and trailing dots.
func SanitizeFileName(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(`<>:"/\|?*`, r) {
			return -1
		}
		return r
	}, name)

	name = bracketed.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	return strings.TrimRight(name, ".")
}

// StripDigits removes every digit from s and trims surrounding whitespace.
func StripDigits(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return -1
		}
		return r
	}, s))
}

// ExistsWithAnyExtension reports whether dir contains a file named base with
// any extension.
func ExistsWithAnyExtension(dir, base string) (bool, error) {
	if strings.TrimSpace(dir) == "" || strings.TrimSpace(base) == "" {
		return false, errors.New("directory and file name cannot be empty")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.TrimSuffix(name, filepath.Ext(name)) == base && filepath.Ext(name) != "" {
			return true, nil
		}
	}
	return false, nil
}

// ZipDirectory archives dir into a sibling "<dir>.zip", replacing any existing
// archive, and returns the archive path.
func ZipDirectory(dir string) (string, error) {
	dir = filepath.Clean(dir)
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("source directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("source %s is not a directory", dir)
	}

	target := dir + ".zip"
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("remove existing archive: %w", err)
	}

	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}

	zw := zip.NewWriter(out)
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		_, err = io.Copy(w, f)
		return err
	})

	zipErr := zw.Close()
	closeErr := out.Close()
	if err := errors.Join(walkErr, zipErr, closeErr); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("zip %s: %w", dir, err)
	}

	return target, nil
}

// TrimLeadingWhitespace renames every file and directory under root whose
// name starts with whitespace.
func TrimLeadingWhitespace(root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}

	for _, e := range entries {
		path := filepath.Join(root, e.Name())
		trimmed := strings.TrimLeftFunc(e.Name(), unicode.IsSpace)
		if trimmed != e.Name() && trimmed != "" {
			newPath := filepath.Join(root, trimmed)
			if err := os.Rename(path, newPath); err != nil {
				return fmt.Errorf("rename %s: %w", path, err)
			}
			path = newPath
		}
		if e.IsDir() {
			if err := TrimLeadingWhitespace(path); err != nil {
				return err
			}
		}
	}
	return nil
}
