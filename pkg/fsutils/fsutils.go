package fsutils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrTooLarge is returned by SaveStream when the input exceeds the limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// CreateDir creates a directory if it doesn't exist.
func CreateDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a path exists and is a regular file (not a directory).
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		// Missing paths and stat failures both count as "not there".
		return false
	}
	return !info.IsDir()
}

// RemoveFile deletes a file. A missing file is not an error.
func RemoveFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %q: %w", path, err)
	}
	return nil
}

// SafeJoin joins rel onto base and rejects results that escape base.
func SafeJoin(base, rel string) (string, error) {
	cleanBase := filepath.Clean(base)
	joined := filepath.Join(cleanBase, filepath.FromSlash(rel))
	r, err := filepath.Rel(cleanBase, joined)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes %q", rel, base)
	}
	return joined, nil
}

// UniqueFilename returns a sanitized version of name that does not exist in
// dir yet, appending -2, -3... before the extension when needed.
func UniqueFilename(dir, name string) string {
	clean := SanitizeFilename(name)
	ext := filepath.Ext(clean)
	stem := strings.TrimSuffix(clean, ext)
	if stem == "" || stem == "_" {
		stem = "file"
	}
	candidate := stem + ext
	for n := 2; FileExists(filepath.Join(dir, candidate)); n++ {
		candidate = fmt.Sprintf("%s-%d%s", stem, n, ext)
	}
	return candidate
}

// SaveStream copies r into dir under a unique name derived from name and
// returns the stored file name and its size. limit <= 0 disables the size
// check. A partial file is removed on failure.
func SaveStream(dir, name string, r io.Reader, limit int64) (string, int64, error) {
	if err := CreateDir(dir); err != nil {
		return "", 0, fmt.Errorf("failed to create upload directory %q: %w", dir, err)
	}
	stored := UniqueFilename(dir, name)
	path := filepath.Join(dir, stored)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create %q: %w", path, err)
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && limit > 0 && n > limit {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("failed to write %q: %w", path, err)
	}
	return stored, n, nil
}

// CopyDir recursively copies a directory from src to dst.
// It creates the destination directory if it doesn't exist.
// Existing files in the destination will be overwritten.
func CopyDir(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat source directory %q: %w", src, err)
	}
	if !srcInfo.IsDir() {
		return fmt.Errorf("source %q is not a directory", src)
	}

	if err := os.MkdirAll(dst, srcInfo.Mode()); err != nil {
		return fmt.Errorf("failed to create destination directory %q: %w", dst, err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("failed to read source directory %q: %w", src, err)
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := CopyDir(srcPath, dstPath); err != nil {
				return fmt.Errorf("failed to copy subdirectory %q to %q: %w", srcPath, dstPath, err)
			}
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return fmt.Errorf("failed to copy file %q to %q: %w", srcPath, dstPath, err)
		}
	}
	return nil
}

// copyFile copies a single file from src to dst, keeping its permissions.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file %q: %w", src, err)
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source file %q: %w", src, err)
	}

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		return fmt.Errorf("failed to create destination file %q: %w", dst, err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy data from %q to %q: %w", src, dst, err)
	}
	return nil
}

// nonFilenameChars matches anything outside lowercase letters, digits,
// underscores, hyphens and periods.
var nonFilenameChars = regexp.MustCompile(`[^a-z0-9_.-]+`)
var collapseUnderscoreRegex = regexp.MustCompile(`_+`)

// SanitizeFilename converts a string into a safe file name: lowercase, spaces
// and disallowed characters replaced with underscores, repeats collapsed and
// any directory part dropped.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	base := name
	if i := strings.LastIndex(name, "/"); i >= 0 {
		base = name[i+1:]
	}
	trimmed := strings.TrimSpace(strings.ToLower(base))
	noSpaces := strings.ReplaceAll(trimmed, " ", "_")
	sanitized := nonFilenameChars.ReplaceAllString(noSpaces, "_")
	collapsed := collapseUnderscoreRegex.ReplaceAllString(sanitized, "_")
	collapsed = strings.TrimLeft(collapsed, ".")

	if collapsed == "" && name != "" {
		return "_"
	}
	return collapsed
}
