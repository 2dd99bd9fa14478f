package cms

import (
	"fmt"
	"os"
	"path/filepath"

	"campus-cms/pkg/fsutils"
)

// Backup copies the store's data and the uploads directory under dst.
func (m *Manager) Backup(dst string) error {
	if err := fsutils.CreateDir(dst); err != nil {
		return fmt.Errorf("failed to create backup directory %q: %w", dst, err)
	}

	src := m.store.GetBasePath()
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat data path %q: %w", src, err)
	}
	if info.IsDir() {
		err = fsutils.CopyDir(src, filepath.Join(dst, "data"))
	} else {
		err = copyDataFile(src, filepath.Join(dst, filepath.Base(src)))
	}
	if err != nil {
		return err
	}

	if _, err := os.Stat(m.uploadsDir); err == nil {
		if err := fsutils.CopyDir(m.uploadsDir, filepath.Join(dst, "uploads")); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat uploads directory %q: %w", m.uploadsDir, err)
	}
	m.logger.Info("Backup complete", "destination", dst)
	return nil
}

func copyDataFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("failed to write %q: %w", dst, err)
	}
	return nil
}
