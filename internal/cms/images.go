package cms

import (
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"campus-cms/internal/model"
	"campus-cms/internal/schema"
	"campus-cms/internal/storage"
	"campus-cms/pkg/fsutils"
)

// SaveUpload stores a file in the uploads directory and records it in the
// image library. mimeType is guessed from the file name when empty.
func (m *Manager) SaveUpload(filename, mimeType string, r io.Reader) (*model.Image, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, schema.ValidationErrors{{Field: "file", Message: "A file is required"}}
	}
	if mimeType == "" {
		mimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	}

	stored, size, err := fsutils.SaveStream(m.uploadsDir, filename, r, m.maxUpload)
	if err != nil {
		m.logger.Error("Failed to store upload", "filename", filename, "error", err)
		return nil, err
	}

	img := &model.Image{
		ID:         uuid.NewString(),
		Filename:   stored,
		Original:   filename,
		URL:        path.Join(m.uploadsURL, stored),
		MimeType:   mimeType,
		Size:       size,
		UploadedAt: m.timestamp(),
	}
	if err := m.save(storage.KindImage, img.ID, img); err != nil {
		fsutils.RemoveFile(filepath.Join(m.uploadsDir, stored))
		return nil, err
	}
	m.logger.Info("Stored upload", "id", img.ID, "file", stored, "size", size)
	return img, nil
}

// UploadImage is SaveUpload restricted to image MIME types.
func (m *Manager) UploadImage(filename, mimeType string, r io.Reader) (*model.Image, error) {
	if mimeType == "" {
		mimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, schema.ValidationErrors{{Field: "file", Message: fmt.Sprintf("%q is not an image", filename)}}
	}
	return m.SaveUpload(filename, mimeType, r)
}

// ListImages returns the library, newest first.
func (m *Manager) ListImages() ([]*model.Image, error) {
	images, err := storage.LoadAll[model.Image](m.store, storage.KindImage)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].UploadedAt.After(images[j].UploadedAt)
	})
	return images, nil
}

// DeleteImage removes the file and its library record.
func (m *Manager) DeleteImage(id string) error {
	var img model.Image
	if err := m.load(storage.KindImage, id, &img); err != nil {
		return err
	}
	p, err := fsutils.SafeJoin(m.uploadsDir, img.Filename)
	if err != nil {
		return err
	}
	if err := fsutils.RemoveFile(p); err != nil {
		return err
	}
	return m.store.Delete(storage.KindImage, id)
}
