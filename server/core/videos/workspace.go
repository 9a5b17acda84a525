package videos

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	outputPrefix       = "processed_"
	thumbnailExtension = ".jpg"
)

// Workspace owns the uploads and outputs directories. All names it hands out
// are derived from a per-request id, never from the client's file name.
type Workspace struct {
	uploadsDir string
	outputsDir string
}

// NewWorkspace creates both directories if needed
func NewWorkspace(uploadsDir, outputsDir string) (*Workspace, error) {
	for _, dir := range []string{uploadsDir, outputsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return &Workspace{uploadsDir: uploadsDir, outputsDir: outputsDir}, nil
}

func (w *Workspace) UploadsDir() string { return w.uploadsDir }
func (w *Workspace) OutputsDir() string { return w.outputsDir }

// SaveUpload copies body verbatim into uploads/<id><ext>. The file is created
// exclusively so a reused id can never clobber another request's upload.
func (w *Workspace) SaveUpload(id, originalFilename, ext string, body io.Reader) (*UploadedVideo, error) {
	path := filepath.Join(w.uploadsDir, id+ext)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch file: %w", err)
	}

	if _, err := io.Copy(file, body); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write scratch file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to close scratch file: %w", err)
	}

	return &UploadedVideo{
		OriginalFilename: originalFilename,
		StoragePath:      path,
		Extension:        ext,
	}, nil
}

// OutputName is the stored name of the annotated video for a request id
func OutputName(id, ext string) string {
	return outputPrefix + id + ext
}

// ThumbnailName is the stored name of the thumbnail for a request id
func ThumbnailName(id string) string {
	return outputPrefix + id + thumbnailExtension
}

// OutputPath returns the absolute-or-relative path of a stored output name
func (w *Workspace) OutputPath(name string) string {
	return filepath.Join(w.outputsDir, name)
}

// ResolveOutput maps a client supplied name to a file in the outputs directory.
// Anything that is not a plain, existing, regular file there is reported as not found.
func (w *Workspace) ResolveOutput(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return "", NewNotFoundError(name)
	}

	path := filepath.Join(w.outputsDir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", NewNotFoundError(name)
	}
	return path, nil
}

// Remove deletes path. A path that is already gone is not an error.
func (w *Workspace) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ClearUploads removes every regular file left in the uploads directory,
// e.g. after a crash mid-request. It returns the number of files removed.
func (w *Workspace) ClearUploads() (int, error) {
	entries, err := os.ReadDir(w.uploadsDir)
	if err != nil {
		return 0, fmt.Errorf("failed to list uploads: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(w.uploadsDir, entry.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}
