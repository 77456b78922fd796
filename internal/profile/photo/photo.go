// Package photo stores profile photo bytes under opaque references. The
// profile record keeps only the reference.
package photo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/platform/sentinel"
)

// MaxSize bounds a single photo.
const MaxSize = 10 << 20

const fileExt = ".img"

// FileStore keeps each photo as <dir>/<photo-id>.img.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

type Option func(*FileStore)

func WithLogger(logger *slog.Logger) Option {
	return func(s *FileStore) {
		s.logger = logger
	}
}

func NewFileStore(dir string, opts ...Option) *FileStore {
	s := &FileStore{
		dir:    dir,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Save stores data and returns its new reference.
func (s *FileStore) Save(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "photo is empty")
	}
	if len(data) > MaxSize {
		return "", dErrors.New(dErrors.CodeInvalidInput, "photo is too large")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return "", fmt.Errorf("create photo dir: %w", err)
	}

	ref := id.NewPhotoID()
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create photo temp file: %w", err)
	}
	tmpName := tmp.Name()
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write photo: %w", err)
	}
	if err := os.Rename(tmpName, s.path(ref)); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("store photo: %w", err)
	}
	return ref.String(), nil
}

// Load returns the bytes behind ref, or sentinel.ErrNotFound.
func (s *FileStore) Load(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	photoID, err := id.ParsePhotoID(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(photoID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	return data, nil
}

// Delete removes the photo behind ref. Missing photos are not an error.
func (s *FileStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	photoID, err := id.ParsePhotoID(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(s.path(photoID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}

// Sweep deletes every stored photo except keep, plus abandoned uploads.
// It returns how many files were removed.
func (s *FileStore) Sweep(ctx context.Context, keep ...string) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("list photos: %w", err)
	}

	kept := make(map[string]struct{}, len(keep))
	for _, ref := range keep {
		kept[ref+fileExt] = struct{}{}
	}

	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		name := entry.Name()
		if entry.IsDir() || !isManaged(name) {
			continue
		}
		if _, ok := kept[name]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("sweep photo %s: %w", name, err)
		}
		removed++
		s.logger.DebugContext(ctx, "swept orphaned photo", "file", name)
	}
	return removed, nil
}

func (s *FileStore) path(ref id.PhotoID) string {
	return filepath.Join(s.dir, ref.String()+fileExt)
}

func isManaged(name string) bool {
	if matched, _ := filepath.Match(".upload-*", name); matched {
		return true
	}
	if filepath.Ext(name) != fileExt {
		return false
	}
	_, err := id.ParsePhotoID(name[:len(name)-len(fileExt)])
	return err == nil
}
