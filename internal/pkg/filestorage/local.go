package filestorage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/yigit/lingoschool/internal/pkg/logger"
)

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage rooted at basePath
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	return &LocalStorage{basePath: basePath}, nil
}

// SaveBytes implements FileStorage
func (ls *LocalStorage) SaveBytes(subPath, ext string, data []byte) (string, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	relPath := filepath.ToSlash(filepath.Join(subPath, uuid.New().String()+ext))

	fullPath, err := ls.GetFullPath(relPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		logger.Error().Err(err).Str("path", fullPath).Msg("Failed to create subdirectory")
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}

	if err := os.WriteFile(fullPath, data, 0o640); err != nil {
		logger.Error().Err(err).Str("path", fullPath).Msg("Failed to write file")
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("failed to save file content: %w", err)
	}

	logger.Debug().Str("path", relPath).Int("bytes", len(data)).Msg("File saved")
	return relPath, nil
}

// ReadFile implements FileStorage
func (ls *LocalStorage) ReadFile(relPath string) ([]byte, error) {
	fullPath, err := ls.GetFullPath(relPath)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(fullPath)
}

// DeleteFile implements FileStorage
func (ls *LocalStorage) DeleteFile(relPath string) error {
	if relPath == "" {
		return nil
	}
	fullPath, err := ls.GetFullPath(relPath)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn().Str("path", fullPath).Msg("File to delete does not exist")
			return nil
		}
		logger.Error().Err(err).Str("path", fullPath).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// GetFullPath implements FileStorage. Paths that resolve outside the storage
// root are rejected.
func (ls *LocalStorage) GetFullPath(relPath string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(relPath))
	if clean == string(filepath.Separator) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, relPath)
	}
	return filepath.Join(ls.basePath, clean), nil
}
