package filestorage

import "errors"

// ErrInvalidPath is returned for paths that escape the storage root
var ErrInvalidPath = errors.New("invalid file path")

// FileStorage defines the interface for file storage operations
type FileStorage interface {
	// SaveBytes stores data under subPath with a generated unique name and the
	// given extension, returning the relative path to keep in the database.
	SaveBytes(subPath, ext string, data []byte) (string, error)

	// ReadFile returns the content stored at a relative path
	ReadFile(relPath string) ([]byte, error)

	// DeleteFile removes a file. Missing files are not an error.
	DeleteFile(relPath string) error

	// GetFullPath returns the filesystem path for a relative path
	GetFullPath(relPath string) (string, error)
}
