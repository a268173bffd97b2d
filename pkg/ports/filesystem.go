package ports

// FileSystem is where frame dumps and contact sheets are written.
type FileSystem interface {
	// WriteFile replaces the file at path with data, creating parent
	// directories as needed.
	WriteFile(path string, data []byte) error

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string) error

	// Exists checks if a file or directory exists.
	Exists(path string) (bool, error)
}
