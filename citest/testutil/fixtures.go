package testutil

import "os"

// TempDir is a temporary directory cleaned up after a test.
type TempDir struct {
	Path string
}

// NewTempDir creates a temporary directory for test storage.
func NewTempDir() (*TempDir, error) {
	path, err := os.MkdirTemp("", "marketmind-test-*")
	if err != nil {
		return nil, err
	}
	return &TempDir{Path: path}, nil
}

// Cleanup removes the directory and everything under it.
func (d *TempDir) Cleanup() {
	os.RemoveAll(d.Path)
}
