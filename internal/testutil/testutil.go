// Package testutil holds helpers shared by unit and integration tests:
// synthetic page images and a scripted recognizer.
package testutil

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// GetProjectRoot returns the project root directory by finding go.mod.
func GetProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("failed to get caller information")
	}
	dir := filepath.Dir(filename)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("could not find go.mod file starting from %s", filepath.Dir(filename))
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// SaveImage writes img as PNG to dir/name and returns the full path.
func SaveImage(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(dir, 0o750))
	path := filepath.Join(dir, name)
	file, err := os.Create(path) //nolint:gosec // G304: test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	require.NoError(t, png.Encode(file, img), "Failed to encode PNG image")
	return path
}

// WritePages saves one marked page per entry of rotations into a temp
// directory, named page_<i>_<rotation>.png, and returns the directory.
func WritePages(t *testing.T, rotations ...int) string {
	t.Helper()

	dir := t.TempDir()
	for i, r := range rotations {
		page := RotateClockwise(GeneratePage(DefaultPageConfig()), r)
		SaveImage(t, dir, fmt.Sprintf("page_%d_%d.png", i, r), page)
	}
	return dir
}
