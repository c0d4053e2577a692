package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/orient/internal/orientation"
	"github.com/MeKo-Tech/orient/internal/testutil"
	"github.com/MeKo-Tech/orient/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePages(t *testing.T) {
	dir := t.TempDir()

	entries, err := generatePages(dir, 1, true, false)
	require.NoError(t, err)
	require.Len(t, entries, len(pageTexts)*len(orientation.Angles))

	for _, e := range entries {
		img, _, err := utils.LoadImage(filepath.Join(dir, e.File))
		require.NoError(t, err)
		assert.Equal(t, testutil.CornerAfterRotation(e.CurrentOrientation), testutil.MarkerCorner(img), e.File)
		assert.Equal(t, orientation.CurrentOrientation(e.BestAngle), e.CurrentOrientation)
	}
}

func TestWriteManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, writeManifest(path, []manifestEntry{{File: "a.png", CurrentOrientation: 90, BestAngle: 270}}))

	data, err := os.ReadFile(path) //nolint:gosec // test file
	require.NoError(t, err)

	var decoded []manifestEntry
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, 270, decoded[0].BestAngle)
}
