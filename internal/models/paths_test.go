package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModelsDir(t *testing.T) {
	tests := []struct {
		name           string
		explicitDir    string
		envVar         string
		expectedResult string
	}{
		{
			name:           "explicit directory takes precedence",
			explicitDir:    "/explicit/path",
			envVar:         "/env/path",
			expectedResult: "/explicit/path",
		},
		{
			name:           "environment variable used when no explicit dir",
			envVar:         "/env/path",
			expectedResult: "/env/path",
		},
		{
			name: "default used when neither provided",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvModelsDir, tt.envVar)
			result := GetModelsDir(tt.explicitDir)

			expectedResult := tt.expectedResult
			if expectedResult == "" {
				expectedResult = DefaultModelsDir
				if projectRoot, err := findProjectRoot(); err == nil {
					expectedResult = filepath.Join(projectRoot, DefaultModelsDir)
				}
			}
			assert.Equal(t, expectedResult, result)
		})
	}
}

func TestGetOrientationModelPath(t *testing.T) {
	dir := t.TempDir()

	flat := GetOrientationModelPath(dir, "")
	assert.Equal(t, filepath.Join(dir, OrientationDocPPLCNetX10), flat)

	organizedDir := filepath.Join(dir, TypeOrientation)
	require.NoError(t, os.MkdirAll(organizedDir, 0o750))
	organized := filepath.Join(organizedDir, OrientationTextlinePPLCNetX025)
	require.NoError(t, os.WriteFile(organized, []byte("onnx"), 0o600))

	assert.Equal(t, organized, GetOrientationModelPath(dir, OrientationTextlinePPLCNetX025))
	assert.Equal(t, filepath.Join(dir, OrientationDocPPLCNetX10), GetOrientationModelPath(dir, OrientationDocPPLCNetX10))
}

func TestGetTessdataDir(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, GetTessdataDir(dir))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, TypeTessdata), 0o750))
	assert.Equal(t, filepath.Join(dir, TypeTessdata), GetTessdataDir(dir))
}

func TestValidateModelExists(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "model.onnx")

	require.Error(t, ValidateModelExists(p))
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	require.NoError(t, ValidateModelExists(p))
}

func TestListAvailableModels(t *testing.T) {
	infos := ListAvailableModels()
	require.Len(t, infos, 3)
	names := map[string]bool{}
	for _, m := range infos {
		assert.Equal(t, TypeOrientation, m.Type)
		assert.NotEmpty(t, m.Filename)
		assert.False(t, names[m.Name], "duplicate model name %s", m.Name)
		names[m.Name] = true
	}
}

func TestFindProjectRoot(t *testing.T) {
	root, err := findProjectRoot()
	require.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(root, "go.mod"))
	assert.NoError(t, statErr)
}
