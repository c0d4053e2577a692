// Package models resolves the on-disk location of orientation models and
// Tesseract language data.
package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Model file names.
const (
	OrientationDocPPLCNetX10       = "pplcnet_x1_0_doc_ori.onnx"
	OrientationTextlinePPLCNetX025 = "pplcnet_x0_25_textline_ori.onnx"
	OrientationTextlinePPLCNetX10  = "pplcnet_x1_0_textline_ori.onnx"
)

// Directory layout under the models dir.
const (
	TypeOrientation = "orientation"
	TypeTessdata    = "tessdata"
)

// DefaultModelsDir is used when nothing else is configured.
const DefaultModelsDir = "models"

// EnvModelsDir overrides the models directory.
const EnvModelsDir = "ORIENT_MODELS_DIR"

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
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
	return "", errors.New("could not find project root (go.mod not found)")
}

// ModelInfo contains metadata about a model.
type ModelInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Filename    string `json:"filename"`
}

// GetModelsDir returns the models directory.
// Priority: 1. explicit modelsDir, 2. ORIENT_MODELS_DIR, 3. project root + default.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}
	if envDir := os.Getenv(EnvModelsDir); envDir != "" {
		return envDir
	}
	if projectRoot, err := findProjectRoot(); err == nil {
		return filepath.Join(projectRoot, DefaultModelsDir)
	}
	return DefaultModelsDir
}

// ResolveModelPath prefers modelsDir/<type>/<filename> and falls back to a
// flat modelsDir/<filename> layout.
func ResolveModelPath(modelsDir, modelType, filename string) string {
	baseDir := GetModelsDir(modelsDir)
	if modelType != "" {
		organized := filepath.Join(baseDir, modelType, filename)
		if _, err := os.Stat(organized); err == nil {
			return organized
		}
	}
	return filepath.Join(baseDir, filename)
}

// GetOrientationModelPath returns the path of an orientation classifier model.
func GetOrientationModelPath(modelsDir, filename string) string {
	if filename == "" {
		filename = OrientationDocPPLCNetX10
	}
	return ResolveModelPath(modelsDir, TypeOrientation, filename)
}

// GetTessdataDir returns modelsDir/tessdata when it exists, otherwise "".
func GetTessdataDir(modelsDir string) string {
	dir := filepath.Join(GetModelsDir(modelsDir), TypeTessdata)
	if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
		return dir
	}
	return ""
}

// ValidateModelExists checks if a model file exists at the given path.
func ValidateModelExists(modelPath string) error {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", modelPath)
	}
	return nil
}

// ListAvailableModels returns the known orientation models.
func ListAvailableModels() []ModelInfo {
	return []ModelInfo{
		{
			Name:        "pplcnet-x1.0-doc",
			Type:        TypeOrientation,
			Description: "PPLCNet x1.0 document orientation classifier",
			Filename:    OrientationDocPPLCNetX10,
		},
		{
			Name:        "pplcnet-x0.25-textline",
			Type:        TypeOrientation,
			Description: "PPLCNet x0.25 text line orientation classifier",
			Filename:    OrientationTextlinePPLCNetX025,
		},
		{
			Name:        "pplcnet-x1.0-textline",
			Type:        TypeOrientation,
			Description: "PPLCNet x1.0 text line orientation classifier",
			Filename:    OrientationTextlinePPLCNetX10,
		},
	}
}
