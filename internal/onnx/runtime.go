// Package onnx holds the ONNX Runtime plumbing shared by model-backed
// detectors: library discovery, environment setup, GPU session options and
// tensor helpers.
package onnx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	onnxrt "github.com/yalue/onnxruntime_go"
)

// EnvLibraryPath points at an explicit onnxruntime shared library.
const EnvLibraryPath = "ORIENT_ONNXRUNTIME_LIB"

// GPUConfig holds configuration for CUDA acceleration.
type GPUConfig struct {
	UseGPU                bool   `json:"use_gpu" yaml:"use_gpu" mapstructure:"use_gpu"`
	DeviceID              int    `json:"device_id" yaml:"device_id" mapstructure:"device_id"`
	GPUMemLimit           uint64 `json:"gpu_mem_limit" yaml:"gpu_mem_limit" mapstructure:"gpu_mem_limit"`
	ArenaExtendStrategy   string `json:"arena_extend_strategy" yaml:"arena_extend_strategy" mapstructure:"arena_extend_strategy"`
	CUDNNConvAlgoSearch   string `json:"cudnn_conv_algo_search" yaml:"cudnn_conv_algo_search" mapstructure:"cudnn_conv_algo_search"`
	DoCopyInDefaultStream bool   `json:"do_copy_in_default_stream" yaml:"do_copy_in_default_stream" mapstructure:"do_copy_in_default_stream"`
}

// DefaultGPUConfig returns a CPU-only configuration with sane CUDA defaults.
func DefaultGPUConfig() GPUConfig {
	return GPUConfig{
		ArenaExtendStrategy:   "kNextPowerOfTwo",
		CUDNNConvAlgoSearch:   "DEFAULT",
		DoCopyInDefaultStream: true,
	}
}

// ValidateGPUConfig checks if the GPU configuration is valid.
func ValidateGPUConfig(config GPUConfig) error {
	if !config.UseGPU {
		return nil
	}
	if config.DeviceID < 0 {
		return fmt.Errorf("device ID must be non-negative, got %d", config.DeviceID)
	}
	switch config.ArenaExtendStrategy {
	case "", "kNextPowerOfTwo", "kSameAsRequested":
	default:
		return fmt.Errorf("invalid arena extend strategy: %s", config.ArenaExtendStrategy)
	}
	switch config.CUDNNConvAlgoSearch {
	case "", "EXHAUSTIVE", "HEURISTIC", "DEFAULT":
	default:
		return fmt.Errorf("invalid CUDNN conv algo search: %s", config.CUDNNConvAlgoSearch)
	}
	return nil
}

// cudaSettings renders cfg as CUDA provider options.
func cudaSettings(cfg GPUConfig) map[string]string {
	settings := map[string]string{
		"device_id":                 strconv.Itoa(cfg.DeviceID),
		"do_copy_in_default_stream": "0",
	}
	if cfg.DoCopyInDefaultStream {
		settings["do_copy_in_default_stream"] = "1"
	}
	if cfg.GPUMemLimit > 0 {
		settings["gpu_mem_limit"] = strconv.FormatUint(cfg.GPUMemLimit, 10)
	}
	if cfg.ArenaExtendStrategy != "" {
		settings["arena_extend_strategy"] = cfg.ArenaExtendStrategy
	}
	if cfg.CUDNNConvAlgoSearch != "" {
		settings["cudnn_conv_algo_search"] = cfg.CUDNNConvAlgoSearch
	}
	return settings
}

// ConfigureSessionForGPU appends the CUDA execution provider when requested.
func ConfigureSessionForGPU(opts *onnxrt.SessionOptions, cfg GPUConfig) error {
	if !cfg.UseGPU {
		return nil
	}
	cudaOpts, err := onnxrt.NewCUDAProviderOptions()
	if err != nil {
		return fmt.Errorf("create CUDA provider options: %w", err)
	}
	defer func() { _ = cudaOpts.Destroy() }()

	if err := cudaOpts.Update(cudaSettings(cfg)); err != nil {
		return fmt.Errorf("update CUDA provider options: %w", err)
	}
	if err := opts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
		return fmt.Errorf("append CUDA execution provider: %w", err)
	}
	return nil
}

// LibraryName returns the shared library file name for the current OS.
func LibraryName() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return "libonnxruntime.so", nil
	case "darwin":
		return "libonnxruntime.dylib", nil
	case "windows":
		return "onnxruntime.dll", nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// candidateLibraryPaths lists where the runtime library is looked for, in order.
func candidateLibraryPaths(useGPU bool) []string {
	var paths []string
	if p := os.Getenv(EnvLibraryPath); p != "" {
		paths = append(paths, p)
	}
	if useGPU {
		paths = append(paths, "/opt/onnxruntime/gpu/lib/libonnxruntime.so")
	}
	paths = append(paths,
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/libonnxruntime.so",
		"/opt/onnxruntime/cpu/lib/libonnxruntime.so",
	)
	if root, err := findProjectRoot(); err == nil {
		if name, err := LibraryName(); err == nil {
			if useGPU {
				paths = append(paths, filepath.Join(root, "onnxruntime", "gpu", "lib", name))
			}
			paths = append(paths, filepath.Join(root, "onnxruntime", "lib", name))
		}
	}
	return paths
}

func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("could not find project root")
		}
		dir = parent
	}
}

// SetLibraryPath points onnxruntime_go at the first shared library found.
func SetLibraryPath(useGPU bool) error {
	for _, p := range candidateLibraryPaths(useGPU) {
		if _, err := os.Stat(p); err == nil {
			onnxrt.SetSharedLibraryPath(p)
			return nil
		}
	}
	return errors.New("ONNX Runtime library not found")
}

var initMu sync.Mutex

// InitializeEnvironment locates the runtime library and initializes the
// process-wide ONNX Runtime environment once.
func InitializeEnvironment(useGPU bool) error {
	initMu.Lock()
	defer initMu.Unlock()
	if onnxrt.IsInitialized() {
		return nil
	}
	if err := SetLibraryPath(useGPU); err != nil {
		return fmt.Errorf("onnx lib path: %w", err)
	}
	if err := onnxrt.InitializeEnvironment(); err != nil {
		return fmt.Errorf("init onnx: %w", err)
	}
	return nil
}
