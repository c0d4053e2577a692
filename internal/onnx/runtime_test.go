package onnx

import (
	"runtime"
	"testing"
)

func TestDefaultGPUConfig(t *testing.T) {
	cfg := DefaultGPUConfig()
	if cfg.UseGPU {
		t.Error("Expected UseGPU to be false by default")
	}
	if cfg.ArenaExtendStrategy != "kNextPowerOfTwo" {
		t.Errorf("unexpected arena strategy %q", cfg.ArenaExtendStrategy)
	}
	if !cfg.DoCopyInDefaultStream {
		t.Error("Expected DoCopyInDefaultStream to be true by default")
	}
}

func TestValidateGPUConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  GPUConfig
		wantErr bool
	}{
		{name: "cpu", config: DefaultGPUConfig()},
		{name: "gpu", config: GPUConfig{UseGPU: true, ArenaExtendStrategy: "kSameAsRequested", CUDNNConvAlgoSearch: "HEURISTIC"}},
		{name: "negative device", config: GPUConfig{UseGPU: true, DeviceID: -1}, wantErr: true},
		{name: "bad arena", config: GPUConfig{UseGPU: true, ArenaExtendStrategy: "grow"}, wantErr: true},
		{name: "bad algo", config: GPUConfig{UseGPU: true, CUDNNConvAlgoSearch: "FAST"}, wantErr: true},
		{name: "invalid but disabled", config: GPUConfig{DeviceID: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGPUConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateGPUConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCUDASettings(t *testing.T) {
	cfg := DefaultGPUConfig()
	cfg.UseGPU = true
	cfg.DeviceID = 2
	cfg.GPUMemLimit = 1024

	s := cudaSettings(cfg)
	if s["device_id"] != "2" || s["gpu_mem_limit"] != "1024" || s["do_copy_in_default_stream"] != "1" {
		t.Fatalf("unexpected settings %v", s)
	}

	cfg.DoCopyInDefaultStream = false
	cfg.GPUMemLimit = 0
	s = cudaSettings(cfg)
	if s["do_copy_in_default_stream"] != "0" {
		t.Fatalf("unexpected copy stream setting %v", s)
	}
	if _, ok := s["gpu_mem_limit"]; ok {
		t.Fatal("gpu_mem_limit should be omitted when zero")
	}
}

func TestLibraryName(t *testing.T) {
	name, err := LibraryName()
	switch runtime.GOOS {
	case "linux", "darwin", "windows":
		if err != nil || name == "" {
			t.Fatalf("LibraryName() = %q, %v", name, err)
		}
	default:
		if err == nil {
			t.Fatal("expected error on unsupported OS")
		}
	}
}

func TestCandidateLibraryPaths(t *testing.T) {
	t.Setenv(EnvLibraryPath, "/custom/libonnxruntime.so")
	paths := candidateLibraryPaths(true)
	if len(paths) < 2 || paths[0] != "/custom/libonnxruntime.so" {
		t.Fatalf("explicit path should come first: %v", paths)
	}
	if paths[1] != "/opt/onnxruntime/gpu/lib/libonnxruntime.so" {
		t.Fatalf("gpu path should follow explicit path: %v", paths)
	}
}
