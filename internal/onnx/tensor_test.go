package onnx

import (
	"math"
	"testing"
)

func TestNewImageTensorAndVerify(t *testing.T) {
	c, h, w := 3, 4, 5
	ten, err := NewImageTensor(make([]float32, c*h*w), c, h, w)
	if err != nil {
		t.Fatalf("NewImageTensor error: %v", err)
	}
	if err := VerifyImageTensor(ten); err != nil {
		t.Fatalf("VerifyImageTensor: %v", err)
	}
	if ten.Shape[0] != 1 || ten.Shape[1] != 3 || ten.Shape[2] != 4 || ten.Shape[3] != 5 {
		t.Fatalf("unexpected shape %v", ten.Shape)
	}
}

func TestNewImageTensorErrors(t *testing.T) {
	tests := []struct {
		name string
		data []float32
	}{
		{name: "nil data", data: nil},
		{name: "data too short", data: make([]float32, 10)},
		{name: "data too long", data: make([]float32, 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewImageTensor(tt.data, 3, 4, 5); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestValidateNCHW(t *testing.T) {
	if err := ValidateNCHW([]int64{1, 3, 2, 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateNCHW([]int64{1, 3, 2}); err == nil {
		t.Fatal("expected rank error")
	}
	if err := ValidateNCHW([]int64{1, 0, 2, 2}); err == nil {
		t.Fatal("expected dimension error")
	}
	if err := VerifyImageTensor(Tensor{Data: make([]float32, 3), Shape: []int64{1, 1, 2, 2}}); err == nil {
		t.Fatal("expected length mismatch")
	}
}

func TestSoftmax(t *testing.T) {
	probs := Softmax([]float32{1, 2, 3, 4})
	if len(probs) != 4 {
		t.Fatalf("len = %d", len(probs))
	}
	var sum float64
	for i, p := range probs {
		sum += p
		if i > 0 && p <= probs[i-1] {
			t.Fatalf("probabilities not increasing: %v", probs)
		}
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("sum = %f", sum)
	}

	big := Softmax([]float32{1000, 0})
	if math.IsNaN(big[0]) || big[0] < 0.999 {
		t.Fatalf("unstable softmax: %v", big)
	}

	if Softmax(nil) != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestArgmax(t *testing.T) {
	if got := Argmax([]float64{0.1, 0.7, 0.7, 0.2}); got != 1 {
		t.Fatalf("Argmax = %d, want 1", got)
	}
	if got := Argmax(nil); got != -1 {
		t.Fatalf("Argmax(nil) = %d, want -1", got)
	}
}
