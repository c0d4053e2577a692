package utils

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ToGray converts img to an 8-bit grayscale image with origin (0,0).
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// CloneGray returns a deep copy of g.
func CloneGray(g *image.Gray) *image.Gray {
	out := &image.Gray{
		Pix:    make([]uint8, len(g.Pix)),
		Stride: g.Stride,
		Rect:   g.Rect,
	}
	copy(out.Pix, g.Pix)
	return out
}

// NormalizeImage converts an image to a float32 NCHW tensor with values in [0,1]:
// - drops the alpha channel
// - scales pixel values from 0-255 to 0-1
// - lays channels out as RGB planes.
func NormalizeImage(img image.Image) ([]float32, int, int, error) {
	if img == nil {
		return nil, 0, 0, &ImageProcessingError{Operation: "normalize", Err: errors.New("input image is nil")}
	}

	nrgba := imaging.Clone(img)
	bounds := nrgba.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, 0, 0, &ImageProcessingError{Operation: "normalize", Err: errors.New("invalid image dimensions")}
	}

	plane := width * height
	tensor := make([]float32, 3*plane)
	for y := range height {
		for x := range width {
			off := nrgba.PixOffset(x, y)
			idx := y*width + x
			tensor[idx] = float32(nrgba.Pix[off]) / 255.0
			tensor[plane+idx] = float32(nrgba.Pix[off+1]) / 255.0
			tensor[2*plane+idx] = float32(nrgba.Pix[off+2]) / 255.0
		}
	}

	return tensor, width, height, nil
}
