// Package preprocess prepares page images for text recognition: it bounds
// their size, smooths them, binarizes them and produces the rotated, padded
// copies each orientation trial works on.
package preprocess

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/MeKo-Tech/orient/internal/utils"
	"github.com/disintegration/imaging"
)

// Defaults used when a Config field is left at zero.
const (
	DefaultMaxDimension = 1600
	DefaultPadding      = 20
)

// ErrInvalidAngle is returned for rotations other than 0, 90, 180 and 270.
var ErrInvalidAngle = errors.New("angle must be one of 0, 90, 180, 270")

// gaussian3x3 is the normalized 3x3 Gaussian kernel.
var gaussian3x3 = [9]float64{
	1.0 / 16, 2.0 / 16, 1.0 / 16,
	2.0 / 16, 4.0 / 16, 2.0 / 16,
	1.0 / 16, 2.0 / 16, 1.0 / 16,
}

// Config controls normalization.
type Config struct {
	MaxDimension int  `json:"max_dimension" yaml:"max_dimension" mapstructure:"max_dimension"`
	Padding      int  `json:"padding" yaml:"padding" mapstructure:"padding"`
	SkipBlur     bool `json:"skip_blur" yaml:"skip_blur" mapstructure:"skip_blur"`
}

// DefaultConfig returns the stock normalization settings.
func DefaultConfig() Config {
	return Config{MaxDimension: DefaultMaxDimension, Padding: DefaultPadding}
}

func (c Config) withDefaults() Config {
	if c.MaxDimension <= 0 {
		c.MaxDimension = DefaultMaxDimension
	}
	if c.Padding < 0 {
		c.Padding = 0
	}
	return c
}

// Normalize turns img into a bounded-size binary image: the longer side is
// scaled down to at most MaxDimension, the result is smoothed with a 3x3
// Gaussian and thresholded with Otsu's method to pure black and white.
func Normalize(img image.Image, cfg Config) (*image.Gray, error) {
	if img == nil {
		return nil, &utils.ImageProcessingError{Operation: "normalize", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &utils.ImageProcessingError{Operation: "normalize", Err: errors.New("invalid image dimensions")}
	}
	cfg = cfg.withDefaults()

	var work image.Image = imaging.Grayscale(img)
	work = FitLongSide(work, cfg.MaxDimension)
	if !cfg.SkipBlur {
		work = imaging.Convolve3x3(work, gaussian3x3, nil)
	}

	gray := utils.ToGray(work)
	return Binarize(gray, OtsuThreshold(gray)), nil
}

// FitLongSide downsamples img so its longer side is at most maxDim pixels.
// Smaller images are returned unchanged.
func FitLongSide(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}
	scale := float64(maxDim) / float64(max(w, h))
	nw := max(1, int(float64(w)*scale+0.5))
	nh := max(1, int(float64(h)*scale+0.5))
	return imaging.Resize(img, nw, nh, imaging.Box)
}

// OtsuThreshold returns the gray level that maximizes between-class variance.
func OtsuThreshold(g *image.Gray) uint8 {
	const bins = 256
	var histogram [bins]int
	b := g.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[(y-b.Min.Y)*g.Stride : (y-b.Min.Y)*g.Stride+b.Dx()]
		for _, v := range row {
			histogram[v]++
		}
	}
	totalPixels := b.Dx() * b.Dy()
	if totalPixels == 0 {
		return 0
	}

	var sumTotal float64
	for i := range bins {
		sumTotal += float64(i) * float64(histogram[i])
	}

	var sumB, maxVariance float64
	var best uint8
	wB := 0
	for t := range bins {
		wB += histogram[t]
		if wB == 0 {
			continue
		}
		wF := totalPixels - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(histogram[t])
		meanB := sumB / float64(wB)
		meanF := (sumTotal - sumB) / float64(wF)
		variance := float64(wB) * float64(wF) * (meanB - meanF) * (meanB - meanF)
		if variance > maxVariance {
			maxVariance = variance
			best = uint8(t)
		}
	}
	return best
}

// Binarize maps pixels above threshold to 255 and the rest to 0.
func Binarize(g *image.Gray, threshold uint8) *image.Gray {
	b := g.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := range b.Dy() {
		src := g.Pix[y*g.Stride : y*g.Stride+b.Dx()]
		dst := out.Pix[y*out.Stride : y*out.Stride+b.Dx()]
		for x, v := range src {
			if v > threshold {
				dst[x] = 255
			}
		}
	}
	return out
}

// Rotate returns a copy of g rotated clockwise by angle degrees. The result
// never aliases g, including for angle 0.
func Rotate(g *image.Gray, angle int) (*image.Gray, error) {
	var rotated image.Image
	switch angle {
	case 0:
		return utils.CloneGray(utils.ToGray(g)), nil
	case 90:
		rotated = imaging.Rotate270(g)
	case 180:
		rotated = imaging.Rotate180(g)
	case 270:
		rotated = imaging.Rotate90(g)
	default:
		return nil, fmt.Errorf("rotate %d: %w", angle, ErrInvalidAngle)
	}
	return utils.ToGray(rotated), nil
}

// Pad surrounds g with a white border of the given width.
func Pad(g *image.Gray, padding int) *image.Gray {
	if padding <= 0 {
		return utils.CloneGray(utils.ToGray(g))
	}
	b := g.Bounds()
	canvas := imaging.New(b.Dx()+2*padding, b.Dy()+2*padding, color.White)
	canvas = imaging.Paste(canvas, g, image.Pt(padding, padding))
	return utils.ToGray(canvas)
}
