package orientation

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// heuristicProbabilities turns the transition-count estimate into a class
// distribution. The estimate cannot tell 0 from 180 or 90 from 270, so only
// classes 0 and 90 are ever favored.
func heuristicProbabilities(img image.Image) [4]float64 {
	cls, conf := heuristicOrientation(img)
	idx, _ := angleIndex(cls)

	var probs [4]float64
	rest := (1 - conf) / 3
	for i := range probs {
		probs[i] = rest
	}
	probs[idx] = conf
	return probs
}

// heuristicOrientation compares black/white transitions along rows and
// columns of a thumbnail. Horizontal text lines produce more transitions
// along rows than along columns.
func heuristicOrientation(img image.Image) (int, float64) {
	if img == nil {
		return 0, 0
	}

	thumb := imaging.Resize(img, 128, 128, imaging.Lanczos)
	b := thumb.Bounds()
	if b.Dx() <= 1 || b.Dy() <= 1 {
		return 0, 0
	}

	mean := meanLuminance(thumb)
	rows := countTransitions(thumb, mean, false)
	cols := countTransitions(thumb, mean, true)
	return determineOrientation(rows, cols, img.Bounds())
}

func meanLuminance(img image.Image) float64 {
	b := img.Bounds()
	var sum float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sum += luminance(img.At(x, y))
		}
	}
	return sum / float64(b.Dx()*b.Dy())
}

// countTransitions counts dark/light changes along rows, or along columns
// when byColumn is set.
func countTransitions(img image.Image, threshold float64, byColumn bool) float64 {
	b := img.Bounds()
	outer, inner := b.Dy(), b.Dx()
	if byColumn {
		outer, inner = inner, outer
	}

	var transitions float64
	for o := 0; o < outer; o++ {
		prev := -1
		for i := 0; i < inner; i++ {
			x, y := b.Min.X+i, b.Min.Y+o
			if byColumn {
				x, y = b.Min.X+o, b.Min.Y+i
			}
			cur := 0
			if luminance(img.At(x, y)) < threshold {
				cur = 1
			}
			if prev >= 0 && cur != prev {
				transitions++
			}
			prev = cur
		}
	}
	return transitions
}

func luminance(c color.Color) float64 {
	r, g, bb, _ := c.RGBA()
	return 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bb>>8)
}

// determineOrientation uses the original bounds for the aspect-ratio bonus
// because the thumbnail is always square.
func determineOrientation(rowTransitions, colTransitions float64, bounds image.Rectangle) (int, float64) {
	total := rowTransitions + colTransitions
	if total == 0 || bounds.Dx() == 0 {
		return 0, 0
	}

	ar := float64(bounds.Dy()) / float64(bounds.Dx())
	if colTransitions >= rowTransitions {
		base := (colTransitions - rowTransitions) / total
		if ar > 1.2 {
			base = math.Min(1.0, base+0.15)
		}
		return 90, base
	}

	base := (rowTransitions - colTransitions) / total
	if ar < 0.8 {
		base = math.Min(1.0, base+0.1)
	}
	return 0, base
}
