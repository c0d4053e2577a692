package testutil

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Corner identifies where the orientation marker of a page ended up.
type Corner int

const (
	CornerNone Corner = iota
	CornerTopLeft
	CornerTopRight
	CornerBottomRight
	CornerBottomLeft
)

func (c Corner) String() string {
	switch c {
	case CornerTopLeft:
		return "top-left"
	case CornerTopRight:
		return "top-right"
	case CornerBottomRight:
		return "bottom-right"
	case CornerBottomLeft:
		return "bottom-left"
	}
	return "none"
}

// CornerAfterRotation is where the marker of an upright page lands after a
// clockwise rotation by angle.
func CornerAfterRotation(angle int) Corner {
	switch ((angle % 360) + 360) % 360 {
	case 90:
		return CornerTopRight
	case 180:
		return CornerBottomRight
	case 270:
		return CornerBottomLeft
	}
	return CornerTopLeft
}

// PageConfig describes a synthetic page.
type PageConfig struct {
	Width, Height int
	Lines         []string
	// Marker draws a solid square in the top-left corner so a page's
	// rotation can be recovered from its pixels.
	Marker     bool
	Background color.Color
	Foreground color.Color
}

// DefaultPageConfig returns a 480x360 marked page with three lines of text.
func DefaultPageConfig() PageConfig {
	return PageConfig{
		Width:  480,
		Height: 360,
		Lines: []string{
			"The quick brown fox jumps",
			"over the lazy dog near",
			"the quiet river bank.",
		},
		Marker:     true,
		Background: color.White,
		Foreground: color.Black,
	}
}

// GeneratePage renders cfg with basicfont. Text is centered so it never
// reaches the corner regions MarkerCorner inspects.
func GeneratePage(cfg PageConfig) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{cfg.Background}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Src: &image.Uniform{cfg.Foreground}, Face: face}
	lineHeight := face.Metrics().Height.Ceil()
	startY := (cfg.Height - len(cfg.Lines)*lineHeight) / 2
	for i, line := range cfg.Lines {
		width := font.MeasureString(face, line).Ceil()
		drawer.Dot = fixed.P((cfg.Width-width)/2, startY+(i+1)*lineHeight)
		drawer.DrawString(line)
	}

	if cfg.Marker {
		side := min(cfg.Width, cfg.Height) / 6
		inset := min(cfg.Width, cfg.Height) / 20
		r := image.Rect(inset, inset, inset+side, inset+side)
		draw.Draw(img, r, &image.Uniform{cfg.Foreground}, image.Point{}, draw.Src)
	}
	return img
}

// BlankImage returns a uniformly colored image.
func BlankImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

// RotateClockwise rotates img by a multiple of 90 degrees clockwise.
func RotateClockwise(img image.Image, angle int) *image.NRGBA {
	switch ((angle % 360) + 360) % 360 {
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	}
	return imaging.Clone(img)
}

// MarkerCorner finds the corner region holding the most dark pixels. Each
// region spans a quarter of the width and height. Regions less than 2% dark
// are ignored.
func MarkerCorner(img image.Image) Corner {
	if img == nil {
		return CornerNone
	}
	b := img.Bounds()
	w, h := b.Dx()/4, b.Dy()/4
	if w == 0 || h == 0 {
		return CornerNone
	}

	regions := map[Corner]image.Rectangle{
		CornerTopLeft:     image.Rect(b.Min.X, b.Min.Y, b.Min.X+w, b.Min.Y+h),
		CornerTopRight:    image.Rect(b.Max.X-w, b.Min.Y, b.Max.X, b.Min.Y+h),
		CornerBottomRight: image.Rect(b.Max.X-w, b.Max.Y-h, b.Max.X, b.Max.Y),
		CornerBottomLeft:  image.Rect(b.Min.X, b.Max.Y-h, b.Min.X+w, b.Max.Y),
	}

	best, bestCount := CornerNone, w*h/50
	for _, c := range []Corner{CornerTopLeft, CornerTopRight, CornerBottomRight, CornerBottomLeft} {
		if n := countDark(img, regions[c]); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

func countDark(img image.Image, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y < 128 {
				n++
			}
		}
	}
	return n
}
