package pdf

import (
	"time"

	"github.com/MeKo-Tech/orient/internal/orientation"
)

// ImageResult is the detection outcome for one embedded image.
type ImageResult struct {
	Index  int                 `json:"index" yaml:"index"`
	Name   string              `json:"name,omitempty" yaml:"name,omitempty"`
	Width  int                 `json:"width" yaml:"width"`
	Height int                 `json:"height" yaml:"height"`
	Result *orientation.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string              `json:"error,omitempty" yaml:"error,omitempty"`
}

// PageResult groups the images found on one page.
type PageResult struct {
	PageNumber int           `json:"page_number" yaml:"page_number"`
	Info       *PageInfo     `json:"info,omitempty" yaml:"info,omitempty"`
	Images     []ImageResult `json:"images" yaml:"images"`
}

// Orientation returns the result of the largest successfully analysed image
// on the page, which is normally the scanned page itself.
func (p PageResult) Orientation() (orientation.Result, bool) {
	var best *ImageResult
	for i := range p.Images {
		im := &p.Images[i]
		if im.Result == nil {
			continue
		}
		if best == nil || im.Width*im.Height > best.Width*best.Height {
			best = im
		}
	}
	if best == nil {
		return orientation.Result{}, false
	}
	return *best.Result, true
}

// DocumentResult is the outcome for a whole PDF.
type DocumentResult struct {
	Filename   string        `json:"filename" yaml:"filename"`
	TotalPages int           `json:"total_pages" yaml:"total_pages"`
	Pages      []PageResult  `json:"pages" yaml:"pages"`
	Duration   time.Duration `json:"duration_ns" yaml:"duration_ns"`
}
