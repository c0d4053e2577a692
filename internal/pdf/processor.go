package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/MeKo-Tech/orient/internal/orientation"
)

// Processor runs orientation detection over the page images of PDF files.
type Processor struct {
	detector    orientation.Detector
	credentials *Credentials
}

// NewProcessor creates a processor around det.
func NewProcessor(det orientation.Detector) *Processor {
	return &Processor{detector: det}
}

// SetCredentials sets the passwords used for encrypted files.
func (p *Processor) SetCredentials(creds *Credentials) {
	p.credentials = creds
}

// ProcessFile detects the orientation of every image on the selected pages.
// Pages without images are still listed when the page tree can be read.
func (p *Processor) ProcessFile(ctx context.Context, filename, pageRange string) (*DocumentResult, error) {
	start := time.Now()

	pageImages, err := ExtractImages(filename, pageRange, p.credentials)
	if err != nil {
		if IsPasswordError(err) {
			return nil, fmt.Errorf("%w: %s: %w", ErrEncrypted, filename, err)
		}
		return nil, err
	}

	infos := p.pageInfo(filename)
	selected, _ := parsePageRange(pageRange)

	pageNums := collectPageNumbers(pageImages, infos, selected)
	pages := make([]PageResult, 0, len(pageNums))
	for _, n := range pageNums {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := PageResult{PageNumber: n, Images: []ImageResult{}}
		if info, ok := infos[n]; ok {
			page.Info = &info
		}
		for _, pi := range pageImages[n] {
			page.Images = append(page.Images, p.detectImage(ctx, pi))
		}
		pages = append(pages, page)
	}

	total := len(infos)
	if total == 0 && len(pageNums) > 0 {
		total = pageNums[len(pageNums)-1]
	}

	return &DocumentResult{
		Filename:   filename,
		TotalPages: total,
		Pages:      pages,
		Duration:   time.Since(start),
	}, nil
}

func (p *Processor) detectImage(ctx context.Context, pi PageImage) ImageResult {
	ir := ImageResult{Index: pi.Index, Name: pi.Name}
	if pi.Err != nil {
		ir.Error = pi.Err.Error()
		return ir
	}
	b := pi.Image.Bounds()
	ir.Width, ir.Height = b.Dx(), b.Dy()

	res, err := p.detector.DetectImage(ctx, pi.Image)
	if err != nil {
		ir.Error = err.Error()
		return ir
	}
	ir.Result = &res
	return ir
}

// pageInfo is best effort; encrypted files and unusual page trees only lose
// the declared rotation.
func (p *Processor) pageInfo(filename string) map[int]PageInfo {
	infos, err := ReadPageInfo(filename)
	if err != nil {
		slog.Debug("PDF page tree unavailable", "file", filename, "error", err)
		return nil
	}
	out := make(map[int]PageInfo, len(infos))
	for _, info := range infos {
		out[info.Number] = info
	}
	return out
}

func collectPageNumbers(pageImages map[int][]PageImage, infos map[int]PageInfo, selected []int) []int {
	seen := make(map[int]bool)
	if len(selected) > 0 {
		for _, n := range selected {
			seen[n] = true
		}
	} else {
		for n := range pageImages {
			seen[n] = true
		}
		for n := range infos {
			seen[n] = true
		}
	}

	out := make([]int, 0, len(seen))
	for n := range seen {
		if len(infos) > 0 {
			if _, ok := infos[n]; !ok && len(pageImages[n]) == 0 {
				continue
			}
		}
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// ProcessFiles runs ProcessFile for each file, stopping at the first error.
func (p *Processor) ProcessFiles(ctx context.Context, filenames []string, pageRange string) ([]*DocumentResult, error) {
	results := make([]*DocumentResult, 0, len(filenames))
	for _, f := range filenames {
		res, err := p.ProcessFile(ctx, f, pageRange)
		if err != nil {
			return results, fmt.Errorf("failed to process %s: %w", f, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Close releases the detector.
func (p *Processor) Close() error {
	if p.detector == nil {
		return nil
	}
	return p.detector.Close()
}
