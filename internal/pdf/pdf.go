// Package pdf detects the orientation of page images embedded in PDF files.
package pdf

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/orient/internal/utils"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageImage is one decoded image resource from a page.
type PageImage struct {
	Page   int
	Index  int
	Name   string
	Format string
	Image  image.Image
	// Err is set when the stream could not be decoded.
	Err error
}

// ExtractImages extracts all images from a PDF file, grouped by page number.
// Images within a page are ordered by object number.
func ExtractImages(filename, pageRange string, creds *Credentials) (map[int][]PageImage, error) {
	pageNumbers, err := parsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}

	f, err := os.Open(filename) //nolint:gosec // G304: Reading user-provided PDF file path is expected
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer func() { _ = f.Close() }()

	var pageStrings []string
	for _, p := range pageNumbers {
		pageStrings = append(pageStrings, strconv.Itoa(p))
	}

	raw, err := api.ExtractImagesRaw(f, pageStrings, newConfiguration(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}
	return collectExtractedImages(raw), nil
}

// collectExtractedImages decodes the raw image streams and groups them by page.
func collectExtractedImages(raw []map[int]model.Image) map[int][]PageImage {
	type keyed struct {
		objNr int
		img   model.Image
	}
	byPage := make(map[int][]keyed)
	for _, m := range raw {
		for objNr, img := range m {
			byPage[img.PageNr] = append(byPage[img.PageNr], keyed{objNr: objNr, img: img})
		}
	}

	result := make(map[int][]PageImage, len(byPage))
	for page, imgs := range byPage {
		sort.Slice(imgs, func(i, j int) bool { return imgs[i].objNr < imgs[j].objNr })
		for i, k := range imgs {
			pi := PageImage{Page: page, Index: i, Name: k.img.Name, Format: k.img.FileType}
			pi.Image, pi.Err = decodeImage(k.img)
			result[page] = append(result[page], pi)
		}
	}
	return result
}

func decodeImage(img model.Image) (image.Image, error) {
	if img.Reader == nil {
		return nil, fmt.Errorf("image %s has no data", img.Name)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(img); err != nil {
		return nil, fmt.Errorf("read image %s: %w", img.Name, err)
	}
	decoded, _, err := utils.DecodeImage(&buf)
	if err != nil {
		return nil, fmt.Errorf("decode image %s (%s): %w", img.Name, img.FileType, err)
	}
	return decoded, nil
}

// parsePageRange parses a page range string like "1-5" or "1,3,5".
// An empty string selects all pages.
func parsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}

	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

// parseRangeToken parses either a single page token (e.g., "3") or a range token (e.g., "1-5").
func parseRangeToken(part string) ([]int, error) {
	if !strings.Contains(part, "-") {
		page, err := strconv.Atoi(part)
		if err != nil || page < 1 {
			return nil, fmt.Errorf("invalid page number: %s", part)
		}
		return []int{page}, nil
	}

	rangeParts := strings.Split(part, "-")
	if len(rangeParts) != 2 {
		return nil, fmt.Errorf("invalid range format: %s", part)
	}
	start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
	if err != nil || start < 1 {
		return nil, fmt.Errorf("invalid start page: %s", rangeParts[0])
	}
	end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid end page: %s", rangeParts[1])
	}
	if start > end {
		return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
	}
	out := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, i)
	}
	return out, nil
}
