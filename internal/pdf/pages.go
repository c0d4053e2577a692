package pdf

import (
	"fmt"

	dpdf "github.com/dslipak/pdf"
)

// PageInfo describes a page as declared in the PDF itself.
type PageInfo struct {
	Number int `json:"number" yaml:"number"`
	// DeclaredRotation is the /Rotate entry, inherited from the page tree
	// when the page has none, normalized to 0, 90, 180 or 270.
	DeclaredRotation int `json:"declared_rotation" yaml:"declared_rotation"`
	// VectorTextChars counts characters drawn as text rather than images.
	VectorTextChars int `json:"vector_text_chars" yaml:"vector_text_chars"`
}

// ReadPageInfo reads the page tree of an unencrypted PDF.
func ReadPageInfo(filename string) ([]PageInfo, error) {
	r, err := dpdf.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %q: %w", filename, err)
	}

	n := r.NumPage()
	infos := make([]PageInfo, 0, n)
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		infos = append(infos, PageInfo{
			Number:           i,
			DeclaredRotation: declaredRotation(page.V),
			VectorTextChars:  vectorTextChars(page),
		})
	}
	return infos, nil
}

func declaredRotation(v dpdf.Value) int {
	for depth := 0; v.Kind() == dpdf.Dict && depth < 32; depth++ {
		if r := v.Key("Rotate"); r.Kind() == dpdf.Integer {
			return ((int(r.Int64()) % 360) + 360) % 360
		}
		v = v.Key("Parent")
	}
	return 0
}

// vectorTextChars recovers from malformed content streams, which the reader
// reports by panicking.
func vectorTextChars(page dpdf.Page) (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	for _, t := range page.Content().Text {
		n += len([]rune(t.S))
	}
	return n
}
