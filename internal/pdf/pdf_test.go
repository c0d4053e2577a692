package pdf

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []int
		wantErr  bool
	}{
		{"empty selects all", "", nil, false},
		{"whitespace selects all", "  ", nil, false},
		{"single page", "3", []int{3}, false},
		{"range", "2-4", []int{2, 3, 4}, false},
		{"mixed", "1, 3-4,7", []int{1, 3, 4, 7}, false},
		{"spaces in range", "1 - 2", []int{1, 2}, false},
		{"reversed range", "5-3", nil, true},
		{"zero page", "0", nil, true},
		{"zero start", "0-2", nil, true},
		{"not a number", "abc", nil, true},
		{"double dash", "1-2-3", nil, true},
		{"trailing comma", "1,", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages, err := parsePageRange(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, pages)
		})
	}
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.SetGray(0, 0, color.Gray{Y: 0})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCollectExtractedImages(t *testing.T) {
	raw := []map[int]model.Image{
		{
			12: {Reader: bytes.NewReader(encodePNG(t, 8, 6)), Name: "Im2", FileType: "png", PageNr: 1},
			7:  {Reader: bytes.NewReader(encodePNG(t, 4, 4)), Name: "Im1", FileType: "png", PageNr: 1},
		},
		{
			20: {Reader: bytes.NewReader([]byte("broken")), Name: "Im3", FileType: "png", PageNr: 2},
		},
	}

	result := collectExtractedImages(raw)
	require.Len(t, result, 2)

	page1 := result[1]
	require.Len(t, page1, 2)
	assert.Equal(t, "Im1", page1[0].Name, "ordered by object number")
	assert.Equal(t, 0, page1[0].Index)
	assert.Equal(t, 4, page1[0].Image.Bounds().Dx())
	assert.Equal(t, 8, page1[1].Image.Bounds().Dx())

	page2 := result[2]
	require.Len(t, page2, 1)
	assert.Error(t, page2[0].Err)
	assert.Nil(t, page2[0].Image)
}

func TestDecodeImage_NoReader(t *testing.T) {
	_, err := decodeImage(model.Image{Name: "Im0"})
	assert.Error(t, err)
}

func TestExtractImages_ErrorCases(t *testing.T) {
	t.Run("non-existent file", func(t *testing.T) {
		_, err := ExtractImages("/non/existent/file.pdf", "", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open PDF")
	})

	t.Run("invalid page range", func(t *testing.T) {
		_, err := ExtractImages("dummy.pdf", "invalid-range", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid page range")
	})
}

func TestNewConfiguration(t *testing.T) {
	conf := newConfiguration(&Credentials{UserPassword: "u", OwnerPassword: "o"})
	assert.Equal(t, "u", conf.UserPW)
	assert.Equal(t, "o", conf.OwnerPW)

	conf = newConfiguration(nil)
	assert.Empty(t, conf.UserPW)
}

func TestIsPasswordError(t *testing.T) {
	assert.False(t, IsPasswordError(nil))
	assert.True(t, IsPasswordError(ErrEncrypted))
	assert.True(t, IsPasswordError(errors.New("pdfcpu: please provide the correct password")))
	assert.False(t, IsPasswordError(assert.AnError))
	assert.False(t, IsPasswordError(bytes.ErrTooLarge))
}
