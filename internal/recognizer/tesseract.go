package recognizer

import (
	"context"
	"fmt"
	"image"
	"strconv"

	"github.com/MeKo-Tech/orient/internal/utils"
	"github.com/otiai10/gosseract/v2"
)

// Tesseract recognizes text through libtesseract via gosseract. Each instance
// owns its own client.
type Tesseract struct {
	cfg    Config
	client *gosseract.Client
}

// NewTesseract creates a client configured for cfg.
func NewTesseract(cfg Config) (*Tesseract, error) {
	c := gosseract.NewClient()
	if cfg.TessdataDir != "" {
		c.TessdataPrefix = cfg.TessdataDir
	}
	if err := configureClient(c, cfg); err != nil {
		_ = c.Close()
		return nil, &Error{Backend: BackendGosseract, Op: "configure", Err: err}
	}
	return &Tesseract{cfg: cfg, client: c}, nil
}

func configureClient(c *gosseract.Client, cfg Config) error {
	if langs := cfg.languages(); len(langs) > 0 {
		if err := c.SetLanguage(langs...); err != nil {
			return fmt.Errorf("set language: %w", err)
		}
	}
	if err := c.SetPageSegMode(gosseract.PageSegMode(cfg.PageSegMode)); err != nil {
		return fmt.Errorf("set page segmentation mode: %w", err)
	}
	if cfg.EngineMode >= 0 {
		if err := c.SetVariable(gosseract.SettableVariable("tessedit_ocr_engine_mode"), strconv.Itoa(cfg.EngineMode)); err != nil {
			return fmt.Errorf("set engine mode: %w", err)
		}
	}
	for k, v := range cfg.Variables {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return fmt.Errorf("set variable %s: %w", k, err)
		}
	}
	return nil
}

// Recognize runs OCR on img. The native call is not interruptible, so ctx is
// only checked before it starts.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := checkImage(img); err != nil {
		return Result{}, &Error{Backend: BackendGosseract, Op: "input", Err: err}
	}

	data, err := utils.EncodePNG(img)
	if err != nil {
		return Result{}, &Error{Backend: BackendGosseract, Op: "encode", Err: err}
	}
	if err := t.client.SetImageFromBytes(data); err != nil {
		return Result{}, &Error{Backend: BackendGosseract, Op: "set image", Err: err}
	}

	text, err := t.client.Text()
	if err != nil {
		return Result{}, &Error{Backend: BackendGosseract, Op: "text", Err: err}
	}
	text = PostProcessText(text, t.cfg.Clean)

	conf, words := meanWordConfidence(t.client)
	return Result{Text: text, Confidence: conf, Words: words}, nil
}

// Close releases the native client.
func (t *Tesseract) Close() error {
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

// meanWordConfidence averages word-level confidences reported by Tesseract,
// scaled to [0,1].
func meanWordConfidence(c *gosseract.Client) (float64, int) {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0, 0
	}
	var sum float64
	n := 0
	for _, b := range boxes {
		if b.Confidence < 0 {
			continue
		}
		sum += b.Confidence
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return clampConfidence(sum / float64(n) / 100.0), n
}
