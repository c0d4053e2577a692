package recognizer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/orient/internal/utils"
)

// Runner executes an external command, feeding stdin and returning stdout.
type Runner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // G204: tesseract path comes from configuration
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// CLI recognizes text by running the tesseract executable in TSV mode. Each
// call is a separate process, so the deadline in ctx is enforced by killing it.
type CLI struct {
	cfg    Config
	runner Runner
}

// NewCLI creates a CLI recognizer. A nil runner uses os/exec.
func NewCLI(cfg Config, runner Runner) *CLI {
	if runner == nil {
		runner = execRunner{}
	}
	if cfg.TesseractPath == "" {
		cfg.TesseractPath = DefaultTesseractPath
	}
	return &CLI{cfg: cfg, runner: runner}
}

// Args returns the tesseract arguments used for every call.
func (c *CLI) Args() []string {
	args := []string{"stdin", "stdout"}
	if c.cfg.Language != "" {
		args = append(args, "-l", c.cfg.Language)
	}
	args = append(args, "--psm", strconv.Itoa(c.cfg.PageSegMode))
	if c.cfg.EngineMode >= 0 {
		args = append(args, "--oem", strconv.Itoa(c.cfg.EngineMode))
	}
	if c.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", c.cfg.TessdataDir)
	}
	keys := make([]string, 0, len(c.cfg.Variables))
	for k := range c.cfg.Variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-c", k+"="+c.cfg.Variables[k])
	}
	return append(args, "tsv")
}

// Recognize runs tesseract on img.
func (c *CLI) Recognize(ctx context.Context, img image.Image) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := checkImage(img); err != nil {
		return Result{}, &Error{Backend: BackendCLI, Op: "input", Err: err}
	}
	data, err := utils.EncodePNG(img)
	if err != nil {
		return Result{}, &Error{Backend: BackendCLI, Op: "encode", Err: err}
	}

	out, err := c.runner.Run(ctx, data, c.cfg.TesseractPath, c.Args()...)
	if err != nil {
		return Result{}, &Error{Backend: BackendCLI, Op: "run", Err: err}
	}

	res, err := ParseTSV(out)
	if err != nil {
		return Result{}, &Error{Backend: BackendCLI, Op: "parse", Err: err}
	}
	res.Text = PostProcessText(res.Text, c.cfg.Clean)
	return res, nil
}

// Close is a no-op; each call owns its own process.
func (c *CLI) Close() error { return nil }

// ParseTSV rebuilds text and mean word confidence from tesseract TSV output.
// Words are joined with spaces within a line and lines with newlines; blocks
// and paragraphs are separated by blank lines.
func ParseTSV(data []byte) (Result, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var cols map[string]int
	var b strings.Builder
	var sum float64
	var words int
	var lastKey string
	var lastPara string
	lineWords := 0

	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if cols == nil {
			cols = make(map[string]int, len(fields))
			for i, f := range fields {
				cols[strings.TrimSpace(f)] = i
			}
			for _, want := range []string{"level", "block_num", "par_num", "line_num", "conf", "text"} {
				if _, ok := cols[want]; !ok {
					return Result{}, fmt.Errorf("tsv header missing column %q", want)
				}
			}
			continue
		}
		if len(fields) <= cols["conf"] || fields[cols["level"]] != "5" {
			continue
		}
		text := ""
		if cols["text"] < len(fields) {
			text = strings.TrimSpace(fields[cols["text"]])
		}
		conf, err := strconv.ParseFloat(strings.TrimSpace(fields[cols["conf"]]), 64)
		if err != nil || conf < 0 || text == "" {
			continue
		}

		para := fields[cols["block_num"]] + "." + fields[cols["par_num"]]
		key := para + "." + fields[cols["line_num"]]
		switch {
		case lastKey == "":
		case para != lastPara:
			b.WriteString("\n\n")
			lineWords = 0
		case key != lastKey:
			b.WriteByte('\n')
			lineWords = 0
		}
		if lineWords > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
		lineWords++
		lastKey, lastPara = key, para

		sum += conf
		words++
	}
	if err := sc.Err(); err != nil {
		return Result{}, err
	}
	if cols == nil {
		return Result{}, errors.New("empty tsv output")
	}

	res := Result{Text: b.String(), Words: words}
	if words > 0 {
		res.Confidence = clampConfidence(sum / float64(words) / 100.0)
	}
	return res, nil
}
