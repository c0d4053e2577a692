package orientation

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/MeKo-Tech/orient/internal/models"
	"github.com/MeKo-Tech/orient/internal/onnx"
	"github.com/MeKo-Tech/orient/internal/utils"
	"github.com/disintegration/imaging"
	onnxrt "github.com/yalue/onnxruntime_go"
)

// ClassifierConfig controls the model-based strategy.
type ClassifierConfig struct {
	ModelPath           string
	ConfidenceThreshold float64
	NumThreads          int
	// Falls back to a transition-count heuristic when the model or runtime
	// is unavailable.
	UseHeuristicFallback bool
	// Forces the heuristic and never touches ONNX Runtime.
	HeuristicOnly bool
	EnableWarmup  bool
	GPU           onnx.GPUConfig
}

// DefaultClassifierConfig provides defaults for the document orientation model.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		ModelPath:            models.GetOrientationModelPath("", models.OrientationDocPPLCNetX10),
		ConfidenceThreshold:  0.7,
		UseHeuristicFallback: true,
		GPU:                  onnx.DefaultGPUConfig(),
	}
}

// UpdateModelPath relocates the configured model file under modelsDir.
func (c *ClassifierConfig) UpdateModelPath(modelsDir string) {
	c.ModelPath = models.GetOrientationModelPath(modelsDir, baseName(c.ModelPath))
}

func baseName(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if os.IsPathSeparator(p[i]) {
			return p[i+1:]
		}
	}
	return p
}

// Classifier predicts the current orientation directly from pixels with a
// four-class ONNX model. Class k means the page is currently rotated k
// degrees clockwise.
type Classifier struct {
	cfg      ClassifierConfig
	observer Observer

	mu         sync.Mutex // ONNX sessions are not safe for concurrent Run
	session    *onnxrt.DynamicAdvancedSession
	inputInfo  onnxrt.InputOutputInfo
	outputInfo onnxrt.InputOutputInfo
	inH, inW   int
	heuristic  bool
}

// NewClassifier creates an ONNX-backed classifier, or a heuristic one when
// HeuristicOnly is set or the model cannot be loaded and fallback is enabled.
func NewClassifier(cfg ClassifierConfig, opts ...Option) (*Classifier, error) {
	o := buildOptions(opts)
	if cfg.HeuristicOnly {
		return &Classifier{cfg: cfg, observer: o.observer, heuristic: true}, nil
	}

	c, err := tryCreateONNXClassifier(cfg)
	if err != nil {
		if !cfg.UseHeuristicFallback {
			return nil, fmt.Errorf("onnx init: %w", err)
		}
		slog.Warn("orientation model unavailable, using heuristic classifier", "model", cfg.ModelPath, "error", err)
		return &Classifier{cfg: cfg, observer: o.observer, heuristic: true}, nil
	}
	c.observer = o.observer

	if cfg.EnableWarmup {
		if err := c.Warmup(); err != nil {
			c.closeSession()
			return nil, fmt.Errorf("warmup: %w", err)
		}
	}
	return c, nil
}

func tryCreateONNXClassifier(cfg ClassifierConfig) (*Classifier, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("empty model path")
	}
	if err := models.ValidateModelExists(cfg.ModelPath); err != nil {
		return nil, err
	}
	if err := onnx.ValidateGPUConfig(cfg.GPU); err != nil {
		return nil, err
	}
	if err := onnx.InitializeEnvironment(cfg.GPU.UseGPU); err != nil {
		return nil, err
	}

	inputs, outputs, err := onnxrt.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("io info: %w", err)
	}
	in, out, err := validateModelIO(inputs, outputs)
	if err != nil {
		return nil, err
	}

	opts, err := onnxrt.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session opts: %w", err)
	}
	defer func() { _ = opts.Destroy() }()
	if err := onnx.ConfigureSessionForGPU(opts, cfg.GPU); err != nil {
		return nil, fmt.Errorf("failed to configure GPU: %w", err)
	}
	if cfg.NumThreads > 0 {
		_ = opts.SetIntraOpNumThreads(cfg.NumThreads)
	}

	sess, err := onnxrt.NewDynamicAdvancedSession(cfg.ModelPath, []string{in.Name}, []string{out.Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	c := &Classifier{cfg: cfg, session: sess, inputInfo: in, outputInfo: out}
	if h := in.Dimensions[2]; h > 0 {
		c.inH = int(h)
	}
	if w := in.Dimensions[3]; w > 0 {
		c.inW = int(w)
	}
	return c, nil
}

func validateModelIO(inputs, outputs []onnxrt.InputOutputInfo) (onnxrt.InputOutputInfo, onnxrt.InputOutputInfo, error) {
	if len(inputs) != 1 || len(outputs) != 1 {
		return onnxrt.InputOutputInfo{}, onnxrt.InputOutputInfo{},
			fmt.Errorf("unexpected io (in:%d out:%d)", len(inputs), len(outputs))
	}
	if len(inputs[0].Dimensions) != 4 {
		return onnxrt.InputOutputInfo{}, onnxrt.InputOutputInfo{},
			fmt.Errorf("expected 4D input, got %dD", len(inputs[0].Dimensions))
	}
	return inputs[0], outputs[0], nil
}

// Name returns the strategy name.
func (c *Classifier) Name() string { return StrategyClassifier }

// IsHeuristic reports whether the classifier runs without a model.
func (c *Classifier) IsHeuristic() bool { return c.heuristic || c.session == nil }

// Close releases the ONNX session.
func (c *Classifier) Close() error {
	c.closeSession()
	return nil
}

func (c *Classifier) closeSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		if err := c.session.Destroy(); err != nil {
			slog.Warn("failed to destroy orientation session", "error", err)
		}
		c.session = nil
	}
}

// Detect loads the image at path and classifies it. Only an *InputError is
// ever returned; inference failures yield a low-confidence upright result.
func (c *Classifier) Detect(ctx context.Context, path string) (Result, error) {
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return Result{}, &InputError{Path: path, Err: err}
	}
	return c.DetectImage(ctx, img)
}

// DetectImage classifies a decoded image.
func (c *Classifier) DetectImage(ctx context.Context, img image.Image) (Result, error) {
	if img == nil || img.Bounds().Empty() {
		return Result{}, &InputError{Err: errors.New("empty image")}
	}
	start := time.Now()
	obs := callObserver(ctx, c.observer)

	var probs [4]float64
	var predErr error
	if err := ctx.Err(); err != nil {
		predErr = err
	} else {
		probs, predErr = c.Predict(img)
	}

	res := c.resultFromProbs(probs, predErr)
	res.Duration = time.Since(start)
	for _, h := range res.Hypotheses {
		obs.OnTrial(h)
	}
	obs.OnResult(res)
	return res, nil
}

// resultFromProbs maps class probabilities onto the common Result. The
// hypothesis for rotation a carries the probability of class (360-a)%360.
func (c *Classifier) resultFromProbs(probs [4]float64, predErr error) Result {
	var hyps [4]Hypothesis
	for i, angle := range Angles {
		cls, _ := angleIndex(CurrentOrientation(angle))
		hyps[i] = Hypothesis{Angle: angle, Confidence: probs[cls], Score: probs[cls]}
		if predErr != nil {
			hyps[i] = failedHypothesis(angle, predErr)
		}
	}

	res := Resolve(hyps, c.cfg.ConfidenceThreshold)
	res.Strategy = StrategyClassifier
	if res.LowConfidence {
		// Below threshold the prediction is not trusted; leave the page as is.
		res.BestAngle = 0
		res.CurrentOrientation = 0
	}
	return res
}

// Predict returns per-class probabilities for current orientations 0, 90,
// 180 and 270.
func (c *Classifier) Predict(img image.Image) ([4]float64, error) {
	if img == nil {
		return [4]float64{}, errors.New("nil image")
	}
	if c.IsHeuristic() {
		return heuristicProbabilities(img), nil
	}
	return c.predictWithONNX(img)
}

func (c *Classifier) predictWithONNX(img image.Image) ([4]float64, error) {
	input, err := c.prepareInputTensor(img)
	if err != nil {
		return [4]float64{}, err
	}
	defer func() { _ = input.Destroy() }()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return [4]float64{}, errors.New("classifier closed")
	}

	outputs := []onnxrt.Value{nil}
	if err := c.session.Run([]onnxrt.Value{input}, outputs); err != nil {
		return [4]float64{}, fmt.Errorf("run: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				_ = o.Destroy()
			}
		}
	}()

	t, ok := outputs[0].(*onnxrt.Tensor[float32])
	if !ok {
		return [4]float64{}, fmt.Errorf("unexpected output type %T", outputs[0])
	}
	shape := t.GetShape()
	if len(shape) != 2 || shape[1] < 4 {
		return [4]float64{}, fmt.Errorf("unexpected output shape %v", shape)
	}

	var probs [4]float64
	copy(probs[:], onnx.Softmax(t.GetData()[:4]))
	return probs, nil
}

func (c *Classifier) prepareInputTensor(img image.Image) (*onnxrt.Tensor[float32], error) {
	inH, inW := c.inH, c.inW
	if inH <= 0 || inW <= 0 {
		inH, inW = 224, 224
	}

	resized := imaging.Resize(img, inW, inH, imaging.Lanczos)
	data, w, h, err := utils.NormalizeImage(resized)
	if err != nil {
		return nil, err
	}
	tensor, err := onnx.NewImageTensor(data, 3, h, w)
	if err != nil {
		return nil, err
	}
	if err := onnx.VerifyImageTensor(tensor); err != nil {
		return nil, err
	}

	input, err := onnxrt.NewTensor(onnxrt.NewShape(tensor.Shape...), tensor.Data)
	if err != nil {
		return nil, fmt.Errorf("tensor: %w", err)
	}
	return input, nil
}

// Warmup runs one dummy inference so the first real call is not slowed by
// lazy session initialization.
func (c *Classifier) Warmup() error {
	if c.IsHeuristic() {
		return nil
	}
	_, err := c.predictWithONNX(image.NewRGBA(image.Rect(0, 0, 224, 224)))
	return err
}
