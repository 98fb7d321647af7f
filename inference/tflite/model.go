// Package tflite runs a TensorFlow Lite image classifier as an inference
// backend. The model is loaded once per run by Start and released by Stop.
package tflite

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	tfl "github.com/tphakala/go-tflite"
	"golang.org/x/image/draw"

	"github.com/kbukum/orthotile/component"
	"github.com/kbukum/orthotile/inference"
	"github.com/kbukum/orthotile/logger"
	"github.com/kbukum/orthotile/tiling"
)

// Backend is the registry name of this backend.
const Backend = "tflite"

// ImageNet channel statistics, the default input normalisation.
var (
	ImageNetMean = [3]float32{0.485, 0.456, 0.406}
	ImageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

// Config configures a Model.
type Config struct {
	Path    string
	Labels  []string
	Threads int
	Mean    [3]float32
	Std     [3]float32
}

// Model is a TensorFlow Lite classifier. Execution is serialised.
type Model struct {
	cfg  Config
	name string
	log  *logger.Logger

	mu          sync.Mutex
	model       *tfl.Model
	options     *tfl.InterpreterOptions
	interpreter *tfl.Interpreter
	inH, inW    int
	outN        int
}

var (
	_ inference.Model     = (*Model)(nil)
	_ component.Component = (*Model)(nil)
)

// New returns an unloaded model. Zero Mean and Std select the ImageNet
// statistics.
func New(cfg Config) *Model {
	if cfg.Std == ([3]float32{}) {
		cfg.Mean, cfg.Std = ImageNetMean, ImageNetStd
	}
	if cfg.Threads < 1 {
		cfg.Threads = 1
	}
	return &Model{cfg: cfg, name: inference.ModelName(cfg.Path), log: logger.Get("inference")}
}

// Factory builds a model from a backend configuration, loading labels from
// cfg.LabelsPath.
func Factory(cfg inference.ModelConfig) (inference.Model, error) {
	labels, err := inference.LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}
	return New(Config{Path: cfg.Path, Labels: labels, Threads: cfg.Threads}), nil
}

// Register adds this backend to r.
func Register(r *inference.Registry) {
	r.RegisterFactory(Backend, Factory)
}

func (m *Model) Name() string     { return m.name }
func (m *Model) Labels() []string { return m.cfg.Labels }

func (m *Model) IsAvailable(_ context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interpreter != nil
}

// Start loads the model and allocates its tensors.
func (m *Model) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.interpreter != nil {
		return nil
	}

	data, err := os.ReadFile(m.cfg.Path)
	if err != nil {
		return fmt.Errorf("read model: %w", err)
	}
	model := tfl.NewModel(data)
	if model == nil {
		return fmt.Errorf("cannot load TensorFlow Lite model %s", m.cfg.Path)
	}
	options := tfl.NewInterpreterOptions()
	options.SetNumThread(m.cfg.Threads)
	options.SetErrorReporter(func(msg string, _ any) {
		m.log.Error("tflite error", logger.Fields("message", msg))
	}, nil)

	interpreter := tfl.NewInterpreter(model, options)
	if interpreter == nil {
		options.Delete()
		model.Delete()
		return fmt.Errorf("cannot create interpreter")
	}
	if status := interpreter.AllocateTensors(); status != tfl.OK {
		interpreter.Delete()
		options.Delete()
		model.Delete()
		return fmt.Errorf("tensor allocation failed: %v", status)
	}

	in := interpreter.GetInputTensor(0)
	out := interpreter.GetOutputTensor(0)
	if in == nil || out == nil || in.NumDims() != 4 || in.Dim(3) != 3 {
		interpreter.Delete()
		options.Delete()
		model.Delete()
		return fmt.Errorf("model input must be NHWC with 3 channels")
	}

	m.model, m.options, m.interpreter = model, options, interpreter
	m.inH, m.inW = in.Dim(1), in.Dim(2)
	m.outN = out.Dim(out.NumDims() - 1)
	if len(m.cfg.Labels) != m.outN {
		m.log.Warn("label count differs from model outputs", logger.Fields(
			"labels", len(m.cfg.Labels), "outputs", m.outN))
	}
	m.log.Info("model loaded", logger.Fields(
		logger.FieldPath, m.cfg.Path,
		"input", fmt.Sprintf("%dx%d", m.inW, m.inH),
		"outputs", m.outN,
		"threads", m.cfg.Threads,
	))
	return nil
}

// Stop releases the interpreter.
func (m *Model) Stop(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.interpreter == nil {
		return nil
	}
	m.interpreter.Delete()
	m.options.Delete()
	m.model.Delete()
	m.interpreter, m.options, m.model = nil, nil, nil
	return nil
}

func (m *Model) Health(ctx context.Context) component.Health {
	if m.IsAvailable(ctx) {
		return component.Health{Name: m.Name(), Status: component.StatusHealthy}
	}
	return component.Health{Name: m.Name(), Status: component.StatusUnhealthy, Message: "model not loaded"}
}

// Execute runs the model over frames one at a time and returns the raw
// output vector of each, in order.
func (m *Model) Execute(ctx context.Context, frames []tiling.Frame) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.interpreter == nil {
		return nil, fmt.Errorf("model %s is not loaded", m.name)
	}

	out := make([][]float32, len(frames))
	for i, f := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		input := m.interpreter.GetInputTensor(0)
		m.preprocess(f, input.Float32s())
		if status := m.interpreter.Invoke(); status != tfl.OK {
			return nil, fmt.Errorf("invoke frame %d: %v", i, status)
		}
		res := m.interpreter.GetOutputTensor(0).Float32s()
		vec := make([]float32, m.outN)
		copy(vec, res)
		out[i] = vec
	}
	return out, nil
}

// preprocess resizes f to the model input and writes normalised HWC
// values into dst.
func (m *Model) preprocess(f tiling.Frame, dst []float32) {
	resized := Resize(f, m.inW, m.inH)
	Normalize(resized, m.cfg.Mean, m.cfg.Std, dst)
}

// Resize scales a frame to w x h with bilinear interpolation.
func Resize(f tiling.Frame, w, h int) *image.RGBA {
	src := image.NewRGBA(image.Rect(0, 0, f.Side, f.Side))
	for i, j := 0, 0; i+2 < len(f.Pix); i, j = i+3, j+4 {
		src.Pix[j], src.Pix[j+1], src.Pix[j+2], src.Pix[j+3] = f.Pix[i], f.Pix[i+1], f.Pix[i+2], 0xff
	}
	if w == f.Side && h == f.Side {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// Normalize writes (v/255 - mean) / std per channel, row-major HWC.
func Normalize(img *image.RGBA, mean, std [3]float32, dst []float32) {
	b := img.Bounds()
	k := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := 0; x < b.Dx() && k+2 < len(dst); x++ {
			for c := 0; c < 3; c++ {
				dst[k+c] = (float32(row[x*4+c])/255 - mean[c]) / std[c]
			}
			k += 3
		}
	}
}
