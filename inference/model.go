package inference

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/kbukum/orthotile/provider"
	"github.com/kbukum/orthotile/tiling"
)

// Classifier is the request/response shape of a classification backend.
type Classifier = provider.RequestResponse[[]tiling.Frame, [][]float32]

// Model is a classifier together with its class names, in output order.
type Model interface {
	Classifier
	Labels() []string
}

// ModelConfig selects and configures a backend.
type ModelConfig struct {
	Backend    string
	Path       string
	LabelsPath string
	Threads    int
}

// Registry maps backend names to model factories.
type Registry = provider.Registry[ModelConfig, Model]

// NewRegistry returns an empty backend registry.
func NewRegistry() *Registry {
	return provider.NewRegistry[ModelConfig, Model]()
}

// ModelName derives a classifier identifier from a model path or a
// repository-style id: the last element without its extension.
func ModelName(id string) string {
	base := path.Base(filepath.ToSlash(strings.TrimRight(id, "/\\")))
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// FuncModel is a Model backed by a function.
type FuncModel struct {
	ModelName string
	Classes   []string
	Fn        func(ctx context.Context, frames []tiling.Frame) ([][]float32, error)
}

func (m *FuncModel) Name() string                       { return m.ModelName }
func (m *FuncModel) IsAvailable(_ context.Context) bool { return m.Fn != nil }
func (m *FuncModel) Labels() []string                   { return m.Classes }

func (m *FuncModel) Execute(ctx context.Context, frames []tiling.Frame) ([][]float32, error) {
	return m.Fn(ctx, frames)
}
