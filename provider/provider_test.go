package provider

import (
	"context"
	"strings"
	"testing"
)

type backendConfig struct {
	Path    string
	Threads int
}

// testProvider implements the Provider interface for testing.
type testProvider struct {
	name string
	cfg  backendConfig
}

func (p *testProvider) Name() string                       { return p.name }
func (p *testProvider) IsAvailable(_ context.Context) bool { return true }

func TestRegistryRegisterAndCreate(t *testing.T) {
	reg := NewRegistry[backendConfig, *testProvider]()
	reg.RegisterFactory("tflite", func(cfg backendConfig) (*testProvider, error) {
		return &testProvider{name: "tflite", cfg: cfg}, nil
	})

	p, err := reg.Create("tflite", backendConfig{Path: "model.tflite", Threads: 2})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if p.Name() != "tflite" {
		t.Errorf("expected name 'tflite', got %q", p.Name())
	}
	if p.cfg.Threads != 2 || p.cfg.Path != "model.tflite" {
		t.Errorf("expected config to reach the factory, got %+v", p.cfg)
	}
	if !reg.Has("tflite") || reg.Has("onnx") {
		t.Error("unexpected Has result")
	}
}

func TestRegistryCreateUnregistered(t *testing.T) {
	reg := NewRegistry[backendConfig, *testProvider]()
	reg.RegisterFactory("tflite", func(backendConfig) (*testProvider, error) { return &testProvider{}, nil })

	_, err := reg.Create("missing", backendConfig{})
	if err == nil {
		t.Fatal("expected error for unregistered factory")
	}
	if !strings.Contains(err.Error(), "not registered") || !strings.Contains(err.Error(), "tflite") {
		t.Errorf("expected error to list available factories, got %q", err.Error())
	}
}

func TestRegistryList(t *testing.T) {
	reg := NewRegistry[backendConfig, *testProvider]()
	for _, name := range []string{"beta", "alpha", "gamma"} {
		reg.RegisterFactory(name, func(backendConfig) (*testProvider, error) { return &testProvider{}, nil })
	}
	got := reg.List()
	want := []string{"alpha", "beta", "gamma"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected sorted %v, got %v", want, got)
		}
	}
}
