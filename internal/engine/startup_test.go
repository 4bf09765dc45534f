package engine

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

type mockBackend struct {
	isRunning bool
	models    map[string]bool
	pulled    []string
}

func (m *mockBackend) IsRunning(_ context.Context) bool { return m.isRunning }
func (m *mockBackend) ListModels(_ context.Context) ([]string, error) {
	var names []string
	for n := range m.models {
		names = append(names, n)
	}
	return names, nil
}
func (m *mockBackend) HasModel(_ context.Context, name string) bool { return m.models[name] }
func (m *mockBackend) PullModel(_ context.Context, name string, cb func(PullProgress)) error {
	m.pulled = append(m.pulled, name)
	if cb != nil {
		cb(PullProgress{Status: "success"})
	}
	return nil
}

func TestEnsureReady_ModelPresent(t *testing.T) {
	m := &mockBackend{isRunning: true, models: map[string]bool{"llama3.1": true}}
	var out bytes.Buffer
	if err := EnsureReady(context.Background(), m, "llama3.1", false, &out); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if !strings.Contains(out.String(), "model llama3.1: ready") {
		t.Errorf("output = %q", out.String())
	}
}

func TestEnsureReady_ReportsMissingWithoutPull(t *testing.T) {
	m := &mockBackend{isRunning: true, models: map[string]bool{}}
	var out bytes.Buffer
	if err := EnsureReady(context.Background(), m, "llama3.1", false, &out); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if len(m.pulled) != 0 {
		t.Errorf("pulled %v without pull flag", m.pulled)
	}
	if !strings.Contains(out.String(), "not found") {
		t.Errorf("output = %q", out.String())
	}
}

func TestEnsureReady_PullsMissing(t *testing.T) {
	m := &mockBackend{isRunning: true, models: map[string]bool{}}
	var out bytes.Buffer
	if err := EnsureReady(context.Background(), m, "llama3.1", true, &out); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if len(m.pulled) != 1 || m.pulled[0] != "llama3.1" {
		t.Errorf("pulled = %v", m.pulled)
	}
}

func TestEnsureReady_BackendDown(t *testing.T) {
	m := &mockBackend{isRunning: false}
	var out bytes.Buffer
	if err := EnsureReady(context.Background(), m, "llama3.1", true, &out); err == nil {
		t.Fatal("expected error when backend is down")
	}
}
