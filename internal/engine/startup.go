package engine

import (
	"context"
	"fmt"
	"io"
)

// EnsureReady checks that a local backend is reachable and reports whether
// model is available. When pull is set a missing model is downloaded with
// progress written to w.
func EnsureReady(ctx context.Context, b LocalBackend, model string, pull bool, w io.Writer) error {
	if !b.IsRunning(ctx) {
		return fmt.Errorf("Ollama is not running. Start it with: ollama serve")
	}
	if model == "" {
		return nil
	}

	if b.HasModel(ctx, model) {
		fmt.Fprintf(w, "model %s: ready\n", model)
		return nil
	}
	if !pull {
		fmt.Fprintf(w, "model %s: not found (run: qalobby models pull %s)\n", model, model)
		return nil
	}

	fmt.Fprintf(w, "model %s: pulling...\n", model)
	err := b.PullModel(ctx, model, func(p PullProgress) {
		if p.Total > 0 {
			pct := float64(p.Completed) / float64(p.Total) * 100
			fmt.Fprintf(w, "  %s %.0f%%\n", p.Status, pct)
		} else {
			fmt.Fprintf(w, "  %s\n", p.Status)
		}
	})
	if err != nil {
		return fmt.Errorf("pulling model %s: %w", model, err)
	}
	fmt.Fprintf(w, "model %s: ready\n", model)
	return nil
}
