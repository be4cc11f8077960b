package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Faultbox/densitybaker/pkg/volume"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"configuration", volume.ConfigError("shape", "no shape selected"), 2},
		{"wrapped configuration", fmt.Errorf("volbake.yaml: %w", volume.ConfigError("falloff", "bad")), 2},
		{"allocation", volume.ValidateResolution(volume.MaxResolution + 1), 3},
		{"indexing", volume.IndexError("reassemble", "layer count %d", 3), 4},
		{"plain", errors.New("disk full"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
