package telemetry

import (
	"strings"
	"testing"
)

func TestSamplerFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rate float64
		want string
	}{
		{rate: 1, want: "AlwaysOnSampler"},
		{rate: 2, want: "AlwaysOnSampler"},
		{rate: 0, want: "AlwaysOffSampler"},
		{rate: -1, want: "AlwaysOffSampler"},
		{rate: 0.25, want: "ParentBased"},
	}
	for _, tt := range tests {
		got := samplerFor(tt.rate).Description()
		if !strings.HasPrefix(got, tt.want) {
			t.Errorf("samplerFor(%v) = %q, want prefix %q", tt.rate, got, tt.want)
		}
	}
}
