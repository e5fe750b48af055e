package sandbox

import (
	"context"
	"testing"
)

func TestNoopProviderRejects(t *testing.T) {
	p := NoopProvider{}
	_, err := p.Run(context.Background(), Spec{Command: []string{"echo", "hi"}})
	if err == nil {
		t.Fatal("expected NoopProvider to reject every spec")
	}
}

func TestDefaultLimitsAreConservative(t *testing.T) {
	l := DefaultLimits()
	if l.MemoryLimitMB <= 0 || l.CPULimitMillis <= 0 || l.WallClock <= 0 {
		t.Errorf("default limits should all be positive, got %+v", l)
	}
}
