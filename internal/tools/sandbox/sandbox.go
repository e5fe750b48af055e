// Package sandbox defines the generic isolation-container contract tool
// implementations run inside: network off by default, a memory/cpu
// ceiling, and a read-only filesystem plus a scratch volume. It has no
// concrete backend — spec.md places "individual tool implementations
// beyond their contracts" out of scope, so the concrete isolation
// technology (microVM, container runtime, etc.) is a caller concern.
// Grounded on the teacher's internal/tools/sandbox/modes.go.
package sandbox

import (
	"context"
	"fmt"
	"time"
)

// Limits describes the resource ceiling applied to a sandboxed execution.
type Limits struct {
	MemoryLimitMB  int
	CPULimitMillis int
	WallClock      time.Duration
}

// Mounts describes the filesystem surface exposed to the sandboxed
// process: a read-only root plus one writable scratch directory, matching
// the teacher's workspace-jail convention used by the shell sandbox too.
type Mounts struct {
	ReadOnlyRoot string
	ScratchDir   string
}

// Spec is the full isolation request a Provider executes.
type Spec struct {
	NetworkEnabled bool
	Limits         Limits
	Mounts         Mounts
	Command        []string
	Env            map[string]string
}

// Result is what a Provider returns after running a Spec to completion.
type Result struct {
	ExitCode  int
	Stdout    string
	Stderr    string
	TimedOut  bool
	OOMKilled bool
}

// Provider executes a Spec inside an isolated container and returns its
// Result. Concrete providers (microVM-backed, container-runtime-backed)
// live outside this module's scope; Provider is the seam a caller wires a
// real backend into.
type Provider interface {
	Run(ctx context.Context, spec Spec) (Result, error)
}

// NoopProvider rejects every Spec. It exists so the registry always has a
// non-nil Provider to fall back on when no concrete backend is configured,
// producing a clear error instead of a nil-pointer panic.
type NoopProvider struct{}

func (NoopProvider) Run(ctx context.Context, spec Spec) (Result, error) {
	return Result{}, fmt.Errorf("sandbox: no isolation provider configured for command %v", spec.Command)
}

// DefaultLimits returns a conservative ceiling suitable for untrusted
// tool code, matching the teacher's sandbox default mode.
func DefaultLimits() Limits {
	return Limits{MemoryLimitMB: 512, CPULimitMillis: 1000, WallClock: 30 * time.Second}
}
