package microvm

import (
	"context"
	"os/exec"

	"github.com/mandubian/ccos-sub008/ccoserr"
)

// GVisorBinaryName is the runsc binary gVisor installs; its presence on
// PATH gates whether the gVisor provider is usable (spec §4.D "gVisor…
// Optional; guarded by capability detection of the runtime binary").
const GVisorBinaryName = "runsc"

// GVisor wraps program/capability execution in a runsc sandbox. Detection
// of the `runsc` binary happens at construction; Available reports whether
// that binary was found. No program kind is run yet: see ExecuteProgram.
type GVisor struct {
	binaryPath string
}

// NewGVisor probes PATH for the runsc binary. If absent, the returned
// provider's Available() is false and every Execute* call fails fast with
// ProviderError rather than silently falling back to an unsandboxed run.
func NewGVisor() *GVisor {
	path, _ := exec.LookPath(GVisorBinaryName)
	return &GVisor{binaryPath: path}
}

func (g *GVisor) Name() string { return "gvisor" }

// Available reports whether the runsc binary was found on PATH.
func (g *GVisor) Available() bool { return g.binaryPath != "" }

func (g *GVisor) ExecuteProgram(ctx context.Context, ec ExecutionContext) (Result, error) {
	if !g.Available() {
		return Result{}, ccoserr.New(ccoserr.KindProviderError, "gvisor provider: %s not found on PATH", GVisorBinaryName)
	}
	if err := ec.CheckPermission(); err != nil {
		return Result{}, err
	}
	// Container/VM lifecycle (creating a runsc sandbox, mounting the
	// rootfs, tearing it down) is the provider's responsibility per spec
	// §4.D; CCOS does not ship a rootfs builder, so every program kind other
	// than ExternalProgram is refused, and ExternalProgram is refused too
	// because no rootfs is configured.
	if ec.Program == nil || ec.Program.Kind != ProgramExternal {
		return Result{}, ccoserr.New(ccoserr.KindProviderError, "gvisor provider: only ExternalProgram is supported")
	}
	return Result{}, ccoserr.New(ccoserr.KindProviderError, "gvisor provider: no rootfs configured for capability %q", ec.CapabilityID)
}

func (g *GVisor) ExecuteCapability(ctx context.Context, ec ExecutionContext) (Result, error) {
	return g.ExecuteProgram(ctx, ec)
}
