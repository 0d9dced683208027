package microvm

import (
	"context"
	"os/exec"

	"github.com/mandubian/ccos-sub008/ccoserr"
)

// FirecrackerBinaryName is the firecracker VMM binary; its presence gates
// the Firecracker provider the same way runsc gates GVisor.
const FirecrackerBinaryName = "firecracker"

// Firecracker wraps program/capability execution in a microVM. Like
// GVisor, CCOS detects the binary but does not ship kernel/rootfs images
// and has no setting that names them, so every call refuses with
// ProviderError.
type Firecracker struct {
	binaryPath string
}

func NewFirecracker() *Firecracker {
	path, _ := exec.LookPath(FirecrackerBinaryName)
	return &Firecracker{binaryPath: path}
}

func (f *Firecracker) Name() string { return "firecracker" }

func (f *Firecracker) Available() bool { return f.binaryPath != "" }

func (f *Firecracker) ExecuteProgram(ctx context.Context, ec ExecutionContext) (Result, error) {
	if !f.Available() {
		return Result{}, ccoserr.New(ccoserr.KindProviderError, "firecracker provider: %s not found on PATH", FirecrackerBinaryName)
	}
	if err := ec.CheckPermission(); err != nil {
		return Result{}, err
	}
	return Result{}, ccoserr.New(ccoserr.KindProviderError, "firecracker provider: no kernel/rootfs configured for capability %q", ec.CapabilityID)
}

func (f *Firecracker) ExecuteCapability(ctx context.Context, ec ExecutionContext) (Result, error) {
	return f.ExecuteProgram(ctx, ec)
}
