package providers

import (
	"context"
	"strings"

	"github.com/mandubian/ccos-sub008/capability"
	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/microvm"
	"github.com/mandubian/ccos-sub008/value"
)

// Sandbox dispatches ProviderSandbox manifests through a microvm.Provider
// (spec §4.D "every program and capability executes behind" the MicroVM
// sandbox contract) rather than running them in-process: the manifest's
// BaseURL names the external program path, and the capability's inputs
// become the program's Args.
type Sandbox struct {
	Provider    microvm.Provider
	Permissions []microvm.OperationClass
}

// NewSandbox wires provider with CCOS's default permission set: Process and
// Pure operations only — a sandboxed capability wanting Network or File
// access must be granted those classes explicitly via WithPermissions.
func NewSandbox(provider microvm.Provider) *Sandbox {
	return &Sandbox{Provider: provider, Permissions: []microvm.OperationClass{microvm.OperationProcess, microvm.OperationPure}}
}

func (s *Sandbox) WithPermissions(classes ...microvm.OperationClass) *Sandbox {
	s.Permissions = classes
	return s
}

func (s *Sandbox) Execute(ctx context.Context, manifest *capability.Manifest, inputs value.Value) (value.Value, error) {
	if manifest.BaseURL == "" {
		return value.Nil, ccoserr.New(ccoserr.KindInternalError, "sandbox provider: manifest %q has no program path (BaseURL)", manifest.ID)
	}
	ec := microvm.ExecutionContext{
		ExecutionID:           manifest.ID,
		Program:               programFor(manifest),
		CapabilityID:          manifest.ID,
		CapabilityPermissions: s.Permissions,
		Args:                  inputs,
		Config:                configFor(manifest),
	}
	result, err := s.Provider.ExecuteCapability(ctx, ec)
	if err != nil {
		// microvm providers already return correctly-kinded ccoserr errors
		// (SecurityViolation for a denied permission, Timeout, etc.) — pass
		// them through so callers like the exit-code mapper in cmd/ccosd see
		// the real failure class instead of a blanket ProviderError.
		return value.Nil, err
	}
	return result.Value, nil
}

func programFor(manifest *capability.Manifest) *microvm.Program {
	args := strings.Fields(manifest.Operation)
	p := microvm.NewExternalProgram(manifest.BaseURL, args...)
	return &p
}

func configFor(manifest *capability.Manifest) microvm.Config {
	cfg := microvm.DefaultConfig()
	if manifest.TimeoutMS > 0 {
		cfg.TimeoutMS = manifest.TimeoutMS
	}
	if manifest.Isolation.Resources.MaxMemoryMB > 0 {
		cfg.MemoryMB = manifest.Isolation.Resources.MaxMemoryMB
	}
	if manifest.Isolation.Resources.MaxCPUSeconds > 0 {
		cfg.CPUSeconds = manifest.Isolation.Resources.MaxCPUSeconds
	}
	return cfg
}
