// Package microvm defines the sandbox contract every program and capability
// executes behind (spec §4.D): a uniform Provider interface with Mock,
// Process, and optionally gVisor/Firecracker backends, all honouring the
// same resource/permission contract.
package microvm

import (
	"context"
	"strings"

	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

// OperationClass is the coarse permission bucket a Program is classified
// into by keyword scan, checked against ExecutionContext.CapabilityPermissions
// before a Provider will run it.
type OperationClass string

const (
	OperationNetwork OperationClass = "network"
	OperationFile    OperationClass = "file"
	OperationProcess OperationClass = "process"
	OperationPure    OperationClass = "pure"
)

// ProgramKind discriminates the Program sum type.
type ProgramKind string

const (
	ProgramPlSource      ProgramKind = "PlSource"
	ProgramBytecode      ProgramKind = "Bytecode"
	ProgramExternal      ProgramKind = "ExternalProgram"
	ProgramNativeFunction ProgramKind = "NativeFunction"
)

// Program is the sum type `Program ∈ {PlSource(str), Bytecode(bytes),
// ExternalProgram{path,args}, NativeFunction(closure ref)}` from spec §4.D.
type Program struct {
	Kind ProgramKind

	PlSource string
	Bytecode []byte

	Path string
	Args []string

	Native value.Closure
}

func NewPlSourceProgram(src string) Program { return Program{Kind: ProgramPlSource, PlSource: src} }

func NewBytecodeProgram(b []byte) Program { return Program{Kind: ProgramBytecode, Bytecode: b} }

func NewExternalProgram(path string, args ...string) Program {
	return Program{Kind: ProgramExternal, Path: path, Args: args}
}

func NewNativeFunctionProgram(c value.Closure) Program {
	return Program{Kind: ProgramNativeFunction, Native: c}
}

var networkKeywords = []string{"http-fetch", "http.get", "http.post", "curl", "wget", "net.dial", "tcp://", "https://", "http://"}
var fileKeywords = []string{"/bin/cat", "file-read", "file-write", "os.readfile", "os.writefile", "/etc/", "cat ", "rm ", ">>"}

// IsNetworkOperation reports whether the program's source or external path
// looks like it performs network I/O, per a keyword scan (spec §4.D).
func (p Program) IsNetworkOperation() bool {
	return containsAny(p.scanText(), networkKeywords)
}

// IsFileOperation reports whether the program's source or external path
// looks like it performs filesystem I/O.
func (p Program) IsFileOperation() bool {
	return containsAny(p.scanText(), fileKeywords)
}

// OperationClass classifies the program into the coarsest bucket its scan
// matches; network takes precedence over file, which takes precedence over
// a bare external-process invocation, which takes precedence over pure.
func (p Program) OperationClass() OperationClass {
	switch {
	case p.IsNetworkOperation():
		return OperationNetwork
	case p.IsFileOperation():
		return OperationFile
	case p.Kind == ProgramExternal:
		return OperationProcess
	default:
		return OperationPure
	}
}

func (p Program) scanText() string {
	switch p.Kind {
	case ProgramPlSource:
		return p.PlSource
	case ProgramExternal:
		return p.Path + " " + strings.Join(p.Args, " ")
	default:
		return ""
	}
}

func containsAny(haystack string, needles []string) bool {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

// NetworkPolicy constrains outbound network access for a sandboxed run.
type NetworkPolicy struct {
	Enabled      bool
	AllowDomains []string
}

// FSPolicy constrains filesystem access for a sandboxed run.
type FSPolicy struct {
	Ephemeral  bool
	ReadOnly   []string
	ReadWrite  []string
}

// Config carries the per-call resource envelope (spec §4.D
// `config{timeout, memory_mb, cpu, network_policy, fs_policy, env}`).
type Config struct {
	TimeoutMS     int64
	MemoryMB      float64
	CPUSeconds    float64
	NetworkPolicy NetworkPolicy
	FSPolicy      FSPolicy
	Env           map[string]string
}

// DefaultConfig matches the spec's default provider timeout (§5 "Timeouts").
func DefaultConfig() Config {
	return Config{TimeoutMS: 30_000}
}

// ExecutionContext carries everything a Provider needs to run a Program or
// a capability call under sandbox.
type ExecutionContext struct {
	ExecutionID string

	Program      *Program
	CapabilityID string

	// CapabilityPermissions enumerates the OperationClasses this execution
	// is allowed to exercise; a Program whose detected class is absent is
	// refused with SecurityViolation before the provider touches it.
	CapabilityPermissions []OperationClass

	Args   value.Value
	Config Config

	// RuntimeContext carries caller-supplied security/session context
	// (session id, plan id) that providers may use for logging/metadata
	// but must not use to bypass permission checks.
	RuntimeContext map[string]string
}

func (ec ExecutionContext) permitted(class OperationClass) bool {
	if class == OperationPure {
		return true
	}
	for _, p := range ec.CapabilityPermissions {
		if p == class {
			return true
		}
	}
	return false
}

// CheckPermission refuses execution of a Program whose detected operation
// class isn't present in CapabilityPermissions (spec §4.D).
func (ec ExecutionContext) CheckPermission() error {
	if ec.Program == nil {
		return nil
	}
	class := ec.Program.OperationClass()
	if !ec.permitted(class) {
		return ccoserr.New(ccoserr.KindSecurityViolation, "capability %q is not permitted to perform %s operations", ec.CapabilityID, class).
			WithReasons(string(class))
	}
	return nil
}

// ResultMetadata carries best-effort resource accounting for a completed
// execution (spec §4.D `ExecutionResult{value, metadata{duration,
// memory_used_mb, cpu_time}}`).
type ResultMetadata struct {
	DurationMS  int64
	MemoryUsedMB float64
	CPUTimeMS   int64
}

// Result is the outcome of Provider.ExecuteProgram/ExecuteCapability.
type Result struct {
	Value    value.Value
	Metadata ResultMetadata
}

// Provider is the uniform sandbox contract every MicroVM backend implements
// (spec §4.D): `execute_program` and `execute_capability`.
type Provider interface {
	ExecuteProgram(ctx context.Context, ec ExecutionContext) (Result, error)
	ExecuteCapability(ctx context.Context, ec ExecutionContext) (Result, error)

	// Name identifies the provider for logging and config selection
	// (`microvm.provider` in config.Config).
	Name() string
}
