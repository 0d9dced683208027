package microvm

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/pl"
	"github.com/mandubian/ccos-sub008/value"
)

// Process is the default non-mock provider: it runs PlSource programs
// in-process via the PL interpreter, and ExternalProgram programs as an OS
// subprocess under a timeout (spec §4.D "Process"). NativeFunction
// programs are rejected with ProviderError. Bytecode programs are rejected;
// CCOS has no bytecode compiler, only a source-level interpreter.
type Process struct {
	interp *pl.Interpreter
	host   pl.Host
}

// NewProcess builds a Process provider. host is the PL Host the interpreter
// dispatches `call` forms through; pass pl.NewNoopHost() for sandboxed runs
// that must not reach the Marketplace.
func NewProcess(host pl.Host) *Process {
	return &Process{interp: pl.NewInterpreter(), host: host}
}

func (p *Process) Name() string { return "process" }

func (p *Process) ExecuteProgram(ctx context.Context, ec ExecutionContext) (Result, error) {
	if err := ec.CheckPermission(); err != nil {
		return Result{}, err
	}
	if ec.Program == nil {
		return Result{}, ccoserr.New(ccoserr.KindInternalError, "process provider: execute_program called with no program")
	}

	timeout := timeoutOf(ec.Config)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch ec.Program.Kind {
	case ProgramPlSource:
		return p.runSource(runCtx, ec.Program.PlSource)
	case ProgramNativeFunction:
		return p.runNative(runCtx)
	case ProgramExternal:
		return p.runExternal(runCtx, *ec.Program, ec.Config)
	case ProgramBytecode:
		return Result{}, ccoserr.New(ccoserr.KindProviderError, "process provider: bytecode programs are not supported")
	default:
		return Result{}, ccoserr.New(ccoserr.KindInternalError, "process provider: unknown program kind %q", ec.Program.Kind)
	}
}

func (p *Process) ExecuteCapability(ctx context.Context, ec ExecutionContext) (Result, error) {
	if err := ec.CheckPermission(); err != nil {
		return Result{}, err
	}
	timeout := timeoutOf(ec.Config)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	v, err := p.host.CallCapability(runCtx, ec.CapabilityID, ec.Args, pl.ActionContext{})
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return Result{}, ccoserr.New(ccoserr.KindTimeout, "capability %q exceeded %s", ec.CapabilityID, timeout)
		}
		return Result{}, err
	}
	return Result{Value: v, Metadata: ResultMetadata{DurationMS: time.Since(start).Milliseconds()}}, nil
}

func (p *Process) runSource(ctx context.Context, src string) (Result, error) {
	start := time.Now()
	forms, err := pl.Parse(src)
	if err != nil {
		return Result{}, ccoserr.Wrap(ccoserr.KindParseError, err, "process provider: parsing PL source")
	}
	if ctx.Err() == context.DeadlineExceeded {
		return Result{}, ccoserr.New(ccoserr.KindTimeout, "program execution exceeded its timeout")
	}
	v, err := p.interp.Run(forms, p.interp.Stdlib.Child(), p.host)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Result{}, ccoserr.New(ccoserr.KindTimeout, "program execution exceeded its timeout")
		}
		return Result{}, err
	}
	return Result{Value: v, Metadata: ResultMetadata{DurationMS: time.Since(start).Milliseconds()}}, nil
}

func (p *Process) runNative(ctx context.Context) (Result, error) {
	return Result{}, ccoserr.New(ccoserr.KindProviderError, "process provider: native function programs require a host-specific invoker not wired in this runtime")
}

// runExternal spawns the program as an OS process, enforcing the
// configured timeout with a hard kill.
func (p *Process) runExternal(ctx context.Context, prog Program, cfg Config) (Result, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, prog.Path, prog.Args...)
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)
	if ctx.Err() == context.DeadlineExceeded {
		return Result{}, ccoserr.New(ccoserr.KindTimeout, "external program %q exceeded %s", prog.Path, duration)
	}
	if err != nil {
		return Result{}, ccoserr.Wrap(ccoserr.KindProviderError, err, "external program %q failed: %s", prog.Path, stderr.String())
	}
	return Result{
		Value:    value.String(stdout.String()),
		Metadata: ResultMetadata{DurationMS: duration.Milliseconds()},
	}, nil
}

func timeoutOf(cfg Config) time.Duration {
	if cfg.TimeoutMS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(cfg.TimeoutMS) * time.Millisecond
}
