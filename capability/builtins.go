package capability

import (
	"context"

	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

// AskFunc prompts an operator/user and returns their reply — the runtime
// session layer supplies the real implementation (spec §4.K); a nil
// AskFunc makes ccos.user.ask fail loudly rather than hang.
type AskFunc func(ctx context.Context, inputs value.Value) (value.Value, error)

// EmitFunc delivers a plan's final output somewhere observable — the
// runtime session layer's event stream in production, a test sink in
// unit tests.
type EmitFunc func(ctx context.Context, inputs value.Value) error

// RegisterCoreBuiltins wires the core built-in capabilities onto registry
// and mp: the two every fallback path in the Modular Planner resolves to
// (spec §4.G step 5: ccos.user.ask, ccos.output.emit), plus
// ccos.synthesis.pending, ccos.echo and ccos.math.add. Call once at
// startup after RegisterExecutor(ProviderLocal, registry.Executor()).
func RegisterCoreBuiltins(mp *Marketplace, registry *LocalRegistry, ask AskFunc, emit EmitFunc) error {
	registry.Register("ccos.user.ask", func(ctx context.Context, inputs value.Value) (value.Value, error) {
		if ask == nil {
			return value.Nil, ccoserr.New(ccoserr.KindInternalError, "ccos.user.ask: no interactive host configured")
		}
		return ask(ctx, inputs)
	})
	registry.Register("ccos.output.emit", func(ctx context.Context, inputs value.Value) (value.Value, error) {
		if emit == nil {
			return inputs, nil
		}
		if err := emit(ctx, inputs); err != nil {
			return value.Nil, err
		}
		return inputs, nil
	})
	registry.Register("ccos.synthesis.pending", func(_ context.Context, inputs value.Value) (value.Value, error) {
		return value.Nil, ccoserr.New(ccoserr.KindUnknownCapability, "capability is pending synthesis and cannot yet be called")
	})
	registry.Register("ccos.echo", func(_ context.Context, inputs value.Value) (value.Value, error) {
		return inputs, nil
	})
	registry.Register("ccos.math.add", func(_ context.Context, inputs value.Value) (value.Value, error) {
		args, ok := inputs.MapGet(value.KeywordKey("args"))
		if !ok {
			return value.Nil, ccoserr.New(ccoserr.KindSchemaError, "ccos.math.add: inputs must be a map with an :args vector")
		}
		items, ok := args.Items()
		if !ok {
			return value.Nil, ccoserr.New(ccoserr.KindSchemaError, "ccos.math.add: :args must be a list or vector")
		}
		var sum int64
		for _, it := range items {
			n, ok := it.Int()
			if !ok {
				return value.Nil, ccoserr.New(ccoserr.KindSchemaError, "ccos.math.add: :args must contain only integers")
			}
			sum += n
		}
		return value.Int(sum), nil
	})

	if err := mp.RegisterBuiltin(&Manifest{ID: "ccos.user.ask", Description: "ask the operator a question and return their reply", ProviderType: ProviderLocal}); err != nil {
		return err
	}
	if err := mp.RegisterBuiltin(&Manifest{ID: "ccos.output.emit", Description: "emit a value as the plan's observable output", ProviderType: ProviderLocal}); err != nil {
		return err
	}
	if err := mp.RegisterBuiltin(&Manifest{ID: "ccos.synthesis.pending", Description: "placeholder for a sub-intent awaiting synthesis", ProviderType: ProviderLocal}); err != nil {
		return err
	}
	if err := mp.RegisterBuiltin(&Manifest{ID: "ccos.echo", Description: "return its input unchanged", ProviderType: ProviderLocal}); err != nil {
		return err
	}
	return mp.RegisterBuiltin(&Manifest{ID: "ccos.math.add", Description: "sum the integers in :args", ProviderType: ProviderLocal})
}
