// Package introspection implements the four built-in introspection
// capabilities (spec §4.J): capability_graph, plan_trace, type_analysis, and
// causal_chain, registered under the reserved ccos.introspect.* namespace
// (SPEC_FULL.md §4 "Capability namespace reservation").
package introspection

import (
	"github.com/mandubian/ccos-sub008/value"
)

func strInput(inputs value.Value, key string) (string, bool) {
	v, ok := inputs.MapGet(value.KeywordKey(key))
	if !ok {
		return "", false
	}
	return v.Str()
}

func intInput(inputs value.Value, key string) (int64, bool) {
	v, ok := inputs.MapGet(value.KeywordKey(key))
	if !ok {
		return 0, false
	}
	return v.Int()
}

func boolInput(inputs value.Value, key string) bool {
	v, ok := inputs.MapGet(value.KeywordKey(key))
	if !ok {
		return false
	}
	b, _ := v.Bool()
	return b
}
