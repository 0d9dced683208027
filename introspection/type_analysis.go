package introspection

import (
	"context"
	"sort"

	"github.com/mandubian/ccos-sub008/capability"
	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/pl"
	"github.com/mandubian/ccos-sub008/planner"
	"github.com/mandubian/ccos-sub008/value"
)

// TypeAnalysis answers introspect.type_analysis (spec §4.J): parse a plan's
// PL body (given directly as plan_rtfs, or looked up by plan_id), collect
// every capability id its `call` forms reference, and report which are
// unknown to the Marketplace or carry a `:any`/absent schema.
type TypeAnalysis struct {
	Marketplace *capability.Marketplace
	Archive     planner.PlanArchive
}

func NewTypeAnalysis(mp *capability.Marketplace, archive planner.PlanArchive) *TypeAnalysis {
	return &TypeAnalysis{Marketplace: mp, Archive: archive}
}

func (t *TypeAnalysis) Call(ctx context.Context, inputs value.Value) (value.Value, error) {
	body, err := t.resolveBody(ctx, inputs)
	if err != nil {
		return value.Nil, err
	}

	forms, err := pl.Parse(body)
	if err != nil {
		return value.Nil, ccoserr.Wrap(ccoserr.KindParseError, err, "type_analysis: parsing plan body failed")
	}

	ids := map[string]bool{}
	for _, form := range forms {
		collectCallIDs(form, ids)
	}

	var missing, untyped []string
	for id := range ids {
		manifest, ok := t.Marketplace.Lookup(id)
		if !ok {
			missing = append(missing, id)
			continue
		}
		if manifest.InputSchema == nil || manifest.InputSchema.Kind == value.TypeAny ||
			manifest.OutputSchema == nil || manifest.OutputSchema.Kind == value.TypeAny {
			untyped = append(untyped, id)
		}
	}
	sort.Strings(missing)
	sort.Strings(untyped)

	suggested := inferOutputSchema(forms, t.Marketplace)

	return value.Map(
		value.Entry(value.KeywordKey("capability-ids"), value.VectorOf(stringVector(sortedKeys(ids)))),
		value.Entry(value.KeywordKey("missing-capabilities"), value.VectorOf(stringVector(missing))),
		value.Entry(value.KeywordKey("untyped-capabilities"), value.VectorOf(stringVector(untyped))),
		value.Entry(value.KeywordKey("suggested-output-type"), value.String(suggested.String())),
	), nil
}

func (t *TypeAnalysis) resolveBody(ctx context.Context, inputs value.Value) (string, error) {
	if body, ok := strInput(inputs, "plan_rtfs"); ok {
		return body, nil
	}
	planID, ok := strInput(inputs, "plan_id")
	if !ok {
		return "", ccoserr.New(ccoserr.KindParseError, "type_analysis requires plan_id or plan_rtfs")
	}
	p, ok, err := t.Archive.GetByID(ctx, planID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ccoserr.New(ccoserr.KindUnknownCapability, "type_analysis: no archived plan %q", planID)
	}
	return p.Body, nil
}

func collectCallIDs(form value.Value, ids map[string]bool) {
	if form.Kind() != value.KindList && form.Kind() != value.KindVector && form.Kind() != value.KindMap {
		return
	}
	if form.Kind() == value.KindMap {
		for _, k := range form.MapKeys() {
			v, _ := form.MapGet(k)
			collectCallIDs(v, ids)
		}
		return
	}
	items, ok := form.Items()
	if !ok {
		return
	}
	if form.Kind() == value.KindList && len(items) >= 2 {
		if head, ok := items[0].Str(); ok && head == "call" {
			if id, ok := items[1].Str(); ok {
				ids[id] = true
			}
		}
	}
	for _, it := range items {
		collectCallIDs(it, ids)
	}
}

// inferOutputSchema suggests the last top-level form's output type when it
// is a single known `call`, falling back to :any — a best-effort hint, not a
// type checker.
func inferOutputSchema(forms []value.Value, mp *capability.Marketplace) *value.TypeExpr {
	if len(forms) == 0 {
		return value.Any()
	}
	last := forms[len(forms)-1]
	items, ok := last.Items()
	if !ok || last.Kind() != value.KindList || len(items) < 2 {
		return value.Any()
	}
	head, ok := items[0].Str()
	if !ok || head != "call" {
		return value.Any()
	}
	id, ok := items[1].Str()
	if !ok {
		return value.Any()
	}
	manifest, ok := mp.Lookup(id)
	if !ok || manifest.OutputSchema == nil {
		return value.Any()
	}
	return manifest.OutputSchema
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func stringVector(ss []string) []value.Value {
	out := make([]value.Value, len(ss))
	for i, s := range ss {
		out[i] = value.String(s)
	}
	return out
}
