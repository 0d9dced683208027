package capability

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/mandubian/ccos-sub008/ccoserr"
)

// ManifestSchemaValidator checks a candidate manifest document (as produced
// by discovery introspection or capability synthesis) against a JSON Schema
// before it is handed to Register, catching malformed manifests earlier
// than the validation harness's security/quality rules would (spec §4.H).
type ManifestSchemaValidator struct {
	schema *jsonschema.Schema
}

// NewManifestSchemaValidator compiles schemaJSON once for reuse across
// every candidate manifest.
func NewManifestSchemaValidator(schemaJSON []byte) (*ManifestSchemaValidator, error) {
	var doc any
	if err := json.Unmarshal(schemaJSON, &doc); err != nil {
		return nil, ccoserr.Wrap(ccoserr.KindSchemaError, err, "parsing manifest JSON schema")
	}
	compiler := jsonschema.NewCompiler()
	const resourceName = "ccos://capability-manifest.schema.json"
	if err := compiler.AddResource(resourceName, doc); err != nil {
		return nil, ccoserr.Wrap(ccoserr.KindSchemaError, err, "adding manifest JSON schema resource")
	}
	schema, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, ccoserr.Wrap(ccoserr.KindSchemaError, err, "compiling manifest JSON schema")
	}
	return &ManifestSchemaValidator{schema: schema}, nil
}

// Validate checks candidateJSON (a manifest document, not a capability
// input/output payload) against the compiled schema.
func (v *ManifestSchemaValidator) Validate(candidateJSON []byte) error {
	var instance any
	dec := json.NewDecoder(bytes.NewReader(candidateJSON))
	dec.UseNumber()
	if err := dec.Decode(&instance); err != nil {
		return ccoserr.Wrap(ccoserr.KindSchemaError, err, "parsing candidate manifest JSON")
	}
	if err := v.schema.Validate(instance); err != nil {
		return ccoserr.Wrap(ccoserr.KindSchemaError, err, "candidate manifest failed schema validation")
	}
	return nil
}
