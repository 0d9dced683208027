package capability

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

// FileManifest is the on-disk (YAML or JSON) shape of a capability
// manifest pack entry — a flattened subset of Manifest that a human or a
// synthesis pipeline can author by hand. InputSchema/OutputSchema are not
// representable in this flattened form (TypeExpr has no YAML mapping of
// its own); a loaded FileManifest always gets value.Any() for both, same
// as a hand-synthesized capability with no declared schema.
type FileManifest struct {
	ID            string   `yaml:"id" json:"id"`
	Description   string   `yaml:"description" json:"description"`
	ProviderType  string   `yaml:"provider_type" json:"provider_type"`
	TimeoutMS     int64    `yaml:"timeout_ms" json:"timeout_ms"`
	BaseURL       string   `yaml:"base_url" json:"base_url"`
	Operation     string   `yaml:"operation" json:"operation"`
	AllowPatterns []string `yaml:"allow_patterns" json:"allow_patterns"`
	DenyPatterns  []string `yaml:"deny_patterns" json:"deny_patterns"`
}

// ParseManifestFile reads and YAML-decodes (a superset of JSON, so .json
// packs work too) a single manifest pack file without registering it.
func ParseManifestFile(path string) (*FileManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest file: %w", err)
	}
	var fm FileManifest
	if err := yaml.Unmarshal(data, &fm); err != nil {
		return nil, fmt.Errorf("parse manifest file %s: %w", path, err)
	}
	if fm.ID == "" {
		return nil, ccoserr.New(ccoserr.KindSchemaError, "manifest file %s has no id", path)
	}
	return &fm, nil
}

// JSON re-encodes the FileManifest as JSON so it can be checked against a
// ManifestSchemaValidator before ToManifest's result is registered.
func (fm FileManifest) JSON() ([]byte, error) {
	return json.Marshal(fm)
}

// ToManifest converts the flattened file shape into a Manifest ready for
// Marketplace.Register.
func (fm FileManifest) ToManifest(sourcePath string) *Manifest {
	return &Manifest{
		ID:           fm.ID,
		Description:  fm.Description,
		ProviderType: ProviderType(fm.ProviderType),
		InputSchema:  value.Any(),
		OutputSchema: value.Any(),
		TimeoutMS:    fm.TimeoutMS,
		BaseURL:      fm.BaseURL,
		Operation:    fm.Operation,
		Isolation: IsolationPolicy{
			AllowPatterns: fm.AllowPatterns,
			DenyPatterns:  fm.DenyPatterns,
		},
		Provenance: &Provenance{Source: sourcePath},
	}
}

// LoadManifestFile parses path and converts it directly into a Manifest,
// for callers that don't need schema validation in between.
func LoadManifestFile(path string) (*Manifest, error) {
	fm, err := ParseManifestFile(path)
	if err != nil {
		return nil, err
	}
	return fm.ToManifest(path), nil
}
