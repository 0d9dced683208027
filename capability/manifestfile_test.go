package capability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadManifestFileParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeManifestFile(t, dir, "weather.yaml", `
id: weather.current
description: get current weather conditions for a city
provider_type: http
base_url: https://weather.example.test
timeout_ms: 5000
allow_patterns:
  - "weather.*"
`)

	m, err := LoadManifestFile(path)
	require.NoError(t, err)
	assert.Equal(t, "weather.current", m.ID)
	assert.Equal(t, ProviderHTTP, m.ProviderType)
	assert.Equal(t, int64(5000), m.TimeoutMS)
	assert.Equal(t, []string{"weather.*"}, m.Isolation.AllowPatterns)
	assert.NotNil(t, m.InputSchema)
	assert.Equal(t, path, m.Provenance.Source)
}

func TestLoadManifestFileRejectsMissingID(t *testing.T) {
	dir := t.TempDir()
	path := writeManifestFile(t, dir, "bad.yaml", "description: no id here\n")

	_, err := LoadManifestFile(path)
	require.Error(t, err)
}
