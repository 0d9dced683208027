package capability

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestWatcherLoadAllRegistersCapabilities(t *testing.T) {
	dir := t.TempDir()
	writeManifestFile(t, dir, "weather.yaml", `
id: weather.current
description: get current weather conditions for a city
provider_type: http
base_url: https://weather.example.test
`)

	mp := NewMarketplace(nil, false)
	w, err := NewManifestWatcher(mp, nil, nil)
	require.NoError(t, err)

	w.LoadAll([]string{dir})

	m, ok := mp.Lookup("weather.current")
	require.True(t, ok)
	assert.Equal(t, ProviderHTTP, m.ProviderType)
}

func TestManifestWatcherReloadsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	path := writeManifestFile(t, dir, "weather.yaml", `
id: weather.current
description: v1
provider_type: http
`)

	mp := NewMarketplace(nil, false)
	w, err := NewManifestWatcher(mp, nil, nil)
	require.NoError(t, err)
	w.debounce = 20 * time.Millisecond
	w.LoadAll([]string{dir})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Watch(ctx, []string{dir}) }()

	require.NoError(t, os.WriteFile(path, []byte("id: weather.current\ndescription: v2\nprovider_type: http\n"), 0644))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m, ok := mp.Lookup("weather.current"); ok && m.Description == "v2" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("manifest was not reloaded after file change")
}

func TestManifestWatcherValidatesAgainstSchema(t *testing.T) {
	dir := t.TempDir()
	writeManifestFile(t, dir, "bad.yaml", `
id: broken.capability
description: missing required provider_type field entirely
`)

	schema := []byte(`{
		"type": "object",
		"required": ["id", "provider_type"],
		"properties": {
			"id": {"type": "string"},
			"provider_type": {"type": "string", "minLength": 1}
		}
	}`)
	validator, err := NewManifestSchemaValidator(schema)
	require.NoError(t, err)

	mp := NewMarketplace(nil, false)
	w, err := NewManifestWatcher(mp, validator, nil)
	require.NoError(t, err)

	w.LoadAll([]string{filepath.Join(dir)})

	_, ok := mp.Lookup("broken.capability")
	assert.False(t, ok, "manifest failing schema validation must not be registered")
}
