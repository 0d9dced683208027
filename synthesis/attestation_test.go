package synthesis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub008/capability"
)

func TestAttestationAuthoritySignsPassingResult(t *testing.T) {
	auth := NewAttestationAuthority("ccos-synthesis", time.Hour, nil)
	manifest := &capability.Manifest{ID: "weather.current"}
	result := ValidationResult{Status: StatusPassed, SecurityScore: 1, QualityScore: 1, ComplianceScore: 1}

	attestation, provenance, err := auth.Attest(manifest, "(call :weather.api {})", result, "llm_synthesis")
	require.NoError(t, err)
	assert.Equal(t, "ccos-synthesis", attestation.Authority)
	assert.NotEmpty(t, attestation.Signature)
	assert.True(t, attestation.ExpiresAt.After(attestation.CreatedAt))
	assert.Equal(t, "llm_synthesis", provenance.Source)
	assert.NotEmpty(t, provenance.ContentHash)
}

func TestAttestationAuthorityAcceptsPassedWithWarnings(t *testing.T) {
	auth := NewAttestationAuthority("ccos-synthesis", time.Hour, nil)
	result := ValidationResult{Status: StatusPassedWithWarnings}
	_, _, err := auth.Attest(&capability.Manifest{ID: "x"}, "body", result, "discovery")
	require.NoError(t, err)
}

func TestAttestationAuthorityRefusesFailingResult(t *testing.T) {
	auth := NewAttestationAuthority("ccos-synthesis", time.Hour, nil)
	result := ValidationResult{Status: StatusSecurityFailed}
	_, _, err := auth.Attest(&capability.Manifest{ID: "x"}, "body", result, "discovery")
	require.Error(t, err)
}

func TestAttestationAuthorityUsesCustomSigner(t *testing.T) {
	auth := NewAttestationAuthority("custom", time.Minute, func(payload []byte) (string, error) {
		return "signed:" + string(payload), nil
	})
	attestation, _, err := auth.Attest(&capability.Manifest{ID: "x"}, "body", ValidationResult{Status: StatusPassed}, "test")
	require.NoError(t, err)
	assert.Equal(t, "signed:x\x00body", attestation.Signature)
}

func TestAttestationAuthorityDefaultsTTL(t *testing.T) {
	auth := NewAttestationAuthority("a", 0, nil)
	attestation, _, err := auth.Attest(&capability.Manifest{ID: "x"}, "body", ValidationResult{Status: StatusPassed}, "test")
	require.NoError(t, err)
	assert.InDelta(t, 24*time.Hour, attestation.ExpiresAt.Sub(attestation.CreatedAt), float64(time.Second))
}
