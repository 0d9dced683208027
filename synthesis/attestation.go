package synthesis

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mandubian/ccos-sub008/capability"
	"github.com/mandubian/ccos-sub008/ccoserr"
)

// AttestationAuthority signs a passing ValidationResult into a
// capability.Attestation (spec §4.H "Attestation is required for dispatch
// when the Marketplace is configured with security.require_attestation").
// It is a separate, swappable step from Validate so an operator can plug
// in a real signing key without touching the rule set.
type AttestationAuthority struct {
	Name string
	TTL  time.Duration
	Sign func(payload []byte) (string, error)
}

// NewAttestationAuthority builds an authority that signs with a plain
// content hash when sign is nil, matching causalchain's own SHA-256
// content-addressing idiom rather than inventing a bespoke signature
// format for a concern the spec leaves unspecified.
func NewAttestationAuthority(name string, ttl time.Duration, sign func([]byte) (string, error)) *AttestationAuthority {
	if sign == nil {
		sign = hashSign
	}
	return &AttestationAuthority{Name: name, TTL: ttl, Sign: sign}
}

func hashSign(payload []byte) (string, error) {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// Attest signs manifest+plSource into a capability.Attestation and
// capability.Provenance, refusing when the validation did not Pass (spec
// §4.H: attestation follows "a passing validation run").
func (a *AttestationAuthority) Attest(manifest *capability.Manifest, plSource string, result ValidationResult, source string) (*capability.Attestation, *capability.Provenance, error) {
	if result.Status != StatusPassed && result.Status != StatusPassedWithWarnings {
		return nil, nil, ccoserr.New(ccoserr.KindUnknownCapability, "cannot attest capability %q: validation status %s", manifest.ID, result.Status)
	}

	payload := []byte(manifest.ID + "\x00" + plSource)
	sig, err := a.Sign(payload)
	if err != nil {
		return nil, nil, ccoserr.Wrap(ccoserr.KindInternalError, err, "signing attestation for %q failed", manifest.ID)
	}
	contentHash := sha256.Sum256(payload)

	now := time.Now()
	attestation := &capability.Attestation{
		Signature: sig,
		Authority: a.Name,
		CreatedAt: now,
		ExpiresAt: now.Add(a.ttl()),
		Metadata: map[string]string{
			"security_score":   fmt.Sprintf("%.2f", result.SecurityScore),
			"quality_score":    fmt.Sprintf("%.2f", result.QualityScore),
			"compliance_score": fmt.Sprintf("%.2f", result.ComplianceScore),
			"status":           string(result.Status),
		},
	}
	provenance := &capability.Provenance{
		ContentHash:  hex.EncodeToString(contentHash[:]),
		Version:      "1",
		CustodyChain: []string{source},
		Source:       source,
		RegisteredAt: now,
	}
	return attestation, provenance, nil
}

func (a *AttestationAuthority) ttl() time.Duration {
	if a.TTL <= 0 {
		return 24 * time.Hour
	}
	return a.TTL
}
