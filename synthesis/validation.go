package synthesis

import (
	"regexp"
	"strings"

	"github.com/mandubian/ccos-sub008/capability"
)

// Severity classifies a validation Issue's weight in the score formula
// (spec §4.H "each issue subtracts by severity").
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
	SeverityInfo     Severity = "Info"
)

// Dimension is the score bucket an Issue counts against.
type Dimension string

const (
	DimensionSecurity   Dimension = "Security"
	DimensionQuality    Dimension = "Quality"
	DimensionCompliance Dimension = "Compliance"
)

// Issue is one rule violation found during validation.
type Issue struct {
	Rule      string
	Dimension Dimension
	Severity  Severity
	Detail    string
}

// Status is ValidationResult's overall verdict (spec §4.H status rules).
type Status string

const (
	StatusPassed             Status = "Passed"
	StatusPassedWithWarnings Status = "PassedWithWarnings"
	StatusSecurityFailed     Status = "SecurityFailed"
	StatusComplianceFailed   Status = "ComplianceFailed"
	StatusFailed             Status = "Failed"
)

// ValidationResult is the harness's verdict for one (manifest, pl_source)
// pair (spec §4.H).
type ValidationResult struct {
	Status          Status
	Issues          []Issue
	SecurityScore   float64
	QualityScore    float64
	ComplianceScore float64
	Metadata        map[string]string
}

// severityDelta picks the subtraction amount the spec names for a given
// (dimension, severity) pair: Critical costs more against Security (0.5)
// than elsewhere (0.4), similarly High (0.3 vs 0.2); Medium/Low/Info are
// flat across dimensions.
func severityDelta(dim Dimension, sev Severity) float64 {
	switch sev {
	case SeverityCritical:
		if dim == DimensionSecurity {
			return 0.5
		}
		return 0.4
	case SeverityHigh:
		if dim == DimensionSecurity {
			return 0.3
		}
		return 0.2
	case SeverityMedium:
		return 0.1
	case SeverityLow:
		return 0.05
	case SeverityInfo:
		return 0.01
	default:
		return 0
	}
}

// Rule checks one concern against a candidate manifest/PL body. Security,
// quality, and compliance rules all share this shape; Validate groups them
// by their own Dimension() rather than by which slice they were
// registered in, so a caller can mix rule sets freely.
type Rule interface {
	Name() string
	Dimension() Dimension
	Check(manifest *capability.Manifest, plSource string) []Issue
}

// Validator runs a configured rule set and scores the result (spec §4.H).
type Validator struct {
	Rules []Rule
}

// DefaultValidator wires the built-in security/quality/compliance rules
// named in spec §4.H: hardcoded secrets, SQL injection, auth-required
// (security); error handling, input validation, documentation
// completeness (quality); GDPR, audit trail (compliance).
func DefaultValidator() *Validator {
	return &Validator{Rules: []Rule{
		hardcodedSecretsRule{},
		sqlInjectionRule{},
		authRequiredRule{},
		errorHandlingRule{},
		inputValidationRule{},
		documentationRule{},
		gdprRule{},
		auditTrailRule{},
	}}
}

func (v *Validator) Validate(manifest *capability.Manifest, plSource string) ValidationResult {
	scores := map[Dimension]float64{DimensionSecurity: 1, DimensionQuality: 1, DimensionCompliance: 1}
	var issues []Issue
	for _, r := range v.Rules {
		found := r.Check(manifest, plSource)
		issues = append(issues, found...)
		for _, issue := range found {
			scores[issue.Dimension] -= severityDelta(issue.Dimension, issue.Severity)
		}
	}
	for dim, s := range scores {
		scores[dim] = clip(s)
	}

	return ValidationResult{
		Status:          deriveStatus(issues),
		Issues:          issues,
		SecurityScore:   scores[DimensionSecurity],
		QualityScore:    scores[DimensionQuality],
		ComplianceScore: scores[DimensionCompliance],
	}
}

func clip(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// deriveStatus applies spec §4.H's status precedence: SecurityFailed >
// ComplianceFailed > Failed > PassedWithWarnings > Passed.
func deriveStatus(issues []Issue) Status {
	hasCriticalIn := func(dim Dimension) bool {
		for _, i := range issues {
			if i.Dimension == dim && i.Severity == SeverityCritical {
				return true
			}
		}
		return false
	}
	hasAnyCritical := false
	hasHighOrMedium := false
	for _, i := range issues {
		if i.Severity == SeverityCritical {
			hasAnyCritical = true
		}
		if i.Severity == SeverityHigh || i.Severity == SeverityMedium {
			hasHighOrMedium = true
		}
	}

	switch {
	case hasCriticalIn(DimensionSecurity):
		return StatusSecurityFailed
	case hasCriticalIn(DimensionCompliance):
		return StatusComplianceFailed
	case hasAnyCritical:
		return StatusFailed
	case hasHighOrMedium:
		return StatusPassedWithWarnings
	default:
		return StatusPassed
	}
}

// --- built-in rules ---

type hardcodedSecretsRule struct{}

var secretPattern = regexp.MustCompile(`(?i)(api[_-]?key|secret|password|token)\s*[:=]?\s*"[^"]{8,}"`)

func (hardcodedSecretsRule) Name() string        { return "hardcoded_secrets" }
func (hardcodedSecretsRule) Dimension() Dimension { return DimensionSecurity }
func (hardcodedSecretsRule) Check(_ *capability.Manifest, plSource string) []Issue {
	if secretPattern.MatchString(plSource) {
		return []Issue{{Rule: "hardcoded_secrets", Dimension: DimensionSecurity, Severity: SeverityCritical, Detail: "literal secret-shaped string in capability body"}}
	}
	return nil
}

type sqlInjectionRule struct{}

var sqlConcatPattern = regexp.MustCompile(`(?i)(select|insert|update|delete)\b.*\+\s*`)

func (sqlInjectionRule) Name() string        { return "sql_injection" }
func (sqlInjectionRule) Dimension() Dimension { return DimensionSecurity }
func (sqlInjectionRule) Check(_ *capability.Manifest, plSource string) []Issue {
	if sqlConcatPattern.MatchString(plSource) {
		return []Issue{{Rule: "sql_injection", Dimension: DimensionSecurity, Severity: SeverityCritical, Detail: "SQL statement built by string concatenation"}}
	}
	return nil
}

type authRequiredRule struct{}

func (authRequiredRule) Name() string        { return "auth_required" }
func (authRequiredRule) Dimension() Dimension { return DimensionSecurity }
func (authRequiredRule) Check(manifest *capability.Manifest, _ string) []Issue {
	if manifest != nil && manifest.BaseURL != "" && manifest.AuthToken == "" {
		return []Issue{{Rule: "auth_required", Dimension: DimensionSecurity, Severity: SeverityHigh, Detail: "remote endpoint configured without an auth token"}}
	}
	return nil
}

type errorHandlingRule struct{}

func (errorHandlingRule) Name() string        { return "error_handling" }
func (errorHandlingRule) Dimension() Dimension { return DimensionQuality }
func (errorHandlingRule) Check(_ *capability.Manifest, plSource string) []Issue {
	if !strings.Contains(plSource, "try") && !strings.Contains(plSource, "match") {
		return []Issue{{Rule: "error_handling", Dimension: DimensionQuality, Severity: SeverityMedium, Detail: "no try/match form to handle a failing call"}}
	}
	return nil
}

type inputValidationRule struct{}

func (inputValidationRule) Name() string        { return "input_validation" }
func (inputValidationRule) Dimension() Dimension { return DimensionQuality }
func (inputValidationRule) Check(manifest *capability.Manifest, _ string) []Issue {
	if manifest != nil && manifest.InputSchema == nil {
		return []Issue{{Rule: "input_validation", Dimension: DimensionQuality, Severity: SeverityMedium, Detail: "manifest declares no input schema"}}
	}
	return nil
}

type documentationRule struct{}

func (documentationRule) Name() string        { return "documentation_completeness" }
func (documentationRule) Dimension() Dimension { return DimensionQuality }
func (documentationRule) Check(manifest *capability.Manifest, _ string) []Issue {
	if manifest != nil && strings.TrimSpace(manifest.Description) == "" {
		return []Issue{{Rule: "documentation_completeness", Dimension: DimensionQuality, Severity: SeverityLow, Detail: "manifest has no description"}}
	}
	return nil
}

type gdprRule struct{}

var personalDataKeywords = []string{"email", "ssn", "address", "phone", "date_of_birth"}

func (gdprRule) Name() string        { return "gdpr" }
func (gdprRule) Dimension() Dimension { return DimensionCompliance }
func (gdprRule) Check(manifest *capability.Manifest, _ string) []Issue {
	if manifest == nil {
		return nil
	}
	lower := strings.ToLower(manifest.Description)
	for _, kw := range personalDataKeywords {
		if strings.Contains(lower, kw) {
			return []Issue{{Rule: "gdpr", Dimension: DimensionCompliance, Severity: SeverityHigh, Detail: "capability appears to handle personal data without a declared retention policy"}}
		}
	}
	return nil
}

type auditTrailRule struct{}

func (auditTrailRule) Name() string        { return "audit_trail" }
func (auditTrailRule) Dimension() Dimension { return DimensionCompliance }
func (auditTrailRule) Check(_ *capability.Manifest, plSource string) []Issue {
	if strings.Contains(strings.ToLower(plSource), "delete") {
		return []Issue{{Rule: "audit_trail", Dimension: DimensionCompliance, Severity: SeverityMedium, Detail: "destructive operation without an explicit audit log call"}}
	}
	return nil
}
