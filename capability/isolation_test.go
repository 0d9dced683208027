package capability

import (
	"testing"
	"time"

	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/stretchr/testify/assert"
)

func TestCheckIsolationDenyWinsOverAllow(t *testing.T) {
	policy := IsolationPolicy{
		AllowPatterns: []string{"math.*"},
		DenyPatterns:  []string{"math.danger*"},
	}
	err := checkIsolation(policy, "math.dangerous", time.Now())
	assert.Error(t, err)
	assert.Equal(t, ccoserr.KindPermissionDenied, ccoserr.KindOf(err))
}

func TestCheckIsolationAllowListRequiresMatch(t *testing.T) {
	policy := IsolationPolicy{AllowPatterns: []string{"math.*"}}
	assert.NoError(t, checkIsolation(policy, "math.add", time.Now()))
	assert.Error(t, checkIsolation(policy, "net.fetch", time.Now()))
}

func TestCheckIsolationNoAllowListAllowsAnythingNotDenied(t *testing.T) {
	policy := IsolationPolicy{DenyPatterns: []string{"net.*"}}
	assert.NoError(t, checkIsolation(policy, "math.add", time.Now()))
	assert.Error(t, checkIsolation(policy, "net.fetch", time.Now()))
}

func TestCheckIsolationTimeConstraint(t *testing.T) {
	now := time.Date(2026, 7, 30, 14, 0, 0, 0, time.UTC)
	policy := IsolationPolicy{Time: TimeConstraints{AllowedHours: []int{9, 10, 11}}}
	assert.Error(t, checkIsolation(policy, "math.add", now))

	policy.Time.AllowedHours = []int{14}
	assert.NoError(t, checkIsolation(policy, "math.add", now))
}
