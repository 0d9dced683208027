package capability

import (
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mandubian/ccos-sub008/ccoserr"
)

// checkIsolation enforces spec §4.C step 2: deny patterns win over allow
// patterns, an empty allow list means "allow everything not denied", and
// time constraints are checked last so the reported reason is the most
// specific one available.
func checkIsolation(policy IsolationPolicy, capabilityID string, now time.Time) error {
	for _, pat := range policy.DenyPatterns {
		if globMatch(pat, capabilityID) {
			return ccoserr.New(ccoserr.KindPermissionDenied, "capability %q matches deny pattern %q", capabilityID, pat).
				WithReasons("deny:" + pat)
		}
	}
	if len(policy.AllowPatterns) > 0 {
		allowed := false
		for _, pat := range policy.AllowPatterns {
			if globMatch(pat, capabilityID) {
				allowed = true
				break
			}
		}
		if !allowed {
			return ccoserr.New(ccoserr.KindPermissionDenied, "capability %q matches no allow pattern", capabilityID).
				WithReasons("no-allow-match")
		}
	}
	if !policy.Time.allows(now) {
		return ccoserr.New(ccoserr.KindPermissionDenied, "capability %q invoked outside its allowed time window", capabilityID).
			WithReasons("time-constraint")
	}
	return nil
}

func globMatch(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	if err != nil {
		return false
	}
	return ok
}
