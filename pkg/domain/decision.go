package domain

import (
	"encoding/json"
	"fmt"

	"esbilla/pkg/platform/sentinel"
)

// Decision is a visitor's consent choice. It is replaced wholesale on every
// decision and never patched.
type Decision struct {
	Analytics  bool `json:"analytics"`
	Marketing  bool `json:"marketing"`
	Functional bool `json:"functional"`
}

// AcceptAll grants every category.
func AcceptAll() Decision {
	return Decision{Analytics: true, Marketing: true, Functional: true}
}

// RejectAll denies every category.
func RejectAll() Decision {
	return Decision{}
}

// Allows reports the raw flag for c.
func (d Decision) Allows(c Category) bool {
	switch c {
	case CategoryAnalytics:
		return d.Analytics
	case CategoryMarketing:
		return d.Marketing
	case CategoryFunctional:
		return d.Functional
	}
	return false
}

// Granted returns the categories whose gated scripts may run. Functional
// tooling rides along with any positive signal: it is granted when the
// visitor granted analytics or marketing, not only when functional itself
// was chosen.
func (d Decision) Granted() map[Category]bool {
	granted := make(map[Category]bool, len(Categories))
	if d.Analytics {
		granted[CategoryAnalytics] = true
	}
	if d.Marketing {
		granted[CategoryMarketing] = true
	}
	if d.Functional || d.Analytics || d.Marketing {
		granted[CategoryFunctional] = true
	}
	return granted
}

// Effective returns the decision with the functional coupling applied.
func (d Decision) Effective() Decision {
	d.Functional = d.Granted()[CategoryFunctional]
	return d
}

// Encode serializes the decision for storage.
func (d Decision) Encode() string {
	b, _ := json.Marshal(d)
	return string(b)
}

// ParseDecision decodes a stored decision. Unparsable input is corrupt state:
// it wraps sentinel.ErrInvalidState and callers treat it as "no decision".
func ParseDecision(raw string) (Decision, error) {
	var d Decision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return Decision{}, fmt.Errorf("decode decision: %w: %v", sentinel.ErrInvalidState, err)
	}
	return d, nil
}
