package documents

import (
	"fmt"
	"strings"
)

// MissingPolicy decides what happens when the requested object is absent.
type MissingPolicy string

const (
	// IssueAnyway logs the miss and still issues a container credential.
	IssueAnyway MissingPolicy = "issue_anyway"
	// Deny answers with a failure response.
	Deny MissingPolicy = "deny"
)

// ParseMissingPolicy validates a configured policy name.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch p := MissingPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case IssueAnyway, Deny:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
}
