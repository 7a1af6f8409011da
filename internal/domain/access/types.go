// Package access contains domain-level types for authorization: rights,
// snapshots of raw permission facts, and decisions. It is pure and free of
// framework/adapter concerns.
package access

import (
	"encoding/json"
	"fmt"
	"time"
)

// Right is a single capability a caller may hold on a resource.
// Rights are bit values so they compose into a Rights set.
type Right uint8

const (
	RightRead Right = 1 << iota
	RightWrite
	RightDelete
	RightShare
)

// rightNames maps each bit to its canonical wire name. Order matters for
// deterministic serialization.
var rightNames = []struct {
	right Right
	name  string
}{
	{RightRead, "read"},
	{RightWrite, "write"},
	{RightDelete, "delete"},
	{RightShare, "share"},
}

// String returns the canonical name of the right, or "unknown" for
// unrecognized bits.
func (r Right) String() string {
	for _, rn := range rightNames {
		if rn.right == r {
			return rn.name
		}
	}
	return "unknown"
}

// ParseRight resolves a canonical right name. Names are matched exactly;
// callers normalize case/whitespace before parsing.
func ParseRight(name string) (Right, error) {
	for _, rn := range rightNames {
		if rn.name == name {
			return rn.right, nil
		}
	}
	return 0, fmt.Errorf("unknown right %q", name)
}

// Rights is a composable set of Right values. The zero value is the empty set.
type Rights uint8

// NewRights builds a set from individual rights.
func NewRights(rr ...Right) Rights {
	var s Rights
	for _, r := range rr {
		s |= Rights(r)
	}
	return s
}

// ParseRights builds a set from canonical right names.
func ParseRights(names []string) (Rights, error) {
	var s Rights
	for _, n := range names {
		r, err := ParseRight(n)
		if err != nil {
			return 0, err
		}
		s |= Rights(r)
	}
	return s, nil
}

// Has reports whether the set contains the given right.
func (s Rights) Has(r Right) bool { return s&Rights(r) != 0 }

// With returns a copy of the set with the given right added.
func (s Rights) With(r Right) Rights { return s | Rights(r) }

// Without returns a copy of the set with the given right removed.
func (s Rights) Without(r Right) Rights { return s &^ Rights(r) }

// Union returns the combined set.
func (s Rights) Union(o Rights) Rights { return s | o }

// Remove returns a copy of the set with every right in o removed.
func (s Rights) Remove(o Rights) Rights { return s &^ o }

// IsEmpty reports whether the set contains no rights.
func (s Rights) IsEmpty() bool { return s == 0 }

// Names returns the canonical names of the contained rights in declaration
// order. An empty set returns a non-nil empty slice so JSON stays `[]`.
func (s Rights) Names() []string {
	names := make([]string, 0, len(rightNames))
	for _, rn := range rightNames {
		if s.Has(rn.right) {
			names = append(names, rn.name)
		}
	}
	return names
}

// String renders the set as a comma-joined name list, e.g. "read,write".
func (s Rights) String() string {
	out := ""
	for _, n := range s.Names() {
		if out != "" {
			out += ","
		}
		out += n
	}
	return out
}

// MarshalJSON serializes the set as a list of right names. Bit values never
// cross process boundaries.
func (s Rights) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

// UnmarshalJSON parses a list of right names.
func (s *Rights) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("rights: %w", err)
	}
	parsed, err := ParseRights(names)
	if err != nil {
		return fmt.Errorf("rights: %w", err)
	}
	*s = parsed
	return nil
}

// Snapshot is an immutable capture of the raw permission facts known about one
// (caller, resource) pair at a point in time. Refreshing constructs a new
// Snapshot; fields are never mutated after construction. ExplicitDeny=true
// overrides every positive right downstream.
type Snapshot struct {
	CallerID         string    `json:"caller_id"`
	ResourceID       string    `json:"resource_id"`
	Rights           Rights    `json:"rights"`
	ExplicitDeny     bool      `json:"explicit_deny"`
	GroupMemberships []string  `json:"group_memberships,omitempty"`
	CapturedAt       time.Time `json:"captured_at"`
}

// NewSnapshot constructs a Snapshot. The membership slice is copied so the
// caller's slice cannot mutate the snapshot afterwards.
func NewSnapshot(callerID, resourceID string, rights Rights, explicitDeny bool, groups []string, capturedAt time.Time) Snapshot {
	return Snapshot{
		CallerID:         callerID,
		ResourceID:       resourceID,
		Rights:           rights,
		ExplicitDeny:     explicitDeny,
		GroupMemberships: append([]string(nil), groups...),
		CapturedAt:       capturedAt,
	}
}

// Verdict is one rule's independent opinion on a required right.
type Verdict uint8

const (
	VerdictAbstain Verdict = iota
	VerdictGrant
	VerdictDeny
)

// String returns the lowercase verdict name.
func (v Verdict) String() string {
	switch v {
	case VerdictGrant:
		return "grant"
	case VerdictDeny:
		return "deny"
	case VerdictAbstain:
		return "abstain"
	}
	return "unknown"
}

// DenialReason explains a negative decision. Reasons are logged server-side
// and never disclosed to callers.
type DenialReason string

const (
	ReasonExplicitlyDenied DenialReason = "explicitly_denied"
	ReasonNoGrant          DenialReason = "no_grant"
)

// Decision is the outcome of evaluating a required right against a snapshot.
// Decisions live only in memory for the duration of one request; they are
// never persisted or cached.
type Decision struct {
	Allowed bool
	Reason  DenialReason
}
