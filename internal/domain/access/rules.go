package access

// GroupDirectory answers whether a group is known to hold a right. The mapping
// lives outside this package (static config, remote directory); rules only
// consume the lookup.
type GroupDirectory interface {
	HasRight(group string, required Right) bool
}

// Rule is one independent predicate over a snapshot. Rules are pure: no I/O,
// no stored state, evaluated fresh on every request. New rules implement this
// interface; the evaluator needs no change.
type Rule interface {
	Name() string
	Evaluate(s Snapshot, required Right) Verdict
}

// ExplicitRightsRule grants when the caller holds the required right directly.
type ExplicitRightsRule struct{}

// Name identifies the rule in logs and explain output.
func (ExplicitRightsRule) Name() string { return "explicit_rights" }

// Evaluate returns Grant when the snapshot's rights contain the required
// right, otherwise Abstain.
func (ExplicitRightsRule) Evaluate(s Snapshot, required Right) Verdict {
	if s.Rights.Has(required) {
		return VerdictGrant
	}
	return VerdictAbstain
}

// GroupMembershipRule grants when any of the caller's groups maps to the
// required right via the directory.
type GroupMembershipRule struct {
	Directory GroupDirectory
}

// Name identifies the rule in logs and explain output.
func (GroupMembershipRule) Name() string { return "group_membership" }

// Evaluate returns Grant when at least one membership holds the required
// right, otherwise Abstain. A nil directory abstains.
func (r GroupMembershipRule) Evaluate(s Snapshot, required Right) Verdict {
	if r.Directory == nil {
		return VerdictAbstain
	}
	for _, g := range s.GroupMemberships {
		if r.Directory.HasRight(g, required) {
			return VerdictGrant
		}
	}
	return VerdictAbstain
}

// ExplicitDenyRule denies when an administrator has revoked access outright.
type ExplicitDenyRule struct{}

// Name identifies the rule in logs and explain output.
func (ExplicitDenyRule) Name() string { return "explicit_deny" }

// Evaluate returns Deny when the snapshot carries an explicit deny, otherwise
// Abstain.
func (ExplicitDenyRule) Evaluate(s Snapshot, required Right) Verdict {
	if s.ExplicitDeny {
		return VerdictDeny
	}
	return VerdictAbstain
}

// DefaultRules is the standard rule set in its fixed evaluation order. Deny
// runs first so a revoked caller never triggers directory lookups.
func DefaultRules(dir GroupDirectory) []Rule {
	return []Rule{
		ExplicitDenyRule{},
		ExplicitRightsRule{},
		GroupMembershipRule{Directory: dir},
	}
}

var (
	_ Rule = ExplicitRightsRule{}
	_ Rule = GroupMembershipRule{}
	_ Rule = ExplicitDenyRule{}
)
