package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultEvaluator(dir GroupDirectory) *Evaluator {
	return NewEvaluator(DefaultRules(dir)...)
}

func TestEvaluator_DenyOverridesEverything(t *testing.T) {
	eval := defaultEvaluator(stubDirectory{group: "teamX", rights: NewRights(RightRead, RightWrite)})

	// Full rights plus a matching group still lose to an explicit deny.
	d := eval.Decide(snapshotWith(NewRights(RightRead, RightWrite, RightDelete), true, "teamX"), RightRead)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonExplicitlyDenied, d.Reason)
}

func TestEvaluator_DenyWinsRegardlessOfRuleOrder(t *testing.T) {
	// Grant-producing rules registered before the deny rule must not win.
	eval := NewEvaluator(ExplicitRightsRule{}, ExplicitDenyRule{})

	d := eval.Decide(snapshotWith(NewRights(RightRead), true), RightRead)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonExplicitlyDenied, d.Reason)
}

func TestEvaluator_ExplicitRightAllows(t *testing.T) {
	eval := defaultEvaluator(nil)

	d := eval.Decide(snapshotWith(NewRights(RightRead), false), RightRead)
	assert.True(t, d.Allowed)
	assert.Empty(t, d.Reason)
}

func TestEvaluator_AllAbstainDeniesWithNoGrant(t *testing.T) {
	eval := defaultEvaluator(stubDirectory{group: "other", rights: NewRights(RightRead)})

	d := eval.Decide(snapshotWith(0, false, "teamX"), RightRead)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNoGrant, d.Reason)
}

func TestEvaluator_ReadOnlyCallerAskingWrite(t *testing.T) {
	eval := defaultEvaluator(nil)

	d := eval.Decide(snapshotWith(NewRights(RightRead), false), RightWrite)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNoGrant, d.Reason)
}

func TestEvaluator_GroupGrantAllows(t *testing.T) {
	eval := defaultEvaluator(stubDirectory{group: "teamX", rights: NewRights(RightWrite)})

	d := eval.Decide(snapshotWith(0, false, "teamX"), RightWrite)
	assert.True(t, d.Allowed)
}

func TestEvaluator_NoRulesDeniesEverything(t *testing.T) {
	eval := NewEvaluator()

	d := eval.Decide(snapshotWith(NewRights(RightRead), false), RightRead)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNoGrant, d.Reason)
}

func TestEvaluator_FiltersNilRules(t *testing.T) {
	eval := NewEvaluator(nil, ExplicitRightsRule{}, nil)

	d := eval.Decide(snapshotWith(NewRights(RightRead), false), RightRead)
	assert.True(t, d.Allowed)
}

func TestEvaluator_ExplainReportsEveryRule(t *testing.T) {
	eval := defaultEvaluator(stubDirectory{group: "teamX", rights: NewRights(RightRead)})

	verdicts, d := eval.Explain(snapshotWith(NewRights(RightRead), true, "teamX"), RightRead)
	require.Len(t, verdicts, 3)

	byRule := map[string]Verdict{}
	for _, v := range verdicts {
		byRule[v.Rule] = v.Verdict
	}
	// Explain does not short-circuit: the grants are still visible next to the deny.
	assert.Equal(t, VerdictDeny, byRule["explicit_deny"])
	assert.Equal(t, VerdictGrant, byRule["explicit_rights"])
	assert.Equal(t, VerdictGrant, byRule["group_membership"])
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonExplicitlyDenied, d.Reason)
}

func TestEvaluator_DecideIsDeterministic(t *testing.T) {
	eval := defaultEvaluator(stubDirectory{group: "teamX", rights: NewRights(RightWrite)})
	snap := snapshotWith(NewRights(RightRead), false, "teamX")

	first := eval.Decide(snap, RightWrite)
	second := eval.Decide(snap, RightWrite)
	assert.Equal(t, first, second)
}
