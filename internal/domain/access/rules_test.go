package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// stubDirectory maps one group to one rights set.
type stubDirectory struct {
	group  string
	rights Rights
}

func (d stubDirectory) HasRight(group string, required Right) bool {
	return group == d.group && d.rights.Has(required)
}

func snapshotWith(rights Rights, deny bool, groups ...string) Snapshot {
	return NewSnapshot("caller-1", "doc-1", rights, deny, groups, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
}

func TestExplicitRightsRule(t *testing.T) {
	rule := ExplicitRightsRule{}

	assert.Equal(t, VerdictGrant, rule.Evaluate(snapshotWith(NewRights(RightRead), false), RightRead))
	assert.Equal(t, VerdictAbstain, rule.Evaluate(snapshotWith(NewRights(RightRead), false), RightWrite))
	assert.Equal(t, VerdictAbstain, rule.Evaluate(snapshotWith(0, false), RightRead))
}

func TestGroupMembershipRule(t *testing.T) {
	dir := stubDirectory{group: "teamX", rights: NewRights(RightWrite)}
	rule := GroupMembershipRule{Directory: dir}

	assert.Equal(t, VerdictGrant, rule.Evaluate(snapshotWith(0, false, "teamX"), RightWrite))
	assert.Equal(t, VerdictAbstain, rule.Evaluate(snapshotWith(0, false, "teamX"), RightDelete))
	assert.Equal(t, VerdictAbstain, rule.Evaluate(snapshotWith(0, false, "teamY"), RightWrite))
	assert.Equal(t, VerdictAbstain, rule.Evaluate(snapshotWith(0, false), RightWrite))
}

func TestGroupMembershipRule_NilDirectoryAbstains(t *testing.T) {
	rule := GroupMembershipRule{}
	assert.Equal(t, VerdictAbstain, rule.Evaluate(snapshotWith(0, false, "teamX"), RightRead))
}

func TestExplicitDenyRule(t *testing.T) {
	rule := ExplicitDenyRule{}

	assert.Equal(t, VerdictDeny, rule.Evaluate(snapshotWith(NewRights(RightRead, RightWrite), true), RightRead))
	assert.Equal(t, VerdictAbstain, rule.Evaluate(snapshotWith(NewRights(RightRead), false), RightRead))
}

func TestDefaultRules_OrderIsDenyFirst(t *testing.T) {
	rules := DefaultRules(stubDirectory{})
	assert.Len(t, rules, 3)
	assert.Equal(t, "explicit_deny", rules[0].Name())
	assert.Equal(t, "explicit_rights", rules[1].Name())
	assert.Equal(t, "group_membership", rules[2].Name())
}
