// Package testutil provides testing utilities and helpers for the spaarke
// authorization service.
package testutil

import (
	"time"

	"github.com/spaarke-dev/spaarke-sub016/internal/domain/access"
	"github.com/spaarke-dev/spaarke-sub016/internal/domain/identity"
)

// SnapshotBuilder provides a fluent interface for building access snapshots
// for testing.
type SnapshotBuilder struct {
	callerID   string
	resourceID string
	rights     access.Rights
	deny       bool
	groups     []string
	capturedAt time.Time
}

// NewSnapshot creates a new SnapshotBuilder with sensible defaults.
func NewSnapshot() *SnapshotBuilder {
	return &SnapshotBuilder{
		callerID:   "caller-1",
		resourceID: "doc-1",
		rights:     access.NewRights(access.RightRead),
		capturedAt: TestTime(),
	}
}

// WithCaller sets the caller identifier.
func (b *SnapshotBuilder) WithCaller(callerID string) *SnapshotBuilder {
	b.callerID = callerID
	return b
}

// WithResource sets the resource identifier.
func (b *SnapshotBuilder) WithResource(resourceID string) *SnapshotBuilder {
	b.resourceID = resourceID
	return b
}

// WithRights replaces the explicit rights.
func (b *SnapshotBuilder) WithRights(rr ...access.Right) *SnapshotBuilder {
	b.rights = access.NewRights(rr...)
	return b
}

// WithNoRights clears the explicit rights.
func (b *SnapshotBuilder) WithNoRights() *SnapshotBuilder {
	b.rights = 0
	return b
}

// WithDeny marks the pair as explicitly denied.
func (b *SnapshotBuilder) WithDeny() *SnapshotBuilder {
	b.deny = true
	return b
}

// WithGroups sets the caller's group memberships.
func (b *SnapshotBuilder) WithGroups(groups ...string) *SnapshotBuilder {
	b.groups = groups
	return b
}

// WithCapturedAt sets the capture time.
func (b *SnapshotBuilder) WithCapturedAt(t time.Time) *SnapshotBuilder {
	b.capturedAt = t
	return b
}

// Build returns the constructed snapshot.
func (b *SnapshotBuilder) Build() access.Snapshot {
	return access.NewSnapshot(b.callerID, b.resourceID, b.rights, b.deny, b.groups, b.capturedAt)
}

// PrincipalBuilder provides a fluent interface for building authenticated
// principals for testing.
type PrincipalBuilder struct {
	p identity.Principal
}

// NewPrincipal creates a new PrincipalBuilder with sensible defaults. The
// credential expires one hour after TestTime.
func NewPrincipal() *PrincipalBuilder {
	return &PrincipalBuilder{
		p: identity.Principal{
			Subject:   "caller-1",
			TenantID:  "tenant-1",
			Email:     "caller-1@example.com",
			Name:      "Caller One",
			ExpiresAt: TestTime().Add(time.Hour),
		},
	}
}

// WithSubject sets the stable caller identifier.
func (b *PrincipalBuilder) WithSubject(subject string) *PrincipalBuilder {
	b.p.Subject = subject
	return b
}

// WithTenant sets the tenant identifier.
func (b *PrincipalBuilder) WithTenant(tenantID string) *PrincipalBuilder {
	b.p.TenantID = tenantID
	return b
}

// WithEmail sets the email claim.
func (b *PrincipalBuilder) WithEmail(email string) *PrincipalBuilder {
	b.p.Email = email
	return b
}

// WithGroups sets the directory groups carried by the credential.
func (b *PrincipalBuilder) WithGroups(groups ...string) *PrincipalBuilder {
	b.p.Groups = groups
	return b
}

// WithExpiresAt sets the credential expiry.
func (b *PrincipalBuilder) WithExpiresAt(t time.Time) *PrincipalBuilder {
	b.p.ExpiresAt = t
	return b
}

// Build returns the constructed principal.
func (b *PrincipalBuilder) Build() identity.Principal {
	return b.p
}

// Common test fixtures

// ReaderSnapshot creates a snapshot granting read on the default pair.
func ReaderSnapshot() access.Snapshot {
	return NewSnapshot().WithRights(access.RightRead).Build()
}

// OwnerSnapshot creates a snapshot granting every right on the default pair.
func OwnerSnapshot() access.Snapshot {
	return NewSnapshot().
		WithRights(access.RightRead, access.RightWrite, access.RightDelete, access.RightShare).
		Build()
}

// DeniedSnapshot creates a snapshot with rights that are overridden by an
// explicit deny.
func DeniedSnapshot() access.Snapshot {
	return NewSnapshot().WithRights(access.RightRead, access.RightWrite).WithDeny().Build()
}

// GroupOnlySnapshot creates a snapshot with no explicit rights where access
// can only come through the given groups.
func GroupOnlySnapshot(groups ...string) access.Snapshot {
	return NewSnapshot().WithNoRights().WithGroups(groups...).Build()
}

// EmptySnapshot creates a snapshot with no rights, no deny, and no groups.
func EmptySnapshot() access.Snapshot {
	return NewSnapshot().WithNoRights().Build()
}

// ExpiredPrincipal creates a principal whose inbound credential expired one
// minute before TestTime.
func ExpiredPrincipal() identity.Principal {
	return NewPrincipal().WithExpiresAt(TestTime().Add(-time.Minute)).Build()
}
