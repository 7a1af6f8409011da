package access

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRights_SetOperations(t *testing.T) {
	s := NewRights(RightRead, RightWrite)
	if !s.Has(RightRead) || !s.Has(RightWrite) {
		t.Fatalf("expected read+write in %v", s)
	}
	if s.Has(RightDelete) {
		t.Fatalf("did not expect delete in %v", s)
	}
	s = s.With(RightDelete).Without(RightWrite)
	if !s.Has(RightDelete) || s.Has(RightWrite) {
		t.Fatalf("unexpected set after with/without: %v", s)
	}
	if !NewRights().IsEmpty() {
		t.Fatalf("zero set should be empty")
	}

	merged := NewRights(RightRead).Union(NewRights(RightWrite, RightShare))
	if !merged.Has(RightRead) || !merged.Has(RightWrite) || !merged.Has(RightShare) {
		t.Fatalf("unexpected union: %v", merged)
	}
	trimmed := merged.Remove(NewRights(RightWrite, RightShare))
	if trimmed != NewRights(RightRead) {
		t.Fatalf("unexpected remove: %v", trimmed)
	}
}

func TestParseRight_Unknown(t *testing.T) {
	if _, err := ParseRight("admin"); err == nil {
		t.Fatalf("expected error for unknown right")
	}
	r, err := ParseRight("write")
	if err != nil || r != RightWrite {
		t.Fatalf("parse write: %v %v", r, err)
	}
}

func TestRights_JSONUsesNames(t *testing.T) {
	data, err := json.Marshal(NewRights(RightRead, RightDelete))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `["read","delete"]` {
		t.Fatalf("unexpected encoding: %s", data)
	}

	var s Rights
	if err := json.Unmarshal([]byte(`["write"]`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !s.Has(RightWrite) || s.Has(RightRead) {
		t.Fatalf("unexpected set: %v", s)
	}
	if err := json.Unmarshal([]byte(`["launch"]`), &s); err == nil {
		t.Fatalf("expected error for unknown right name")
	}
}

func TestSnapshot_RoundTripKeepsFacts(t *testing.T) {
	captured := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	snap := NewSnapshot("caller-1", "doc-9", NewRights(RightRead), true, []string{"finance"}, captured)

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Snapshot
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.CallerID != "caller-1" || got.ResourceID != "doc-9" {
		t.Fatalf("unexpected identity fields: %+v", got)
	}
	if !got.Rights.Has(RightRead) || !got.ExplicitDeny {
		t.Fatalf("facts lost in round trip: %+v", got)
	}
	if !got.CapturedAt.Equal(captured) {
		t.Fatalf("captured_at lost: %v", got.CapturedAt)
	}
}

func TestNewSnapshot_CopiesGroups(t *testing.T) {
	groups := []string{"a", "b"}
	snap := NewSnapshot("c", "r", 0, false, groups, time.Now())
	groups[0] = "mutated"
	if snap.GroupMemberships[0] != "a" {
		t.Fatalf("snapshot shares caller's slice")
	}
}
