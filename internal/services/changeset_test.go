package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/afrydman/AuditTrail/internal/models"
	"github.com/afrydman/AuditTrail/internal/pkg"
)

func TestChangeSetModifiedCapturesOnlyChangedFields(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	before := map[string]interface{}{"Name": "old.pdf", "Description": "same", "Size": int64(10)}
	after := map[string]interface{}{"Name": "new.pdf", "Description": "same", "Size": int64(10)}

	cs := f.changes.NewChangeSet()
	cs.RecordModified("File", []string{"f-1"}, before, after)
	if err := cs.Commit(ctx, testActor); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	entries := f.audits.byEventType("FileModified")
	if len(entries) != 1 {
		t.Fatalf("expected one FileModified entry, got %d", len(entries))
	}

	var oldVals, newVals map[string]interface{}
	json.Unmarshal([]byte(entries[0].OldValue), &oldVals)
	json.Unmarshal([]byte(entries[0].NewValue), &newVals)

	if len(newVals) != 1 || newVals["Name"] != "new.pdf" {
		t.Fatalf("expected only the changed field in NewValue, got %v", newVals)
	}
	if oldVals["Name"] != "old.pdf" {
		t.Fatalf("expected prior value in OldValue, got %v", oldVals)
	}
}

func TestChangeSetModifiedNoChangesIsNoOp(t *testing.T) {
	f := newFixture()

	same := map[string]interface{}{"Name": "a", "Size": int64(1)}
	cs := f.changes.NewChangeSet()
	cs.RecordModified("File", []string{"f-1"}, same, same)

	if cs.Len() != 0 {
		t.Fatalf("identical snapshots must record nothing, got %d records", cs.Len())
	}
	if err := cs.Commit(context.Background(), testActor); err != nil {
		t.Fatalf("empty commit failed: %v", err)
	}
	if f.audits.count() != 0 {
		t.Fatalf("no entries expected, got %d", f.audits.count())
	}
}

func TestChangeSetExcludesSensitiveFields(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cs := f.changes.NewChangeSet()
	cs.RecordCreated("User", []string{"u-1"}, map[string]interface{}{
		"Username":     "alice",
		"PasswordHash": "$2a$10$secret",
		"PasswordSalt": "salty",
		"SessionToken": "tok",
		"RefreshToken": "ref",
	})
	cs.RecordModified("User", []string{"u-1"},
		map[string]interface{}{"PasswordHash": "old", "Email": "a@x.com"},
		map[string]interface{}{"PasswordHash": "new", "Email": "b@x.com"})
	if err := cs.Commit(ctx, testActor); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	if f.audits.count() != 2 {
		t.Fatalf("expected two entries, got %d", f.audits.count())
	}
	for _, e := range f.audits.byEventType("UserCreated") {
		for _, secret := range []string{"PasswordHash", "PasswordSalt", "SessionToken", "RefreshToken", "secret", "salty"} {
			if strings.Contains(e.NewValue, secret) {
				t.Fatalf("sensitive material %q leaked into audit entry: %s", secret, e.NewValue)
			}
		}
	}
	for _, e := range f.audits.byEventType("UserModified") {
		if strings.Contains(e.NewValue, "PasswordHash") || strings.Contains(e.OldValue, "PasswordHash") {
			t.Fatalf("sensitive field leaked into modified entry")
		}
		if !strings.Contains(e.NewValue, "b@x.com") {
			t.Fatalf("non-sensitive change missing: %s", e.NewValue)
		}
	}
}

func TestChangeSetSkipsAuditEntities(t *testing.T) {
	f := newFixture()

	cs := f.changes.NewChangeSet()
	cs.RecordCreated("AuditEntry", []string{"a-1"}, map[string]interface{}{"EventType": "x"})
	cs.RecordCreated("LoginAttempt", []string{"l-1"}, map[string]interface{}{"Username": "x"})
	if err := cs.Commit(context.Background(), testActor); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	if f.audits.count() != 0 {
		t.Fatalf("audit entities must never produce audit entries, got %d", f.audits.count())
	}
}

func TestChangeSetBestEffortSwallowsAuditFailure(t *testing.T) {
	f := newFixture()
	f.audits.failing = true

	cs := f.changes.NewChangeSet()
	cs.RecordCreated("Folder", []string{"1"}, map[string]interface{}{"Name": "Docs"})

	if err := cs.Commit(context.Background(), testActor); err != nil {
		t.Fatalf("best-effort commit must not surface audit failure, got %v", err)
	}
}

func TestChangeSetFailClosedPropagatesAuditFailure(t *testing.T) {
	f := newFixture()
	f.audits.failing = true
	strict := NewChangeRecorder(f.audit, pkg.NewNopLogger(), true)

	cs := strict.NewChangeSet()
	cs.RecordCreated("Folder", []string{"1"}, map[string]interface{}{"Name": "Docs"})

	if err := cs.Commit(context.Background(), testActor); err == nil {
		t.Fatalf("fail-closed commit must surface the audit failure")
	}
}

func TestChangeSetEventAttribution(t *testing.T) {
	f := newFixture()
	actor := models.Actor{
		UserID:    "u-9",
		Username:  "carol",
		RoleName:  "Manager",
		IPAddress: "10.1.1.1",
		SessionID: "s-1",
	}

	cs := f.changes.NewChangeSet()
	cs.RecordDeleted("Folder", []string{"7"}, map[string]interface{}{"Name": "Old"})
	if err := cs.Commit(context.Background(), actor); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	entries := f.audits.byEventType("FolderDeleted")
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	e := entries[0]
	if e.UserID != "u-9" || e.Username != "carol" || e.IPAddress != "10.1.1.1" {
		t.Fatalf("actor not attributed: %+v", e)
	}
	if e.EntityName != "Old" {
		t.Fatalf("expected entity name from snapshot, got %q", e.EntityName)
	}
	if e.EntityID != "7" {
		t.Fatalf("expected entity id 7, got %q", e.EntityID)
	}
}

func TestSnapshotFlattensEmbeddedAndPointers(t *testing.T) {
	now := models.AuditMetadata{CreatedBy: "u-1"}
	folder := &models.Folder{
		ID:            4,
		Name:          "Docs",
		ParentID:      nil,
		AuditMetadata: now,
	}

	snap := Snapshot(folder)
	if snap["Name"] != "Docs" {
		t.Fatalf("expected Name in snapshot, got %v", snap)
	}
	if snap["CreatedBy"] != "u-1" {
		t.Fatalf("embedded fields must flatten into the parent namespace, got %v", snap)
	}
	if v, ok := snap["ParentID"]; !ok || v != nil {
		t.Fatalf("nil pointer fields must appear as nil, got %v", v)
	}
}
