package services

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/afrydman/AuditTrail/internal/models"

	"go.uber.org/zap"
)

// ChangeAction identifies the kind of mutation a change record captures
type ChangeAction string

const (
	ChangeCreated  ChangeAction = "Created"
	ChangeModified ChangeAction = "Modified"
	ChangeDeleted  ChangeAction = "Deleted"
)

// NameExtractor derives a human label for an entity from its snapshot
type NameExtractor func(fields map[string]interface{}) string

// ChangeRecorder turns explicit before/after snapshots into audit
// entries. It replaces the hidden save-pipeline interception of the
// previous system with a unit of work the caller builds and commits.
type ChangeRecorder struct {
	audit      *AuditService
	logger     *zap.Logger
	failClosed bool
	extractors map[string]NameExtractor
}

// NewChangeRecorder creates a change recorder. With failClosed false
// (the default policy) audit write failures are logged and swallowed so
// the triggering business operation proceeds; with failClosed true the
// failure propagates to the caller.
func NewChangeRecorder(audit *AuditService, logger *zap.Logger, failClosed bool) *ChangeRecorder {
	r := &ChangeRecorder{
		audit:      audit,
		logger:     logger,
		failClosed: failClosed,
		extractors: make(map[string]NameExtractor),
	}

	// Entity labels come from a per-type lookup, not from the entities
	// themselves.
	r.RegisterNameExtractor("Folder", fieldExtractor("Name"))
	r.RegisterNameExtractor("File", fieldExtractor("Name"))
	r.RegisterNameExtractor("User", fieldExtractor("Username"))

	return r
}

// RegisterNameExtractor registers or replaces the label extractor for
// an entity type
func (r *ChangeRecorder) RegisterNameExtractor(entityType string, fn NameExtractor) {
	r.extractors[entityType] = fn
}

func fieldExtractor(field string) NameExtractor {
	return func(fields map[string]interface{}) string {
		if v, ok := fields[field]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
}

// NewChangeSet starts an empty unit of work
func (r *ChangeRecorder) NewChangeSet() *ChangeSet {
	return &ChangeSet{recorder: r}
}

// ChangeSet accumulates intended mutations with their before/after
// snapshots. Commit writes one audit entry per record.
type ChangeSet struct {
	recorder *ChangeRecorder
	records  []changeRecord
}

type changeRecord struct {
	entityType string
	keys       []string
	action     ChangeAction
	oldValues  map[string]interface{}
	newValues  map[string]interface{}
}

// RecordCreated captures a newly inserted entity. All non-sensitive
// field values become the NewValue snapshot.
func (cs *ChangeSet) RecordCreated(entityType string, keys []string, newValues map[string]interface{}) {
	cs.records = append(cs.records, changeRecord{
		entityType: entityType,
		keys:       keys,
		action:     ChangeCreated,
		newValues:  stripSensitive(newValues),
	})
}

// RecordModified captures an update. Only fields whose value actually
// changed appear in the snapshots.
func (cs *ChangeSet) RecordModified(entityType string, keys []string, oldValues, newValues map[string]interface{}) {
	changedOld := make(map[string]interface{})
	changedNew := make(map[string]interface{})

	for field, newVal := range newValues {
		if IsSensitiveField(field) {
			continue
		}
		oldVal, existed := oldValues[field]
		if !existed || !reflect.DeepEqual(oldVal, newVal) {
			changedOld[field] = oldVal
			changedNew[field] = newVal
		}
	}

	if len(changedNew) == 0 {
		return
	}

	cs.records = append(cs.records, changeRecord{
		entityType: entityType,
		keys:       keys,
		action:     ChangeModified,
		oldValues:  changedOld,
		newValues:  changedNew,
	})
}

// RecordDeleted captures a removal. All non-sensitive original values
// become the OldValue snapshot.
func (cs *ChangeSet) RecordDeleted(entityType string, keys []string, oldValues map[string]interface{}) {
	cs.records = append(cs.records, changeRecord{
		entityType: entityType,
		keys:       keys,
		action:     ChangeDeleted,
		oldValues:  stripSensitive(oldValues),
	})
}

// Len returns the number of pending records
func (cs *ChangeSet) Len() int {
	return len(cs.records)
}

// Commit writes one audit entry per record, attributed to the actor.
// Audit entities themselves are never recorded, so the trail cannot
// recurse into itself.
func (cs *ChangeSet) Commit(ctx context.Context, actor models.Actor) error {
	for _, rec := range cs.records {
		if isAuditEntity(rec.entityType) {
			continue
		}

		event := AuditEvent{
			EventType:  rec.entityType + string(rec.action),
			Action:     string(rec.action),
			EntityType: rec.entityType,
			EntityID:   strings.Join(rec.keys, ","),
			EntityName: cs.recorder.entityName(rec),
			OldValue:   marshalSnapshot(rec.oldValues),
			NewValue:   marshalSnapshot(rec.newValues),
		}

		if _, err := cs.recorder.audit.LogForActor(ctx, actor, event); err != nil {
			// Best-effort by default: availability of the primary
			// operation takes priority over the audit write.
			cs.recorder.logger.Error("change set audit write failed",
				zap.String("event_type", event.EventType),
				zap.String("entity_id", event.EntityID),
				zap.Error(err))
			if cs.recorder.failClosed {
				return err
			}
		}
	}

	cs.records = nil
	return nil
}

func (r *ChangeRecorder) entityName(rec changeRecord) string {
	fn, ok := r.extractors[rec.entityType]
	if !ok {
		return ""
	}

	// Deleted entities only carry original values
	fields := rec.newValues
	if rec.action == ChangeDeleted {
		fields = rec.oldValues
	}
	return fn(fields)
}

func isAuditEntity(entityType string) bool {
	return strings.Contains(entityType, "Audit") || strings.Contains(entityType, "LoginAttempt")
}

func stripSensitive(values map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(values))
	for field, v := range values {
		if IsSensitiveField(field) {
			continue
		}
		out[field] = v
	}
	return out
}

func marshalSnapshot(values map[string]interface{}) string {
	if len(values) == 0 {
		return ""
	}
	data, err := json.Marshal(values)
	if err != nil {
		return ""
	}
	return string(data)
}

// Snapshot flattens an entity struct into a field-name map for change
// records. Embedded structs are flattened into the parent namespace.
func Snapshot(entity interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	snapshotInto(reflect.ValueOf(entity), out)
	return out
}

func snapshotInto(v reflect.Value, out map[string]interface{}) {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}
		if field.Anonymous {
			snapshotInto(v.Field(i), out)
			continue
		}

		value := v.Field(i)
		if value.Kind() == reflect.Pointer {
			if value.IsNil() {
				out[field.Name] = nil
				continue
			}
			value = value.Elem()
		}
		out[field.Name] = value.Interface()
	}
}
