package pgstore

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	jsoniter "github.com/json-iterator/go"

	"github.com/dmitrymomot/circulation/pkg/audit"
)

const defaultAuditTable = "audit_events"

// AuditWriter stores audit events in PostgreSQL. It implements both
// audit.Writer and audit.BatchWriter, so it can back either the synchronous
// or the asynchronous audit logger.
type AuditWriter struct {
	db    DB
	table string
}

var (
	_ audit.Writer      = (*AuditWriter)(nil)
	_ audit.BatchWriter = (*AuditWriter)(nil)
)

// NewAuditWriter returns a writer for the audit_events table.
func NewAuditWriter(db DB) *AuditWriter {
	if db == nil {
		panic("pgstore: db cannot be nil")
	}
	return &AuditWriter{db: db, table: defaultAuditTable}
}

func (w *AuditWriter) Store(ctx context.Context, event audit.Event) error {
	return w.StoreBatch(ctx, []audit.Event{event})
}

// StoreBatch writes all events in one multi-row insert.
func (w *AuditWriter) StoreBatch(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}
	query, args, err := buildAuditInsert(w.table, events)
	if err != nil {
		return fmt.Errorf("pgstore: build audit insert: %w", err)
	}
	if _, err := w.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: %w", audit.ErrStorageNotAvailable, err)
	}
	return nil
}

func buildAuditInsert(table string, events []audit.Event) (string, []any, error) {
	rows := make([]any, 0, len(events))
	for _, e := range events {
		var metadata any
		if len(e.Metadata) > 0 {
			raw, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(e.Metadata)
			if err != nil {
				return "", nil, fmt.Errorf("encode metadata of %s: %w", e.ID, err)
			}
			metadata = string(raw)
		}
		rows = append(rows, goqu.Record{
			"id":          e.ID,
			"user_id":     e.UserID,
			"action":      e.Action,
			"resource":    e.Resource,
			"resource_id": e.ResourceID,
			"result":      string(e.Result),
			"error":       e.Error,
			"request_id":  e.RequestID,
			"metadata":    metadata,
			"created_at":  e.CreatedAt.UTC(),
		})
	}
	return builder().
		Insert(table).
		Rows(rows...).
		Prepared(true).
		ToSQL()
}
