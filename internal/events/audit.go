package events

import (
	"context"
	"encoding/json"

	"github.com/Spok95/acadify-records/internal/models"
)

type AuditWriter interface {
	InsertAuditLog(ctx context.Context, entry models.AuditEntry) error
}

// AuditLog records every event in the audit_logs table.
type AuditLog struct {
	w AuditWriter
}

func NewAuditLog(w AuditWriter) *AuditLog { return &AuditLog{w: w} }

func (a *AuditLog) Publish(ctx context.Context, ev Event) error {
	var details []byte
	if len(ev.Payload) > 0 {
		b, err := json.Marshal(ev.Payload)
		if err != nil {
			return err
		}
		details = b
	}
	return a.w.InsertAuditLog(ctx, models.AuditEntry{
		EventID:    ev.ID,
		Action:     string(ev.Type),
		Actor:      ev.Actor,
		Resource:   ev.Resource,
		ResourceID: ev.ResourceID,
		Summary:    ev.Summary,
		Details:    details,
		CreatedAt:  ev.OccurredAt,
	})
}
