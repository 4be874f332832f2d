// Package events carries grade lifecycle notifications to audit and notification sinks.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/acadify-records/internal/models"
)

type Type string

const (
	GradeCompleted    Type = "grade.completed"
	GradesSubmitted   Type = "grades.submitted"
	GradesApproved    Type = "grades.approved"
	GradesUnlocked    Type = "grades.unlocked"
	ScheduleCreated   Type = "schedule.created"
	ScheduleUpdated   Type = "schedule.updated"
	ScheduleClosed    Type = "schedule.closed"
	ScheduleDeleted   Type = "schedule.deleted"
	ExceptionGranted  Type = "exception.granted"
	ExceptionRevoked  Type = "exception.revoked"
	DeansListComputed Type = "deanslist.computed"
)

type Event struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	Actor      string         `json:"actor"`
	Resource   string         `json:"resource"`
	ResourceID int64          `json:"resource_id"`
	Summary    string         `json:"summary"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// New builds an event stamped with a fresh id. A nil actor is recorded as "system".
func New(t Type, actor models.Actor, resource string, resourceID int64, summary string) Event {
	key := "system"
	if actor != nil {
		key = actor.Key()
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		Actor:      key,
		Resource:   resource,
		ResourceID: resourceID,
		Summary:    summary,
		OccurredAt: time.Now().UTC(),
	}
}

// With attaches a payload field and returns the event for chaining.
func (e Event) With(key string, value any) Event {
	if e.Payload == nil {
		e.Payload = map[string]any{}
	}
	e.Payload[key] = value
	return e
}

// Publisher delivers an event to one sink.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Notifier is what services depend on: fire and forget.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}
