package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/Spok95/acadify-records/internal/metrics"
	"github.com/Spok95/acadify-records/internal/observability"
)

type sink struct {
	name string
	pub  Publisher
}

// Dispatcher fans events out to every registered sink. Sink failures are
// logged and reported, never returned: the grade operation has already committed.
type Dispatcher struct {
	sinks []sink
	log   *zap.Logger
}

func NewDispatcher(log *zap.Logger) *Dispatcher {
	return &Dispatcher{log: log}
}

func (d *Dispatcher) Register(name string, pub Publisher) *Dispatcher {
	d.sinks = append(d.sinks, sink{name: name, pub: pub})
	return d
}

func (d *Dispatcher) Notify(ctx context.Context, ev Event) {
	for _, s := range d.sinks {
		if err := s.pub.Publish(ctx, ev); err != nil {
			metrics.EventsPublished.WithLabelValues(s.name, "error").Inc()
			d.log.Error("publish event",
				zap.String("sink", s.name),
				zap.String("type", string(ev.Type)),
				zap.String("event_id", ev.ID),
				zap.Error(err))
			observability.CaptureCtx(ctx, err)
			continue
		}
		metrics.EventsPublished.WithLabelValues(s.name, "ok").Inc()
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Notify(context.Context, Event) {}
