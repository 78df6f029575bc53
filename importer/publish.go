package importer

import (
	"context"
	"strconv"
	"time"

	"github.com/mmdatafocus/catalog_backend/config"
	"github.com/mmdatafocus/catalog_backend/models"
	"go.opentelemetry.io/otel/trace"
)

const runFinalizedEvent = "import_run.finalized"

// RunEvent is the message published when a run completes or fails.
type RunEvent struct {
	Event         string                 `json:"event"`
	RunId         uint                   `json:"run_id"`
	BusinessId    string                 `json:"business_id"`
	Kind          models.EntityKind      `json:"kind"`
	Status        models.ImportRunStatus `json:"status"`
	Totals        models.ImportRunTotals `json:"totals"`
	BatchCount    int                    `json:"batch_count"`
	FailureReason string                 `json:"failure_reason,omitempty"`
	FinishedAt    *time.Time             `json:"finished_at"`
	TraceId       string                 `json:"trace_id,omitempty"`
}

type EventPublisher interface {
	PublishRunEvent(ctx context.Context, event RunEvent) error
}

// NewEventPublisher publishes to Pub/Sub when IMPORT_RUN_EVENTS_ENABLED is
// set and discards events otherwise.
func NewEventPublisher() EventPublisher {
	if !config.ImportRunEventsEnabled() {
		return noopPublisher{}
	}
	return pubsubPublisher{topic: config.ImportRunEventsTopic()}
}

type noopPublisher struct{}

func (noopPublisher) PublishRunEvent(context.Context, RunEvent) error { return nil }

type pubsubPublisher struct {
	topic string
}

func (p pubsubPublisher) PublishRunEvent(ctx context.Context, event RunEvent) error {
	_, err := config.PublishJSON(ctx, p.topic, event, map[string]string{
		"event":       event.Event,
		"business_id": event.BusinessId,
		"kind":        string(event.Kind),
		"status":      string(event.Status),
		"run_id":      strconv.FormatUint(uint64(event.RunId), 10),
	})
	return err
}

// publishFinalized never fails the caller: the run is already final.
func (s *Service) publishFinalized(ctx context.Context, run *models.ImportRun) {
	if s.Events == nil || run == nil {
		return
	}
	event := RunEvent{
		Event:         runFinalizedEvent,
		RunId:         run.ID,
		BusinessId:    run.BusinessId,
		Kind:          run.Kind,
		Status:        run.Status,
		Totals:        run.Totals(),
		BatchCount:    run.BatchCount,
		FailureReason: run.FailureReason,
		FinishedAt:    run.FinishedAt,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		event.TraceId = sc.TraceID().String()
	}
	if err := s.Events.PublishRunEvent(context.WithoutCancel(ctx), event); err != nil {
		config.LogError(s.logger(), moduleName, "publishFinalized", "PublishRunEvent", run.ID, err)
	}
}
