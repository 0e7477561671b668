package controller

import (
	"context"
	"log/slog"
)

// Event names a telemetry event emitted by the controller.
type Event string

const (
	EventRejected         Event = "upload_rejected"
	EventStarted          Event = "upload_started"
	EventResumed          Event = "upload_resumed"
	EventCanceled         Event = "upload_canceled"
	EventFailed           Event = "upload_failed"
	EventCompleted        Event = "upload_completed"
	EventDuplicateOpened  Event = "duplicate_opened"
	EventDuplicateIgnored Event = "duplicate_upload_anyway"
)

// Telemetry receives controller events.
type Telemetry interface {
	Track(ctx context.Context, event Event, attrs ...slog.Attr)
}

type logTelemetry struct {
	logger *slog.Logger
}

// NewLogTelemetry writes events as structured log records.
func NewLogTelemetry(logger *slog.Logger) Telemetry {
	return &logTelemetry{logger: logger.With("system", "telemetry")}
}

func (t *logTelemetry) Track(ctx context.Context, event Event, attrs ...slog.Attr) {
	t.logger.LogAttrs(ctx, slog.LevelInfo, "telemetry",
		append([]slog.Attr{slog.String("event", string(event))}, attrs...)...)
}
