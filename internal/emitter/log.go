package emitter

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// LogEmitter writes progress as structured log records.
type LogEmitter struct {
	log zerolog.Logger
}

// NewLogEmitter creates a log emitter.
func NewLogEmitter(l zerolog.Logger) *LogEmitter {
	return &LogEmitter{log: l}
}

// Event logs one transition.
func (l *LogEmitter) Event(_ context.Context, ev Event) error {
	r := ev.Change.Resource
	l.log.Info().
		Str("resource", ev.Change.Key).
		Str("type", r.Type).
		Str("previous", ev.Change.Previous).
		Str("status", r.Status).
		Str("reason", r.StatusReason).
		Dur("elapsed", ev.Elapsed).
		Msg("resource status changed")
	return nil
}

// Status logs the in-progress set at debug level.
func (l *LogEmitter) Status(_ context.Context, inProgress []string) error {
	if len(inProgress) == 0 {
		return nil
	}
	l.log.Debug().Str("in_progress", strings.Join(inProgress, ",")).Msg("resources in progress")
	return nil
}

// Close is a no-op.
func (l *LogEmitter) Close() error {
	return nil
}
