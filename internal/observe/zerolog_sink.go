package observe

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/rohmanhakim/linkcheck/internal/checkresult"
)

// ZerologSink is the production Sink, backed by github.com/rs/zerolog.
// One structured line is emitted per event, at the severity spec.md calls
// for: info for working/ignored/redirected results, warning for broken
// and timeout results.
type ZerologSink struct {
	logger zerolog.Logger
}

func NewZerologSink(logger zerolog.Logger) ZerologSink {
	return ZerologSink{logger: logger}
}

func (s ZerologSink) RecordResult(runID string, result checkresult.CheckResult) {
	event := s.eventForStatus(result.Status)
	event.
		Str("run_id", runID).
		Str("uri", result.URI).
		Str("docname", result.Docname).
		Int("lineno", result.Lineno).
		Str("status", string(result.Status)).
		Int("code", result.Code).
		Str("message", result.Message).
		Msg("check result")
}

func (s ZerologSink) eventForStatus(status checkresult.Status) *zerolog.Event {
	switch status {
	case checkresult.Broken, checkresult.Timeout:
		return s.logger.Warn()
	default:
		return s.logger.Info()
	}
}

func (s ZerologSink) RecordRateLimited(runID, uri, host string, nextCheck time.Time) {
	s.logger.Info().
		Str("run_id", runID).
		Str("uri", uri).
		Str("host", host).
		Time("next_check", nextCheck).
		Msg("rate limited, re-enqueued")
}

func (s ZerologSink) RecordFetch(runID, method, uri string, statusCode int, duration time.Duration) {
	s.logger.Debug().
		Str("run_id", runID).
		Str("method", method).
		Str("uri", uri).
		Int("status_code", statusCode).
		Dur("duration", duration).
		Msg("fetch")
}

func (s ZerologSink) RecordError(runID, component, operation string, cause ErrorCause, message string, attrs []Attribute) {
	event := s.logger.Error().
		Str("run_id", runID).
		Str("component", component).
		Str("operation", operation).
		Str("cause", cause.String())
	for _, attr := range attrs {
		event = event.Str(string(attr.Key), attr.Value)
	}
	event.Msg(message)
}

func (s ZerologSink) RecordQueueDepth(runID string, depth int) {
	s.logger.Debug().
		Str("run_id", runID).
		Int("depth", depth).
		Msg("queue depth")
}
