package safeguarding

import (
	"context"

	"interviewd/pkg/interview"
	"interviewd/pkg/logx"
)

// AlertSink receives flags that crossed the escalation threshold. The
// production sink would page a human; failures are logged, never raised.
type AlertSink interface {
	Alert(ctx context.Context, sessionID string, flag interview.SafeguardingFlag) error
}

// Escalator applies the alert threshold and forwards qualifying flags
// to the sink. Below-threshold flags are audit-only.
type Escalator struct {
	sink      AlertSink
	threshold float64
	logger    *logx.Logger
}

// NewEscalator creates an escalator with the given alert threshold.
func NewEscalator(sink AlertSink, threshold float64) *Escalator {
	return &Escalator{
		sink:      sink,
		threshold: threshold,
		logger:    logx.NewLogger("safeguarding"),
	}
}

// Process forwards flags at or above the threshold to the alert sink.
// Sink failures must never fail the turn that produced the flag.
func (e *Escalator) Process(ctx context.Context, sessionID string, flags []interview.SafeguardingFlag) {
	for _, f := range flags {
		if f.Confidence < e.threshold {
			e.logger.Info("flag recorded for audit (below threshold): session=%s type=%s confidence=%.2f",
				sessionID, f.Type, f.Confidence)
			continue
		}
		if e.sink == nil {
			e.logger.Warn("flag above threshold but no alert sink configured: session=%s type=%s", sessionID, f.Type)
			continue
		}
		if err := e.sink.Alert(ctx, sessionID, f); err != nil {
			e.logger.Error("alert sink failed: session=%s type=%s: %v", sessionID, f.Type, err)
		}
	}
}

// LogSink is the default alert sink. It writes the alert to the log so
// operators can wire real delivery later.
type LogSink struct {
	logger *logx.Logger
}

// NewLogSink creates a log-backed alert sink.
func NewLogSink() *LogSink {
	return &LogSink{logger: logx.NewLogger("safeguarding-alert")}
}

// Alert logs the escalated flag.
func (s *LogSink) Alert(_ context.Context, sessionID string, flag interview.SafeguardingFlag) error {
	s.logger.Warn("SAFEGUARDING ALERT: session=%s type=%s confidence=%.2f excerpt=%q",
		sessionID, flag.Type, flag.Confidence, flag.Excerpt)
	return nil
}
