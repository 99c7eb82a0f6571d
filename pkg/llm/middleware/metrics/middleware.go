package metrics

import (
	"context"
	"time"

	"interviewd/pkg/llm"
	"interviewd/pkg/llm/llmerrors"
)

type contextKey struct{}

// Labels carries per-request metric labels through the context.
// The session manager attaches them before invoking the engine so the
// middleware can attribute token usage to a session and variant.
type Labels struct {
	SessionID string
	Variant   string
}

// WithLabels attaches metric labels to the context.
func WithLabels(ctx context.Context, labels Labels) context.Context {
	return context.WithValue(ctx, contextKey{}, labels)
}

// LabelsFromContext extracts metric labels from the context, if present.
func LabelsFromContext(ctx context.Context) Labels {
	if labels, ok := ctx.Value(contextKey{}).(Labels); ok {
		return labels
	}
	return Labels{SessionID: "unknown", Variant: "unknown"}
}

// Middleware returns a middleware that records Prometheus metrics for every
// completion request: counts, token usage, and latency.
func Middleware(recorder Recorder) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				labels := LabelsFromContext(ctx)
				start := time.Now()

				resp, err := next.Complete(ctx, req)

				errorType := ""
				if err != nil {
					errorType = llmerrors.TypeOf(err).String()
				}

				recorder.ObserveRequest(
					next.GetModelName(),
					labels.SessionID,
					labels.Variant,
					resp.Usage.PromptTokens,
					resp.Usage.CompletionTokens,
					err == nil,
					errorType,
					time.Since(start),
				)

				return resp, err
			},
			next.GetModelName,
		)
	}
}
