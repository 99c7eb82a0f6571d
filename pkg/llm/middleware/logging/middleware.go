// Package logging provides request/response logging middleware for LLM clients.
package logging

import (
	"context"
	"time"

	"interviewd/pkg/llm"
	"interviewd/pkg/logx"
)

// Middleware returns a middleware that logs every completion request with
// latency and outcome. Empty responses are logged at warn level because
// they usually indicate a provider-side problem worth noticing.
func Middleware(logger *logx.Logger) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				resp, err := next.Complete(ctx, req)
				elapsed := time.Since(start)

				switch {
				case err != nil:
					logger.Error("completion failed after %s (model=%s, messages=%d): %v",
						elapsed.Round(time.Millisecond), next.GetModelName(), len(req.Messages), err)
				case resp.Content == "":
					logger.Warn("empty completion content after %s (model=%s, stop=%s)",
						elapsed.Round(time.Millisecond), next.GetModelName(), resp.StopReason)
				default:
					logger.Debug("completion ok in %s (model=%s, prompt_tokens=%d, completion_tokens=%d)",
						elapsed.Round(time.Millisecond), next.GetModelName(),
						resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
				}

				return resp, err
			},
			next.GetModelName,
		)
	}
}
