// Package factory constructs fully-wired LLM clients from configuration.
package factory

import (
	"fmt"

	"interviewd/pkg/config"
	"interviewd/pkg/llm"
	"interviewd/pkg/llm/anthropic"
	"interviewd/pkg/llm/google"
	"interviewd/pkg/llm/middleware/logging"
	"interviewd/pkg/llm/middleware/metrics"
	"interviewd/pkg/llm/middleware/retry"
	"interviewd/pkg/llm/middleware/timeout"
	"interviewd/pkg/llm/ollama"
	"interviewd/pkg/llm/openai"
	"interviewd/pkg/logx"
)

// NewClient builds the middleware-wrapped chat client for the configured provider.
// Chain order: timeout is outermost so the whole retry budget shares one
// deadline, then metrics and logging observe each attempt's final outcome,
// then retry wraps the raw provider client.
func NewClient(cfg *config.Config, secrets config.Secrets) (llm.Client, error) {
	base, err := newRawClient(cfg, secrets)
	if err != nil {
		return nil, err
	}

	policy := retry.NewPolicy(retry.DefaultConfig, nil)

	return llm.Chain(base,
		timeout.Middleware(cfg.Model.Timeout()),
		metrics.Middleware(metrics.NewPrometheusRecorder()),
		logging.Middleware(logx.NewLogger("llm")),
		retry.Middleware(policy),
	), nil
}

func newRawClient(cfg *config.Config, secrets config.Secrets) (llm.Client, error) {
	model := cfg.Model.Name

	switch cfg.Model.Provider {
	case config.ProviderAnthropic:
		key := secrets.APIKey(config.ProviderAnthropic)
		if key == "" {
			return nil, fmt.Errorf("no API key configured for provider %s", cfg.Model.Provider)
		}
		return anthropic.NewClient(key, model), nil
	case config.ProviderOpenAI:
		key := secrets.APIKey(config.ProviderOpenAI)
		if key == "" {
			return nil, fmt.Errorf("no API key configured for provider %s", cfg.Model.Provider)
		}
		return openai.NewClient(key, model), nil
	case config.ProviderGoogle:
		key := secrets.APIKey(config.ProviderGoogle)
		if key == "" {
			return nil, fmt.Errorf("no API key configured for provider %s", cfg.Model.Provider)
		}
		return google.NewClient(key, model), nil
	case config.ProviderOllama:
		return ollama.NewClient(cfg.Model.OllamaHost, model), nil
	default:
		return nil, fmt.Errorf("unknown model provider: %q", cfg.Model.Provider)
	}
}
