// Package metrics provides services for querying and aggregating metrics data.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// SessionMetrics represents aggregated token usage for one interview session.
type SessionMetrics struct {
	SessionID        string `json:"session_id"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
	Requests         int64  `json:"requests"`
}

// QueryService provides methods to query metrics from Prometheus.
type QueryService struct {
	client   api.Client
	queryAPI v1.API
}

// NewQueryService creates a new metrics query service.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &QueryService{
		client:   client,
		queryAPI: v1.NewAPI(client),
	}, nil
}

// GetSessionMetrics retrieves aggregated token metrics for one session
// across all model calls made during its interview.
func (q *QueryService) GetSessionMetrics(ctx context.Context, sessionID string) (*SessionMetrics, error) {
	metrics := &SessionMetrics{
		SessionID: sessionID,
	}

	promptQuery := fmt.Sprintf(`sum(llm_tokens_total{session_id=%q, type="prompt"})`, sessionID)
	promptResult, _, err := q.queryAPI.Query(ctx, promptQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query prompt tokens: %w", err)
	}
	if vector, ok := promptResult.(model.Vector); ok && len(vector) > 0 {
		metrics.PromptTokens = int64(vector[0].Value)
	}

	completionQuery := fmt.Sprintf(`sum(llm_tokens_total{session_id=%q, type="completion"})`, sessionID)
	completionResult, _, err := q.queryAPI.Query(ctx, completionQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query completion tokens: %w", err)
	}
	if vector, ok := completionResult.(model.Vector); ok && len(vector) > 0 {
		metrics.CompletionTokens = int64(vector[0].Value)
	}

	metrics.TotalTokens = metrics.PromptTokens + metrics.CompletionTokens

	requestsQuery := fmt.Sprintf(`sum(llm_requests_total{session_id=%q})`, sessionID)
	requestsResult, _, err := q.queryAPI.Query(ctx, requestsQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query request count: %w", err)
	}
	if vector, ok := requestsResult.(model.Vector); ok && len(vector) > 0 {
		metrics.Requests = int64(vector[0].Value)
	}

	return metrics, nil
}

// GetVariantTokens retrieves total token usage broken down by interview
// variant, for capacity planning across deployments.
func (q *QueryService) GetVariantTokens(ctx context.Context) (map[string]int64, error) {
	result := make(map[string]int64)

	query := `sum by (variant) (llm_tokens_total)`
	queryResult, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query variant tokens: %w", err)
	}

	if vector, ok := queryResult.(model.Vector); ok {
		for _, sample := range vector {
			if variant, ok := sample.Metric["variant"]; ok {
				result[string(variant)] = int64(sample.Value)
			}
		}
	}

	return result, nil
}
