package llm

import (
	"context"
	"testing"
)

// tagMiddleware appends its tag to the response content, recording
// middleware execution order.
func tagMiddleware(tag string) Middleware {
	return func(next Client) Client {
		return WrapClient(
			func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
				resp, err := next.Complete(ctx, req)
				if err != nil {
					return resp, err
				}
				resp.Content += tag
				return resp, nil
			},
			next.GetModelName,
		)
	}
}

func TestChainOrder(t *testing.T) {
	base := NewRepeatingMockClient(CompletionResponse{Content: "base"})
	client := Chain(base, tagMiddleware("-outer"), tagMiddleware("-inner"))

	resp, err := client.Complete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatal(err)
	}
	// Inner runs closest to the base, so its tag lands first.
	if resp.Content != "base-inner-outer" {
		t.Errorf("content = %q", resp.Content)
	}
	if client.GetModelName() != "mock" {
		t.Errorf("model name should pass through the chain")
	}
}

func TestChainNoMiddleware(t *testing.T) {
	base := NewRepeatingMockClient(CompletionResponse{Content: "base"})
	client := Chain(base)
	resp, err := client.Complete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "base" {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestMockClientSequence(t *testing.T) {
	client := NewMockClient([]CompletionResponse{
		{Content: "first"},
		{Content: "second"},
	}, nil)

	resp, _ := client.Complete(context.Background(), NewCompletionRequest([]CompletionMessage{NewUserMessage("a")}))
	if resp.Content != "first" {
		t.Errorf("first response = %q", resp.Content)
	}
	resp, _ = client.Complete(context.Background(), NewCompletionRequest([]CompletionMessage{NewUserMessage("b")}))
	if resp.Content != "second" {
		t.Errorf("second response = %q", resp.Content)
	}
	if _, err := client.Complete(context.Background(), CompletionRequest{}); err == nil {
		t.Error("exhausted mock should error")
	}
	if len(client.Requests) != 3 {
		t.Errorf("recorded %d requests", len(client.Requests))
	}
}

func TestMessageConstructors(t *testing.T) {
	if m := NewSystemMessage("s"); m.Role != RoleSystem {
		t.Errorf("system role = %q", m.Role)
	}
	if m := NewUserMessage("u"); m.Role != RoleUser {
		t.Errorf("user role = %q", m.Role)
	}
	if m := NewAssistantMessage("a"); m.Role != RoleAssistant {
		t.Errorf("assistant role = %q", m.Role)
	}
}
