package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewd/pkg/engine"
	"interviewd/pkg/interview"
	"interviewd/pkg/llm"
	"interviewd/pkg/persistence"
	"interviewd/pkg/session"
	"interviewd/pkg/templates"
)

func newTestServer(t *testing.T, client llm.Client) (*Server, *session.Manager) {
	t.Helper()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := persistence.NewStore(db)

	renderer, err := templates.NewRenderer()
	require.NoError(t, err)
	eng := engine.New(client, templates.NewComposer(renderer), nil, nil, engine.Options{MaxTokens: 512})
	manager := session.NewManager(store, eng, nil, nil, "")

	return New(":0", manager, nil), manager
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.httpSrv.Handler.ServeHTTP(rec, req)
	return rec
}

func createTestSession(t *testing.T, srv *Server) string {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/sessions", map[string]any{
		"variant":         "stakeholder-assessment",
		"participantName": "Priya",
		"participantRole": "manager",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success   bool   `json:"success"`
		SessionID string `json:"sessionId"`
		Response  string `json:"response"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.SessionID)
	require.NotEmpty(t, resp.Response)
	return resp.SessionID
}

func TestCreateSessionEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, llm.NewRepeatingMockClient(llm.CompletionResponse{Content: "next question"}))
	id := createTestSession(t, srv)
	assert.NotEmpty(t, id)
}

func TestCreateSessionRejectsBadVariant(t *testing.T) {
	srv, _ := newTestServer(t, llm.NewRepeatingMockClient(llm.CompletionResponse{Content: "x"}))
	rec := doJSON(t, srv, http.MethodPost, "/api/sessions", map[string]any{
		"variant":         "palm-reading",
		"participantName": "Priya",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
	assert.NotEmpty(t, resp.Details)
}

func TestTurnEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, llm.NewRepeatingMockClient(llm.CompletionResponse{Content: "How does that affect you?"}))
	id := createTestSession(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/api/sessions/"+id+"/messages", map[string]any{
		"message": "We keep missing deadlines.",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success              bool            `json:"success"`
		Response             string          `json:"response"`
		State                json.RawMessage `json:"conversationState"`
		IsComplete           bool            `json:"isComplete"`
		SafeguardingDetected bool            `json:"safeguardingDetected"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "How does that affect you?", resp.Response)
	assert.False(t, resp.IsComplete)
	assert.False(t, resp.SafeguardingDetected)
	assert.NotEmpty(t, resp.State)
}

func TestTurnIgnoresUnknownFields(t *testing.T) {
	srv, _ := newTestServer(t, llm.NewRepeatingMockClient(llm.CompletionResponse{Content: "Noted."}))
	id := createTestSession(t, srv)

	// The module is fixed at session creation; extra keys in the turn
	// body are ignored rather than rejected.
	rec := doJSON(t, srv, http.MethodPost, "/api/sessions/"+id+"/messages", map[string]any{
		"message": "Next question please.",
		"module":  "resilience",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTurnValidation(t *testing.T) {
	srv, _ := newTestServer(t, llm.NewRepeatingMockClient(llm.CompletionResponse{Content: "x"}))
	id := createTestSession(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/api/sessions/"+id+"/messages", map[string]any{
		"message": "",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTurnUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t, llm.NewRepeatingMockClient(llm.CompletionResponse{Content: "x"}))
	rec := doJSON(t, srv, http.MethodPost, "/api/sessions/nope/messages", map[string]any{
		"message": "hello",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompletedSessionIsGone(t *testing.T) {
	srv, manager := newTestServer(t, llm.NewRepeatingMockClient(llm.CompletionResponse{Content: "noted"}))

	id, _, err := manager.CreateSession(context.Background(), interview.SessionContext{
		Variant:         interview.VariantEducation,
		ParticipantName: "Jo",
	})
	require.NoError(t, err)
	for turn := 1; turn <= 10; turn++ {
		_, err = manager.HandleTurn(context.Background(), id, "an answer")
		require.NoError(t, err)
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/sessions/"+id+"/messages", map[string]any{
		"message": "one more",
	})
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestModelFailureIs500(t *testing.T) {
	srv, _ := newTestServer(t, llm.NewMockClient(nil, []error{assert.AnError}))
	id := createTestSession(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/api/sessions/"+id+"/messages", map[string]any{
		"message": "hello",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTranscriptAndStateEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, llm.NewRepeatingMockClient(llm.CompletionResponse{Content: "reply"}))
	id := createTestSession(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/sessions/"+id+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var transcript struct {
		Success  bool                `json:"success"`
		Messages []interview.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &transcript))
	assert.Len(t, transcript.Messages, 1)

	rec = doJSON(t, srv, http.MethodGet, "/api/sessions/"+id+"/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/sessions/missing/state", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, llm.NewRepeatingMockClient(llm.CompletionResponse{Content: "x"}))
	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
