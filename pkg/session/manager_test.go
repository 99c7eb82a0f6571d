package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewd/pkg/engine"
	"interviewd/pkg/interview"
	"interviewd/pkg/llm"
	"interviewd/pkg/persistence"
	"interviewd/pkg/safeguarding"
	"interviewd/pkg/templates"
)

type capturingNotifier struct {
	mu      sync.Mutex
	notices []CompletionNotice
	done    chan struct{}
}

func newCapturingNotifier() *capturingNotifier {
	return &capturingNotifier{done: make(chan struct{}, 8)}
}

func (n *capturingNotifier) NotifyCompletion(_ context.Context, notice CompletionNotice) error {
	n.mu.Lock()
	n.notices = append(n.notices, notice)
	n.mu.Unlock()
	n.done <- struct{}{}
	return nil
}

func (n *capturingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notices)
}

// blockingClient parks every Complete call until released, so tests can
// hold a turn open deliberately. It signals entered when a call reaches
// the model, letting the test wait until the lock is held.
type blockingClient struct {
	entered chan struct{}
	release chan struct{}
}

func (c *blockingClient) Complete(ctx context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	select {
	case c.entered <- struct{}{}:
	default:
	}
	select {
	case <-c.release:
		return llm.CompletionResponse{Content: "released"}, nil
	case <-ctx.Done():
		return llm.CompletionResponse{}, ctx.Err()
	}
}

func (c *blockingClient) GetModelName() string { return "blocking" }

func newTestManager(t *testing.T, client llm.Client, notifier CompletionNotifier) *Manager {
	t.Helper()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := persistence.NewStore(db)

	renderer, err := templates.NewRenderer()
	require.NoError(t, err)
	eng := engine.New(client, templates.NewComposer(renderer), nil, nil, engine.Options{MaxTokens: 512})

	escalator := safeguarding.NewEscalator(safeguarding.NewLogSink(), 0.7)
	return NewManager(store, eng, escalator, notifier, "https://dashboard.example.com")
}

func TestCreateSessionReturnsGreeting(t *testing.T) {
	client := llm.NewRepeatingMockClient(llm.CompletionResponse{Content: "unused"})
	m := newTestManager(t, client, nil)

	id, result, err := m.CreateSession(context.Background(), interview.SessionContext{
		Variant:         interview.VariantStakeholder,
		ParticipantName: "Priya",
		ParticipantRole: "manager",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Contains(t, result.Reply, "Priya")

	// The greeting is persisted as the first agent message.
	msgs, err := m.GetTranscript(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, interview.RoleAgent, msgs[0].Role)
}

func TestCreateSessionValidation(t *testing.T) {
	client := llm.NewRepeatingMockClient(llm.CompletionResponse{Content: "unused"})
	m := newTestManager(t, client, nil)

	_, _, err := m.CreateSession(context.Background(), interview.SessionContext{
		Variant: interview.VariantStakeholder,
	})
	assert.True(t, interview.IsValidation(err))

	_, _, err = m.CreateSession(context.Background(), interview.SessionContext{
		Variant:         "not-a-variant",
		ParticipantName: "Priya",
	})
	assert.True(t, interview.IsValidation(err))
}

func TestHandleTurnPersistsMessagesAndState(t *testing.T) {
	client := llm.NewRepeatingMockClient(llm.CompletionResponse{Content: "And how does that affect your team?"})
	m := newTestManager(t, client, nil)

	id, _, err := m.CreateSession(context.Background(), interview.SessionContext{
		Variant:         interview.VariantStakeholder,
		ParticipantName: "Priya",
	})
	require.NoError(t, err)

	result, err := m.HandleTurn(context.Background(), id, "We spend most of our time firefighting.")
	require.NoError(t, err)
	assert.Equal(t, "And how does that affect your team?", result.Reply)
	assert.False(t, result.IsComplete)
	assert.Equal(t, 1, result.State.TurnCount)

	msgs, err := m.GetTranscript(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, msgs, 3) // greeting + participant + agent
	assert.Equal(t, interview.RoleParticipant, msgs[1].Role)
	assert.Equal(t, interview.RoleAgent, msgs[2].Role)

	state, err := m.GetState(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, state.TurnCount)
}

func TestHandleTurnUnknownSession(t *testing.T) {
	client := llm.NewRepeatingMockClient(llm.CompletionResponse{Content: "x"})
	m := newTestManager(t, client, nil)

	_, err := m.HandleTurn(context.Background(), "missing", "hello")
	assert.ErrorIs(t, err, interview.ErrSessionNotFound)
}

func TestHandleTurnConcurrencyGuard(t *testing.T) {
	client := &blockingClient{entered: make(chan struct{}, 1), release: make(chan struct{})}
	m := newTestManager(t, client, nil)

	id, _, err := m.CreateSession(context.Background(), interview.SessionContext{
		Variant:         interview.VariantStakeholder,
		ParticipantName: "Priya",
	})
	require.NoError(t, err)

	firstDone := make(chan error, 1)
	go func() {
		_, err := m.HandleTurn(context.Background(), id, "first message")
		firstDone <- err
	}()

	// Wait for the first turn to take the lock and park in the model call.
	select {
	case <-client.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first turn never reached the model call")
	}

	_, err = m.HandleTurn(context.Background(), id, "second message")
	assert.ErrorIs(t, err, interview.ErrTurnInProgress)

	close(client.release)
	require.NoError(t, <-firstDone)

	// With the lock released the session accepts turns again.
	_, err = m.HandleTurn(context.Background(), id, "third message")
	require.NoError(t, err)
}

func TestTurnFailureLeavesSessionRetryable(t *testing.T) {
	client := llm.NewMockClient(
		[]llm.CompletionResponse{{Content: "recovered reply"}},
		[]error{assert.AnError},
	)
	m := newTestManager(t, client, nil)

	id, _, err := m.CreateSession(context.Background(), interview.SessionContext{
		Variant:         interview.VariantStakeholder,
		ParticipantName: "Priya",
	})
	require.NoError(t, err)

	_, err = m.HandleTurn(context.Background(), id, "first attempt")
	require.Error(t, err)
	assert.True(t, interview.IsModelCall(err))

	// Nothing was persisted by the failed turn.
	msgs, err := m.GetTranscript(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	state, err := m.GetState(context.Background(), id)
	require.NoError(t, err)
	assert.Zero(t, state.TurnCount)

	// The retry succeeds.
	result, err := m.HandleTurn(context.Background(), id, "first attempt")
	require.NoError(t, err)
	assert.Equal(t, "recovered reply", result.Reply)
	assert.Equal(t, 1, result.State.TurnCount)
}

func TestCompletionNotifiedExactlyOnce(t *testing.T) {
	client := llm.NewRepeatingMockClient(llm.CompletionResponse{Content: "noted, thank you"})
	notifier := newCapturingNotifier()
	m := newTestManager(t, client, notifier)

	id, _, err := m.CreateSession(context.Background(), interview.SessionContext{
		Variant:         interview.VariantEducation,
		ParticipantName: "Jo",
		Module:          "resilience",
	})
	require.NoError(t, err)

	var last interview.TurnResult
	for turn := 1; turn <= 10; turn++ {
		last, err = m.HandleTurn(context.Background(), id, "an answer")
		require.NoError(t, err, "turn %d", turn)
	}
	require.True(t, last.IsComplete)

	select {
	case <-notifier.done:
	case <-time.After(2 * time.Second):
		t.Fatal("completion notification never fired")
	}
	assert.Equal(t, 1, notifier.count())
	notifier.mu.Lock()
	notice := notifier.notices[0]
	notifier.mu.Unlock()
	assert.Equal(t, "Jo", notice.ParticipantName)
	assert.Equal(t, string(interview.VariantEducation), notice.AssessmentType)
	assert.Equal(t, "https://dashboard.example.com", notice.DashboardURL)

	// Further turns on the completed session are refused as gone.
	_, err = m.HandleTurn(context.Background(), id, "hello again")
	assert.ErrorIs(t, err, interview.ErrSessionInactive)
}

func TestSafeguardingFlagsRecorded(t *testing.T) {
	client := llm.NewRepeatingMockClient(llm.CompletionResponse{Content: "I hear you, that sounds hard."})
	m := newTestManager(t, client, nil)

	id, _, err := m.CreateSession(context.Background(), interview.SessionContext{
		Variant:         interview.VariantEducation,
		ParticipantName: "Jo",
	})
	require.NoError(t, err)

	result, err := m.HandleTurn(context.Background(), id, "I can't cope and sometimes want to hurt myself")
	require.NoError(t, err)
	assert.True(t, result.SafeguardingDetected)
	assert.NotEmpty(t, result.State.Flags)
}
