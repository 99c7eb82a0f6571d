// Package session wraps the interview engine with persistence and
// concurrency control: it loads history and state, serializes turns per
// session, and persists the results of each turn atomically.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"interviewd/pkg/engine"
	"interviewd/pkg/interview"
	"interviewd/pkg/logx"
	"interviewd/pkg/persistence"
	"interviewd/pkg/safeguarding"
)

// CompletionNotifier is told when a session first reaches completion.
// Fire-and-forget: its failure never fails the turn.
type CompletionNotifier interface {
	NotifyCompletion(ctx context.Context, n CompletionNotice) error
}

// CompletionNotice is the payload handed to the notifier.
type CompletionNotice struct {
	ParticipantName string    `json:"participantName"`
	AssessmentType  string    `json:"assessmentType"`
	DashboardURL    string    `json:"dashboardUrl"`
	CompletedAt     time.Time `json:"completedAt"`
}

// Manager coordinates turns for all sessions.
type Manager struct {
	store        *persistence.Store
	engine       *engine.Engine
	escalator    *safeguarding.Escalator
	notifier     CompletionNotifier
	dashboardURL string
	locks        *lockRegistry
	logger       *logx.Logger
}

// NewManager wires the session manager.
func NewManager(store *persistence.Store, eng *engine.Engine, escalator *safeguarding.Escalator, notifier CompletionNotifier, dashboardURL string) *Manager {
	return &Manager{
		store:        store,
		engine:       eng,
		escalator:    escalator,
		notifier:     notifier,
		dashboardURL: dashboardURL,
		locks:        newLockRegistry(),
		logger:       logx.NewLogger("session"),
	}
}

// CreateSession registers a new session with its variant's initial state
// and returns the session id plus the opening greeting as the first
// agent message.
func (m *Manager) CreateSession(ctx context.Context, sc interview.SessionContext) (string, interview.TurnResult, error) {
	if sc.SessionID == "" {
		sc.SessionID = uuid.New().String()
	}
	if sc.ParticipantName == "" {
		return "", interview.TurnResult{}, interview.NewValidationError("participant_name", "participant name is required")
	}
	if _, err := interview.ParseVariant(string(sc.Variant)); err != nil {
		return "", interview.TurnResult{}, interview.NewValidationError("variant", err.Error())
	}

	state := engine.InitialState(sc.Variant)
	greeting, newState, err := m.engine.Advance(ctx, sc, nil, state, nil)
	if err != nil {
		return "", interview.TurnResult{}, err
	}

	if err := m.store.CreateSession(ctx, sc, newState); err != nil {
		return "", interview.TurnResult{}, err
	}
	agentMsg := interview.Message{
		ID:        uuid.New().String(),
		Role:      interview.RoleAgent,
		Content:   greeting,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.AppendMessages(ctx, sc.SessionID, agentMsg); err != nil {
		return "", interview.TurnResult{}, err
	}

	m.logger.Info("created session %s variant=%s participant=%s", sc.SessionID, sc.Variant, sc.ParticipantName)
	return sc.SessionID, interview.TurnResult{
		Reply: greeting,
		State: newState,
	}, nil
}

// HandleTurn runs one participant turn end to end. At most one turn per
// session is in flight at any moment; a concurrent caller gets
// interview.ErrTurnInProgress immediately.
func (m *Manager) HandleTurn(ctx context.Context, sessionID, message string) (interview.TurnResult, error) {
	if message == "" {
		return interview.TurnResult{}, interview.NewValidationError("message", "message is required")
	}

	rec, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return interview.TurnResult{}, err
	}
	if rec.Status == persistence.StatusInactive {
		return interview.TurnResult{}, interview.ErrSessionInactive
	}

	if !m.locks.tryAcquire(sessionID) {
		return interview.TurnResult{}, interview.ErrTurnInProgress
	}
	defer m.locks.release(sessionID)

	state, err := m.store.LoadState(ctx, sessionID)
	if err != nil {
		return interview.TurnResult{}, err
	}
	if state.Complete {
		// Completed sessions still serve their closing content but
		// refuse phase-advancing turns.
		return interview.TurnResult{}, interview.ErrSessionInactive
	}

	history, err := m.store.LoadMessages(ctx, sessionID)
	if err != nil {
		return interview.TurnResult{}, err
	}

	incoming := &interview.Message{
		ID:        uuid.New().String(),
		Role:      interview.RoleParticipant,
		Content:   message,
		CreatedAt: time.Now().UTC(),
	}

	reply, newState, err := m.engine.Advance(ctx, rec.Context, history, state, incoming)
	if err != nil {
		// Nothing was persisted, so the session is exactly as it was
		// and the participant can safely retry.
		return interview.TurnResult{}, err
	}

	agentMsg := interview.Message{
		ID:        uuid.New().String(),
		Role:      interview.RoleAgent,
		Content:   reply,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.AppendMessages(ctx, sessionID, *incoming, agentMsg); err != nil {
		return interview.TurnResult{}, fmt.Errorf("failed to persist turn: %w", err)
	}
	if err := m.store.SaveState(ctx, sessionID, newState); err != nil {
		return interview.TurnResult{}, fmt.Errorf("failed to persist state: %w", err)
	}

	newFlags := newState.Flags[len(state.Flags):]
	if len(newFlags) > 0 {
		if err := m.store.RecordSafeguardingFlags(ctx, sessionID, newFlags); err != nil {
			m.logger.Error("failed to record safeguarding flags for %s: %v", sessionID, err)
		}
		if m.escalator != nil {
			m.escalator.Process(ctx, sessionID, newFlags)
		}
	}

	if newState.Complete && !state.Complete {
		m.notifyCompletion(rec.Context, newState)
	}

	return interview.TurnResult{
		Reply:                reply,
		State:                newState,
		IsComplete:           newState.Complete,
		SafeguardingDetected: len(newFlags) > 0,
	}, nil
}

// notifyCompletion tells the external collaborator a session finished.
// Runs detached so a slow or failing notifier cannot delay the reply.
func (m *Manager) notifyCompletion(sc interview.SessionContext, state interview.ConversationState) {
	if m.notifier == nil {
		return
	}
	completedAt := time.Now().UTC()
	if state.CompletedAt != nil {
		completedAt = *state.CompletedAt
	}
	notice := CompletionNotice{
		ParticipantName: sc.ParticipantName,
		AssessmentType:  string(sc.Variant),
		DashboardURL:    m.dashboardURL,
		CompletedAt:     completedAt,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.notifier.NotifyCompletion(ctx, notice); err != nil {
			m.logger.Error("completion notification failed for %s: %v", sc.SessionID, err)
		}
	}()
}

// GetTranscript returns the session's messages in order.
func (m *Manager) GetTranscript(ctx context.Context, sessionID string) ([]interview.Message, error) {
	if _, err := m.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return m.store.LoadMessages(ctx, sessionID)
}

// GetState returns the session's current conversation state.
func (m *Manager) GetState(ctx context.Context, sessionID string) (interview.ConversationState, error) {
	return m.store.LoadState(ctx, sessionID)
}
