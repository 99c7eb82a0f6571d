package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewd/pkg/interview"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func testSessionContext(id string) interview.SessionContext {
	return interview.SessionContext{
		SessionID:       id,
		Variant:         interview.VariantStakeholder,
		ParticipantName: "Priya",
		ParticipantRole: "manager",
		Extra:           map[string]string{"team": "platform"},
	}
}

func TestSessionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sc := testSessionContext("s1")
	state := interview.ConversationState{
		Variant: interview.VariantStakeholder,
		Phase:   interview.PhaseIntroduction,
	}
	require.NoError(t, store.CreateSession(ctx, sc, state))

	rec, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, sc.SessionID, rec.Context.SessionID)
	assert.Equal(t, sc.Variant, rec.Context.Variant)
	assert.Equal(t, sc.ParticipantName, rec.Context.ParticipantName)
	assert.Equal(t, "platform", rec.Context.Extra["team"])
	assert.Equal(t, StatusActive, rec.Status)
	assert.Nil(t, rec.CompletedAt)

	loaded, err := store.LoadState(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, interview.PhaseIntroduction, loaded.Phase)
}

func TestGetSessionNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, interview.ErrSessionNotFound)

	_, err = store.LoadState(context.Background(), "missing")
	assert.ErrorIs(t, err, interview.ErrSessionNotFound)
}

func TestSaveStateMarksCompletion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sc := testSessionContext("s1")
	require.NoError(t, store.CreateSession(ctx, sc, interview.ConversationState{
		Variant: sc.Variant,
		Phase:   interview.PhaseIntroduction,
	}))

	now := time.Now().UTC()
	done := interview.ConversationState{
		Variant:     sc.Variant,
		Phase:       interview.PhaseCompleted,
		TurnCount:   15,
		Complete:    true,
		CompletedAt: &now,
	}
	require.NoError(t, store.SaveState(ctx, "s1", done))

	rec, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rec.Status)
	require.NotNil(t, rec.CompletedAt)

	loaded, err := store.LoadState(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, loaded.Complete)
	assert.Equal(t, 15, loaded.TurnCount)
}

func TestAppendAndLoadMessages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sc := testSessionContext("s1")
	require.NoError(t, store.CreateSession(ctx, sc, interview.ConversationState{Variant: sc.Variant, Phase: interview.PhaseIntroduction}))

	now := time.Now().UTC()
	first := []interview.Message{
		{ID: "m1", Role: interview.RoleAgent, Content: "Hello!", CreatedAt: now},
	}
	second := []interview.Message{
		{ID: "m2", Role: interview.RoleParticipant, Content: "Hi there", CreatedAt: now.Add(time.Second)},
		{ID: "m3", Role: interview.RoleAgent, Content: "Tell me about your role", CreatedAt: now.Add(2 * time.Second)},
	}
	require.NoError(t, store.AppendMessages(ctx, "s1", first...))
	require.NoError(t, store.AppendMessages(ctx, "s1", second...))

	msgs, err := store.LoadMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
	assert.Equal(t, interview.RoleParticipant, msgs[1].Role)
	assert.Equal(t, "Tell me about your role", msgs[2].Content)
}

func TestRecordAndListSafeguardingFlags(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sc := testSessionContext("s1")
	require.NoError(t, store.CreateSession(ctx, sc, interview.ConversationState{Variant: sc.Variant, Phase: interview.PhaseIntroduction}))

	flags := []interview.SafeguardingFlag{
		{Type: "self_harm", Excerpt: "…", Confidence: 0.9, DetectedAt: time.Now().UTC()},
		{Type: "severe_distress", Excerpt: "…", Confidence: 0.55, DetectedAt: time.Now().UTC()},
	}
	require.NoError(t, store.RecordSafeguardingFlags(ctx, "s1", flags))

	got, err := store.ListSafeguardingFlags(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "self_harm", got[0].Type)
	assert.InDelta(t, 0.55, got[1].Confidence, 0.001)
}

func TestKnowledgeChunkRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chunk := interview.KnowledgeChunk{
		ID:        "c1",
		Source:    "guide.md",
		Content:   "A passage of reference text.",
		Embedding: []float32{0.1, 0.2, 0.3},
	}
	require.NoError(t, store.UpsertChunk(ctx, chunk))

	// Upsert replaces in place.
	chunk.Content = "Updated passage."
	require.NoError(t, store.UpsertChunk(ctx, chunk))

	chunks, err := store.ListChunks(ctx)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Updated passage.", chunks[0].Content)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, chunks[0].Embedding)

	n, err := store.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
