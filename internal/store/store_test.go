package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peereval/internal/models"
	"peereval/internal/testutils"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := testutils.SetupTestDBPath(t)
	s, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetToken(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tok := models.Token{
		Token:       "tok-1",
		EvaluatorID: "A",
		TargetID:    "B",
		Questions:   []string{"Q1", "Q2"},
		CreatedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(7 * 24 * time.Hour),
		Status:      models.TokenPending,
	}
	require.NoError(t, s.SaveToken(ctx, tok))

	got, err := s.GetToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "A", got.EvaluatorID)
	assert.Equal(t, []string{"Q1", "Q2"}, got.Questions)

	err = s.SaveToken(ctx, tok)
	require.Error(t, err)
}

func TestValidateToken_Lifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	tok := models.Token{
		Token: "tok-2", EvaluatorID: "A", TargetID: "B", Questions: []string{"Q1"},
		CreatedAt: now, ExpiresAt: now.Add(time.Hour), Status: models.TokenPending,
	}
	require.NoError(t, s.SaveToken(ctx, tok))

	valid, info, reason := s.ValidateToken(ctx, "tok-2", now)
	assert.True(t, valid)
	assert.Empty(t, reason)
	assert.NotNil(t, info)

	require.NoError(t, s.MarkTokenUsed(ctx, "tok-2", "1.2.3.4", "ua"))

	valid, _, reason = s.ValidateToken(ctx, "tok-2", now)
	assert.False(t, valid)
	assert.Equal(t, "already used", reason)

	err := s.MarkTokenUsed(ctx, "tok-2", "", "")
	require.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	tok := models.Token{
		Token: "tok-3", EvaluatorID: "A", TargetID: "B", Questions: []string{"Q1"},
		CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Second), Status: models.TokenPending,
	}
	require.NoError(t, s.SaveToken(ctx, tok))

	valid, _, reason := s.ValidateToken(ctx, "tok-3", now)
	assert.False(t, valid)
	assert.Equal(t, "expired", reason)
}

func TestSaveSubmissionsBatchAndMarkUsed_Atomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	tok := models.Token{
		Token: "tok-4", EvaluatorID: "A", TargetID: "B", Questions: []string{"Q1", "Q2"},
		CreatedAt: now, ExpiresAt: now.Add(time.Hour), Status: models.TokenPending,
	}
	require.NoError(t, s.SaveToken(ctx, tok))

	subs := []models.Submission{
		{Token: "tok-4", EvaluatorID: "A", TargetID: "B", QuestionID: "Q1", Score: 18, SubmittedAt: now},
		{Token: "tok-4", EvaluatorID: "A", TargetID: "B", QuestionID: "Q2", Score: 20, SubmittedAt: now},
	}
	ids, err := s.SaveSubmissionsBatchAndMarkUsed(ctx, subs, "tok-4", "1.2.3.4", "ua")
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	got, err := s.GetToken(ctx, "tok-4")
	require.NoError(t, err)
	assert.True(t, got.IsUsed)
	assert.Equal(t, models.TokenSubmitted, got.Status)

	all, err := s.SubmissionsByTarget(ctx, "B")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// A retry on an already-used token must roll back entirely and add no rows.
	_, err = s.SaveSubmissionsBatchAndMarkUsed(ctx, subs, "tok-4", "1.2.3.4", "ua")
	require.Error(t, err)

	all, err = s.SubmissionsByTarget(ctx, "B")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTokenStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for i, status := range []models.TokenStatus{models.TokenPending, models.TokenSubmitted} {
		tok := models.Token{
			Token: "stat-tok", EvaluatorID: "A", TargetID: "B", Questions: []string{"Q1"},
			CreatedAt: now, ExpiresAt: now.Add(time.Hour), Status: status, IsUsed: status == models.TokenSubmitted,
		}
		tok.Token = tok.Token + string(rune('0'+i))
		require.NoError(t, s.SaveToken(ctx, tok))
	}

	stats, err := s.TokenStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Submitted)
	assert.InDelta(t, 50.0, stats.CompletionRate, 0.001)
}
