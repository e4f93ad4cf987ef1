package memstore

import (
	"context"
	"testing"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionsGetAndList(t *testing.T) {
	store := NewSessions()
	store.Put("agent-1", policy.Session{ID: "s1"})
	store.Put("agent-1", policy.Session{ID: "s2"})

	ctx := context.Background()
	sess, err := store.Get(ctx, "agent-1", "s1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "s1", sess.ID)

	missing, err := store.Get(ctx, "agent-1", "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, missing)

	ids, err := store.List(ctx, "agent-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s2"}, ids)
}

func TestEvaluationsReplaceForSessionPolicyOverwrites(t *testing.T) {
	store := NewEvaluations()
	ctx := context.Background()

	err := store.ReplaceForSessionPolicy(ctx, policy.Evaluation{ID: "e1", AgentID: "a", SessionID: "s1", PolicyID: "p1", IsCompliant: false})
	require.NoError(t, err)
	err = store.ReplaceForSessionPolicy(ctx, policy.Evaluation{ID: "e2", AgentID: "a", SessionID: "s1", PolicyID: "p1", IsCompliant: true})
	require.NoError(t, err)

	latest, err := store.Latest(ctx, "a", "s1")
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "e2", latest[0].ID)
	assert.True(t, latest[0].IsCompliant)
}

func TestEvaluationsProcessedSessionIDs(t *testing.T) {
	store := NewEvaluations()
	ctx := context.Background()
	require.NoError(t, store.ReplaceForSessionPolicy(ctx, policy.Evaluation{AgentID: "a", SessionID: "s1", PolicyID: "p1"}))

	ids, err := store.ProcessedSessionIDs(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)

	ids, err = store.ProcessedSessionIDs(ctx, "unknown-agent")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestVariantsReplaceAndScopedTransitions(t *testing.T) {
	store := NewVariants()
	ctx := context.Background()

	vid := "v1"
	variants := []policy.AgentVariant{{ID: vid, AgentID: "a"}}
	transitions := []policy.ToolTransition{
		{AgentID: "a", FromTool: "_start", ToTool: "x", Count: 1, VariantID: &vid},
		{AgentID: "a", FromTool: "_start", ToTool: "x", Count: 1, VariantID: nil},
	}
	require.NoError(t, store.ReplaceAgentVariants(ctx, "a", variants, transitions))

	scoped, err := store.Transitions(ctx, "a", &vid)
	require.NoError(t, err)
	require.Len(t, scoped, 1)

	aggregate, err := store.Transitions(ctx, "a", nil)
	require.NoError(t, err)
	require.Len(t, aggregate, 1)
	assert.Nil(t, aggregate[0].VariantID)
}

func TestJobsCreateRejectsDuplicate(t *testing.T) {
	store := NewJobs()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, policy.ProcessingJob{ID: "j1"}))
	assert.Error(t, store.Create(ctx, policy.ProcessingJob{ID: "j1"}))
}

func TestJobsUpdateRequiresExisting(t *testing.T) {
	store := NewJobs()
	ctx := context.Background()
	assert.Error(t, store.Update(ctx, policy.ProcessingJob{ID: "missing"}))

	require.NoError(t, store.Create(ctx, policy.ProcessingJob{ID: "j1", Status: policy.JobPending}))
	require.NoError(t, store.Update(ctx, policy.ProcessingJob{ID: "j1", Status: policy.JobRunning}))

	job, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, policy.JobRunning, job.Status)
}

func TestSessionStatusesUpsert(t *testing.T) {
	store := NewSessionStatuses()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, policy.SessionStatus{AgentID: "a", SessionID: "s1", ComplianceStatus: policy.ComplianceIssues}))
	st, err := store.Get(ctx, "a", "s1")
	require.NoError(t, err)
	assert.Equal(t, policy.ComplianceIssues, st.ComplianceStatus)

	require.NoError(t, store.Upsert(ctx, policy.SessionStatus{AgentID: "a", SessionID: "s1", ComplianceStatus: policy.ComplianceResolved}))
	st, err = store.Get(ctx, "a", "s1")
	require.NoError(t, err)
	assert.Equal(t, policy.ComplianceResolved, st.ComplianceStatus)
}
