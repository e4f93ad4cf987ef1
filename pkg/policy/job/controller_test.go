package job

import (
	"context"
	"testing"
	"time"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
	"github.com/codeready-toolchain/tarsy/pkg/policy/evaluator"
	"github.com/codeready-toolchain/tarsy/pkg/policy/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController() (*Controller, *memstore.Jobs, *memstore.Sessions, *memstore.Policies, *memstore.Evaluations) {
	jobs := memstore.NewJobs()
	sessions := memstore.NewSessions()
	policies := memstore.NewPolicies()
	evaluations := memstore.NewEvaluations()
	variants := memstore.NewVariants()
	c := New(jobs, sessions, policies, evaluations, variants, evaluator.New(nil))
	return c, jobs, sessions, policies, evaluations
}

func requirePolicy(id, toolName string) policy.Policy {
	return policy.Policy{
		ID:      id,
		AgentID: "agent-1",
		Name:    id,
		Enabled: true,
		Config: policy.PolicyConfig{
			Checks: []policy.Check{{ID: "c1", Type: policy.CheckToolCall, Params: map[string]any{"tool_name": toolName}}},
			ViolationLogic: policy.ViolationLogic{
				Kind:         policy.LogicRequireAll,
				Requirements: []string{"c1"},
			},
		},
	}
}

func TestSubmitRejectsEmptySessionIDs(t *testing.T) {
	c, _, _, policies, _ := newTestController()
	policies.Put(requirePolicy("p1", "search"))

	_, err := c.Submit(context.Background(), "agent-1", nil, nil, false)
	assert.Error(t, err)
}

func TestSubmitRejectsUnknownPoliciesAndNoEnabled(t *testing.T) {
	c, _, sessions, _, _ := newTestController()
	sessions.Put("agent-1", policy.Session{ID: "s1"})

	_, err := c.Submit(context.Background(), "agent-1", []string{"s1"}, nil, false)
	assert.Error(t, err, "no enabled policies should be a submission error")

	_, err = c.Submit(context.Background(), "agent-1", []string{"s1"}, []string{"unknown"}, false)
	assert.Error(t, err, "policy ids that resolve to nothing should be a submission error")
}

func TestSubmitDropsUnknownSessionIDs(t *testing.T) {
	c, _, sessions, policies, _ := newTestController()
	sessions.Put("agent-1", policy.Session{ID: "s1"})
	policies.Put(requirePolicy("p1", "search"))

	job, err := c.Submit(context.Background(), "agent-1", []string{"s1", "does-not-exist"}, nil, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, job.SessionIDs)
	c.Wait()
}

func TestSubmitRunsEvaluationAndCompletes(t *testing.T) {
	c, jobsStore, sessions, policies, evaluations := newTestController()
	sessions.Put("agent-1", policy.Session{
		ID: "s1",
		Messages: []policy.Message{
			{Role: policy.RoleAssistant, Blocks: []policy.ContentBlock{
				{Type: policy.BlockToolUse, ToolName: "search", ToolUseID: "t1"},
			}},
		},
	})
	policies.Put(requirePolicy("p1", "search"))

	job, err := c.Submit(context.Background(), "agent-1", []string{"s1"}, []string{"p1"}, false)
	require.NoError(t, err)
	c.Wait()

	finished, err := jobsStore.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, finished)
	assert.Equal(t, policy.JobCompleted, finished.Status)
	assert.Equal(t, 1, finished.CompletedItems)
	assert.Equal(t, 0, finished.FailedItems)

	evals, err := evaluations.Latest(context.Background(), "agent-1", "s1")
	require.NoError(t, err)
	require.Len(t, evals, 1)
	assert.True(t, evals[0].IsCompliant)
}

func TestSubmitNonCompliantSessionStillCompletesJob(t *testing.T) {
	c, jobsStore, sessions, policies, evaluations := newTestController()
	sessions.Put("agent-1", policy.Session{ID: "s1"}) // no messages -> the required tool was never called

	policies.Put(requirePolicy("p1", "search"))

	job, err := c.Submit(context.Background(), "agent-1", []string{"s1"}, []string{"p1"}, false)
	require.NoError(t, err)
	c.Wait()

	finished, err := jobsStore.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, policy.JobCompleted, finished.Status)
	assert.Equal(t, 1, finished.CompletedItems)
	assert.Equal(t, 0, finished.FailedItems, "a non-compliant evaluation is not a job failure")

	evals, err := evaluations.Latest(context.Background(), "agent-1", "s1")
	require.NoError(t, err)
	require.Len(t, evals, 1)
	assert.False(t, evals[0].IsCompliant)
}

func TestUpdateJobPreservesUntouchedFields(t *testing.T) {
	c, jobsStore, _, _, _ := newTestController()
	createdAt := time.Now().Add(-time.Hour)
	require.NoError(t, jobsStore.Create(context.Background(), policy.ProcessingJob{
		ID: "j1", AgentID: "a", TotalItems: 5, CreatedAt: createdAt,
	}))

	err := c.updateJob(context.Background(), "j1", func(j *policy.ProcessingJob) {
		j.Status = policy.JobRunning
	})
	require.NoError(t, err)

	got, err := jobsStore.Get(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, policy.JobRunning, got.Status)
	assert.Equal(t, 5, got.TotalItems, "fields not touched by mutate must survive the round trip")
	assert.Equal(t, createdAt, got.CreatedAt)
}
