// Package job implements the Job Controller: asynchronous batch
// evaluation of many (session, policy) pairs with a pending -> running
// -> completed/failed lifecycle, per-item error isolation, and an
// optional variant-table refresh once the batch finishes.
package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
	"github.com/codeready-toolchain/tarsy/pkg/policy/evaluator"
	"github.com/codeready-toolchain/tarsy/pkg/policy/pattern"
	"github.com/codeready-toolchain/tarsy/pkg/policy/store"
	"github.com/google/uuid"
)

// Controller submits and runs batch evaluation jobs. One Controller is
// shared across submissions; each Submit call spawns its own background
// goroutine so callers never block on evaluation time.
type Controller struct {
	Jobs        store.JobStore
	Sessions    store.SessionStore
	Policies    store.PolicyStore
	Evaluations store.EvaluationStore
	Variants    store.VariantStore
	Evaluator   *evaluator.Evaluator

	// JobTimeout bounds how long a single batch run may take; zero
	// (the default) means no deadline. Set via WithLimits.
	JobTimeout time.Duration

	// sem bounds how many batch runs execute concurrently across this
	// Controller; nil (the default) means unbounded. Set via WithLimits.
	sem chan struct{}

	// wg lets tests (and graceful shutdown) wait for in-flight background
	// runs; it is never required for correctness of a single submission.
	wg sync.WaitGroup
}

// WithLimits bounds concurrent batch runs to maxConcurrent (<= 0 means
// unbounded) and each run's wall-clock time to jobTimeout (<= 0 means no
// deadline), mirroring the two knobs config.QueueConfig exposes for this
// Controller. It returns c for chaining after New.
func (c *Controller) WithLimits(maxConcurrent int, jobTimeout time.Duration) *Controller {
	if maxConcurrent > 0 {
		c.sem = make(chan struct{}, maxConcurrent)
	}
	c.JobTimeout = jobTimeout
	return c
}

// New builds a Controller from its store dependencies and an Evaluator.
func New(jobs store.JobStore, sessions store.SessionStore, policies store.PolicyStore, evaluations store.EvaluationStore, variants store.VariantStore, eval *evaluator.Evaluator) *Controller {
	return &Controller{
		Jobs:        jobs,
		Sessions:    sessions,
		Policies:    policies,
		Evaluations: evaluations,
		Variants:    variants,
		Evaluator:   eval,
	}
}

// Submit validates the request, creates a pending ProcessingJob, and
// starts background processing. It returns as soon as the job record is
// persisted — evaluation happens entirely off this call path.
//
// sessionIDs that don't resolve to a session are dropped silently (the
// original system's "valid_memory_ids" filter); an empty resulting set,
// or an empty resolved policy set, is a submission error.
func (c *Controller) Submit(ctx context.Context, agentID string, sessionIDs, policyIDs []string, refreshVariants bool) (*policy.ProcessingJob, error) {
	validSessionIDs, err := c.filterValidSessions(ctx, agentID, sessionIDs)
	if err != nil {
		return nil, err
	}
	if len(validSessionIDs) == 0 {
		return nil, fmt.Errorf("no valid session ids provided")
	}

	policies, err := c.resolvePolicies(ctx, agentID, policyIDs)
	if err != nil {
		return nil, err
	}
	if len(policies) == 0 {
		return nil, fmt.Errorf("no policies available for evaluation")
	}
	resolvedPolicyIDs := make([]string, 0, len(policies))
	for _, p := range policies {
		resolvedPolicyIDs = append(resolvedPolicyIDs, p.ID)
	}

	job := policy.ProcessingJob{
		ID:              uuid.New().String(),
		AgentID:         agentID,
		Status:          policy.JobPending,
		JobType:         "batch_evaluate",
		SessionIDs:      validSessionIDs,
		PolicyIDs:       resolvedPolicyIDs,
		RefreshVariants: refreshVariants,
		TotalItems:      len(validSessionIDs),
		CreatedAt:       time.Now(),
	}
	if err := c.Jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}

	c.wg.Add(1)
	go c.run(job.ID, agentID, validSessionIDs, policies, refreshVariants)

	return &job, nil
}

// Wait blocks until every background run started by this Controller has
// finished. Intended for tests and graceful shutdown, never for regular
// request handling.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) filterValidSessions(ctx context.Context, agentID string, sessionIDs []string) ([]string, error) {
	var valid []string
	for _, id := range sessionIDs {
		sess, err := c.Sessions.Get(ctx, agentID, id)
		if err != nil {
			return nil, fmt.Errorf("looking up session %q: %w", id, err)
		}
		if sess != nil {
			valid = append(valid, id)
		}
	}
	return valid, nil
}

func (c *Controller) resolvePolicies(ctx context.Context, agentID string, policyIDs []string) ([]policy.Policy, error) {
	if len(policyIDs) > 0 {
		return c.Policies.ListByIDs(ctx, agentID, policyIDs)
	}
	return c.Policies.ListEnabled(ctx, agentID)
}

// run is the background goroutine body. It uses short-lived store calls
// around each slow evaluation — no lock or transaction is held across an
// LLM call, so a slow external request never blocks shared state.
func (c *Controller) run(jobID, agentID string, sessionIDs []string, policies []policy.Policy, refreshVariants bool) {
	defer c.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("job run panicked", "job_id", jobID, "panic", r)
			failedAt := time.Now()
			if err := c.updateJob(context.Background(), jobID, func(j *policy.ProcessingJob) {
				j.Status = policy.JobFailed
				j.ErrorMessage = fmt.Sprintf("job failed: %v", r)
				j.CompletedAt = &failedAt
			}); err != nil {
				slog.Error("failed to mark job failed", "job_id", jobID, "error", err)
			}
		}
	}()

	if c.sem != nil {
		c.sem <- struct{}{}
		defer func() { <-c.sem }()
	}

	ctx := context.Background()
	if c.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.JobTimeout)
		defer cancel()
	}

	now := time.Now()
	if err := c.updateJob(ctx, jobID, func(j *policy.ProcessingJob) {
		j.Status = policy.JobRunning
		j.StartedAt = &now
	}); err != nil {
		slog.Error("failed to mark job running", "job_id", jobID, "error", err)
	}

	var results []policy.JobResultItem
	failedCount := 0

	for idx, sessionID := range sessionIDs {
		itemResults, err := c.evaluateSession(ctx, agentID, sessionID, policies)
		if err != nil {
			results = append(results, policy.JobResultItem{SessionID: sessionID, Error: err.Error()})
			failedCount++
		} else {
			results = append(results, itemResults...)
			for _, r := range itemResults {
				if r.Error != "" {
					failedCount++
				}
			}
		}

		c.reportProgress(ctx, jobID, agentID, idx+1, failedCount, results)
	}

	var refreshErr string
	if refreshVariants {
		src := pattern.NewStoreSessionSource(c.Sessions, c.Evaluations)
		if err := pattern.RefreshVariants(ctx, agentID, src, c.Variants); err != nil {
			refreshErr = fmt.Sprintf("variants refresh failed: %v", err)
			slog.Error("variants refresh failed", "agent_id", agentID, "error", err)
		}
	}

	completedAt := time.Now()
	if err := c.updateJob(ctx, jobID, func(j *policy.ProcessingJob) {
		j.Status = policy.JobCompleted
		j.CompletedItems = len(sessionIDs)
		j.FailedItems = failedCount
		j.Results = results
		j.ErrorMessage = refreshErr
		j.CompletedAt = &completedAt
	}); err != nil {
		slog.Error("failed to mark job completed", "job_id", jobID, "error", err)
	}
}

// updateJob loads the current record, applies mutate, and writes the
// whole record back — JobStore.Update replaces a job wholesale, so every
// progress report must round-trip through the existing state rather than
// constructing a partial job value.
func (c *Controller) updateJob(ctx context.Context, jobID string, mutate func(*policy.ProcessingJob)) error {
	current, err := c.Jobs.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("loading job %q: %w", jobID, err)
	}
	if current == nil {
		return fmt.Errorf("job %q not found", jobID)
	}
	mutate(current)
	return c.Jobs.Update(ctx, *current)
}

// evaluateSession runs every policy against one session and persists
// each resulting Evaluation with delete-then-insert semantics. A
// per-policy evaluation error is isolated: it's recorded in that item's
// JobResultItem.Error and does not abort the remaining policies or
// sessions.
func (c *Controller) evaluateSession(ctx context.Context, agentID, sessionID string, policies []policy.Policy) ([]policy.JobResultItem, error) {
	sess, err := c.Sessions.Get(ctx, agentID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if sess == nil {
		return []policy.JobResultItem{{SessionID: sessionID, Error: "session not found"}}, nil
	}

	results := make([]policy.JobResultItem, 0, len(policies))
	for _, p := range policies {
		item := policy.JobResultItem{SessionID: sessionID, PolicyID: p.ID}

		// The slow step: no store handle is held open across this call.
		isCompliant, details := c.Evaluator.Evaluate(ctx, sess.Messages, sess.Metadata, p.Config, p.Name, p.Description)

		eval := policy.Evaluation{
			ID:          uuid.New().String(),
			AgentID:     agentID,
			SessionID:   sessionID,
			PolicyID:    p.ID,
			IsCompliant: isCompliant,
			Details:     details,
			EvaluatedAt: time.Now(),
		}
		if err := c.Evaluations.ReplaceForSessionPolicy(ctx, eval); err != nil {
			item.Error = fmt.Sprintf("saving evaluation: %v", err)
		}
		results = append(results, item)
	}
	return results, nil
}

func (c *Controller) reportProgress(ctx context.Context, jobID, _ string, completed, failed int, results []policy.JobResultItem) {
	if err := c.updateJob(ctx, jobID, func(j *policy.ProcessingJob) {
		j.CompletedItems = completed
		j.FailedItems = failed
		j.Results = results
	}); err != nil {
		slog.Error("failed to report job progress", "job_id", jobID, "error", err)
	}
}
