package pgstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
)

// Jobs is a Postgres-backed store.JobStore. Update replaces the row
// wholesale, matching the interface contract the Job Controller relies
// on (see store.JobStore's doc comment).
type Jobs struct {
	pool *pgxpool.Pool
}

func (j *Jobs) Create(ctx context.Context, job policy.ProcessingJob) error {
	existing, err := j.Get(ctx, job.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("job %q already exists", job.ID)
	}
	return j.upsert(ctx, job)
}

func (j *Jobs) Update(ctx context.Context, job policy.ProcessingJob) error {
	existing, err := j.Get(ctx, job.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("job %q not found", job.ID)
	}
	return j.upsert(ctx, job)
}

func (j *Jobs) upsert(ctx context.Context, job policy.ProcessingJob) error {
	sessionIDs, err := json.Marshal(job.SessionIDs)
	if err != nil {
		return fmt.Errorf("marshaling session ids: %w", err)
	}
	policyIDs, err := json.Marshal(job.PolicyIDs)
	if err != nil {
		return fmt.Errorf("marshaling policy ids: %w", err)
	}
	results, err := json.Marshal(job.Results)
	if err != nil {
		return fmt.Errorf("marshaling job results: %w", err)
	}
	_, err = j.pool.Exec(ctx, `
		INSERT INTO processing_jobs (id, agent_id, status, job_type, session_ids, policy_ids, refresh_variants,
			total_items, completed_items, failed_items, results, error_message, created_at, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			agent_id = EXCLUDED.agent_id, status = EXCLUDED.status, job_type = EXCLUDED.job_type,
			session_ids = EXCLUDED.session_ids, policy_ids = EXCLUDED.policy_ids,
			refresh_variants = EXCLUDED.refresh_variants, total_items = EXCLUDED.total_items,
			completed_items = EXCLUDED.completed_items, failed_items = EXCLUDED.failed_items,
			results = EXCLUDED.results, error_message = EXCLUDED.error_message,
			started_at = EXCLUDED.started_at, completed_at = EXCLUDED.completed_at`,
		job.ID, job.AgentID, job.Status, job.JobType, sessionIDs, policyIDs, job.RefreshVariants,
		job.TotalItems, job.CompletedItems, job.FailedItems, results, job.ErrorMessage,
		job.CreatedAt, job.StartedAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("upserting job %q: %w", job.ID, err)
	}
	return nil
}

func (j *Jobs) Get(ctx context.Context, jobID string) (*policy.ProcessingJob, error) {
	row := j.pool.QueryRow(ctx, `
		SELECT id, agent_id, status, job_type, session_ids, policy_ids, refresh_variants,
			total_items, completed_items, failed_items, results, error_message, created_at, started_at, completed_at
		FROM processing_jobs WHERE id = $1`, jobID)

	var job policy.ProcessingJob
	var sessionIDs, policyIDs, results []byte
	err := row.Scan(&job.ID, &job.AgentID, &job.Status, &job.JobType, &sessionIDs, &policyIDs, &job.RefreshVariants,
		&job.TotalItems, &job.CompletedItems, &job.FailedItems, &results, &job.ErrorMessage,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("getting job %q: %w", jobID, err)
	}

	if err := json.Unmarshal(sessionIDs, &job.SessionIDs); err != nil {
		return nil, fmt.Errorf("unmarshaling session ids: %w", err)
	}
	if err := json.Unmarshal(policyIDs, &job.PolicyIDs); err != nil {
		return nil, fmt.Errorf("unmarshaling policy ids: %w", err)
	}
	if err := json.Unmarshal(results, &job.Results); err != nil {
		return nil, fmt.Errorf("unmarshaling job results: %w", err)
	}
	return &job, nil
}
