package pgstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
)

// Evaluations is a Postgres-backed store.EvaluationStore. A unique
// (agent_id, session_id, policy_id) constraint plus an upsert on
// conflict implements the "exactly one current evaluation per
// session/policy" invariant without a separate delete step.
type Evaluations struct {
	pool *pgxpool.Pool
}

func (e *Evaluations) ReplaceForSessionPolicy(ctx context.Context, eval policy.Evaluation) error {
	if eval.ID == "" {
		eval.ID = uuid.New().String()
	}
	details, err := json.Marshal(eval.Details)
	if err != nil {
		return fmt.Errorf("marshaling evaluation details: %w", err)
	}
	_, err = e.pool.Exec(ctx, `
		INSERT INTO evaluations (id, agent_id, session_id, policy_id, is_compliant, details, evaluated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (agent_id, session_id, policy_id) DO UPDATE SET
			id = EXCLUDED.id, is_compliant = EXCLUDED.is_compliant,
			details = EXCLUDED.details, evaluated_at = EXCLUDED.evaluated_at`,
		eval.ID, eval.AgentID, eval.SessionID, eval.PolicyID, eval.IsCompliant, details, eval.EvaluatedAt)
	if err != nil {
		return fmt.Errorf("replacing evaluation for session %q policy %q: %w", eval.SessionID, eval.PolicyID, err)
	}
	return nil
}

func (e *Evaluations) Latest(ctx context.Context, agentID, sessionID string) ([]policy.Evaluation, error) {
	rows, err := e.pool.Query(ctx, `
		SELECT id, agent_id, session_id, policy_id, is_compliant, details, evaluated_at
		FROM evaluations WHERE agent_id = $1 AND session_id = $2 ORDER BY policy_id`, agentID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading evaluations for session %q: %w", sessionID, err)
	}
	defer rows.Close()
	return scanEvaluations(rows)
}

func (e *Evaluations) LatestForPolicy(ctx context.Context, agentID, policyID string) ([]policy.Evaluation, error) {
	rows, err := e.pool.Query(ctx, `
		SELECT id, agent_id, session_id, policy_id, is_compliant, details, evaluated_at
		FROM evaluations WHERE agent_id = $1 AND policy_id = $2 ORDER BY session_id`, agentID, policyID)
	if err != nil {
		return nil, fmt.Errorf("loading evaluations for policy %q: %w", policyID, err)
	}
	defer rows.Close()
	return scanEvaluations(rows)
}

func (e *Evaluations) EvaluatedPolicyIDs(ctx context.Context, agentID, sessionID string) ([]string, error) {
	rows, err := e.pool.Query(ctx, `
		SELECT policy_id FROM evaluations WHERE agent_id = $1 AND session_id = $2 ORDER BY policy_id`, agentID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading evaluated policy ids for session %q: %w", sessionID, err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (e *Evaluations) ProcessedSessionIDs(ctx context.Context, agentID string) ([]string, error) {
	rows, err := e.pool.Query(ctx, `
		SELECT DISTINCT session_id FROM evaluations WHERE agent_id = $1 ORDER BY session_id`, agentID)
	if err != nil {
		return nil, fmt.Errorf("loading processed session ids: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanEvaluations(rows pgx.Rows) ([]policy.Evaluation, error) {
	var out []policy.Evaluation
	for rows.Next() {
		var ev policy.Evaluation
		var details []byte
		if err := rows.Scan(&ev.ID, &ev.AgentID, &ev.SessionID, &ev.PolicyID, &ev.IsCompliant, &details, &ev.EvaluatedAt); err != nil {
			return nil, fmt.Errorf("scanning evaluation row: %w", err)
		}
		if err := json.Unmarshal(details, &ev.Details); err != nil {
			return nil, fmt.Errorf("unmarshaling evaluation details: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
