package pgstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
)

// Policies is a Postgres-backed store.PolicyStore.
type Policies struct {
	pool *pgxpool.Pool
}

func (p *Policies) Get(ctx context.Context, agentID, policyID string) (*policy.Policy, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, agent_id, name, description, policy_type, severity, enabled, config, created_at, updated_at
		FROM policies WHERE agent_id = $1 AND id = $2`, agentID, policyID)
	pol, err := scanPolicy(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("getting policy %q: %w", policyID, err)
	}
	return pol, nil
}

func (p *Policies) ListEnabled(ctx context.Context, agentID string) ([]policy.Policy, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, agent_id, name, description, policy_type, severity, enabled, config, created_at, updated_at
		FROM policies WHERE agent_id = $1 AND enabled = true ORDER BY id`, agentID)
	if err != nil {
		return nil, fmt.Errorf("listing enabled policies: %w", err)
	}
	defer rows.Close()
	return scanPolicies(rows)
}

func (p *Policies) ListByIDs(ctx context.Context, agentID string, policyIDs []string) ([]policy.Policy, error) {
	if len(policyIDs) == 0 {
		return nil, nil
	}
	rows, err := p.pool.Query(ctx, `
		SELECT id, agent_id, name, description, policy_type, severity, enabled, config, created_at, updated_at
		FROM policies WHERE agent_id = $1 AND id = ANY($2) ORDER BY id`, agentID, policyIDs)
	if err != nil {
		return nil, fmt.Errorf("listing policies by id: %w", err)
	}
	defer rows.Close()
	return scanPolicies(rows)
}

// Put inserts or replaces a policy record (used by callers that manage
// policy authoring; the evaluation path only ever reads).
func (p *Policies) Put(ctx context.Context, pol policy.Policy) error {
	cfg, err := json.Marshal(pol.Config)
	if err != nil {
		return fmt.Errorf("marshaling policy config: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO policies (id, agent_id, name, description, policy_type, severity, enabled, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			agent_id = EXCLUDED.agent_id, name = EXCLUDED.name, description = EXCLUDED.description,
			policy_type = EXCLUDED.policy_type, severity = EXCLUDED.severity, enabled = EXCLUDED.enabled,
			config = EXCLUDED.config, updated_at = EXCLUDED.updated_at`,
		pol.ID, pol.AgentID, pol.Name, pol.Description, pol.PolicyType, pol.Severity, pol.Enabled, cfg, pol.CreatedAt, pol.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting policy %q: %w", pol.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (*policy.Policy, error) {
	var pol policy.Policy
	var cfg []byte
	if err := row.Scan(&pol.ID, &pol.AgentID, &pol.Name, &pol.Description, &pol.PolicyType,
		&pol.Severity, &pol.Enabled, &cfg, &pol.CreatedAt, &pol.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cfg, &pol.Config); err != nil {
		return nil, fmt.Errorf("unmarshaling policy config: %w", err)
	}
	return &pol, nil
}

func scanPolicies(rows pgx.Rows) ([]policy.Policy, error) {
	var out []policy.Policy
	for rows.Next() {
		pol, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning policy row: %w", err)
		}
		out = append(out, *pol)
	}
	return out, rows.Err()
}
