package pgstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
)

// Variants is a Postgres-backed store.VariantStore. ReplaceAgentVariants
// runs the delete-then-insert refresh inside a single transaction so
// readers never observe transitions pointing at a variant that was
// already deleted.
type Variants struct {
	pool *pgxpool.Pool
}

func (v *Variants) ReplaceAgentVariants(ctx context.Context, agentID string, variants []policy.AgentVariant, transitions []policy.ToolTransition) error {
	tx, err := v.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting variant refresh transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM tool_transitions WHERE agent_id = $1`, agentID); err != nil {
		return fmt.Errorf("clearing transitions: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM agent_variants WHERE agent_id = $1`, agentID); err != nil {
		return fmt.Errorf("clearing variants: %w", err)
	}

	for _, variant := range variants {
		normalized, err := json.Marshal(variant.NormalizedSequence)
		if err != nil {
			return fmt.Errorf("marshaling normalized sequence: %w", err)
		}
		members, err := json.Marshal(variant.MemberSessionIDs)
		if err != nil {
			return fmt.Errorf("marshaling member session ids: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO agent_variants (id, agent_id, signature, normalized_sequence, display_name, member_session_ids, tool_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			variant.ID, agentID, variant.Signature, normalized, variant.DisplayName, members, variant.ToolCount); err != nil {
			return fmt.Errorf("inserting variant %q: %w", variant.ID, err)
		}
	}

	for _, t := range transitions {
		if _, err := tx.Exec(ctx, `
			INSERT INTO tool_transitions (agent_id, variant_id, from_tool, to_tool, count)
			VALUES ($1, $2, $3, $4, $5)`,
			agentID, t.VariantID, t.FromTool, t.ToTool, t.Count); err != nil {
			return fmt.Errorf("inserting transition %s->%s: %w", t.FromTool, t.ToTool, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing variant refresh: %w", err)
	}
	return nil
}

func (v *Variants) List(ctx context.Context, agentID string) ([]policy.AgentVariant, error) {
	rows, err := v.pool.Query(ctx, `
		SELECT id, agent_id, signature, normalized_sequence, display_name, member_session_ids, tool_count
		FROM agent_variants WHERE agent_id = $1 ORDER BY id`, agentID)
	if err != nil {
		return nil, fmt.Errorf("listing variants: %w", err)
	}
	defer rows.Close()
	return scanVariants(rows)
}

func (v *Variants) Get(ctx context.Context, agentID, variantID string) (*policy.AgentVariant, error) {
	row := v.pool.QueryRow(ctx, `
		SELECT id, agent_id, signature, normalized_sequence, display_name, member_session_ids, tool_count
		FROM agent_variants WHERE agent_id = $1 AND id = $2`, agentID, variantID)
	variant, err := scanVariant(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("getting variant %q: %w", variantID, err)
	}
	return variant, nil
}

func (v *Variants) Transitions(ctx context.Context, agentID string, variantID *string) ([]policy.ToolTransition, error) {
	var rows pgx.Rows
	var err error
	if variantID == nil {
		rows, err = v.pool.Query(ctx, `
			SELECT agent_id, variant_id, from_tool, to_tool, count
			FROM tool_transitions WHERE agent_id = $1 AND variant_id IS NULL ORDER BY from_tool, to_tool`, agentID)
	} else {
		rows, err = v.pool.Query(ctx, `
			SELECT agent_id, variant_id, from_tool, to_tool, count
			FROM tool_transitions WHERE agent_id = $1 AND variant_id = $2 ORDER BY from_tool, to_tool`, agentID, *variantID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading transitions: %w", err)
	}
	defer rows.Close()

	var out []policy.ToolTransition
	for rows.Next() {
		var t policy.ToolTransition
		if err := rows.Scan(&t.AgentID, &t.VariantID, &t.FromTool, &t.ToTool, &t.Count); err != nil {
			return nil, fmt.Errorf("scanning transition row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanVariant(row rowScanner) (*policy.AgentVariant, error) {
	var variant policy.AgentVariant
	var normalized, members []byte
	if err := row.Scan(&variant.ID, &variant.AgentID, &variant.Signature, &normalized, &variant.DisplayName, &members, &variant.ToolCount); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(normalized, &variant.NormalizedSequence); err != nil {
		return nil, fmt.Errorf("unmarshaling normalized sequence: %w", err)
	}
	if err := json.Unmarshal(members, &variant.MemberSessionIDs); err != nil {
		return nil, fmt.Errorf("unmarshaling member session ids: %w", err)
	}
	return &variant, nil
}

func scanVariants(rows pgx.Rows) ([]policy.AgentVariant, error) {
	var out []policy.AgentVariant
	for rows.Next() {
		variant, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning variant row: %w", err)
		}
		out = append(out, *variant)
	}
	return out, rows.Err()
}
