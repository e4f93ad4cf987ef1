package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
)

// SessionStatuses is a Postgres-backed store.SessionStatusStore.
type SessionStatuses struct {
	pool *pgxpool.Pool
}

func (s *SessionStatuses) Get(ctx context.Context, agentID, sessionID string) (*policy.SessionStatus, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT agent_id, session_id, compliance_status, resolved_at, resolved_by, resolution_notes
		FROM session_status WHERE agent_id = $1 AND session_id = $2`, agentID, sessionID)

	var st policy.SessionStatus
	err := row.Scan(&st.AgentID, &st.SessionID, &st.ComplianceStatus, &st.ResolvedAt, &st.ResolvedBy, &st.ResolutionNotes)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("getting session status for %q: %w", sessionID, err)
	}
	return &st, nil
}

func (s *SessionStatuses) Upsert(ctx context.Context, status policy.SessionStatus) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO session_status (agent_id, session_id, compliance_status, resolved_at, resolved_by, resolution_notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (agent_id, session_id) DO UPDATE SET
			compliance_status = EXCLUDED.compliance_status, resolved_at = EXCLUDED.resolved_at,
			resolved_by = EXCLUDED.resolved_by, resolution_notes = EXCLUDED.resolution_notes`,
		status.AgentID, status.SessionID, status.ComplianceStatus, status.ResolvedAt, status.ResolvedBy, status.ResolutionNotes)
	if err != nil {
		return fmt.Errorf("upserting session status for %q: %w", status.SessionID, err)
	}
	return nil
}
