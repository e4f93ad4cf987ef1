package pattern

import (
	"context"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
	"github.com/codeready-toolchain/tarsy/pkg/policy/store"
)

// storeSource adapts the persistence-layer SessionStore/EvaluationStore
// pair to the narrow SessionSource port RefreshVariants depends on, so
// the pattern package itself never imports a concrete store
// implementation.
type storeSource struct {
	sessions    store.SessionStore
	evaluations store.EvaluationStore
}

// NewStoreSessionSource builds the SessionSource RefreshVariants needs
// from a session store and an evaluation store: "processed" sessions are
// exactly those with at least one recorded evaluation.
func NewStoreSessionSource(sessions store.SessionStore, evaluations store.EvaluationStore) SessionSource {
	return &storeSource{sessions: sessions, evaluations: evaluations}
}

func (s *storeSource) ProcessedSessionIDs(ctx context.Context, agentID string) ([]string, error) {
	return s.evaluations.ProcessedSessionIDs(ctx, agentID)
}

func (s *storeSource) Messages(ctx context.Context, agentID, sessionID string) ([]policy.Message, error) {
	sess, err := s.sessions.Get(ctx, agentID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	return sess.Messages, nil
}
