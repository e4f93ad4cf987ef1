// Package store defines the persistence ports the policy engine depends
// on. SessionStore is the one abstraction the engine treats as read-only
// and substrate-agnostic; the rest back the persistent metadata the Job
// Controller and Status Aggregator own.
package store

import (
	"context"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
)

// SessionStore loads recorded agent sessions from whatever substrate
// holds them (flat files, object storage, a database) without the
// engine knowing which. It is read-only from the engine's perspective.
type SessionStore interface {
	Get(ctx context.Context, agentID, sessionID string) (*policy.Session, error)
	List(ctx context.Context, agentID string) ([]string, error)
}

// PolicyStore owns Policy records for an agent.
type PolicyStore interface {
	Get(ctx context.Context, agentID, policyID string) (*policy.Policy, error)
	ListEnabled(ctx context.Context, agentID string) ([]policy.Policy, error)
	ListByIDs(ctx context.Context, agentID string, policyIDs []string) ([]policy.Policy, error)
}

// EvaluationStore owns Evaluation records. ReplaceForSessionPolicy
// implements the delete-then-insert re-evaluation semantics: exactly one
// Evaluation exists per (session, policy) pair at any time.
type EvaluationStore interface {
	ReplaceForSessionPolicy(ctx context.Context, eval policy.Evaluation) error
	Latest(ctx context.Context, agentID, sessionID string) ([]policy.Evaluation, error)
	LatestForPolicy(ctx context.Context, agentID, policyID string) ([]policy.Evaluation, error)
	EvaluatedPolicyIDs(ctx context.Context, agentID, sessionID string) ([]string, error)
	ProcessedSessionIDs(ctx context.Context, agentID string) ([]string, error)
}

// VariantStore owns AgentVariant and ToolTransition rows, refreshed
// together so there's never a window with stale transitions pointing at
// deleted variants.
type VariantStore interface {
	ReplaceAgentVariants(ctx context.Context, agentID string, variants []policy.AgentVariant, transitions []policy.ToolTransition) error
	List(ctx context.Context, agentID string) ([]policy.AgentVariant, error)
	Get(ctx context.Context, agentID, variantID string) (*policy.AgentVariant, error)
	Transitions(ctx context.Context, agentID string, variantID *string) ([]policy.ToolTransition, error)
}

// JobStore owns ProcessingJob lifecycle records. Update replaces the
// stored record wholesale — callers that only want to change a few
// fields must Get, mutate, then Update the full value.
type JobStore interface {
	Create(ctx context.Context, job policy.ProcessingJob) error
	Update(ctx context.Context, job policy.ProcessingJob) error
	Get(ctx context.Context, jobID string) (*policy.ProcessingJob, error)
}

// SessionStatusStore owns the resolution/compliance-status annotations a
// human reviewer attaches to a session, independent of the raw
// evaluation results.
type SessionStatusStore interface {
	Get(ctx context.Context, agentID, sessionID string) (*policy.SessionStatus, error)
	Upsert(ctx context.Context, status policy.SessionStatus) error
}
