// Package memstore provides in-memory store.* implementations used by
// tests and by any caller that doesn't need durability across restarts.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
)

// Sessions is a thread-safe in-memory store.SessionStore.
type Sessions struct {
	mu   sync.RWMutex
	data map[string]map[string]policy.Session // agentID -> sessionID -> Session
}

func NewSessions() *Sessions {
	return &Sessions{data: make(map[string]map[string]policy.Session)}
}

func (s *Sessions) Put(agentID string, session policy.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[agentID] == nil {
		s.data[agentID] = make(map[string]policy.Session)
	}
	s.data[agentID][session.ID] = session
}

func (s *Sessions) Get(_ context.Context, agentID, sessionID string) (*policy.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.data[agentID][sessionID]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (s *Sessions) List(_ context.Context, agentID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.data[agentID]))
	for id := range s.data[agentID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Policies is a thread-safe in-memory store.PolicyStore.
type Policies struct {
	mu   sync.RWMutex
	data map[string]map[string]policy.Policy
}

func NewPolicies() *Policies {
	return &Policies{data: make(map[string]map[string]policy.Policy)}
}

func (p *Policies) Put(pol policy.Policy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.data[pol.AgentID] == nil {
		p.data[pol.AgentID] = make(map[string]policy.Policy)
	}
	p.data[pol.AgentID][pol.ID] = pol
}

func (p *Policies) Get(_ context.Context, agentID, policyID string) (*policy.Policy, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pol, ok := p.data[agentID][policyID]
	if !ok {
		return nil, nil
	}
	return &pol, nil
}

func (p *Policies) ListEnabled(_ context.Context, agentID string) ([]policy.Policy, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []policy.Policy
	for _, pol := range p.data[agentID] {
		if pol.Enabled {
			out = append(out, pol)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (p *Policies) ListByIDs(_ context.Context, agentID string, policyIDs []string) ([]policy.Policy, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]policy.Policy, 0, len(policyIDs))
	for _, id := range policyIDs {
		if pol, ok := p.data[agentID][id]; ok {
			out = append(out, pol)
		}
	}
	return out, nil
}

// Evaluations is a thread-safe in-memory store.EvaluationStore.
type Evaluations struct {
	mu   sync.RWMutex
	data map[string]map[string]map[string]policy.Evaluation // agentID -> sessionID -> policyID -> Evaluation
}

func NewEvaluations() *Evaluations {
	return &Evaluations{data: make(map[string]map[string]map[string]policy.Evaluation)}
}

func (e *Evaluations) ReplaceForSessionPolicy(_ context.Context, eval policy.Evaluation) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.data[eval.AgentID] == nil {
		e.data[eval.AgentID] = make(map[string]map[string]policy.Evaluation)
	}
	if e.data[eval.AgentID][eval.SessionID] == nil {
		e.data[eval.AgentID][eval.SessionID] = make(map[string]policy.Evaluation)
	}
	e.data[eval.AgentID][eval.SessionID][eval.PolicyID] = eval
	return nil
}

func (e *Evaluations) Latest(_ context.Context, agentID, sessionID string) ([]policy.Evaluation, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []policy.Evaluation
	for _, eval := range e.data[agentID][sessionID] {
		out = append(out, eval)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PolicyID < out[j].PolicyID })
	return out, nil
}

func (e *Evaluations) LatestForPolicy(_ context.Context, agentID, policyID string) ([]policy.Evaluation, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []policy.Evaluation
	for _, bySession := range e.data[agentID] {
		if eval, ok := bySession[policyID]; ok {
			out = append(out, eval)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

func (e *Evaluations) EvaluatedPolicyIDs(_ context.Context, agentID, sessionID string) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.data[agentID][sessionID]))
	for policyID := range e.data[agentID][sessionID] {
		ids = append(ids, policyID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (e *Evaluations) ProcessedSessionIDs(_ context.Context, agentID string) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.data[agentID]))
	for sessionID, byPolicy := range e.data[agentID] {
		if len(byPolicy) > 0 {
			ids = append(ids, sessionID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Variants is a thread-safe in-memory store.VariantStore.
type Variants struct {
	mu          sync.RWMutex
	variants    map[string][]policy.AgentVariant
	transitions map[string][]policy.ToolTransition
}

func NewVariants() *Variants {
	return &Variants{
		variants:    make(map[string][]policy.AgentVariant),
		transitions: make(map[string][]policy.ToolTransition),
	}
}

func (v *Variants) ReplaceAgentVariants(_ context.Context, agentID string, variants []policy.AgentVariant, transitions []policy.ToolTransition) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.variants[agentID] = variants
	v.transitions[agentID] = transitions
	return nil
}

func (v *Variants) List(_ context.Context, agentID string) ([]policy.AgentVariant, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]policy.AgentVariant{}, v.variants[agentID]...), nil
}

func (v *Variants) Get(_ context.Context, agentID, variantID string) (*policy.AgentVariant, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, variant := range v.variants[agentID] {
		if variant.ID == variantID {
			return &variant, nil
		}
	}
	return nil, nil
}

func (v *Variants) Transitions(_ context.Context, agentID string, variantID *string) ([]policy.ToolTransition, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []policy.ToolTransition
	for _, t := range v.transitions[agentID] {
		if sameVariantScope(t.VariantID, variantID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func sameVariantScope(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Jobs is a thread-safe in-memory store.JobStore.
type Jobs struct {
	mu   sync.RWMutex
	data map[string]policy.ProcessingJob
}

func NewJobs() *Jobs {
	return &Jobs{data: make(map[string]policy.ProcessingJob)}
}

func (j *Jobs) Create(_ context.Context, job policy.ProcessingJob) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, exists := j.data[job.ID]; exists {
		return fmt.Errorf("job %q already exists", job.ID)
	}
	j.data[job.ID] = job
	return nil
}

func (j *Jobs) Update(_ context.Context, job policy.ProcessingJob) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, exists := j.data[job.ID]; !exists {
		return fmt.Errorf("job %q not found", job.ID)
	}
	j.data[job.ID] = job
	return nil
}

func (j *Jobs) Get(_ context.Context, jobID string) (*policy.ProcessingJob, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	job, ok := j.data[jobID]
	if !ok {
		return nil, nil
	}
	return &job, nil
}

// SessionStatuses is a thread-safe in-memory store.SessionStatusStore.
type SessionStatuses struct {
	mu   sync.RWMutex
	data map[string]map[string]policy.SessionStatus
}

func NewSessionStatuses() *SessionStatuses {
	return &SessionStatuses{data: make(map[string]map[string]policy.SessionStatus)}
}

func (s *SessionStatuses) Get(_ context.Context, agentID, sessionID string) (*policy.SessionStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.data[agentID][sessionID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (s *SessionStatuses) Upsert(_ context.Context, status policy.SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[status.AgentID] == nil {
		s.data[status.AgentID] = make(map[string]policy.SessionStatus)
	}
	s.data[status.AgentID][status.SessionID] = status
	return nil
}
