// Package status implements the Status Aggregator: per-policy and
// per-session compliance rollups, staleness detection, and LLM
// usage/cost rollup over the opaque Evaluation.Details value.
package status

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
	"github.com/codeready-toolchain/tarsy/pkg/policy/store"
)

// Aggregator computes compliance rollups from the persisted stores. It
// holds no state of its own between calls.
type Aggregator struct {
	Sessions    store.SessionStore
	Policies    store.PolicyStore
	Evaluations store.EvaluationStore
	Statuses    store.SessionStatusStore
}

// New builds an Aggregator from its store dependencies.
func New(sessions store.SessionStore, policies store.PolicyStore, evaluations store.EvaluationStore, statuses store.SessionStatusStore) *Aggregator {
	return &Aggregator{Sessions: sessions, Policies: policies, Evaluations: evaluations, Statuses: statuses}
}

// PolicyRollup summarizes one policy's compliance rate across every
// session that has a recorded evaluation against it.
type PolicyRollup struct {
	PolicyID        string
	Name            string
	PolicyType      string
	Severity        policy.Severity
	CompliantCount  int
	TotalCount      int
	ComplianceRate  float64
}

// ViolatedPolicy and PassedPolicy back a session's policies_violated /
// policies_passed lists.
type ViolatedPolicy struct {
	PolicyID   string
	PolicyName string
	Severity   policy.Severity
	Violations []map[string]any
}

type PassedPolicy struct {
	PolicyID   string
	PolicyName string
	Severity   policy.Severity
}

// SessionRollup is one session's place in the compliance summary.
type SessionRollup struct {
	SessionID             string
	IsCompliant           bool
	ComplianceStatus      policy.ComplianceStatus
	IsFullyEvaluated      bool
	NeedsReprocessing     bool // true when a policy changed after the session's latest evaluation (staleness)
	EvaluatedPolicyCount  int
	TotalPolicyCount      int
	ResolvedAt            *time.Time
	ResolvedBy            string
	TotalEvaluations      int
	CompliantEvaluations  int
	NonCompliantEvaluations int
	ViolationCount        int
	PoliciesViolated      []ViolatedPolicy
	PoliciesPassed        []PassedPolicy
}

// Summary is the full compliance-summary rollup for an agent.
type Summary struct {
	TotalSessions           int
	TotalPolicies           int
	ByPolicy                []PolicyRollup
	Sessions                []SessionRollup
	NonCompliantSessionIDs  []string
	LLMUsage                policy.LLMUsage
}

// Summarize computes the full compliance summary for agentID: per-policy
// compliance rates, per-session rollups (including staleness and
// resolution state), and an aggregate LLM usage/cost total collected
// from each session's most recent evaluation only (to avoid double-
// counting usage recorded by superseded evaluations).
func (a *Aggregator) Summarize(ctx context.Context, agentID string) (*Summary, error) {
	sessionIDs, err := a.Sessions.List(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	policies, err := a.Policies.ListEnabled(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("listing enabled policies: %w", err)
	}
	policyByID := make(map[string]policy.Policy, len(policies))
	enabledPolicyIDs := make(map[string]struct{}, len(policies))
	for _, p := range policies {
		policyByID[p.ID] = p
		enabledPolicyIDs[p.ID] = struct{}{}
	}

	byPolicy, err := a.summarizeByPolicy(ctx, agentID, policies, sessionIDs)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		TotalSessions: len(sessionIDs),
		TotalPolicies: len(policies),
		ByPolicy:      byPolicy,
	}

	for _, sessionID := range sessionIDs {
		rollup, usage, err := a.summarizeSession(ctx, agentID, sessionID, policies, policyByID, enabledPolicyIDs)
		if err != nil {
			return nil, err
		}
		if rollup == nil {
			continue // no evaluations recorded for this session yet
		}
		summary.Sessions = append(summary.Sessions, *rollup)
		if !rollup.IsCompliant {
			summary.NonCompliantSessionIDs = append(summary.NonCompliantSessionIDs, sessionID)
		}
		mergeUsageTotal(&summary.LLMUsage, usage)
	}

	return summary, nil
}

func (a *Aggregator) summarizeByPolicy(ctx context.Context, agentID string, policies []policy.Policy, currentSessionIDs []string) ([]PolicyRollup, error) {
	current := make(map[string]struct{}, len(currentSessionIDs))
	for _, id := range currentSessionIDs {
		current[id] = struct{}{}
	}

	rollups := make([]PolicyRollup, 0, len(policies))
	for _, p := range policies {
		evals, err := a.Evaluations.LatestForPolicy(ctx, agentID, p.ID)
		if err != nil {
			return nil, fmt.Errorf("loading evaluations for policy %q: %w", p.ID, err)
		}

		compliant, total := 0, 0
		for _, ev := range evals {
			if _, exists := current[ev.SessionID]; !exists {
				continue // session since deleted; exclude from the rollup
			}
			total++
			if ev.IsCompliant {
				compliant++
			}
		}

		rate := 0.0
		if total > 0 {
			rate = float64(compliant) / float64(total) * 100
		}

		rollups = append(rollups, PolicyRollup{
			PolicyID:       p.ID,
			Name:           p.Name,
			PolicyType:     p.PolicyType,
			Severity:       p.Severity,
			CompliantCount: compliant,
			TotalCount:     total,
			ComplianceRate: rate,
		})
	}
	return rollups, nil
}

func (a *Aggregator) summarizeSession(ctx context.Context, agentID, sessionID string, policies []policy.Policy, policyByID map[string]policy.Policy, enabledPolicyIDs map[string]struct{}) (*SessionRollup, policy.LLMUsage, error) {
	evals, err := a.Evaluations.Latest(ctx, agentID, sessionID)
	if err != nil {
		return nil, policy.LLMUsage{}, fmt.Errorf("loading evaluations for session %q: %w", sessionID, err)
	}
	if len(evals) == 0 {
		return nil, policy.LLMUsage{}, nil
	}

	evaluatedPolicyIDs := make(map[string]struct{}, len(evals))
	for _, ev := range evals {
		evaluatedPolicyIDs[ev.PolicyID] = struct{}{}
	}

	stale := isStale(policies, evals)
	fullyEvaluated := len(enabledPolicyIDs) > 0 && isSubset(enabledPolicyIDs, evaluatedPolicyIDs) && !stale

	nonCompliant := 0
	var violated []ViolatedPolicy
	var passed []PassedPolicy
	var usage policy.LLMUsage

	for _, ev := range evals {
		p, known := policyByID[ev.PolicyID]
		if !known {
			continue
		}
		if ev.IsCompliant {
			passed = append(passed, PassedPolicy{PolicyID: p.ID, PolicyName: p.Name, Severity: p.Severity})
		} else {
			nonCompliant++
			violated = append(violated, ViolatedPolicy{PolicyID: p.ID, PolicyName: p.Name, Severity: p.Severity, Violations: ev.Details})
		}
		addUsage(&usage, collectLLMUsage(ev.Details))
	}

	violationCount := 0
	for _, ev := range evals {
		if !ev.IsCompliant {
			violationCount += len(ev.Details)
		}
	}

	sessionStatus, err := a.Statuses.Get(ctx, agentID, sessionID)
	if err != nil {
		return nil, policy.LLMUsage{}, fmt.Errorf("loading session status for %q: %w", sessionID, err)
	}
	isResolved := sessionStatus != nil && sessionStatus.ComplianceStatus == policy.ComplianceResolved

	complianceStatus := policy.ComplianceCompliant
	switch {
	case isResolved:
		complianceStatus = policy.ComplianceResolved
	case nonCompliant > 0:
		complianceStatus = policy.ComplianceIssues
	}

	rollup := &SessionRollup{
		SessionID:               sessionID,
		IsCompliant:             nonCompliant == 0,
		ComplianceStatus:        complianceStatus,
		IsFullyEvaluated:        fullyEvaluated,
		NeedsReprocessing:       stale,
		EvaluatedPolicyCount:    len(evaluatedPolicyIDs),
		TotalPolicyCount:        len(enabledPolicyIDs),
		TotalEvaluations:        len(evals),
		CompliantEvaluations:    len(evals) - nonCompliant,
		NonCompliantEvaluations: nonCompliant,
		ViolationCount:          violationCount,
		PoliciesViolated:        violated,
		PoliciesPassed:          passed,
	}
	if isResolved {
		rollup.ResolvedAt = sessionStatus.ResolvedAt
		rollup.ResolvedBy = sessionStatus.ResolvedBy
	}

	return rollup, usage, nil
}

// isStale reports whether any enabled policy was updated after its
// session's latest evaluation against it — such an evaluation reflects
// a since-changed policy and should be recomputed.
func isStale(policies []policy.Policy, latestEvals []policy.Evaluation) bool {
	latestByPolicy := make(map[string]policy.Evaluation, len(latestEvals))
	for _, ev := range latestEvals {
		latestByPolicy[ev.PolicyID] = ev
	}
	for _, p := range policies {
		ev, ok := latestByPolicy[p.ID]
		if !ok {
			continue
		}
		if p.UpdatedAt.After(ev.EvaluatedAt) {
			return true
		}
	}
	return false
}

func isSubset(required, have map[string]struct{}) bool {
	for id := range required {
		if _, ok := have[id]; !ok {
			return false
		}
	}
	return true
}

// collectLLMUsage walks an evaluation's opaque Details tree and pulls
// out every embedded "llm_usage"-shaped CheckResult usage it finds —
// the Details shape is whatever the check kernel produced, and LLM
// usage may be nested arbitrarily deep inside it (e.g. under a
// per-message "validations" list).
func collectLLMUsage(details []map[string]any) []policy.LLMUsage {
	var found []policy.LLMUsage
	for _, d := range details {
		walkForUsage(d, &found)
	}
	return found
}

func walkForUsage(node any, found *[]policy.LLMUsage) {
	switch v := node.(type) {
	case map[string]any:
		if usage, ok := v["llm_usage"]; ok {
			if u, ok := toLLMUsage(usage); ok {
				*found = append(*found, u)
			}
		}
		for _, child := range v {
			walkForUsage(child, found)
		}
	case []map[string]any:
		for _, child := range v {
			walkForUsage(child, found)
		}
	case []any:
		for _, child := range v {
			walkForUsage(child, found)
		}
	}
}

func toLLMUsage(v any) (policy.LLMUsage, bool) {
	if u, ok := v.(*policy.LLMUsage); ok && u != nil {
		return *u, true
	}
	if u, ok := v.(policy.LLMUsage); ok {
		return u, true
	}
	m, ok := v.(map[string]any)
	if !ok {
		return policy.LLMUsage{}, false
	}
	return policy.LLMUsage{
		Provider:     stringField(m, "provider"),
		Model:        stringField(m, "model"),
		InputTokens:  intField(m, "input_tokens"),
		OutputTokens: intField(m, "output_tokens"),
		TotalTokens:  intField(m, "total_tokens"),
		CostUSD:      floatField(m, "cost_usd"),
	}, true
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]any, key string) int {
	switch n := m[key].(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func floatField(m map[string]any, key string) float64 {
	switch n := m[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

// addUsage folds each discovered llm_usage block into total, counting
// one API call per block found.
func addUsage(total *policy.LLMUsage, usages []policy.LLMUsage) {
	for _, u := range usages {
		total.APICalls++
		total.InputTokens += u.InputTokens
		total.OutputTokens += u.OutputTokens
		total.TotalTokens += u.TotalTokens
		total.CostUSD += u.CostUSD
	}
}

// mergeUsageTotal folds an already-aggregated per-session total into a
// running grand total without double-counting API calls.
func mergeUsageTotal(total *policy.LLMUsage, session policy.LLMUsage) {
	total.APICalls += session.APICalls
	total.InputTokens += session.InputTokens
	total.OutputTokens += session.OutputTokens
	total.TotalTokens += session.TotalTokens
	total.CostUSD += session.CostUSD
}
