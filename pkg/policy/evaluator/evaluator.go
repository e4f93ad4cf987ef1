// Package evaluator implements the Composite Evaluator: it fans out a
// Policy's checks concurrently over a bounded worker pool, then combines
// their outcomes under one of five violation_logic kinds.
package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
	"github.com/codeready-toolchain/tarsy/pkg/policy/checks"
	"github.com/codeready-toolchain/tarsy/pkg/policy/llmvalidate"
)

// MaxWorkers bounds the concurrent check fan-out per evaluation to a
// bounded worker pool.
const MaxWorkers = 10

// Evaluator runs a Policy's config against a Session in memory. It holds
// no mutable state across calls; the only shared, read-only dependency is
// the injected LLMValidator.
type Evaluator struct {
	Validator llmvalidate.Validator
}

// New builds an Evaluator backed by validator (nil is fine when the
// policy has no llm_* checks; with a nil validator such a check panics,
// and runOne turns the panic into a failing result).
func New(validator llmvalidate.Validator) *Evaluator {
	return &Evaluator{Validator: validator}
}

// Evaluate runs cfg's checks against messages/meta and combines them
// under cfg.ViolationLogic, returning (is_compliant, details).
func (e *Evaluator) Evaluate(ctx context.Context, messages []policy.Message, meta policy.SessionMetadata, cfg policy.PolicyConfig, policyName, policyDescription string) (bool, []map[string]any) {
	results := e.runChecks(ctx, messages, meta, cfg.Checks)
	return applyViolationLogic(results, cfg.ViolationLogic, policyName, policyDescription)
}

// runChecks fans cfg out over a bounded worker pool and collects each
// check's result keyed by check id. Unknown check types are silently
// omitted. A check that panics is recovered into a synthetic failing
// result so one bad check can never abort the evaluation.
func (e *Evaluator) runChecks(ctx context.Context, messages []policy.Message, meta policy.SessionMetadata, specs []policy.Check) map[string]policy.CheckResult {
	type keyed struct {
		id     string
		result policy.CheckResult
		ok     bool
	}

	jobs := make(chan policy.Check)
	out := make(chan keyed, len(specs))

	var wg sync.WaitGroup
	workerCount := MaxWorkers
	if len(specs) < workerCount {
		workerCount = len(specs)
	}
	if workerCount == 0 {
		return map[string]policy.CheckResult{}
	}

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for spec := range jobs {
				out <- e.runOne(ctx, spec, messages, meta)
			}
		}()
	}

	go func() {
		for _, spec := range specs {
			jobs <- spec
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	results := make(map[string]policy.CheckResult, len(specs))
	for k := range out {
		if k.ok {
			results[k.id] = k.result
		}
	}
	return results
}

func (e *Evaluator) runOne(ctx context.Context, spec policy.Check, messages []policy.Message, meta policy.SessionMetadata) (res struct {
	id     string
	result policy.CheckResult
	ok     bool
}) {
	res.id = spec.ID

	check, known := checks.Build(spec, e.Validator)
	if !known {
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("check panicked during evaluation", "check_id", spec.ID, "check_type", spec.Type, "panic", r)
			res.result = policy.CheckResult{
				CheckID:   spec.ID,
				CheckName: spec.Name,
				CheckType: spec.Type,
				Passed:    false,
				Message:   fmt.Sprintf("check '%s' panicked: %v", spec.ID, r),
			}
			res.ok = true
		}
	}()

	res.result = check.Evaluate(ctx, messages, meta)
	res.ok = true
	return res
}
