package evaluator

import (
	"fmt"
	"strings"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
)

// applyViolationLogic combines per-check results under logic, producing an
// overall compliance verdict plus the detail record(s) describing why. Each
// kind emits exactly one aggregate record on the common paths (summary,
// violation_message, failed_requirements, passed_requirements, plus
// kind-specific fields); only the triggered-and-violated path of the IF_*
// kinds fans that single record out once per offending message_index.
//
// A requirement/forbidden id that names no entry in results
// (unknown/unbuilt check, or an id that simply does not exist in the
// policy) is treated as an explicit failure everywhere pass/fail is
// decided — the same rule applies uniformly across all five kinds. A
// trigger id with no entry in results is skipped: it counts as not fired.
func applyViolationLogic(results map[string]policy.CheckResult, logic policy.ViolationLogic, policyName, policyDescription string) (bool, []map[string]any) {
	switch logic.Kind {
	case policy.LogicRequireAll:
		return requireAll(results, logic.Requirements, policyName, policyDescription)
	case policy.LogicRequireAny:
		return requireAny(results, logic.Requirements, policyName, policyDescription)
	case policy.LogicForbidAll:
		return forbidAll(results, logic.Forbidden, logic.Requirements, policyName, policyDescription)
	case policy.LogicIfAnyThenAll:
		return ifAnyThenAll(results, logic.Triggers, logic.Requirements, policyName, policyDescription)
	case policy.LogicIfAllThenAll:
		return ifAllThenAll(results, logic.Triggers, logic.Requirements, policyName, policyDescription)
	default:
		return false, []map[string]any{{
			"error": fmt.Sprintf("unknown violation_logic kind %q", logic.Kind),
		}}
	}
}

func resultOrMissing(results map[string]policy.CheckResult, id string) policy.CheckResult {
	if r, ok := results[id]; ok {
		return r
	}
	return policy.CheckResult{
		CheckID: id,
		Passed:  false,
		Message: fmt.Sprintf("check '%s' not found", id),
	}
}

// detailDict serializes a CheckResult the way it is persisted into an
// Evaluation's Details tree. llm_usage is folded in at the top level
// (not left nested inside Details) so the Status Aggregator's generic
// tree walk can find every LLM call a check made without needing to know
// which check types can make one.
func detailDict(r policy.CheckResult) map[string]any {
	d := map[string]any{
		"check_id":      r.CheckID,
		"check_name":    r.CheckName,
		"check_type":    r.CheckType,
		"passed":        r.Passed,
		"message":       r.Message,
		"details":       r.Details,
		"matched_items": r.MatchedItems,
	}
	if r.LLMUsage != nil {
		d["llm_usage"] = *r.LLMUsage
	}
	return d
}

func detailDicts(rs []policy.CheckResult) []map[string]any {
	out := make([]map[string]any, 0, len(rs))
	for _, r := range rs {
		out = append(out, detailDict(r))
	}
	return out
}

func checkNames(rs []policy.CheckResult) []string {
	names := make([]string, len(rs))
	for i, r := range rs {
		names[i] = r.CheckName
	}
	return names
}

// requireAll is compliant iff every listed requirement passed.
func requireAll(results map[string]policy.CheckResult, requirements []string, policyName, policyDescription string) (bool, []map[string]any) {
	var failed, passed []policy.CheckResult
	for _, id := range requirements {
		r := resultOrMissing(results, id)
		if r.Passed {
			passed = append(passed, r)
		} else {
			failed = append(failed, r)
		}
	}

	desc := policyDescription
	if desc == "" {
		desc = "All specified checks must pass"
	}
	detail := map[string]any{
		"policy_name":         policyName,
		"policy_description":  desc,
		"violation_type":      string(policy.LogicRequireAll),
		"failed_requirements": detailDicts(failed),
		"passed_requirements": detailDicts(passed),
	}

	if len(failed) == 0 {
		detail["summary"] = "All required checks passed"
		detail["violation_message"] = fmt.Sprintf("All %d required checks passed successfully", len(passed))
		return true, []map[string]any{detail}
	}

	detail["summary"] = "One or more required checks failed"
	detail["violation_message"] = requireAllMessage(failed)
	return false, []map[string]any{detail}
}

// requireAny is compliant iff at least one listed requirement passed.
func requireAny(results map[string]policy.CheckResult, requirements []string, policyName, policyDescription string) (bool, []map[string]any) {
	var failed, passed []policy.CheckResult
	for _, id := range requirements {
		r := resultOrMissing(results, id)
		if r.Passed {
			passed = append(passed, r)
		} else {
			failed = append(failed, r)
		}
	}

	desc := policyDescription
	if desc == "" {
		desc = "At least one check must pass"
	}
	detail := map[string]any{
		"policy_name":         policyName,
		"policy_description":  desc,
		"violation_type":      string(policy.LogicRequireAny),
		"failed_requirements": detailDicts(failed),
		"passed_requirements": detailDicts(passed),
	}

	if len(passed) > 0 {
		detail["summary"] = "At least one alternative check passed"
		detail["violation_message"] = fmt.Sprintf("%d of %d alternative check(s) passed", len(passed), len(requirements))
		return true, []map[string]any{detail}
	}

	detail["summary"] = "None of the alternative checks passed"
	detail["violation_message"] = requireAnyMessage(failed)
	return false, []map[string]any{detail}
}

// forbidAll is compliant iff none of the forbidden checks passed, unless
// requirements (exceptions) are configured and all of them pass — in which
// case the forbidden condition is treated as authorized rather than a
// violation.
func forbidAll(results map[string]policy.CheckResult, forbidden, requirements []string, policyName, policyDescription string) (bool, []map[string]any) {
	var forbiddenPassed, forbiddenAvoided []policy.CheckResult
	for _, id := range forbidden {
		r := resultOrMissing(results, id)
		if r.Passed {
			forbiddenPassed = append(forbiddenPassed, r)
		} else {
			forbiddenAvoided = append(forbiddenAvoided, r)
		}
	}

	if len(forbiddenPassed) == 0 {
		desc := policyDescription
		if desc == "" {
			desc = "No forbidden actions should occur"
		}
		return true, []map[string]any{{
			"policy_name":              policyName,
			"policy_description":       desc,
			"violation_type":           string(policy.LogicForbidAll),
			"summary":                  "No forbidden actions detected",
			"forbidden_checks_avoided": detailDicts(forbiddenAvoided),
			"violation_message":        fmt.Sprintf("All %d forbidden action(s) were successfully avoided", len(forbidden)),
		}}
	}

	if len(requirements) == 0 {
		return false, []map[string]any{{
			"policy_name":        policyName,
			"policy_description": policyDescription,
			"violation_type":     string(policy.LogicForbidAll),
			"summary":            "Forbidden actions detected",
			"forbidden_checks":   detailDicts(forbiddenPassed),
			"violation_message":  forbidAllStrictMessage(forbiddenPassed),
		}}
	}

	var failedReq, passedReq []policy.CheckResult
	for _, id := range requirements {
		r := resultOrMissing(results, id)
		if r.Passed {
			passedReq = append(passedReq, r)
		} else {
			failedReq = append(failedReq, r)
		}
	}

	if len(failedReq) == 0 {
		desc := policyDescription
		if desc == "" {
			desc = "Forbidden actions allowed with proper authorization"
		}
		return true, []map[string]any{{
			"policy_name":         policyName,
			"policy_description":  desc,
			"violation_type":      string(policy.LogicForbidAll),
			"summary":             "Forbidden actions detected but properly authorized",
			"forbidden_checks":    detailDicts(forbiddenPassed),
			"passed_requirements": detailDicts(passedReq),
			"violation_message":   fmt.Sprintf("%d forbidden action(s) detected but authorized by %d requirement(s)", len(forbiddenPassed), len(passedReq)),
		}}
	}

	return false, []map[string]any{{
		"policy_name":         policyName,
		"policy_description":  policyDescription,
		"violation_type":      string(policy.LogicForbidAll),
		"summary":             "Forbidden actions detected without required authorization",
		"forbidden_checks":    detailDicts(forbiddenPassed),
		"failed_requirements": detailDicts(failedReq),
		"violation_message":   forbidAllMessage(forbiddenPassed, failedReq),
	}}
}

// splitTriggers partitions triggers into passed/failed, silently skipping
// any trigger id with no corresponding result (the trigger simply never
// fired, it is not an explicit-failure case the way a requirement is).
func splitTriggers(results map[string]policy.CheckResult, triggers []string) (passed, failed []policy.CheckResult) {
	for _, id := range triggers {
		if r, ok := results[id]; ok {
			if r.Passed {
				passed = append(passed, r)
			} else {
				failed = append(failed, r)
			}
		}
	}
	return passed, failed
}

func existingResults(results map[string]policy.CheckResult, ids []string) []policy.CheckResult {
	var out []policy.CheckResult
	for _, id := range ids {
		if r, ok := results[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

// ifAnyThenAll: if any trigger passes, every requirement must pass.
func ifAnyThenAll(results map[string]policy.CheckResult, triggers, requirements []string, policyName, policyDescription string) (bool, []map[string]any) {
	triggersPassed, triggersFailed := splitTriggers(results, triggers)

	if len(triggersPassed) == 0 {
		return true, []map[string]any{{
			"policy_name":              policyName,
			"policy_description":       policyDescription,
			"violation_type":           string(policy.LogicIfAnyThenAll),
			"triggered_checks":         []map[string]any{},
			"failed_triggers":          detailDicts(triggersFailed),
			"unevaluated_requirements": detailDicts(existingResults(results, requirements)),
			"failed_requirements":      []map[string]any{},
			"passed_requirements":      []map[string]any{},
			"summary":                  "Trigger condition not triggered",
			"violation_message":        fmt.Sprintf("None of %d trigger(s) triggered, policy requirements not evaluated", len(triggers)),
		}}
	}

	var failedReq, passedReq []policy.CheckResult
	for _, id := range requirements {
		r := resultOrMissing(results, id)
		if r.Passed {
			passedReq = append(passedReq, r)
		} else {
			failedReq = append(failedReq, r)
		}
	}

	detail := map[string]any{
		"policy_name":         policyName,
		"policy_description":  policyDescription,
		"violation_type":      string(policy.LogicIfAnyThenAll),
		"triggered_checks":    detailDicts(triggersPassed),
		"failed_triggers":     detailDicts(triggersFailed),
		"failed_requirements": detailDicts(failedReq),
		"passed_requirements": detailDicts(passedReq),
	}

	if len(failedReq) == 0 {
		detail["summary"] = "All requirements met when trigger condition triggered"
		detail["violation_message"] = fmt.Sprintf("Trigger '%s' triggered and all %d required checks passed", triggersPassed[0].CheckName, len(passedReq))
		return true, []map[string]any{detail}
	}

	detail["summary"] = "Trigger condition met but required checks failed"
	detail["violation_message"] = ifAnyThenAllMessage(triggersPassed, failedReq)
	return false, createPerMessageViolations(detail, failedReq)
}

// ifAllThenAll: only when every trigger passes must every requirement pass.
func ifAllThenAll(results map[string]policy.CheckResult, triggers, requirements []string, policyName, policyDescription string) (bool, []map[string]any) {
	triggersPassed, triggersFailed := splitTriggers(results, triggers)

	if len(triggersPassed) != len(triggers) {
		return true, []map[string]any{{
			"policy_name":              policyName,
			"policy_description":       policyDescription,
			"violation_type":           string(policy.LogicIfAllThenAll),
			"triggered_checks":         detailDicts(triggersPassed),
			"failed_triggers":          detailDicts(triggersFailed),
			"unevaluated_requirements": detailDicts(existingResults(results, requirements)),
			"failed_requirements":      []map[string]any{},
			"passed_requirements":      []map[string]any{},
			"summary":                  "Not all trigger conditions triggered",
			"violation_message":        fmt.Sprintf("%d of %d triggers triggered, policy requirements not evaluated", len(triggersPassed), len(triggers)),
		}}
	}

	var failedReq, passedReq []policy.CheckResult
	for _, id := range requirements {
		r := resultOrMissing(results, id)
		if r.Passed {
			passedReq = append(passedReq, r)
		} else {
			failedReq = append(failedReq, r)
		}
	}

	if len(failedReq) == 0 {
		return true, []map[string]any{{
			"policy_name":         policyName,
			"policy_description":  policyDescription,
			"violation_type":      string(policy.LogicIfAllThenAll),
			"triggered_checks":    detailDicts(triggersPassed),
			"failed_requirements": []map[string]any{},
			"passed_requirements": detailDicts(passedReq),
			"summary":             "All requirements met when all trigger conditions triggered",
			"violation_message":   fmt.Sprintf("All %d triggers triggered and all %d required checks passed", len(triggersPassed), len(passedReq)),
		}}
	}

	detail := map[string]any{
		"policy_name":         policyName,
		"policy_description":  policyDescription,
		"violation_type":      string(policy.LogicIfAllThenAll),
		"summary":             "All trigger conditions met but required checks failed",
		"triggered_checks":    detailDicts(triggersPassed),
		"failed_requirements": detailDicts(failedReq),
		"passed_requirements": detailDicts(passedReq),
		"violation_message":   ifAllThenAllMessage(triggersPassed, failedReq),
	}
	return false, createPerMessageViolations(detail, failedReq)
}

// createPerMessageViolations fans base out once per distinct message_index
// found in failedRequirements' matched items, so a single failing
// requirement surfaces every offending turn instead of one aggregate line
// with no pointer to where it happened. When the failed requirements carry
// no indices (e.g. a required tool was never called), the matched items of
// base's triggered_checks are used instead, so the record points at the
// triggering turn. With no indices from either, base is returned
// unchanged as the sole aggregate record.
func createPerMessageViolations(base map[string]any, failedRequirements []policy.CheckResult) []map[string]any {
	seen := make(map[any]struct{})
	var indices []any
	collect := func(items []map[string]any) {
		for _, item := range items {
			idx, ok := item["message_index"]
			if !ok {
				continue
			}
			if _, dup := seen[idx]; dup {
				continue
			}
			seen[idx] = struct{}{}
			indices = append(indices, idx)
		}
	}
	for _, r := range failedRequirements {
		collect(r.MatchedItems)
	}
	if len(indices) == 0 {
		triggered, _ := base["triggered_checks"].([]map[string]any)
		for _, t := range triggered {
			items, _ := t["matched_items"].([]map[string]any)
			collect(items)
		}
	}

	if len(indices) == 0 {
		return []map[string]any{base}
	}

	violations := make([]map[string]any, 0, len(indices))
	for _, idx := range indices {
		clone := make(map[string]any, len(base)+1)
		for k, v := range base {
			clone[k] = v
		}
		clone["message_index"] = idx
		violations = append(violations, clone)
	}
	return violations
}

func requireAllMessage(failed []policy.CheckResult) string {
	names := checkNames(failed)
	if len(names) == 1 {
		return fmt.Sprintf("Required check '%s' failed", names[0])
	}
	return fmt.Sprintf("%d required checks failed: %s", len(names), strings.Join(names, ", "))
}

func requireAnyMessage(failed []policy.CheckResult) string {
	names := checkNames(failed)
	return fmt.Sprintf("At least one check must pass, but all %d checks failed: %s", len(names), strings.Join(names, ", "))
}

func ifAnyThenAllMessage(triggers, failed []policy.CheckResult) string {
	triggerNames := checkNames(triggers)
	failedNames := checkNames(failed)

	var triggerText string
	if len(triggerNames) == 1 {
		triggerText = fmt.Sprintf("'%s'", triggerNames[0])
	} else {
		triggerText = fmt.Sprintf("one of [%s]", strings.Join(triggerNames, ", "))
	}

	if len(failedNames) == 1 {
		return fmt.Sprintf("Trigger %s activated, but required check '%s' failed", triggerText, failedNames[0])
	}
	return fmt.Sprintf("Trigger %s activated, but %d required checks failed: %s", triggerText, len(failedNames), strings.Join(failedNames, ", "))
}

func ifAllThenAllMessage(triggers, failed []policy.CheckResult) string {
	triggerNames := checkNames(triggers)
	failedNames := checkNames(failed)

	if len(failedNames) == 1 {
		return fmt.Sprintf("All triggers activated [%s], but required check '%s' failed", strings.Join(triggerNames, ", "), failedNames[0])
	}
	return fmt.Sprintf("All triggers activated [%s], but %d required checks failed: %s", strings.Join(triggerNames, ", "), len(failedNames), strings.Join(failedNames, ", "))
}

func forbidAllMessage(forbidden, failedRequirements []policy.CheckResult) string {
	forbiddenNames := checkNames(forbidden)
	reqNames := checkNames(failedRequirements)

	var forbiddenText string
	if len(forbiddenNames) == 1 {
		forbiddenText = fmt.Sprintf("Forbidden action '%s' detected", forbiddenNames[0])
	} else {
		forbiddenText = fmt.Sprintf("Forbidden actions detected: %s", strings.Join(forbiddenNames, ", "))
	}

	if len(failedRequirements) > 0 {
		return fmt.Sprintf("%s, but authorization checks failed: %s", forbiddenText, strings.Join(reqNames, ", "))
	}
	return fmt.Sprintf("%s without required authorization", forbiddenText)
}

func forbidAllStrictMessage(forbidden []policy.CheckResult) string {
	names := checkNames(forbidden)
	if len(names) == 1 {
		return fmt.Sprintf("Forbidden action '%s' was performed", names[0])
	}
	return fmt.Sprintf("Forbidden actions performed: %s", strings.Join(names, ", "))
}
