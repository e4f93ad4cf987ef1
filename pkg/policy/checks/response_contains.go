package checks

import (
	"context"
	"strings"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
)

// responseContainsCheck does case-insensitive keyword membership over the
// targeted message(s), combined per mode ∈ {all, any, none}.
type responseContainsCheck struct{ spec policy.Check }

func (c *responseContainsCheck) Evaluate(_ context.Context, messages []policy.Message, _ policy.SessionMetadata) policy.CheckResult {
	scope := stringParamDefault(c.spec.Params, "scope", "final_message")
	keywords := sliceParam(c.spec.Params, "keywords")
	mode := stringParamDefault(c.spec.Params, "mode", "any")

	toCheck := targetedMessages(messages, scope)

	var results []map[string]any
	for _, tm := range toCheck {
		text := strings.ToLower(extractText(tm.msg))
		var found, missing []string
		for _, kw := range keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				found = append(found, kw)
			} else {
				missing = append(missing, kw)
			}
		}

		var checkPassed bool
		switch mode {
		case "all":
			checkPassed = len(found) == len(keywords)
		case "any":
			checkPassed = len(found) > 0
		case "none":
			checkPassed = len(found) == 0
		}

		results = append(results, map[string]any{
			"message_index":    tm.index,
			"found_keywords":   found,
			"missing_keywords": missing,
			"passed":           checkPassed,
		})
	}

	passes := make([]bool, len(results))
	for i, r := range results {
		passes[i] = r["passed"].(bool)
	}
	passed := aggregatePassed(scope, passes)

	details := map[string]any{"keywords": keywords, "mode": mode, "results": results}

	message := "Response contains required keywords"
	if !passed {
		message = generateViolationMessage(c.spec.ViolationMessage, details, func(map[string]any) string {
			return responseContainsAutoMessage(mode, keywords, results)
		})
	}

	return policy.CheckResult{
		CheckID:      c.spec.ID,
		CheckName:    c.spec.Name,
		CheckType:    policy.CheckResponseContains,
		Passed:       passed,
		Message:      message,
		Details:      details,
		MatchedItems: results,
	}
}

func responseContainsAutoMessage(mode string, keywords []string, results []map[string]any) string {
	if len(results) == 0 || results[0]["passed"].(bool) {
		return "Response keyword check failed"
	}
	switch mode {
	case "all":
		missing, _ := results[0]["missing_keywords"].([]string)
		return "Response missing required keywords: " + strings.Join(missing, ", ")
	case "any":
		return "Response does not contain any of: " + strings.Join(keywords, ", ")
	case "none":
		found, _ := results[0]["found_keywords"].([]string)
		return "Response contains forbidden keywords: " + strings.Join(found, ", ")
	}
	return "Response keyword check failed"
}
