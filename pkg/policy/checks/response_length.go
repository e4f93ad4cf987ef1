package checks

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
)

// responseLengthCheck bounds token count (len(text)/4) over one of three
// scopes: final_message, all_messages, or any_message.
type responseLengthCheck struct{ spec policy.Check }

func (c *responseLengthCheck) Evaluate(_ context.Context, messages []policy.Message, _ policy.SessionMetadata) policy.CheckResult {
	minTokens, hasMin := intParamPtr(c.spec.Params, "min_tokens")
	maxTokens, hasMax := intParamPtr(c.spec.Params, "max_tokens")
	scope := stringParamDefault(c.spec.Params, "scope", "final_message")

	var violations []map[string]any
	var actualTokenCount *int

	checkOne := func(idx int, count int) bool {
		before := len(violations)
		if hasMin && count < minTokens {
			violations = append(violations, map[string]any{
				"message_index": idx, "token_count": count, "min_tokens": minTokens,
				"violation_type": "below_minimum",
			})
			return false
		}
		if hasMax && count > maxTokens {
			violations = append(violations, map[string]any{
				"message_index": idx, "token_count": count, "max_tokens": maxTokens,
				"violation_type": "above_maximum",
			})
			return false
		}
		return len(violations) == before
	}

	var passed bool
	switch scope {
	case "final_message":
		idx, count, ok := lastAssistantTokenCount(messages)
		if ok {
			passed = checkOne(idx, count)
			actualTokenCount = &count
		} else {
			passed = true
		}
	case "all_messages":
		text := ""
		for _, m := range messages {
			if m.Role == policy.RoleAssistant {
				text += extractText(m) + " "
			}
		}
		count := countTokens(text)
		passed = checkOne(-1, count)
		actualTokenCount = &count
	case "any_message":
		var passes []bool
		for idx, m := range messages {
			if m.Role != policy.RoleAssistant {
				continue
			}
			count := countTokens(extractText(m))
			passes = append(passes, checkOne(idx, count))
		}
		passed = aggregatePassed(scope, passes)
	default:
		passed = true
	}

	details := map[string]any{
		"min_tokens": nilableInt(hasMin, minTokens),
		"max_tokens": nilableInt(hasMax, maxTokens),
		"scope":      scope,
		"violations": violations,
	}
	if actualTokenCount != nil {
		details["actual_token_count"] = *actualTokenCount
	}

	message := responseLengthPassMessage(passed, hasMin, minTokens, hasMax, maxTokens, actualTokenCount)
	if !passed {
		message = generateViolationMessage(c.spec.ViolationMessage, details, responseLengthAutoMessage)
	}

	return policy.CheckResult{
		CheckID:      c.spec.ID,
		CheckName:    c.spec.Name,
		CheckType:    policy.CheckResponseLength,
		Passed:       passed,
		Message:      message,
		Details:      details,
		MatchedItems: violations,
	}
}

func lastAssistantTokenCount(messages []policy.Message) (idx int, count int, ok bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == policy.RoleAssistant {
			return i, countTokens(extractText(messages[i])), true
		}
	}
	return 0, 0, false
}

func nilableInt(has bool, v int) any {
	if !has {
		return nil
	}
	return v
}

func responseLengthPassMessage(passed bool, hasMin bool, minTokens int, hasMax bool, maxTokens int, actual *int) string {
	if !passed {
		return ""
	}
	if actual == nil {
		return "Response length meets criteria"
	}
	switch {
	case hasMin && hasMax:
		return fmt.Sprintf("Response length %d tokens within range %d-%d", *actual, minTokens, maxTokens)
	case hasMin:
		return fmt.Sprintf("Response length %d tokens meets minimum of %d", *actual, minTokens)
	case hasMax:
		return fmt.Sprintf("Response length %d tokens within %d token limit", *actual, maxTokens)
	default:
		return fmt.Sprintf("Response length %d tokens", *actual)
	}
}

func responseLengthAutoMessage(details map[string]any) string {
	violations, _ := details["violations"].([]map[string]any)
	if len(violations) > 0 {
		v := violations[0]
		switch v["violation_type"] {
		case "below_minimum":
			shortfall := v["min_tokens"].(int) - v["token_count"].(int)
			return fmt.Sprintf("Response length %d tokens below minimum of %d tokens (short by %d tokens)", v["token_count"], v["min_tokens"], shortfall)
		case "above_maximum":
			exceededBy := v["token_count"].(int) - v["max_tokens"].(int)
			return fmt.Sprintf("Response length %d tokens exceeds limit of %d tokens (exceeded by %d tokens)", v["token_count"], v["max_tokens"], exceededBy)
		}
	}
	minTokens, hasMin := details["min_tokens"].(int)
	maxTokens, hasMax := details["max_tokens"].(int)
	switch {
	case hasMin && hasMax:
		return fmt.Sprintf("Response length outside allowed range of %d-%d tokens", minTokens, maxTokens)
	case hasMin:
		return fmt.Sprintf("Response length below minimum of %d tokens", minTokens)
	case hasMax:
		return fmt.Sprintf("Response length exceeds %d token limit", maxTokens)
	}
	return "Response length check failed"
}
