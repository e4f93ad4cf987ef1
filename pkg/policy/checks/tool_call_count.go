package checks

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
)

// toolCallCountCheck compares the number of calls to tool_name against
// a threshold using lt/lte/gt/gte/eq.
type toolCallCountCheck struct{ spec policy.Check }

func (c *toolCallCountCheck) Evaluate(_ context.Context, messages []policy.Message, _ policy.SessionMetadata) policy.CheckResult {
	toolName := stringParam(c.spec.Params, "tool_name")
	operator := stringParamDefault(c.spec.Params, "operator", "lte")
	threshold := intParam(c.spec.Params, "count", 1)

	calls := findToolCalls(messages, toolName)
	matched := make([]map[string]any, 0, len(calls))
	for _, call := range calls {
		matched = append(matched, map[string]any{"message_index": call.messageIndex, "tool_id": call.toolID})
	}
	actualCount := len(calls)

	passed := compareCount(actualCount, operator, threshold)
	details := map[string]any{
		"tool_name":  toolName,
		"actual_count": actualCount,
		"operator":   operator,
		"threshold":  threshold,
		"tool_calls": matched,
	}

	message := fmt.Sprintf("Tool '%s' call count %d meets criteria", toolName, actualCount)
	if !passed {
		message = generateViolationMessage(c.spec.ViolationMessage, details, func(map[string]any) string {
			opText := map[string]string{"lt": "<", "lte": "≤", "gt": ">", "gte": "≥", "eq": "="}
			sym, ok := opText[operator]
			if !ok {
				sym = operator
			}
			return fmt.Sprintf("Tool '%s' called %d times (expected: %s %d)", toolName, actualCount, sym, threshold)
		})
	}

	return policy.CheckResult{
		CheckID:      c.spec.ID,
		CheckName:    c.spec.Name,
		CheckType:    policy.CheckToolCallCount,
		Passed:       passed,
		Message:      message,
		Details:      details,
		MatchedItems: matched,
	}
}

func compareCount(actual int, operator string, threshold int) bool {
	switch operator {
	case "lt":
		return actual < threshold
	case "lte":
		return actual <= threshold
	case "gt":
		return actual > threshold
	case "gte":
		return actual >= threshold
	case "eq":
		return actual == threshold
	default:
		return false
	}
}
