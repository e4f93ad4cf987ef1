package checks

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
)

// toolResponseCheck passes iff at least one non-error result for
// tool_name (when expect_success) satisfies response_params.
type toolResponseCheck struct{ spec policy.Check }

func (c *toolResponseCheck) Evaluate(_ context.Context, messages []policy.Message, _ policy.SessionMetadata) policy.CheckResult {
	toolName := stringParam(c.spec.Params, "tool_name")
	expectSuccess := boolParam(c.spec.Params, "expect_success", true)
	responseParams := mapParam(c.spec.Params, "response_params")

	var matched []map[string]any
	for _, result := range findToolResults(messages, toolName) {
		if expectSuccess && result.isError {
			continue
		}
		contentMap, ok := result.content.(map[string]any)
		if len(responseParams) > 0 && !ok {
			continue
		}
		if !responseMatches(contentMap, responseParams) {
			continue
		}
		matched = append(matched, map[string]any{
			"message_index": result.messageIndex,
			"tool_use_id":   result.toolUseID,
			"content":       result.content,
			"is_error":      result.isError,
		})
	}

	passed := len(matched) > 0
	details := map[string]any{
		"tool_name":       toolName,
		"expect_success":  expectSuccess,
		"expected_params": responseParams,
		"found_results":   matched,
	}

	message := fmt.Sprintf("Tool '%s' response matched criteria", toolName)
	if !passed {
		message = generateViolationMessage(c.spec.ViolationMessage, details, func(map[string]any) string {
			return fmt.Sprintf("Tool '%s' response did not match expected criteria", toolName)
		})
	}

	return policy.CheckResult{
		CheckID:      c.spec.ID,
		CheckName:    c.spec.Name,
		CheckType:    policy.CheckToolResponse,
		Passed:       passed,
		Message:      message,
		Details:      details,
		MatchedItems: matched,
	}
}

// responseMatches checks content against expected_params using the same
// comparators as tool_call, "contains" included.
func responseMatches(content map[string]any, conditions map[string]any) bool {
	if len(conditions) == 0 {
		return true
	}
	if content == nil {
		return false
	}
	for name, condition := range conditions {
		actualValue, ok := content[name]
		if !ok {
			return false
		}
		if condMap, ok := condition.(map[string]any); ok {
			for op, expected := range condMap {
				if !compare(actualValue, op, expected) {
					return false
				}
			}
			continue
		}
		if !equalScalar(actualValue, condition) {
			return false
		}
	}
	return true
}
