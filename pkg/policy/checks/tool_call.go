package checks

import (
	"context"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
)

// toolCallCheck passes iff at least one call to tool_name matches params.
type toolCallCheck struct{ spec policy.Check }

func (c *toolCallCheck) Evaluate(_ context.Context, messages []policy.Message, _ policy.SessionMetadata) policy.CheckResult {
	toolName := stringParam(c.spec.Params, "tool_name")
	conditions := mapParam(c.spec.Params, "params")

	var matched []map[string]any
	for _, call := range findToolCalls(messages, toolName) {
		if !paramsMatch(call.input, conditions) {
			continue
		}
		matched = append(matched, map[string]any{
			"message_index": call.messageIndex,
			"tool_id":       call.toolID,
			"params":        call.input,
		})
	}

	passed := len(matched) > 0
	details := map[string]any{
		"tool_name":       toolName,
		"expected_params": conditions,
		"found_calls":     matched,
	}

	message := fmt.Sprintf("Tool '%s' called with matching parameters", toolName)
	if !passed {
		message = generateViolationMessage(c.spec.ViolationMessage, details, toolCallAutoMessage)
	}

	return policy.CheckResult{
		CheckID:      c.spec.ID,
		CheckName:    c.spec.Name,
		CheckType:    policy.CheckToolCall,
		Passed:       passed,
		Message:      message,
		Details:      details,
		MatchedItems: matched,
	}
}

func toolCallAutoMessage(details map[string]any) string {
	toolName := details["tool_name"]
	conditions, _ := details["expected_params"].(map[string]any)
	if len(conditions) > 0 {
		parts := make([]string, 0, len(conditions))
		for k, v := range conditions {
			parts = append(parts, fmt.Sprintf("%s: %v", k, v))
		}
		return fmt.Sprintf("Tool '%v' was not called with required parameters (%s)", toolName, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("Tool '%v' was not called", toolName)
}
