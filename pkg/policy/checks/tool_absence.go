package checks

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
)

// toolAbsenceCheck passes iff tool_name was never called.
type toolAbsenceCheck struct{ spec policy.Check }

func (c *toolAbsenceCheck) Evaluate(_ context.Context, messages []policy.Message, _ policy.SessionMetadata) policy.CheckResult {
	toolName := stringParam(c.spec.Params, "tool_name")

	calls := findToolCalls(messages, toolName)
	matched := make([]map[string]any, 0, len(calls))
	for _, call := range calls {
		matched = append(matched, map[string]any{"message_index": call.messageIndex, "tool_id": call.toolID})
	}

	passed := len(calls) == 0
	details := map[string]any{"tool_name": toolName, "forbidden_calls": matched}

	message := fmt.Sprintf("Tool '%s' was not called (as required)", toolName)
	if !passed {
		message = generateViolationMessage(c.spec.ViolationMessage, details, func(map[string]any) string {
			return fmt.Sprintf("Forbidden tool '%s' was called %d time(s)", toolName, len(matched))
		})
	}

	return policy.CheckResult{
		CheckID:      c.spec.ID,
		CheckName:    c.spec.Name,
		CheckType:    policy.CheckToolAbsence,
		Passed:       passed,
		Message:      message,
		Details:      details,
		MatchedItems: matched,
	}
}
