package checks

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
	"github.com/codeready-toolchain/tarsy/pkg/policy/llmvalidate"
)

// llmResponseValidationCheck asks the validator to judge the targeted
// assistant text(s); fails if any targeted message fails, except under
// any_message scope, where one passing message is enough.
type llmResponseValidationCheck struct {
	spec      policy.Check
	validator llmvalidate.Validator
}

func (c *llmResponseValidationCheck) Evaluate(ctx context.Context, messages []policy.Message, _ policy.SessionMetadata) policy.CheckResult {
	scope := stringParamDefault(c.spec.Params, "scope", "final_message")
	validationPrompt := stringParam(c.spec.Params, "validation_prompt")
	provider := stringParamDefault(c.spec.Params, "llm_provider", "anthropic")
	model := stringParamDefault(c.spec.Params, "model", "claude-sonnet-4-5-20250929")

	toCheck := targetedMessages(messages, scope)

	var validations []map[string]any
	var allUsage []llmvalidate.Usage
	for _, tm := range toCheck {
		text := extractText(tm.msg)
		result := c.validator.Validate(ctx, llmvalidate.Request{
			Subject:  "content",
			Value:    text,
			Criteria: validationPrompt,
			Provider: provider,
			Model:    model,
		})
		if result.Usage != nil {
			allUsage = append(allUsage, *result.Usage)
		}
		preview := text
		if len(preview) > 200 {
			preview = preview[:200]
		}
		validations = append(validations, map[string]any{
			"message_index":   tm.index,
			"llm_response":    result.Response,
			"passed":          result.Passed,
			"content_preview": preview,
		})
	}

	passes := make([]bool, len(validations))
	for i, v := range validations {
		passes[i] = v["passed"].(bool)
	}
	passed := aggregatePassed(scope, passes)

	details := map[string]any{"scope": scope, "validations": validations}

	message := "LLM response validation passed"
	if !passed {
		message = generateViolationMessage(c.spec.ViolationMessage, details, func(map[string]any) string {
			for _, v := range validations {
				if !v["passed"].(bool) {
					return fmt.Sprintf("LLM response validation failed: %v", v["llm_response"])
				}
			}
			return "LLM response validation failed"
		})
	}

	return policy.CheckResult{
		CheckID:      c.spec.ID,
		CheckName:    c.spec.Name,
		CheckType:    policy.CheckLLMResponseValidation,
		Passed:       passed,
		Message:      message,
		Details:      details,
		MatchedItems: validations,
		LLMUsage:     aggregateUsage(allUsage),
	}
}

type targetedMessage struct {
	index int
	msg   policy.Message
}

// targetedMessages selects the assistant message(s) that response_contains
// and llm_response_validation inspect, per scope. response_length does its
// own scope selection.
func targetedMessages(messages []policy.Message, scope string) []targetedMessage {
	switch scope {
	case "final_message":
		for i := len(messages) - 1; i >= 0; i-- {
			if messages[i].Role == policy.RoleAssistant {
				return []targetedMessage{{i, messages[i]}}
			}
		}
	case "all_messages":
		var out []targetedMessage
		for i, m := range messages {
			if m.Role == policy.RoleAssistant {
				out = append(out, targetedMessage{i, m})
			}
		}
		return out
	case "any_message":
		var out []targetedMessage
		for i, m := range messages {
			if m.Role == policy.RoleAssistant {
				out = append(out, targetedMessage{i, m})
			}
		}
		return out
	}
	return nil
}
