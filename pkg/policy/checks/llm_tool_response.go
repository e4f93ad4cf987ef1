package checks

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
	"github.com/codeready-toolchain/tarsy/pkg/policy/llmvalidate"
)

// llmToolResponseCheck asks the validator whether each tool_name result's
// named parameter meets validation_prompt; passes iff at least one
// validation succeeded and none failed.
type llmToolResponseCheck struct {
	spec      policy.Check
	validator llmvalidate.Validator
}

func (c *llmToolResponseCheck) Evaluate(ctx context.Context, messages []policy.Message, _ policy.SessionMetadata) policy.CheckResult {
	toolName := stringParam(c.spec.Params, "tool_name")
	targetParam := stringParam(c.spec.Params, "parameter")
	validationPrompt := stringParam(c.spec.Params, "validation_prompt")
	provider := stringParamDefault(c.spec.Params, "llm_provider", "anthropic")
	model := stringParamDefault(c.spec.Params, "model", "claude-sonnet-4-5-20250929")

	var passedValidations, failedValidations []map[string]any
	var allUsage []llmvalidate.Usage

	for _, result := range findToolResults(messages, toolName) {
		paramValue := extractParamValue(result.content, targetParam)

		llmResult := c.validator.Validate(ctx, llmvalidate.Request{
			Subject:  "value",
			Value:    paramValue,
			Criteria: validationPrompt,
			Provider: provider,
			Model:    model,
		})
		if llmResult.Usage != nil {
			allUsage = append(allUsage, *llmResult.Usage)
		}

		info := map[string]any{
			"message_index": result.messageIndex,
			"param_value":   paramValue,
			"llm_response":  llmResult.Response,
			"passed":        llmResult.Passed,
		}
		if llmResult.Passed {
			passedValidations = append(passedValidations, info)
		} else {
			failedValidations = append(failedValidations, info)
		}
	}

	passed := len(passedValidations) > 0 && len(failedValidations) == 0

	var firstParamValue any
	if len(failedValidations) > 0 {
		firstParamValue = failedValidations[0]["param_value"]
	} else if len(passedValidations) > 0 {
		firstParamValue = passedValidations[0]["param_value"]
	}
	params := map[string]any{}
	if firstParamValue != nil {
		params[targetParam] = firstParamValue
	}

	details := map[string]any{
		"tool_name":          toolName,
		"parameter":          targetParam,
		"passed_validations": passedValidations,
		"failed_validations": failedValidations,
		"params":             params,
	}

	message := fmt.Sprintf("LLM validation passed for '%s.%s'", toolName, targetParam)
	if !passed {
		message = generateViolationMessage(c.spec.ViolationMessage, details, func(d map[string]any) string {
			failed, _ := d["failed_validations"].([]map[string]any)
			if len(failed) > 0 {
				return fmt.Sprintf("LLM validation failed for '%s.%s': %v", toolName, targetParam, failed[0]["llm_response"])
			}
			return fmt.Sprintf("LLM validation failed for '%s.%s'", toolName, targetParam)
		})
	}

	matched := passedValidations
	if !passed {
		matched = failedValidations
	}

	return policy.CheckResult{
		CheckID:      c.spec.ID,
		CheckName:    c.spec.Name,
		CheckType:    policy.CheckLLMToolResponse,
		Passed:       passed,
		Message:      message,
		Details:      details,
		MatchedItems: matched,
		LLMUsage:     aggregateUsage(allUsage),
	}
}

func extractParamValue(content any, param string) string {
	if m, ok := content.(map[string]any); ok {
		if v, ok := m[param]; ok {
			return fmt.Sprint(v)
		}
		return ""
	}
	return fmt.Sprint(content)
}

// aggregateUsage sums per-call usage into one record, matching the
// source system's total_input_tokens/total_output_tokens/total_cost_usd
// rollup across all API calls made by a single check.
func aggregateUsage(calls []llmvalidate.Usage) *policy.LLMUsage {
	if len(calls) == 0 {
		return nil
	}
	var inputTotal, outputTotal int
	var costTotal float64
	perCall := make([]policy.LLMUsage, 0, len(calls))
	for _, u := range calls {
		inputTotal += u.InputTokens
		outputTotal += u.OutputTokens
		costTotal += u.CostUSD
		perCall = append(perCall, policy.LLMUsage{
			Provider:     u.Provider,
			Model:        u.Model,
			InputTokens:  u.InputTokens,
			OutputTokens: u.OutputTokens,
			TotalTokens:  u.TotalTokens,
			CostUSD:      u.CostUSD,
		})
	}
	return &policy.LLMUsage{
		Provider:     calls[0].Provider,
		Model:        calls[0].Model,
		APICalls:     len(calls),
		InputTokens:  inputTotal,
		OutputTokens: outputTotal,
		TotalTokens:  inputTotal + outputTotal,
		CostUSD:      costTotal,
		PerCall:      perCall,
	}
}
