package checks

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
	"github.com/codeready-toolchain/tarsy/pkg/policy/llmvalidate"
)

// Check is the closed-sum interface every check type implements. Each
// variant is constructed fresh per evaluation; it carries no state
// across calls.
type Check interface {
	Evaluate(ctx context.Context, messages []policy.Message, meta policy.SessionMetadata) policy.CheckResult
}

// Factory builds a Check from its persisted spec.
type Factory func(c policy.Check, validator llmvalidate.Validator) Check

// registry is the only extension point: persisted type string -> constructor.
var registry = map[policy.CheckType]Factory{
	policy.CheckToolCall: func(c policy.Check, _ llmvalidate.Validator) Check {
		return &toolCallCheck{c}
	},
	policy.CheckToolResponse: func(c policy.Check, _ llmvalidate.Validator) Check {
		return &toolResponseCheck{c}
	},
	policy.CheckLLMToolResponse: func(c policy.Check, v llmvalidate.Validator) Check {
		return &llmToolResponseCheck{c, v}
	},
	policy.CheckResponseLength: func(c policy.Check, _ llmvalidate.Validator) Check {
		return &responseLengthCheck{c}
	},
	policy.CheckToolCallCount: func(c policy.Check, _ llmvalidate.Validator) Check {
		return &toolCallCountCheck{c}
	},
	policy.CheckLLMResponseValidation: func(c policy.Check, v llmvalidate.Validator) Check {
		return &llmResponseValidationCheck{c, v}
	},
	policy.CheckResponseContains: func(c policy.Check, _ llmvalidate.Validator) Check {
		return &responseContainsCheck{c}
	},
	policy.CheckToolAbsence: func(c policy.Check, _ llmvalidate.Validator) Check {
		return &toolAbsenceCheck{c}
	},
}

// Build constructs the Check for spec, or returns false when spec.Type is
// not a known type (unknown types are silently omitted per the kernel's
// dispatch contract — the caller excludes them from the result map).
func Build(spec policy.Check, validator llmvalidate.Validator) (Check, bool) {
	factory, ok := registry[spec.Type]
	if !ok {
		return nil, false
	}
	return factory(spec, validator), true
}

// stringParam reads a string field from a check's parameter map, returning
// the empty string when absent or of the wrong type.
func stringParam(params map[string]any, key string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func stringParamDefault(params map[string]any, key, def string) string {
	if s := stringParam(params, key); s != "" {
		return s
	}
	return def
}

func mapParam(params map[string]any, key string) map[string]any {
	if v, ok := params[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return map[string]any{}
}

func sliceParam(params map[string]any, key string) []string {
	v, ok := params[key]
	if !ok {
		return nil
	}
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, it := range items {
			out = append(out, fmt.Sprint(it))
		}
		return out
	default:
		return nil
	}
}

func intParam(params map[string]any, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	if f, ok := toFloat(v); ok {
		return int(f)
	}
	return def
}

func intParamPtr(params map[string]any, key string) (int, bool) {
	v, ok := params[key]
	if !ok || v == nil {
		return 0, false
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func boolParam(params map[string]any, key string, def bool) bool {
	v, ok := params[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}
