package checks

import (
	"context"

	"github.com/codeready-toolchain/tarsy/pkg/policy/llmvalidate"
)

// fakeValidator is a test double for llmvalidate.Validator. byValue maps a
// Request.Value to the Result it should return; whenever a value is not
// found, fallback is returned instead.
type fakeValidator struct {
	byValue  map[string]llmvalidate.Result
	fallback llmvalidate.Result
}

func (f *fakeValidator) Validate(_ context.Context, req llmvalidate.Request) llmvalidate.Result {
	if result, ok := f.byValue[req.Value]; ok {
		return result
	}
	return f.fallback
}
