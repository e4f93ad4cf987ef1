package checks

import (
	"testing"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDispatchesEveryKnownCheckType(t *testing.T) {
	types := []policy.CheckType{
		policy.CheckToolCall,
		policy.CheckToolResponse,
		policy.CheckLLMToolResponse,
		policy.CheckResponseLength,
		policy.CheckToolCallCount,
		policy.CheckLLMResponseValidation,
		policy.CheckResponseContains,
		policy.CheckToolAbsence,
	}
	for _, typ := range types {
		check, ok := Build(policy.Check{Type: typ, Params: map[string]any{}}, nil)
		assert.True(t, ok, "expected %s to be a known check type", typ)
		require.NotNil(t, check)
	}
}

func TestBuildRejectsUnknownCheckType(t *testing.T) {
	check, ok := Build(policy.Check{Type: policy.CheckType("not_a_real_check")}, nil)
	assert.False(t, ok)
	assert.Nil(t, check)
}
