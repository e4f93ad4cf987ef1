// Package pattern implements the tool-sequence pattern extractor: raw
// sequence extraction, cycle-collapse normalization, signature hashing,
// display-name generation, and cross-session transition tables.
package pattern

import (
	"sort"
	"strconv"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
)

// Step is one tool invocation in a raw sequence, tagged with the parallel
// group it belongs to (if any) for future diagramming.
type Step struct {
	ToolName        string
	MessageIndex    int
	IsParallel      bool
	ParallelGroupID string
}

// ExtractToolSequence walks messages in order and returns the raw
// (non-normalized) tool-call sequence plus per-step metadata. Tool_use
// blocks that share one assistant message are a parallel group: they are
// sorted alphabetically for deterministic ordering, then appended to the
// sequence as consecutive steps.
func ExtractToolSequence(messages []policy.Message) ([]string, []Step) {
	var rawSequence []string
	var steps []Step
	groupCounter := 0

	for idx, msg := range messages {
		if msg.Role != policy.RoleAssistant || !msg.HasBlocks() {
			continue
		}

		var toolsInMessage []string
		for _, block := range msg.Blocks {
			if block.Type == policy.BlockToolUse {
				toolsInMessage = append(toolsInMessage, block.ToolName)
			}
		}
		if len(toolsInMessage) == 0 {
			continue
		}

		sort.Strings(toolsInMessage)

		isParallel := len(toolsInMessage) > 1
		groupID := ""
		if isParallel {
			groupID = groupIDFor(groupCounter)
			groupCounter++
		}

		for _, name := range toolsInMessage {
			rawSequence = append(rawSequence, name)
			steps = append(steps, Step{
				ToolName:        name,
				MessageIndex:    idx,
				IsParallel:      isParallel,
				ParallelGroupID: groupID,
			})
		}
	}

	return rawSequence, steps
}

func groupIDFor(n int) string {
	return "pg_" + strconv.Itoa(n)
}
