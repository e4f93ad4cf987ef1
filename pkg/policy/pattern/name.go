package pattern

import (
	"fmt"
	"strings"
)

// The *Signals lists classify a tool name by substrings commonly found in tool
// naming conventions across agent toolkits (approval gates, notification
// sends, lookups). The heuristic is deliberately coarse: it is a display
// hint, not a classifier anything downstream depends on for correctness.
var approvalSignals = []string{"approval", "approve", "confirm", "review"}
var notifySignals = []string{"notify", "send_email", "send_message", "alert"}
var lookupSignals = []string{"lookup", "search", "check_", "get_", "fetch_", "query"}
var mutateSignals = []string{"create_", "update_", "delete_", "write_"}

// GeneratePatternName derives a short, human-readable label for a
// normalized tool sequence using simple rule-based heuristics: presence
// of gating/approval tools, repeated high-signal tool calls, and the
// overall shape of the workflow (lookup-only vs. mutating vs. mixed).
func GeneratePatternName(normalized []string) string {
	if len(normalized) == 0 {
		return "Empty pattern"
	}

	toolSet := make(map[string]struct{}, len(normalized))
	counts := make(map[string]int, len(normalized))
	for _, t := range normalized {
		toolSet[t] = struct{}{}
		counts[t]++
	}

	var parts []string

	if anyMatches(toolSet, approvalSignals) {
		parts = append(parts, "Approval-required")
	} else {
		parts = append(parts, "Standard")
	}

	if repeated := mostRepeated(normalized, counts); repeated != "" {
		parts = append(parts, fmt.Sprintf("batch %s", friendly(repeated)))
	}

	hasNotify := anyMatches(toolSet, notifySignals)
	hasMutate := anyMatches(toolSet, mutateSignals)
	hasLookup := anyMatches(toolSet, lookupSignals)

	switch {
	case hasMutate && hasNotify:
		parts = append(parts, "fulfillment")
	case hasMutate:
		parts = append(parts, "data mutation")
	case hasLookup:
		parts = append(parts, "lookup")
	default:
		parts = append(parts, friendly(normalized[0]))
	}

	return strings.Join(parts, " ")
}

func anyMatches(toolSet map[string]struct{}, signals []string) bool {
	for tool := range toolSet {
		lower := strings.ToLower(tool)
		for _, sig := range signals {
			if strings.Contains(lower, sig) {
				return true
			}
		}
	}
	return false
}

// mostRepeated returns the first tool, in sequence order, that was
// called more than once, or "" if every tool occurred at most once. It
// walks the sequence rather than the counts map so the result is
// deterministic regardless of map iteration order.
func mostRepeated(sequence []string, counts map[string]int) string {
	for _, tool := range sequence {
		if counts[tool] > 1 {
			return tool
		}
	}
	return ""
}

func friendly(toolName string) string {
	return strings.ReplaceAll(toolName, "_", " ")
}
