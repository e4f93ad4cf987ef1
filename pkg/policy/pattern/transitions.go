package pattern

import "github.com/codeready-toolchain/tarsy/pkg/policy"

// transitionKey is the (from, to) pair a TransitionCount keys on.
type transitionKey struct {
	From string
	To   string
}

// TransitionCount is one aggregated edge in the tool-transition graph.
type TransitionCount struct {
	From  string
	To    string
	Count int
}

// ComputeTransitions tallies (from_tool, to_tool) edges across every raw
// (non-normalized) sequence, bracketing each sequence with the
// policy.TransitionStart/TransitionEnd sentinels so entry and exit points
// are visible in the same table as internal hops. An empty sequence
// contributes nothing.
func ComputeTransitions(rawSequences [][]string) []TransitionCount {
	counts := map[transitionKey]int{}
	var order []transitionKey

	bump := func(from, to string) {
		k := transitionKey{from, to}
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		counts[k]++
	}

	for _, seq := range rawSequences {
		if len(seq) == 0 {
			continue
		}
		bump(policy.TransitionStart, seq[0])
		for i := 0; i < len(seq)-1; i++ {
			bump(seq[i], seq[i+1])
		}
		bump(seq[len(seq)-1], policy.TransitionEnd)
	}

	out := make([]TransitionCount, 0, len(order))
	for _, k := range order {
		out = append(out, TransitionCount{From: k.From, To: k.To, Count: counts[k]})
	}
	return out
}
