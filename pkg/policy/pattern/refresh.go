package pattern

import (
	"context"
	"fmt"
	"sort"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
	"github.com/google/uuid"
)

// SessionSource is the narrow read surface RefreshVariants needs: the
// sessions that have actually been run through compliance evaluation at
// least once (variants are only computed over processed sessions), and
// their message transcripts.
type SessionSource interface {
	ProcessedSessionIDs(ctx context.Context, agentID string) ([]string, error)
	Messages(ctx context.Context, agentID, sessionID string) ([]policy.Message, error)
}

// VariantWriter replaces the stored variants and transitions for an
// agent in one shot; implementations are expected to do this
// transactionally (delete-then-insert).
type VariantWriter interface {
	ReplaceAgentVariants(ctx context.Context, agentID string, variants []policy.AgentVariant, transitions []policy.ToolTransition) error
}

type variantBucket struct {
	signature  Signature
	sessionIDs []string
	sequences  [][]string
}

// RefreshVariants recomputes every AgentVariant and ToolTransition row
// for agentID from scratch: it loads every processed session, groups
// sessions by normalized-sequence signature, assigns each group a fresh
// variant id, computes per-variant transitions plus one agent-wide
// aggregate (variant_id == nil), and writes the whole set back
// atomically via writer.
func RefreshVariants(ctx context.Context, agentID string, src SessionSource, writer VariantWriter) error {
	sessionIDs, err := src.ProcessedSessionIDs(ctx, agentID)
	if err != nil {
		return fmt.Errorf("listing processed sessions for agent %q: %w", agentID, err)
	}
	if len(sessionIDs) == 0 {
		return writer.ReplaceAgentVariants(ctx, agentID, nil, nil)
	}

	buckets := map[string]*variantBucket{}
	var bucketOrder []string
	var allRawSequences [][]string

	for _, sessionID := range sessionIDs {
		messages, err := src.Messages(ctx, agentID, sessionID)
		if err != nil {
			return fmt.Errorf("loading session %q for agent %q: %w", sessionID, agentID, err)
		}

		rawSequence, _ := ExtractToolSequence(messages)
		if len(rawSequence) > 0 {
			allRawSequences = append(allRawSequences, rawSequence)
		}

		normalized := NormalizeSequence(rawSequence)
		signature := GenerateSignature(normalized)

		bucket, ok := buckets[signature.Hash]
		if !ok {
			bucket = &variantBucket{signature: signature}
			buckets[signature.Hash] = bucket
			bucketOrder = append(bucketOrder, signature.Hash)
		}
		bucket.sessionIDs = append(bucket.sessionIDs, sessionID)
		bucket.sequences = append(bucket.sequences, rawSequence)
	}

	var variants []policy.AgentVariant
	var transitions []policy.ToolTransition

	for _, hash := range bucketOrder {
		bucket := buckets[hash]
		if len(bucket.sequences) == 0 {
			continue
		}

		variantID := uuid.New().String()
		variants = append(variants, policy.AgentVariant{
			ID:                 variantID,
			AgentID:            agentID,
			Signature:          hash,
			NormalizedSequence: bucket.signature.NormalizedSequence,
			DisplayName:        GeneratePatternName(bucket.signature.NormalizedSequence),
			MemberSessionIDs:   bucket.sessionIDs,
			ToolCount:          bucket.signature.ToolCount,
		})

		for _, t := range ComputeTransitions(bucket.sequences) {
			vid := variantID
			transitions = append(transitions, policy.ToolTransition{
				AgentID:   agentID,
				FromTool:  t.From,
				ToTool:    t.To,
				Count:     t.Count,
				VariantID: &vid,
			})
		}
	}

	for _, t := range ComputeTransitions(allRawSequences) {
		transitions = append(transitions, policy.ToolTransition{
			AgentID:   agentID,
			FromTool:  t.From,
			ToTool:    t.To,
			Count:     t.Count,
			VariantID: nil,
		})
	}

	return writer.ReplaceAgentVariants(ctx, agentID, variants, transitions)
}

// VariantSummary is the display-ready projection of an AgentVariant used
// by listing views: session share, and a truncated sequence preview.
type VariantSummary struct {
	Variant         policy.AgentVariant
	SessionCount    int
	Percentage      float64
	SequencePreview string
}

// SummarizeVariants ranks variants by session count descending and
// computes each one's share of total_sessions, matching the listing
// view's percentage/preview presentation.
func SummarizeVariants(variants []policy.AgentVariant) []VariantSummary {
	total := 0
	for _, v := range variants {
		total += len(v.MemberSessionIDs)
	}

	summaries := make([]VariantSummary, 0, len(variants))
	for _, v := range variants {
		count := len(v.MemberSessionIDs)
		pct := 0.0
		if total > 0 {
			pct = float64(count) / float64(total) * 100
		}
		summaries = append(summaries, VariantSummary{
			Variant:         v,
			SessionCount:    count,
			Percentage:      pct,
			SequencePreview: sequencePreview(v.NormalizedSequence),
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].SessionCount > summaries[j].SessionCount
	})
	return summaries
}

func sequencePreview(sequence []string) string {
	const previewLen = 3
	if len(sequence) == 0 {
		return ""
	}
	n := len(sequence)
	if n > previewLen {
		n = previewLen
	}
	preview := sequence[:n]
	display := ""
	for i, tool := range preview {
		if i > 0 {
			display += " → "
		}
		display += tool
	}
	if len(sequence) > previewLen {
		display += " → ..."
	}
	return display
}
