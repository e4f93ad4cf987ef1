package pattern

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Signature is a normalized pattern's identity: a deterministic hash plus
// a human-readable rendering.
type Signature struct {
	Hash               string
	NormalizedSequence []string
	DisplayString      string
	ToolCount          int
}

// GenerateSignature hashes normalized (canonical JSON, so equal sequences
// always hash identically regardless of producer) and builds the
// "tool_a → tool_b → ..." display string.
func GenerateSignature(normalized []string) Signature {
	sequenceJSON, err := json.Marshal(normalized)
	if err != nil {
		// normalized is always []string; Marshal cannot fail here.
		sequenceJSON = []byte("[]")
	}
	sum := sha256.Sum256(sequenceJSON)

	display := "(empty)"
	if len(normalized) > 0 {
		display = strings.Join(normalized, " → ")
	}

	return Signature{
		Hash:               hex.EncodeToString(sum[:]),
		NormalizedSequence: normalized,
		DisplayString:      display,
		ToolCount:          uniqueCount(normalized),
	}
}

func uniqueCount(seq []string) int {
	seen := make(map[string]struct{}, len(seq))
	for _, s := range seq {
		seen[s] = struct{}{}
	}
	return len(seen)
}
