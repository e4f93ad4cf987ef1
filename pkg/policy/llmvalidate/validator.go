// Package llmvalidate implements the LLMValidator contract: a
// binary-verdict natural-language judge with token/cost reporting, the
// fixed compliance prompt envelope, and the JSON-then-keyword-lexicon
// fallback parser.
package llmvalidate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Result is the outcome of one validator call.
type Result struct {
	Passed   bool
	Response string
	Error    bool
	Usage    *Usage
}

// Usage records token/cost accounting for a single LLM call.
type Usage struct {
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	CostUSD      float64
}

// Request is one validator call: a value or content excerpt, the
// natural-language criteria it must satisfy, and the provider/model pair
// to route the call to.
type Request struct {
	// Subject is "value" (tool-response parameter checks) or "content"
	// (response-text checks); it only changes the prompt's wording.
	Subject  string
	Value    string
	Criteria string
	Provider string
	Model    string
}

// Validator is the injected, process-wide judge. Implementations issue
// one request per call and never hold a store handle across it.
type Validator interface {
	Validate(ctx context.Context, req Request) Result
}

// Prompt renders the fixed compliance-validator envelope for req.
func (r Request) Prompt() string {
	subject := r.Subject
	if subject == "" {
		subject = "value"
	}
	return promptEnvelope(subject, r.Criteria, r.Value)
}

// promptEnvelope is the fixed, non-negotiable structured prompt. subject
// is either "value" or "content" depending on caller; the wording
// otherwise matches verbatim.
func promptEnvelope(subject, criteria, value string) string {
	return fmt.Sprintf(`You are a compliance validator. Evaluate the following %s against the criteria below.

USER CRITERIA:
%s

%s TO EVALUATE:
%s

INSTRUCTIONS:
1. Make a binary decision: does the %s meet the criteria or not?
2. Provide a brief explanation for your decision
3. Respond ONLY with valid JSON in this exact format:

{"compliant": true, "reason": "your explanation"}

OR

{"compliant": false, "reason": "your explanation"}

Do not include any text outside the JSON. Do not use markdown code blocks.`,
		subject, criteria, strings.ToUpper(subject), value, subject)
}

var approvalKeywords = []string{"compliant", "approved", "yes", "pass", "valid", "correct", "acceptable"}
var rejectionKeywords = []string{"violation", "non-compliant", "does not comply", "fails", "rejected", "denied", "invalid", "incorrect"}

type jsonVerdict struct {
	Compliant *bool  `json:"compliant"`
	Reason    string `json:"reason"`
}

// parseVerdict implements the LLMValidator parse contract: strip
// markdown fences, JSON-decode, take the compliant boolean; on parse
// failure fall back to lexicon scanning with rejection precedence and
// fail-safe-on-ambiguity.
func parseVerdict(raw string) (passed bool, reason string) {
	cleaned := stripCodeFence(raw)

	var v jsonVerdict
	if err := json.Unmarshal([]byte(cleaned), &v); err == nil && v.Compliant != nil {
		reason = v.Reason
		if reason == "" {
			reason = raw
		}
		return *v.Compliant, reason
	}

	lower := strings.ToLower(raw)
	hasApproval := containsAny(lower, approvalKeywords)
	hasRejection := containsAny(lower, rejectionKeywords)

	switch {
	case hasRejection && !hasApproval:
		passed = false
	case hasApproval && !hasRejection:
		passed = true
	default:
		// Both present, or neither: fail safe.
		passed = false
	}
	return passed, raw
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 2 {
		s = strings.Join(lines[1:len(lines)-1], "\n")
	}
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
