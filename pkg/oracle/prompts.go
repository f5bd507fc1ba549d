package oracle

import (
	"fmt"
	"strings"
)

// VerifyPrompt is the system prompt for evidence verification. The first
// placeholder is the claim under test, the second the formatted evidence
// documents.
const VerifyPrompt = `
# Task Context
You are a strict fact verifier for a knowledge graph. You will be given a single claim and the source documents cited as evidence for it.

# Background Data
Claim: %s

Evidence documents:
%s

# Detailed Task Description & Rules
- Answer supported=true ONLY if the claim is directly stated or strongly implied by the evidence documents.
- Answer supported=false if the claim requires assumptions, outside knowledge, or is not present in the evidence.
- Judge only the cited documents. Do not reward plausibility: an unsupported but plausible claim is still unsupported.
- Give a brief justification either way, citing which document supports or fails the claim.
- Report a confidence between 0.0 and 1.0 for your judgment.

# Output Formatting
Return a JSON object with this structure:
{
  "supported": true,
  "justification": "<brief explanation>",
  "confidence": 0.9
}
`

// BuildPrompt renders the verification prompt for a claim and its evidence
// blocks. Callers are expected to have labeled and truncated the blocks.
func BuildPrompt(claim string, evidenceTexts []string) string {
	return fmt.Sprintf(VerifyPrompt, claim, strings.Join(evidenceTexts, "\n\n"))
}
