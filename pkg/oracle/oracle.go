package oracle

import (
	"context"
)

// Judgment is the oracle's answer to one verification question: whether the
// provided evidence supports the claim, with a free-text justification.
// Confidence is optional; backends that do not produce one leave it at 0 and
// the verifier substitutes a default.
type Judgment struct {
	Supported     bool    `json:"supported" jsonschema_description:"True only if the claim is directly stated or strongly implied by the evidence."`
	Justification string  `json:"justification" jsonschema_description:"Brief explanation of why the evidence does or does not support the claim."`
	Confidence    float64 `json:"confidence" jsonschema_description:"Confidence in the judgment between 0.0 and 1.0."`
}

// AskOptions holds configuration for a single oracle question.
type AskOptions struct {
	Model       string  // Model identifier to use for the judgment
	Temperature float64 // Sampling temperature (0.0-2.0)
}

// AskOption is a functional option for configuring an oracle question.
type AskOption func(*AskOptions)

// WithModel returns an AskOption that sets the model to use.
func WithModel(model string) AskOption {
	return func(o *AskOptions) {
		o.Model = model
	}
}

// WithTemperature returns an AskOption that sets the sampling temperature.
// Verification should run close to 0 to keep judgments stable.
func WithTemperature(temp float64) AskOption {
	return func(o *AskOptions) {
		o.Temperature = temp
	}
}

// ModelMetrics contains accumulated usage metrics from oracle calls.
type ModelMetrics struct {
	InputTokens  int   `json:"input_tokens"`
	OutputTokens int   `json:"output_tokens"`
	TotalTokens  int   `json:"total_tokens"`
	DurationMs   int64 `json:"duration_ms"`
	Calls        int   `json:"calls"`
}

// Client is the narrow interface to the external reasoning capability.
// The engine treats it as an opaque, fallible black box: any implementation
// (rule-based, statistical or LLM-backed) satisfying this contract is
// acceptable, and tests run against a deterministic fake.
//
// Ask must be idempotent and side-effect-free from the engine's
// perspective. Errors are transient infrastructure failures; a substantive
// "not supported" answer is a successful call with Supported=false.
type Client interface {
	Ask(ctx context.Context, claim string, evidenceTexts []string, opts ...AskOption) (*Judgment, error)
	ResetMetrics()
	GetMetrics() ModelMetrics
}
