package ollama

import (
	"context"
	"encoding/json"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"

	"github.com/sieve-kg/sieve/pkg/oracle"
)

// Ask sends one verification question to the Ollama server and parses the
// schema-constrained judgment.
func (c *OracleClient) Ask(
	ctx context.Context,
	claim string,
	evidenceTexts []string,
	opts ...oracle.AskOption,
) (*oracle.Judgment, error) {
	options := oracle.AskOptions{
		Model:       c.model,
		Temperature: 0.0,
	}
	for _, o := range opts {
		o(&options)
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	var judgment oracle.Judgment
	schemaObj := oracle.GenerateSchema(&judgment)
	formatBytes, err := json.Marshal(schemaObj)
	if err != nil {
		return nil, err
	}
	var format json.RawMessage = formatBytes

	prompt := oracle.BuildPrompt(claim, evidenceTexts)

	stream := false
	req := &api.ChatRequest{
		Model: options.Model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Stream:  &stream,
		Format:  format,
		Options: map[string]any{"temperature": options.Temperature},
	}

	// Size the context window to the prompt when it exceeds the default.
	tokens := 200
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return nil, err
	}
	tokens += len(enc.Encode(prompt, nil, nil))
	if tokens > 4096 {
		req.Options["num_ctx"] = tokens
	}

	var final api.ChatResponse
	if err := c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
			final.Metrics = cr.Metrics
		}
		return nil
	}); err != nil {
		return nil, err
	}

	c.modifyMetrics(oracle.ModelMetrics{
		InputTokens:  final.Metrics.PromptEvalCount,
		OutputTokens: final.Metrics.EvalCount,
		TotalTokens:  final.Metrics.PromptEvalCount + final.Metrics.EvalCount,
		DurationMs:   final.Metrics.TotalDuration.Milliseconds(),
		Calls:        1,
	})

	if err := oracle.UnmarshalFlexible(final.Message.Content, &judgment); err != nil {
		return nil, err
	}
	judgment.Confidence = oracle.ClampConfidence(judgment.Confidence)

	return &judgment, nil
}
