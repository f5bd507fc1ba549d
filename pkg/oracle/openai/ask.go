package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"

	"github.com/sieve-kg/sieve/pkg/oracle"
)

// Ask sends one verification question to the chat model and parses the
// structured judgment. Errors are transport or parse failures; a judgment
// of supported=false is a successful call.
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

	var judgment oracle.Judgment
	schema := oracle.GenerateSchema(&judgment)
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "verify_claim",
		Description: openai.String("Judge whether the cited evidence supports the claim."),
		Schema:      schema,
		Strict:      openai.Bool(true),
	}

	body := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(options.Model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(oracle.BuildPrompt(claim, evidenceTexts)),
		},
		Temperature: openai.Float(options.Temperature),
	}

	start := time.Now()
	response, err := c.ChatClient.Chat.Completions.New(ctx, body)
	if err != nil {
		return nil, err
	}
	duration := time.Since(start).Milliseconds()

	c.modifyMetrics(oracle.ModelMetrics{
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
		TotalTokens:  int(response.Usage.TotalTokens),
		DurationMs:   duration,
		Calls:        1,
	})

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response from model")
	}
	message := response.Choices[0].Message.Content
	if message == "" {
		return nil, fmt.Errorf("empty response from model (finish_reason: %s)", response.Choices[0].FinishReason)
	}
	if err := oracle.UnmarshalFlexible(message, &judgment); err != nil {
		return nil, err
	}
	judgment.Confidence = oracle.ClampConfidence(judgment.Confidence)

	return &judgment, nil
}
