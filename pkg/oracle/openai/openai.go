package openai

import (
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/sieve-kg/sieve/pkg/oracle"
)

// OracleClient answers verification questions through an OpenAI-compatible
// chat completion endpoint with strict JSON-schema output.
//
// An OracleClient should be created using NewOracleClient.
type OracleClient struct {
	model   string
	baseURL string

	metricsLock sync.Mutex
	metrics     oracle.ModelMetrics

	ChatClient *openai.Client
}

// NewOracleClientParams defines the configuration for creating a new
// OracleClient. BaseURL may point at any OpenAI-compatible server; an empty
// value uses the default OpenAI endpoint.
type NewOracleClientParams struct {
	Model   string
	BaseURL string
	ApiKey  string
}

// NewOracleClient creates an OpenAI-backed verification oracle.
//
// Example:
//
//	client := openai.NewOracleClient(openai.NewOracleClientParams{
//		Model:  "gpt-4o-mini",
//		ApiKey: os.Getenv("ORACLE_API_KEY"),
//	})
func NewOracleClient(params NewOracleClientParams) *OracleClient {
	options := []option.RequestOption{
		option.WithAPIKey(params.ApiKey),
	}
	if params.BaseURL != "" {
		options = append(options, option.WithBaseURL(params.BaseURL))
	}
	client := openai.NewClient(options...)

	return &OracleClient{
		model:      params.Model,
		baseURL:    params.BaseURL,
		ChatClient: &client,
	}
}

func (c *OracleClient) modifyMetrics(m oracle.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics.InputTokens += m.InputTokens
	c.metrics.OutputTokens += m.OutputTokens
	c.metrics.TotalTokens += m.TotalTokens
	c.metrics.DurationMs += m.DurationMs
	c.metrics.Calls += m.Calls
}

// ResetMetrics clears the accumulated usage metrics.
func (c *OracleClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = oracle.ModelMetrics{}
}

// GetMetrics returns the accumulated usage metrics.
func (c *OracleClient) GetMetrics() oracle.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}
