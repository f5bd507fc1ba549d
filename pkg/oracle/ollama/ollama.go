package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"

	"github.com/sieve-kg/sieve/pkg/oracle"
)

// OracleClient answers verification questions through a locally-hosted
// Ollama server with schema-constrained output.
type OracleClient struct {
	model string

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     oracle.ModelMetrics

	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client

	Client *api.Client
}

// NewOracleClientParams contains configuration for creating an Ollama-backed
// oracle. MaxConcurrentRequests bounds in-flight requests against the
// server; values <= 0 default to 1.
type NewOracleClientParams struct {
	Model   string
	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewOracleClient creates an Ollama-backed verification oracle connecting to
// the server at BaseURL (or the Ollama default when empty).
func NewOracleClient(params NewOracleClientParams) (*OracleClient, error) {
	var (
		u   *url.URL
		err error
	)
	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.ApiKey,
			},
			rt: http.DefaultTransport,
		},
	}

	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &OracleClient{
		model:      params.Model,
		reqLock:    semaphore.NewWeighted(maxConcurrent),
		baseURL:    u,
		apiKey:     params.ApiKey,
		httpClient: httpClient,
		Client:     api.NewClient(u, httpClient),
	}, nil
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
