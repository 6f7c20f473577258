// Package ollama adapts a local Ollama runtime to the extraction and
// analysis ports. One Client owns the transport, rate limiter, and
// resilience executor; model selection lives in the runners and the
// provider built on top of it.
package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/boobootoo2/medbilldozer-sub001/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	exec       *resilience.Executor
}

// New builds a client for one Ollama base URL. requestsPerSecond <= 0
// disables rate limiting. All generate calls across runners and providers
// share the limiter so a busy batch cannot starve the runtime.
func New(baseURL string, requestsPerSecond float64, burst int, exec *resilience.Executor) *Client {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	if exec == nil {
		exec = resilience.NewExecutor(resilience.DefaultPolicy())
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
		limiter:    rate.NewLimiter(limit, burst),
		exec:       exec,
	}
}

// Runner issues structured-output prompts against a single model. Each
// document category gets its own Runner at bootstrap so the model table is
// plain configuration, not branching in the client.
type Runner struct {
	client *Client
	model  string
}

func NewRunner(client *Client, model string) *Runner {
	return &Runner{client: client, model: model}
}

func (r *Runner) RunStructuredPrompt(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	return r.client.generate(ctx, r.model, prompt, maxOutputTokens)
}

func (c *Client) generate(ctx context.Context, model, prompt string, maxOutputTokens int) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	reqBody := map[string]any{
		"model":  model,
		"prompt": prompt,
		"stream": false,
	}
	if maxOutputTokens > 0 {
		reqBody["options"] = map[string]any{"num_predict": maxOutputTokens}
	}

	var response struct {
		Response string `json:"response"`
	}
	err := c.exec.Execute(ctx, "ollama_generate", func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", reqBody, &response, "generate")
	}, classifyError)
	if err != nil {
		return "", wrapTemporaryIfNeeded("ollama_generate", err)
	}
	return strings.TrimSpace(response.Response), nil
}

func (c *Client) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return newHTTPStatusError("tags", resp)
	}
	return nil
}
