package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/calltriage/call-analyzer/pkg/config"
)

// Client is a minimal client for the Ollama HTTP API used for LLM analysis.
type Client struct {
	baseURL string
	model   string
	stream  bool
	options GenerateOptions
	client  *http.Client
	logger  *zap.Logger
}

// GenerateOptions is the generation parameter block sent with every request.
type GenerateOptions struct {
	Temperature   float64  `json:"temperature"`
	TopP          float64  `json:"top_p"`
	TopK          int      `json:"top_k"`
	RepeatPenalty float64  `json:"repeat_penalty"`
	NumPredict    int      `json:"num_predict,omitempty"`
	Stop          []string `json:"stop,omitempty"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options GenerateOptions `json:"options"`
}

type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewClient creates an Ollama client from the provided config.
func NewClient(cfg *config.OllamaConfig, logger *zap.Logger) *Client {
	opts := GenerateOptions{
		Temperature:   cfg.Temperature,
		TopP:          cfg.TopP,
		TopK:          cfg.TopK,
		RepeatPenalty: cfg.RepeatPenalty,
	}
	if cfg.NumPredict > 0 {
		opts.NumPredict = cfg.NumPredict
	}
	if s := strings.TrimSpace(cfg.StopSequence); s != "" {
		opts.Stop = []string{s}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		stream:  cfg.Stream,
		options: opts,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
			},
		},
		logger: logger,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Generate sends the prompt to /api/generate and returns the full response
// text. In streamed mode chunks are concatenated in arrival order until the
// server reports done.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  c.stream,
		Options: c.options,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("ollama returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if c.stream {
		return c.collectStream(resp.Body)
	}

	var chunk generateChunk
	if err := json.NewDecoder(resp.Body).Decode(&chunk); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}
	return strings.TrimSpace(chunk.Response), nil
}

// collectStream reads newline-delimited JSON chunks and concatenates their
// response fields in arrival order.
func (c *Client) collectStream(body io.Reader) (string, error) {
	var sb strings.Builder
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk generateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			if c.logger != nil {
				c.logger.Debug("skipping unparseable stream chunk", zap.ByteString("line", line))
			}
			continue
		}
		sb.WriteString(chunk.Response)
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read ollama stream: %w", err)
	}
	return strings.TrimSpace(sb.String()), nil
}

// ListModels returns the model names the server advertises on /api/tags.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama tags request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned HTTP %d listing models", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to decode model list: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// CheckModel verifies the configured model is available on the server,
// retrying transient connection failures with exponential backoff. A missing
// model is reported immediately together with the advertised alternatives.
func (c *Client) CheckModel(ctx context.Context) error {
	var available []string

	checkFn := func() error {
		models, err := c.ListModels(ctx)
		if err != nil {
			return err
		}
		available = models
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(checkFn, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("ollama server unreachable at %s: %w", c.baseURL, err)
	}

	for _, name := range available {
		if name == c.model {
			if c.logger != nil {
				c.logger.Info("ollama model available",
					zap.String("model", c.model),
					zap.Strings("server_models", available),
				)
			}
			return nil
		}
	}

	if c.logger != nil {
		c.logger.Warn("configured ollama model not available on server",
			zap.String("model", c.model),
			zap.Strings("available", available),
		)
	}
	return fmt.Errorf("model %q not available on %s (available: %s)",
		c.model, c.baseURL, strings.Join(available, ", "))
}
