package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"customer-insights/internal/domain"
)

const (
	DefaultModel    = "gemini-1.5-flash"
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"
)

// Config configures the Gemini client.
type Config struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
	Logger   *logrus.Logger
}

// Client answers free text questions about a dataset with the Gemini
// generateContent API. One call per question, no retries.
type Client struct {
	cfg    Config
	client *http.Client
}

// NewGemini fails with ErrConfiguration when no API key is set.
func NewGemini(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: assistant api key is required", domain.ErrConfiguration)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// BuildPrompt embeds the whole dataset as JSON records ahead of the question.
func BuildPrompt(question string, records []map[string]any) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encode dataset: %w", err)
	}
	return fmt.Sprintf("Given the dataset: %s, answer: %s", data, question), nil
}

// Ask sends question together with the dataset records. Every failure is
// reported as ErrRemoteCall.
func (c *Client) Ask(ctx context.Context, question string, records []map[string]any) (string, error) {
	prompt, err := BuildPrompt(question, records)
	if err != nil {
		return "", err
	}

	logger := c.cfg.Logger.WithFields(logrus.Fields{
		"model":   c.cfg.Model,
		"records": len(records),
	})
	logger.Infof("asking assistant: %q", truncate(question, 80))

	start := time.Now()
	answer, err := c.generate(ctx, prompt)
	if err != nil {
		logger.Warnf("assistant call failed after %s: %v", time.Since(start).Round(time.Millisecond), err)
		return "", fmt.Errorf("%w: %v", domain.ErrRemoteCall, err)
	}
	logger.Debugf("assistant answered in %s", time.Since(start).Round(time.Millisecond))
	return answer, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s",
		strings.TrimRight(c.cfg.Endpoint, "/"), url.PathEscape(c.cfg.Model), url.QueryEscape(c.cfg.APIKey))

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// url.Error would echo the key carried in the query string
		if ue, ok := err.(*url.Error); ok {
			err = ue.Err
		}
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed generateResponse
	jsonErr := json.Unmarshal(raw, &parsed)
	if jsonErr == nil && parsed.Error != nil {
		return "", fmt.Errorf("gemini error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}
	if jsonErr != nil {
		return "", fmt.Errorf("parse response: %w", jsonErr)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned an empty response")
	}

	var sb strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
