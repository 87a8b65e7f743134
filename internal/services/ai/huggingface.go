package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hf-quote-tgbot-go/internal/config"
)

const (
	msgEmptyResponse      = "Empty response received."
	msgUnexpectedResponse = "Unexpected response received."
	msgUnreadableResponse = "Response body is not valid JSON."
	msgOversizedResponse  = "Response body is too large."

	// maxResponseBytes caps how much of a response body is read
	maxResponseBytes = 1 << 20
)

type generationParameters struct {
	MaxNewTokens int     `json:"max_new_tokens"`
	Temperature  float64 `json:"temperature"`
}

type generationRequest struct {
	Inputs     string               `json:"inputs"`
	Parameters generationParameters `json:"parameters"`
}

// HuggingFaceClient calls the hosted inference API for a text-generation model
type HuggingFaceClient struct {
	url        string
	apiKey     string
	timeout    time.Duration
	params     generationParameters
	httpClient *http.Client
	logger     logrus.FieldLogger
}

// NewHuggingFaceClient creates a client for the configured endpoint
func NewHuggingFaceClient(cfg *config.InferenceConfig, logger logrus.FieldLogger) *HuggingFaceClient {
	logger.WithFields(logrus.Fields{
		"url":     cfg.URL,
		"timeout": cfg.Timeout,
	}).Info("Inference client initialized")

	return &HuggingFaceClient{
		url:     cfg.URL,
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		params: generationParameters{
			MaxNewTokens: cfg.MaxNewTokens,
			Temperature:  cfg.Temperature,
		},
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Generate performs a single request attempt bounded by the configured timeout
func (c *HuggingFaceClient) Generate(ctx context.Context, prompt string) Result {
	jsonData, err := json.Marshal(generationRequest{Inputs: prompt, Parameters: c.params})
	if err != nil {
		return RemoteError(fmt.Sprintf("failed to marshal request: %v", err))
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return RemoteError(fmt.Sprintf("failed to create request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	c.logger.WithField("url", c.url).Debug("Sending inference request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(reqCtx, err) {
			c.logger.WithField("timeout", c.timeout).Warn("Inference request timed out")
			return Timeout()
		}
		c.logger.WithError(err).Warn("Inference request failed")
		return RemoteError(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		if isTimeout(reqCtx, err) {
			return Timeout()
		}
		return Malformed(msgUnreadableResponse)
	}
	if len(body) > maxResponseBytes {
		c.logger.WithField("limit", maxResponseBytes).Warn("Inference response exceeds size limit")
		return Malformed(msgOversizedResponse)
	}

	// The status code is informational only: the API reports model loading
	// and quota problems as {"error": ...} bodies with a non-2xx status.
	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   truncate(string(body), 200),
		}).Debug("Inference endpoint returned non-OK status")
	}

	return parseResponse(body)
}

// parseResponse maps the endpoint's loosely typed body onto a Result
func parseResponse(body []byte) Result {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return Malformed(msgUnreadableResponse)
	}

	switch v := payload.(type) {
	case []any:
		if len(v) == 0 {
			return Malformed(msgEmptyResponse)
		}
		item, ok := v[0].(map[string]any)
		if !ok {
			return Malformed(msgUnexpectedResponse)
		}
		text, ok := item["generated_text"].(string)
		if !ok {
			return Malformed(msgEmptyResponse)
		}
		return Success(text)
	case map[string]any:
		if raw, ok := v["generated_text"]; ok {
			if text, ok := raw.(string); ok {
				return Success(text)
			}
			return Malformed(msgUnexpectedResponse)
		}
		if raw, ok := v["error"]; ok {
			if msg, ok := raw.(string); ok {
				return RemoteError(msg)
			}
			return RemoteError(fmt.Sprint(raw))
		}
		return Malformed(msgUnexpectedResponse)
	default:
		return Malformed(msgUnexpectedResponse)
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
