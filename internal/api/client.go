package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bz888/cardadvisor/internal/logger"
)

const DefaultEndpoint = "http://127.0.0.1:5000/chat"

// ChatRequest is the body posted to the chat endpoint.
type ChatRequest struct {
	Query string `json:"query"`
}

// TransportError reports a failed exchange with the chat backend: either the
// request never completed (Err set) or the backend answered with a non-2xx status.
type TransportError struct {
	StatusCode int
	Status     string
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return "chat request failed: " + e.Err.Error()
	}
	return "chat request failed: HTTP " + e.Status
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ClientConfig holds the configuration for the client
type ClientConfig struct {
	Endpoint string
	// Timeout bounds a whole exchange. Zero leaves the transport default.
	Timeout time.Duration
}

// Client sends one query per call to the chat backend.
type Client struct {
	endpoint string
	http     *http.Client
	log      *logger.Logger
}

func NewClient(config ClientConfig) *Client {
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: config.Timeout},
		log:      logger.NewLogger("api client"),
	}
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Send posts query and returns the reply text. A JSON string body yields its
// value; any other JSON value yields its compact JSON text. Every failure is a
// *TransportError. There is no retry.
func (c *Client) Send(ctx context.Context, query string) (string, error) {
	requestData, err := json.Marshal(ChatRequest{Query: query})
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(requestData))
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.log.Info("Sending query of", len(query), "bytes to", c.endpoint)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Errorf("Failed to send request: %s", err)
		return "", &TransportError{Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Errorf("Failed to close response body: %s", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Errorf("Failed to read response: %s", err)
		return "", &TransportError{StatusCode: resp.StatusCode, Status: resp.Status, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Errorf("Backend answered %s", resp.Status)
		return "", &TransportError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}

	text, err := replyText(body)
	if err != nil {
		c.log.Errorf("Failed to decode response: %s", err)
		return "", &TransportError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body), Err: err}
	}
	return text, nil
}

func replyText(body []byte) (string, error) {
	var value json.RawMessage
	if err := json.Unmarshal(body, &value); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	var text string
	if err := json.Unmarshal(value, &text); err == nil {
		return text, nil
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, value); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return compact.String(), nil
}
