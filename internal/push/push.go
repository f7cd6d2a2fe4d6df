package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// ErrUnregistered marks a token the provider no longer recognizes. Callers
// prune the token and must not retry it.
var ErrUnregistered = errors.New("push token unregistered")

// Payload is one external push message.
type Payload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Sender delivers a payload to one device token.
type Sender interface {
	Send(ctx context.Context, token string, p Payload) error
}

type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		Endpoint: strings.TrimSpace(os.Getenv("PUSH_ENDPOINT")),
		APIKey:   strings.TrimSpace(os.Getenv("PUSH_API_KEY")),
		Timeout:  5 * time.Second,
	}
	if cfg.Endpoint == "" {
		return Config{}, errors.New("missing required push env: PUSH_ENDPOINT")
	}
	if raw := strings.TrimSpace(os.Getenv("PUSH_TIMEOUT")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PUSH_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}

// HTTPSender posts {to, title, body, data} to an Expo-style push gateway.
// Every call runs under the configured timeout so a slow provider can never
// stall a mutation's fan-out.
type HTTPSender struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	client   *http.Client
}

func NewHTTPSender(cfg Config) *HTTPSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSender{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
	}
}

type pushRequest struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

type pushResponse struct {
	Error string `json:"error"`
}

func (s *HTTPSender) Send(ctx context.Context, token string, p Payload) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := json.Marshal(pushRequest{To: token, Title: p.Title, Body: p.Body, Data: p.Data})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return ErrUnregistered
	default:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var pr pushResponse
		if json.Unmarshal(raw, &pr) == nil && isUnregistered(pr.Error) {
			return ErrUnregistered
		}
		return fmt.Errorf("push gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
}

// Providers report stale tokens with varying vocabulary.
func isUnregistered(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "unregistered") ||
		strings.Contains(msg, "devicenotregistered") ||
		strings.Contains(msg, "invalid registration")
}
