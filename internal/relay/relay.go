// Package relay forwards verdicts to a second service.
//
// Relaying happens after the verdict is computed and off the request path.
// A slow or failing receiver is logged and never affects the audit result.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ppiankov/callaudit/internal/model"
)

const (
	defaultTimeout = 5 * time.Second
	maxAttempts    = 3
)

// relaySleepFunc is the sleep function used between attempts (overridable in tests)
var relaySleepFunc = time.Sleep

// Event is the JSON body posted to the receiver
type Event struct {
	CallID       string     `json:"call_id"`
	Tier         model.Tier `json:"tier"`
	Indicator    string     `json:"indicator"`
	Findings     []string   `json:"findings"`
	Sentiment    float64    `json:"sentiment"`
	Drift        float64    `json:"drift"`
	Disclosure   bool       `json:"disclosure"`
	RulesVersion string     `json:"rules_version,omitempty"`
	AuditedAt    time.Time  `json:"audited_at"`
}

// NewEvent builds the relay body for a verdict
func NewEvent(callID string, v model.Verdict, at time.Time) Event {
	findings := v.Findings
	if findings == nil {
		findings = []string{}
	}
	return Event{
		CallID:       callID,
		Tier:         v.Tier,
		Indicator:    v.Indicator,
		Findings:     findings,
		Sentiment:    v.Sentiment,
		Drift:        v.Drift,
		Disclosure:   v.Disclosure,
		RulesVersion: v.RulesVersion,
		AuditedAt:    at.UTC(),
	}
}

// Client posts events to one receiver URL
type Client struct {
	url        string
	headers    map[string]string
	httpClient *http.Client
}

// NewClient returns nil when cfg has no URL (callers should nil-check)
func NewClient(cfg model.RelayConfig) *Client {
	if cfg.URL == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:        cfg.URL,
		headers:    cfg.Headers,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// URL returns the receiver address
func (c *Client) URL() string { return c.url }

// Send posts an event with retry on 5xx and transport errors. 4xx fails fast.
func (c *Client) Send(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			relaySleepFunc(time.Duration(attempt) * time.Second)
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("relay cancelled: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return fmt.Errorf("relay rejected: HTTP %d", resp.StatusCode)
		}
		lastErr = fmt.Errorf("relay server error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("relay failed after %d attempts: %w", maxAttempts, lastErr)
}
