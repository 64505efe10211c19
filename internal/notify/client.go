package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Decision is the payload posted to the webhook when a submission is
// approved or rejected.
type Decision struct {
	SubmissionID string `json:"submission_id"`
	Kind         string `json:"kind"`
	StudentEmail string `json:"student_email"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	Credit       int    `json:"credit"`
	Remark       string `json:"remark,omitempty"`
}

// Client posts decision notifications to an external webhook, typically
// a mailer or chat bridge. With skip set it drops every call, which is
// the dev default.
type Client struct {
	baseURL string
	skip    bool
	http    *http.Client
}

// New creates a notification client.
func New(baseURL string, skip bool) *Client {
	return &Client{
		baseURL: baseURL,
		skip:    skip,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Health checks the webhook endpoint.
func (c *Client) Health(ctx context.Context) error {
	if c.skip {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: health returned %d", resp.StatusCode)
	}
	return nil
}

// SendDecision posts one decision event.
func (c *Client) SendDecision(ctx context.Context, d Decision) error {
	if c.skip {
		return nil
	}
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/notify", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook returned %d", resp.StatusCode)
	}
	return nil
}
