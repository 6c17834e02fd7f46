// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// DefaultPostmarkURL is the Postmark single-message endpoint.
const DefaultPostmarkURL = "https://api.postmarkapp.com/email"

const (
	defaultMaxRetries = 3
	defaultRetryBase  = 200 * time.Millisecond
	defaultRetryCap   = 5 * time.Second
	requestTimeout    = 10 * time.Second
)

// PostmarkClient sends messages through the Postmark HTTP API.
// Network errors, 429 and 5xx responses are retried with exponential
// backoff; other 4xx responses fail immediately.
type PostmarkClient struct {
	serverToken string
	from        string
	endpoint    string
	httpClient  *http.Client
	maxRetries  uint64
	retryBase   time.Duration
}

// PostmarkOption configures a PostmarkClient.
type PostmarkOption func(*PostmarkClient)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) PostmarkOption {
	return func(pc *PostmarkClient) {
		pc.httpClient = c
	}
}

// WithEndpoint overrides the API URL.
func WithEndpoint(url string) PostmarkOption {
	return func(pc *PostmarkClient) {
		pc.endpoint = url
	}
}

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n uint64) PostmarkOption {
	return func(pc *PostmarkClient) {
		pc.maxRetries = n
	}
}

// WithRetryBase sets the first backoff interval.
func WithRetryBase(d time.Duration) PostmarkOption {
	return func(pc *PostmarkClient) {
		if d > 0 {
			pc.retryBase = d
		}
	}
}

// NewPostmarkClient creates a PostmarkClient sending as from.
func NewPostmarkClient(serverToken, from string, opts ...PostmarkOption) (*PostmarkClient, error) {
	if serverToken == "" {
		return nil, oops.Code("MAIL_NOT_CONFIGURED").Errorf("postmark server token is required")
	}
	if from == "" {
		return nil, oops.Code("MAIL_NOT_CONFIGURED").Errorf("sender address is required")
	}
	c := &PostmarkClient{
		serverToken: serverToken,
		from:        from,
		endpoint:    DefaultPostmarkURL,
		httpClient:  &http.Client{Timeout: requestTimeout},
		maxRetries:  defaultMaxRetries,
		retryBase:   defaultRetryBase,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody,omitempty"` //nolint:revive // Postmark field name
	TextBody string `json:"TextBody,omitempty"`
}

type postmarkResponse struct {
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
	MessageID string `json:"MessageID"`
}

// Send delivers msg.
func (c *PostmarkClient) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(postmarkEmail{
		From:     c.from,
		To:       msg.To,
		Subject:  msg.Subject,
		HtmlBody: msg.HTMLBody,
		TextBody: msg.TextBody,
	})
	if err != nil {
		return oops.Code("MAIL_ENCODE_FAILED").Wrap(err)
	}

	backoff := retry.WithMaxRetries(c.maxRetries,
		retry.WithCappedDuration(defaultRetryCap,
			retry.WithJitterPercent(10, retry.NewExponential(c.retryBase))))

	attempts := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		return c.post(ctx, body)
	})
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("to", msg.To).
			With("attempts", attempts).
			Wrap(err)
	}
	return nil
}

// post makes one API call. Transient failures are marked retryable.
func (c *PostmarkClient) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return oops.Code("MAIL_REQUEST_FAILED").Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return retry.RetryableError(oops.Code("MAIL_TRANSPORT_FAILED").Wrap(err))
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		return nil
	}

	var pr postmarkResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&pr) //nolint:errcheck // error body is best effort
	apiErr := oops.Code("MAIL_API_ERROR").
		With("status", resp.StatusCode).
		With("postmark_error_code", pr.ErrorCode).
		Errorf("postmark API error: status %d: %s", resp.StatusCode, pr.Message)

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return retry.RetryableError(apiErr)
	}
	return apiErr
}
