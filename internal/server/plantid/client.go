// Package plantid is a client for the Plant.id identification API. It
// retries transport failures and 5xx answers and normalises both the v3 and
// the legacy response shapes into api.IdentifyResult.
package plantid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/plantcare/internal/api"
	"github.com/dmitrijs2005/plantcare/internal/logging"
)

const (
	identifyPath = "/api/v3/identification"
	details      = "common_names,description,best_watering,best_light_condition"

	DefaultBackoffBase = 200 * time.Millisecond
	DefaultAttempts    = 3

	maxResponseSize = 4 << 20
)

// UpstreamError reports a failed call to the provider. Status is 0 when no
// HTTP response was received.
type UpstreamError struct {
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("plant.id unreachable: %v", e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("plant.id returned %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("plant.id returned %d", e.Status)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

type Client struct {
	baseURL     string
	apiKey      string
	http        *http.Client
	backoffBase time.Duration
	attempts    uint64
	log         logging.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithBackoff sets the first retry delay and the total number of attempts.
func WithBackoff(base time.Duration, attempts int) Option {
	return func(c *Client) {
		c.backoffBase = base
		if attempts > 0 {
			c.attempts = uint64(attempts)
		}
	}
}

func New(baseURL, apiKey string, logger logging.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		http:        &http.Client{Timeout: 30 * time.Second},
		backoffBase: DefaultBackoffBase,
		attempts:    DefaultAttempts,
		log:         logger.With("module", "plantid"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type identifyBody struct {
	Images        []string `json:"images"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	SimilarImages bool     `json:"similar_images"`
	Health        string   `json:"health,omitempty"`
}

// Identify sends req to the provider and returns the normalised result.
// Upstream failures are *UpstreamError; an unusable body is *api.ParseError.
func (c *Client) Identify(ctx context.Context, req api.IdentifyRequest) (*api.IdentifyResult, error) {
	image := strings.TrimSpace(req.ImageURL)
	if image == "" {
		image = req.ImageBase64
	}
	body := identifyBody{Images: []string{image}, Latitude: req.Latitude, Longitude: req.Longitude, SimilarImages: true}
	if req.Health {
		body.Health = "all"
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	raw, err := c.post(ctx, payload)
	if err != nil {
		return nil, err
	}
	return Normalize(raw)
}

func (c *Client) post(ctx context.Context, payload []byte) ([]byte, error) {
	backoff := retry.WithMaxRetries(c.attempts-1, retry.NewExponential(c.backoffBase))

	var out []byte
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		b, err := c.once(ctx, payload)
		if err == nil {
			out = b
			return nil
		}

		var ue *UpstreamError
		if errors.As(err, &ue) && (ue.Status == 0 || ue.Status >= http.StatusInternalServerError) && ctx.Err() == nil {
			c.log.Warn(ctx, "plant.id call failed, retrying", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) once(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+identifyPath+"?details="+details, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &UpstreamError{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Status: resp.StatusCode, Err: errors.New(snippet(b))}
	}
	return b, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
