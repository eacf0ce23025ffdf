package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/plantcare/internal/api"
	"github.com/dmitrijs2005/plantcare/internal/common"
	"github.com/dmitrijs2005/plantcare/internal/netx"
	"github.com/dmitrijs2005/plantcare/internal/timex"
)

const (
	defaultTimeout  = 15 * time.Second
	maxResponseSize = 10 << 20
)

// HTTPClient talks to the plantcare server over HTTP+JSON. It never retries:
// retry and fallback policy belongs to the caller.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	// upload is used for presigned object-storage URLs, which must not see
	// the bearer token.
	upload *http.Client
	clock  timex.Clock
}

type Option func(*HTTPClient)

func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		c.http.Timeout = d
		c.upload.Timeout = d
	}
}

// WithClock sets the clock used to resolve HTTP-date Retry-After values.
func WithClock(clock timex.Clock) Option {
	return func(c *HTTPClient) { c.clock = clock }
}

// bearerTransport adds the Authorization header to every request.
type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if t.token == "" {
		return t.base.RoundTrip(r)
	}
	r2 := r.Clone(r.Context())
	r2.Header.Set(common.AuthorizationHeader, common.BearerPrefix+t.token)
	return t.base.RoundTrip(r2)
}

func NewHTTPClient(baseURL, token string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   defaultTimeout,
			Transport: &bearerTransport{token: token, base: http.DefaultTransport},
		},
		upload: &http.Client{Timeout: defaultTimeout},
		clock:  timex.RealClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	var resp api.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return &RemoteError{Kind: KindUnavailable, Message: "health status " + resp.Status}
	}
	return nil
}

func (c *HTTPClient) Identify(ctx context.Context, req api.IdentifyRequest) (*api.IdentifyResult, error) {
	var out api.IdentifyResult
	if err := c.do(ctx, http.MethodPost, "/identify", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) FetchGuide(ctx context.Context, id string) (*api.Guide, error) {
	var out api.Guide
	if err := c.do(ctx, http.MethodGet, "/guides/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) FetchGuidesByPlant(ctx context.Context, plantID string, filter api.GuideFilter, page api.Page) (*api.GuidePage, error) {
	q := url.Values{}
	if filter.DiseaseName != "" {
		q.Set("disease_name", filter.DiseaseName)
	}
	if page.Limit > 0 {
		q.Set("limit", strconv.Itoa(page.Limit))
	}
	if page.Offset > 0 {
		q.Set("offset", strconv.Itoa(page.Offset))
	}

	var out api.GuidePage
	if err := c.do(ctx, http.MethodGet, "/guides/by-plant/"+url.PathEscape(plantID), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) PushCollectionChanges(ctx context.Context, records []api.CollectionRecord) (*api.SyncAck, error) {
	var out api.SyncAck
	if err := c.do(ctx, http.MethodPost, "/collections/sync", nil, api.SyncRequest{Collections: records}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) PullChangesSince(ctx context.Context, since time.Time) ([]api.CollectionRecord, error) {
	q := url.Values{}
	if !since.IsZero() {
		q.Set("since", since.UTC().Format(time.RFC3339Nano))
	}

	var out []api.CollectionRecord
	if err := c.do(ctx, http.MethodGet, "/collections/changes", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) UpdateCollection(ctx context.Context, id string, p api.CollectionPatch) (*api.CollectionRecord, error) {
	var out api.CollectionRecord
	if err := c.do(ctx, http.MethodPatch, "/collections/"+url.PathEscape(id), nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) RecordCare(ctx context.Context, id string, req api.CareRequest) (*api.CareResponse, error) {
	var out api.CareResponse
	if err := c.do(ctx, http.MethodPost, "/collections/"+url.PathEscape(id)+"/care", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) PresignImageUpload(ctx context.Context) (*api.PresignResponse, error) {
	var out api.PresignResponse
	if err := c.do(ctx, http.MethodPost, "/collections/images/presign", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UploadImage(ctx context.Context, uploadURL, contentType string, body []byte) error {
	if err := netx.UploadToPresignedURL(ctx, c.upload, uploadURL, contentType, body); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &RemoteError{Kind: KindUnavailable, Err: err}
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, resp.Header, readErrorMessage(resp.Body), c.clock.Now())
	}

	if out == nil {
		return nil
	}
	if err := api.Decode(io.LimitReader(resp.Body, maxResponseSize), out); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	var er api.ErrorResponse
	if err := json.Unmarshal(b, &er); err == nil && er.Error != "" {
		if er.Detail != "" {
			return er.Error + ": " + er.Detail
		}
		return er.Error
	}
	return strings.TrimSpace(string(b))
}
