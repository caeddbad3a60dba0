package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pixelstudio/internal/domain"
	"pixelstudio/internal/infra"
)

// ErrMissingBaseURL indicates that the client was configured without an endpoint.
var ErrMissingBaseURL = errors.New("status: base url is required")

// maxBodyBytes bounds how much of a status response is read.
const maxBodyBytes = 1 << 20

// Options configures the generation status client.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client fetches generation status from GET <base>/{requestId}[?type=video].
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("status: invalid base url: %w", err)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, logger: logger}, nil
}

// BaseURL returns the configured status endpoint root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchStatus performs one status request. A 404 maps to domain.ErrJobNotFound;
// every other failure is returned as a plain error so callers can retry.
func (c *Client) FetchStatus(ctx context.Context, requestID string, kind domain.JobKind) (*domain.StatusPayload, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return nil, errors.New("status: request id is required")
	}
	endpoint := c.baseURL + "/" + url.PathEscape(requestID)
	if kind == domain.JobKindVideo {
		endpoint += "?type=video"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("status: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("status: read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("status: %s: %w", requestID, domain.ErrJobNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil {
			if msg := firstNonEmpty(detail.Error, detail.Message); msg != "" {
				return nil, fmt.Errorf("status: status %d: %s", resp.StatusCode, msg)
			}
		}
		return nil, fmt.Errorf("status: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var payload domain.StatusPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("status: decode response: %w", err)
	}
	c.logger.Debug().
		Str("request_id", requestID).
		Str("kind", string(kind)).
		Str("status", payload.Status).
		Msg("status: fetched")
	return &payload, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
