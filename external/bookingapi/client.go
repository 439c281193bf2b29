package bookingapi

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/fieldbook/videostats-gateway/internal/domain/videolibrary"
	"github.com/fieldbook/videostats-gateway/internal/domain/videostats"
	"github.com/fieldbook/videostats-gateway/internal/platform/logging"
	"github.com/fieldbook/videostats-gateway/internal/platform/resilience"
	"github.com/fieldbook/videostats-gateway/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	videoStatsPath     = "/video-stats"
	videosPath         = "/videos"
	fieldsPath         = "/fields"
	videoLibraryPath   = "/videos/library"
	maxResponseBytes   = 4 << 20
	defaultTimeout     = 10 * time.Second
	defaultRetryDelay  = 500 * time.Millisecond
	maxLoggedBodyChars = 240
)

var (
	errBackendTransient = crerr.New("booking backend transient failure")
	errResponseTooLarge = crerr.New("booking backend response too large")
)

type ClientConfig struct {
	HTTPClient        *http.Client
	BaseURL           string
	Timeout           time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	RequestsPerSecond float64
	MaxResponseBytes  int64
	Logger            *logging.Logger
	CircuitBreaker    resilience.CircuitBreakerConfig
}

// Client talks to the booking REST backend that owns videos and their
// statistics. Responses are returned as raw JSON so callers can archive and
// normalize exactly what the backend sent.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	maxBody    int64
	retryDelay time.Duration
	limiter    *rate.Limiter
	logger     *logging.Logger
	breaker    *resilience.CircuitBreaker
	flight     singleflight.Group
	requests   metric.Int64Counter
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.HTTPClient != nil {
		copied := *cfg.HTTPClient
		httpClient = &copied
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	maxBody := cfg.MaxResponseBytes
	if maxBody <= 0 {
		maxBody = maxResponseBytes
	}

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		maxRetries: max(cfg.MaxRetries, 0),
		maxBody:    maxBody,
		retryDelay: retryDelay,
		limiter:    limiter,
		logger:     logger,
		breaker:    resilience.NewCircuitBreakerFromConfig(cfg.CircuitBreaker),
		requests:   requestCounter(),
	}
}

func requestCounter() metric.Int64Counter {
	counter, err := otel.Meter("videostats-gateway/external/bookingapi").Int64Counter(
		"videostats.backend.requests",
		metric.WithDescription("Booking backend calls by method and outcome."),
	)
	if err != nil {
		return nil
	}
	return counter
}

func (c *Client) GetVideoStats(ctx context.Context, videoID string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, videoStatsPath+"/"+url.PathEscape(videoID), nil, nil)
}

func (c *Client) CreateVideoStats(ctx context.Context, payload videostats.VideoStats) ([]byte, error) {
	return c.doPayload(ctx, http.MethodPost, videoStatsPath, payload)
}

func (c *Client) UpdateVideoStats(ctx context.Context, videoID string, payload videostats.VideoStats) ([]byte, error) {
	return c.doPayload(ctx, http.MethodPut, videoStatsPath+"/"+url.PathEscape(videoID), payload)
}

func (c *Client) DeleteVideoStats(ctx context.Context, videoID string) error {
	_, err := c.do(ctx, http.MethodDelete, videoStatsPath+"/"+url.PathEscape(videoID), nil, nil)
	return err
}

func (c *Client) AnalyzeVideo(ctx context.Context, videoID string) ([]byte, error) {
	return c.do(ctx, http.MethodPost, videosPath+"/"+url.PathEscape(videoID)+"/analyze", nil, []byte("{}"))
}

func (c *Client) ListFieldVideos(ctx context.Context, fieldID string) ([]videolibrary.Video, error) {
	raw, err := c.do(ctx, http.MethodGet, fieldsPath+"/"+url.PathEscape(fieldID)+"/videos/", nil, nil)
	if err != nil {
		return nil, err
	}
	videos, err := videolibrary.ParseVideos(raw)
	if err != nil {
		return nil, fmt.Errorf("decode field videos field_id=%s: %w", fieldID, err)
	}
	return videos, nil
}

func (c *Client) GetVideoLibrary(ctx context.Context, page, limit int) ([]byte, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))
	return c.do(ctx, http.MethodGet, videoLibraryPath, query, nil)
}

func (c *Client) doPayload(ctx context.Context, method, path string, payload videostats.VideoStats) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(payload); err != nil {
		return nil, crerr.Wrapf(err, "encode %s %s payload", method, path)
	}
	return c.do(ctx, method, path, nil, buf.B)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	fullURL := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	call := func() ([]byte, error) {
		var raw []byte
		err := c.breaker.Execute(func() error {
			var reqErr error
			raw, reqErr = c.executeRequest(ctx, method, fullURL, body)
			return reqErr
		}, isBackendCircuitFailure)
		if stderrors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.WarnContext(ctx, "booking backend circuit breaker rejected request", "method", method, "path", path, "state", c.breaker.State())
			c.record(ctx, method, "circuit_open")
			return nil, fmt.Errorf("%w: booking backend is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
		c.record(ctx, method, outcome(err))
		return raw, err
	}

	if method != http.MethodGet {
		return call()
	}

	key := method + " " + fullURL + " " + usecase.AccessTokenFromContext(ctx)
	out, err, _ := c.flight.Do(key, func() (any, error) {
		return call()
	})
	if err != nil {
		return nil, err
	}
	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}
	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, method, fullURL string, body []byte) ([]byte, error) {
	attempts := c.maxRetries + 1
	if method == http.MethodPost {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		raw, status, err := c.send(ctx, method, fullURL, body)
		switch {
		case stderrors.Is(err, errResponseTooLarge):
			return nil, fmt.Errorf("%w: %w", usecase.ErrDependencyUnavailable, err)
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			lastErr = fmt.Errorf("%w: %w: send request: %v", usecase.ErrDependencyUnavailable, errBackendTransient, err)
		case status >= 200 && status < 300:
			return raw, nil
		default:
			lastErr = statusError(method, status, raw)
			if !isRetryableStatus(status) {
				return nil, lastErr
			}
		}

		if attempt == attempts-1 {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * c.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: booking backend request failed", usecase.ErrDependencyUnavailable)
	}
	c.logger.WarnContext(ctx, "booking backend request failed",
		"request", buildCurlPreview(method, fullURL, body),
		"attempts", attempts,
		"error", lastErr,
	)
	return nil, lastErr
}

func (c *Client) send(ctx context.Context, method, fullURL string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, 0, crerr.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := usecase.AccessTokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if requestID := logging.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, 0, crerr.Wrap(err, "read response body")
	}
	if int64(len(raw)) > c.maxBody {
		return nil, resp.StatusCode, crerr.Wrapf(errResponseTooLarge, "status=%d limit=%d bytes", resp.StatusCode, c.maxBody)
	}
	return raw, resp.StatusCode, nil
}

func statusError(method string, status int, body []byte) error {
	detail := fmt.Sprintf("backend %s status=%d body=%s", method, status, abbreviateBody(body))
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", usecase.ErrNotFound, detail)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", usecase.ErrUnauthorized, detail)
	case status == http.StatusBadRequest || status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", usecase.ErrInvalidInput, detail)
	case isRetryableStatus(status):
		return fmt.Errorf("%w: %w: %s", usecase.ErrDependencyUnavailable, errBackendTransient, detail)
	default:
		return fmt.Errorf("%w: %s", usecase.ErrDependencyUnavailable, detail)
	}
}

func buildCurlPreview(method, fullURL string, body []byte) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("curl -X ")
	_, _ = buf.WriteString(method)
	_, _ = buf.WriteString(" '")
	_, _ = buf.WriteString(fullURL)
	_ = buf.WriteByte('\'')
	if len(body) > 0 {
		_, _ = buf.WriteString(" -H 'Content-Type: application/json' -d '")
		_, _ = buf.WriteString(strings.ReplaceAll(abbreviateBody(body), "'", `'\''`))
		_ = buf.WriteByte('\'')
	}
	return buf.String()
}

func (c *Client) record(ctx context.Context, method, result string) {
	if c.requests == nil {
		return
	}
	c.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", result),
	))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case stderrors.Is(err, usecase.ErrNotFound):
		return "not_found"
	case stderrors.Is(err, usecase.ErrUnauthorized):
		return "unauthorized"
	case stderrors.Is(err, usecase.ErrInvalidInput):
		return "rejected"
	case stderrors.Is(err, errBackendTransient):
		return "transient"
	default:
		return "error"
	}
}

func isBackendCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errBackendTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= maxLoggedBodyChars {
		return text
	}
	return text[:maxLoggedBodyChars] + "..."
}
