package httpapi

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fieldbook/videostats-gateway/internal/platform/logging"
	"github.com/fieldbook/videostats-gateway/internal/usecase"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	headerRequestID   = "X-Request-ID"
	maxRequestIDChars = 128
	rateLimiterTTL    = 10 * time.Minute
	rateLimiterSweep  = time.Minute
)

var errRateLimited = errors.New("rate limit exceeded")

// ForwardBearerToken carries the caller's bearer credential into the request
// context so outbound backend calls can reuse it. Tokens are not verified here.
func ForwardBearerToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
		if scheme, token, ok := strings.Cut(authHeader, " "); ok && strings.EqualFold(scheme, "Bearer") {
			ctx = usecase.WithAccessToken(ctx, strings.TrimSpace(token))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID propagates the inbound X-Request-ID or mints a new one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(headerRequestID))
		if requestID == "" || len(requestID) > maxRequestIDChars {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), requestID)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(p)
	s.bytes += n
	return n, err
}

func RequestLogging(logger *logging.Logger, trustedProxies []string, next http.Handler) http.Handler {
	trusted := newTrustedProxies(trustedProxies)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.RequestLogging")
		defer span.End()

		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r.WithContext(ctx))

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"remote_addr", resolveClientIP(r, trusted),
			"duration_ms", time.Since(started).Milliseconds(),
		}
		if status >= http.StatusInternalServerError {
			logger.WarnContext(ctx, "http request", args...)
			return
		}
		logger.InfoContext(ctx, "http request", args...)
	})
}

func RequestTracing(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "videostats-gateway-http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			if r.Pattern != "" {
				return r.Pattern
			}
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return shouldTraceRequest(r.URL.Path)
		}),
	)
}

// CaptureRequestBody records up to maxBytes of a write request's body on the
// active server span. The handler still reads the full body.
func CaptureRequestBody(maxBytes int, next http.Handler) http.Handler {
	if maxBytes <= 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		span := trace.SpanFromContext(r.Context())
		if !span.IsRecording() || r.Body == nil || !hasRequestBody(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		captured, err := io.ReadAll(io.LimitReader(r.Body, int64(maxBytes)))
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		r.Body = struct {
			io.Reader
			io.Closer
		}{Reader: io.MultiReader(bytes.NewReader(captured), r.Body), Closer: r.Body}

		span.SetAttributes(
			attribute.String("http.request.body", string(captured)),
			attribute.Bool("http.request.body.truncated", len(captured) == maxBytes),
		)
		next.ServeHTTP(w, r)
	})
}

func hasRequestBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

func shouldTraceRequest(path string) bool {
	normalized := strings.ToLower(strings.TrimSpace(path))
	switch normalized {
	case "/healthz", "/health", "/livez", "/readyz":
		return false
	default:
		return true
	}
}

func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	origins := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if candidate := strings.TrimSpace(origin); candidate != "" {
			origins = append(origins, candidate)
		}
	}

	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept", headerRequestID},
		ExposedHeaders:   []string{headerRequestID, headerCache, headerStatsSource, headerStatsStale},
		AllowCredentials: false,
		MaxAge:           600,
	}).Handler(next)
}

// clientRateLimiter keeps one token bucket per client address and forgets
// clients idle for longer than ttl. Idle clients are swept at most once per
// sweepEvery.
type clientRateLimiter struct {
	mu         sync.Mutex
	rps        rate.Limit
	burst      int
	ttl        time.Duration
	sweepEvery time.Duration
	lastSweep  time.Time
	clients    map[string]*rate.Limiter
	lastSeen   map[string]time.Time
	now        func() time.Time
}

func newClientRateLimiter(requestsPerSec float64, burst int) *clientRateLimiter {
	if requestsPerSec <= 0 || burst <= 0 {
		return nil
	}
	return &clientRateLimiter{
		rps:      rate.Limit(requestsPerSec),
		burst:    burst,
		ttl:        rateLimiterTTL,
		sweepEvery: rateLimiterSweep,
		clients:    make(map[string]*rate.Limiter),
		lastSeen:   make(map[string]time.Time),
		now:        time.Now,
	}
}

func (l *clientRateLimiter) allow(clientID string) bool {
	if clientID == "" {
		clientID = "unknown"
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.clients[clientID]
	if !exists {
		limiter = rate.NewLimiter(l.rps, l.burst)
		l.clients[clientID] = limiter
	}
	l.lastSeen[clientID] = now

	if now.Sub(l.lastSweep) >= l.sweepEvery {
		l.lastSweep = now
		for key, seenAt := range l.lastSeen {
			if now.Sub(seenAt) > l.ttl {
				delete(l.lastSeen, key)
				delete(l.clients, key)
			}
		}
	}

	return limiter.AllowN(now, 1)
}

// RateLimit applies a token bucket per client address. Forwarding headers are
// only consulted when the peer is one of trustedProxies.
func RateLimit(requestsPerSec float64, burst int, trustedProxies []string, next http.Handler) http.Handler {
	limiter := newClientRateLimiter(requestsPerSec, burst)
	if limiter == nil {
		return next
	}
	trusted := newTrustedProxies(trustedProxies)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !shouldTraceRequest(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if !limiter.allow(resolveClientIP(r, trusted)) {
			w.Header().Set("Retry-After", "1")
			writeError(r.Context(), w, errRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}
