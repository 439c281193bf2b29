package httpapi

import (
	"net/http"

	"github.com/fieldbook/videostats-gateway/internal/platform/logging"
)

type RouterConfig struct {
	Logger             *logging.Logger
	SwaggerEnabled     bool
	CORSAllowedOrigins []string
	RateLimitEnabled   bool
	RateLimitRPS       float64
	RateLimitBurst     int
	TrustedProxies     []string

	// CaptureRequestBodyBytes > 0 attaches request bodies to server spans.
	CaptureRequestBodyBytes int
}

func NewRouter(handler *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, cfg.SwaggerEnabled)
	registerVideoStatsRoutes(mux, handler)
	registerLibraryRoutes(mux, handler)

	var next http.Handler = ForwardBearerToken(recoverPanic(logger, mux))
	if cfg.RateLimitEnabled {
		next = RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.TrustedProxies, next)
	}

	next = CaptureRequestBody(cfg.CaptureRequestBodyBytes, next)

	return RequestTracing(RequestID(RequestLogging(logger, cfg.TrustedProxies, CORS(cfg.CORSAllowedOrigins, next))))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.recoverPanic")
		defer span.End()

		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered", "panic", rec)
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
