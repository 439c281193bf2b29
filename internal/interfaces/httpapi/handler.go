package httpapi

import (
	"net/http"

	"github.com/fieldbook/videostats-gateway/internal/platform/id"
	"github.com/fieldbook/videostats-gateway/internal/platform/logging"
	"github.com/fieldbook/videostats-gateway/internal/usecase"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	statsService *usecase.VideoStatsService
	logger       *logging.Logger
	validator    *validator.Validate
	ids          id.Generator
}

func NewHandler(statsService *usecase.VideoStatsService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		statsService: statsService,
		logger:       logger,
		validator:    validator.New(),
		ids:          id.NewUUIDGenerator(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}
