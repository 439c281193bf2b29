package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/fieldbook/videostats-gateway/internal/domain/videolibrary"
	"github.com/fieldbook/videostats-gateway/internal/domain/videostats"
	"github.com/fieldbook/videostats-gateway/internal/usecase"
)

const maxRequestBodyBytes = 1 << 20

const (
	headerStatsSource = "X-Stats-Source"
	headerStatsStale  = "X-Stats-Stale"
	headerCache       = "X-Cache"
)

type generateStatsRequest struct {
	Model     string `json:"model" validate:"required,max=100"`
	SportType string `json:"sportType" validate:"omitempty,oneof=football padel tennis basketball other"`
}

type startManualRequest struct {
	SportType string `json:"sportType" validate:"omitempty,oneof=football padel tennis basketball other"`
}

type recordEventsRequest struct {
	SportType string                `json:"sportType" validate:"omitempty,oneof=football padel tennis basketball other"`
	Events    []manualEventRequest `json:"events" validate:"required,min=1,max=500,dive"`
}

type manualEventRequest struct {
	ID   string  `json:"id" validate:"omitempty,max=64"`
	Time float64 `json:"time" validate:"gte=0"`
	Type string  `json:"type" validate:"required,oneof=pass shot goal foul other"`
	Team string  `json:"team" validate:"required,oneof=A B"`
	Note string  `json:"note" validate:"omitempty,max=2000"`
}

func (r manualEventRequest) toDomain(eventID string) videostats.ManualEvent {
	return videostats.ManualEvent{
		ID:   eventID,
		Time: r.Time,
		Type: videostats.EventType(r.Type),
		Team: videostats.Side(r.Team),
		Note: r.Note,
	}
}

type fieldVideoStatsDTO struct {
	Video videolibrary.Video     `json:"video"`
	Stats *videostats.VideoStats `json:"stats"`
}

type normalizeResponseDTO struct {
	Stats       videostats.VideoStats  `json:"stats"`
	StatsSource videostats.StatsSource `json:"statsSource"`
}

// eventID keeps a client supplied id and otherwise issues a fresh one so
// events recorded in separate calls never collide.
func (h *Handler) eventID(req manualEventRequest) (string, error) {
	if trimmed := strings.TrimSpace(req.ID); trimmed != "" {
		return trimmed, nil
	}
	value, err := h.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("assign event id: %w", err)
	}
	return value, nil
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// decodeStrict decodes a typed request body, rejecting unknown fields. An
// empty body is accepted when allowEmpty is set.
func decodeStrict(r *http.Request, dst any, allowEmpty bool) error {
	decoder := jsoniter.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

// readRawJSON returns the request body untouched for shape-agnostic
// endpoints. Only well-formedness is checked here.
func readRawJSON(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read request body: %v", usecase.ErrInvalidInput, err)
	}
	if len(body) > maxRequestBodyBytes {
		return nil, fmt.Errorf("%w: request body exceeds %d bytes", usecase.ErrInvalidInput, maxRequestBodyBytes)
	}
	if !jsoniter.ConfigCompatibleWithStandardLibrary.Valid(body) {
		return nil, fmt.Errorf("%w: invalid JSON payload", usecase.ErrInvalidInput)
	}
	return body, nil
}

func parseOptionalInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", usecase.ErrInvalidInput, key)
	}
	return value, nil
}

func writeStatsResult(ctx context.Context, w http.ResponseWriter, status int, result usecase.StatsResult) {
	w.Header().Set(headerStatsSource, string(result.Source))
	if result.Stale {
		w.Header().Set(headerStatsStale, "true")
	}
	if result.Cached {
		w.Header().Set(headerCache, "HIT")
	} else {
		w.Header().Set(headerCache, "MISS")
	}
	writeSuccess(ctx, w, status, result.Stats)
}
