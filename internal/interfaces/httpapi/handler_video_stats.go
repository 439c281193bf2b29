package httpapi

import (
	"net/http"
	"strings"

	"github.com/fieldbook/videostats-gateway/internal/domain/videostats"
	"github.com/fieldbook/videostats-gateway/internal/usecase"
)

func (h *Handler) GetVideoStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetVideoStats")
	defer span.End()

	result, err := h.statsService.GetStats(ctx, strings.TrimSpace(r.PathValue("videoID")))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeStatsResult(ctx, w, http.StatusOK, result)
}

func (h *Handler) CreateVideoStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateVideoStats")
	defer span.End()

	body, err := readRawJSON(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.statsService.CreateStats(ctx, strings.TrimSpace(r.PathValue("videoID")), body)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeStatsResult(ctx, w, http.StatusCreated, result)
}

func (h *Handler) UpdateVideoStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateVideoStats")
	defer span.End()

	body, err := readRawJSON(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.statsService.UpdateStats(ctx, strings.TrimSpace(r.PathValue("videoID")), body)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeStatsResult(ctx, w, http.StatusOK, result)
}

func (h *Handler) DeleteVideoStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteVideoStats")
	defer span.End()

	videoID := strings.TrimSpace(r.PathValue("videoID"))
	if err := h.statsService.DeleteStats(ctx, videoID); err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"videoId": videoID, "status": "deleted"})
}

func (h *Handler) StartManualStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StartManualStats")
	defer span.End()

	var req startManualRequest
	if err := decodeStrict(r, &req, true); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.statsService.StartManual(ctx, strings.TrimSpace(r.PathValue("videoID")), req.SportType)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeStatsResult(ctx, w, http.StatusOK, result)
}

func (h *Handler) GenerateStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GenerateStats")
	defer span.End()

	var req generateStatsRequest
	if err := decodeStrict(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.statsService.Generate(ctx, usecase.GenerateInput{
		VideoID:   strings.TrimSpace(r.PathValue("videoID")),
		Model:     req.Model,
		SportType: req.SportType,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeStatsResult(ctx, w, http.StatusOK, result)
}

func (h *Handler) RecordEvents(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RecordEvents")
	defer span.End()

	var req recordEventsRequest
	if err := decodeStrict(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	events := make([]videostats.ManualEvent, 0, len(req.Events))
	for _, item := range req.Events {
		eventID, err := h.eventID(item)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		events = append(events, item.toDomain(eventID))
	}

	result, err := h.statsService.RecordEvents(ctx, usecase.RecordEventsInput{
		VideoID:   strings.TrimSpace(r.PathValue("videoID")),
		SportType: req.SportType,
		Events:    events,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeStatsResult(ctx, w, http.StatusOK, result)
}

func (h *Handler) AnalyzeVideo(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AnalyzeVideo")
	defer span.End()

	result, err := h.statsService.Analyze(ctx, strings.TrimSpace(r.PathValue("videoID")))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeStatsResult(ctx, w, http.StatusOK, result)
}

func (h *Handler) ListFieldVideoStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListFieldVideoStats")
	defer span.End()

	items, err := h.statsService.ListFieldVideoStats(ctx, strings.TrimSpace(r.PathValue("fieldID")))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	out := make([]fieldVideoStatsDTO, 0, len(items))
	for _, item := range items {
		out = append(out, fieldVideoStatsDTO{Video: item.Video, Stats: item.Stats})
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) GetVideoLibrary(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetVideoLibrary")
	defer span.End()

	page, err := parseOptionalInt(r, "page")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	limit, err := parseOptionalInt(r, "limit")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.statsService.GetLibrary(ctx, page, limit)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) Normalize(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Normalize")
	defer span.End()

	body, err := readRawJSON(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result := h.statsService.Normalize(ctx, body)
	writeSuccess(ctx, w, http.StatusOK, normalizeResponseDTO{
		Stats:       result.Stats,
		StatsSource: result.Source,
	})
}
