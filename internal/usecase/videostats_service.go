package usecase

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/fieldbook/videostats-gateway/internal/domain/rawdata"
	"github.com/fieldbook/videostats-gateway/internal/domain/videolibrary"
	"github.com/fieldbook/videostats-gateway/internal/domain/videostats"
	"github.com/fieldbook/videostats-gateway/internal/platform/logging"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	defaultFanoutWorkers = 8
	analysisModelMarker  = "gemini"
)

// VideoStatsBackend is the REST backend that owns videos and their stats.
// Stats responses are raw JSON bodies.
type VideoStatsBackend interface {
	GetVideoStats(ctx context.Context, videoID string) ([]byte, error)
	CreateVideoStats(ctx context.Context, payload videostats.VideoStats) ([]byte, error)
	UpdateVideoStats(ctx context.Context, videoID string, payload videostats.VideoStats) ([]byte, error)
	DeleteVideoStats(ctx context.Context, videoID string) error
	AnalyzeVideo(ctx context.Context, videoID string) ([]byte, error)
	ListFieldVideos(ctx context.Context, fieldID string) ([]videolibrary.Video, error)
	GetVideoLibrary(ctx context.Context, page, limit int) ([]byte, error)
}

// StatsCache caches raw backend bodies by key.
type StatsCache interface {
	GetOrLoad(ctx context.Context, key string, load func(context.Context) ([]byte, error)) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

type StatsResult struct {
	Stats  videostats.VideoStats
	Source videostats.StatsSource
	Stale  bool
	Cached bool
}

type GenerateInput struct {
	VideoID   string
	Model     string
	SportType string
}

type RecordEventsInput struct {
	VideoID   string
	SportType string
	Events    []videostats.ManualEvent
}

type FieldVideoStats struct {
	Video videolibrary.Video
	Stats *videostats.VideoStats
}

type VideoStatsService struct {
	backend       VideoStatsBackend
	cache         StatsCache
	archive       rawdata.Repository
	logger        *logging.Logger
	fanoutWorkers int
	now           func() time.Time
	reconciled    metric.Int64Counter
}

func NewVideoStatsService(
	backend VideoStatsBackend,
	cache StatsCache,
	archive rawdata.Repository,
	logger *logging.Logger,
	fanoutWorkers int,
) *VideoStatsService {
	if logger == nil {
		logger = logging.Default()
	}
	if fanoutWorkers <= 0 {
		fanoutWorkers = defaultFanoutWorkers
	}

	return &VideoStatsService{
		backend:       backend,
		cache:         cache,
		archive:       archive,
		logger:        logger,
		fanoutWorkers: fanoutWorkers,
		now:           time.Now,
		reconciled:    reconcileCounter(),
	}
}

// GetStats returns the canonical record for a video. When the backend is
// unavailable the last archived body is normalized instead and the result is
// marked stale.
func (s *VideoStatsService) GetStats(ctx context.Context, videoID string) (StatsResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.VideoStatsService.GetStats")
	defer span.End()

	videoID, err := requireVideoID(videoID)
	if err != nil {
		return StatsResult{}, err
	}

	raw, cached, err := s.load(ctx, videoID)
	if err != nil {
		if errors.Is(err, ErrDependencyUnavailable) {
			if result, ok := s.fromArchive(ctx, videoID); ok {
				return result, nil
			}
		}
		return StatsResult{}, fmt.Errorf("get video stats video_id=%s: %w", videoID, err)
	}
	if !cached {
		s.archiveBody(ctx, videoID, raw)
	}

	result := s.normalize(ctx, videoID, raw)
	result.Cached = cached
	return result, nil
}

// CreateStats normalizes a body of any supported shape and creates it on the
// backend for videoID.
func (s *VideoStatsService) CreateStats(ctx context.Context, videoID string, body []byte) (StatsResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.VideoStatsService.CreateStats")
	defer span.End()

	videoID, err := requireVideoID(videoID)
	if err != nil {
		return StatsResult{}, err
	}

	payload := videostats.NormalizeJSON(body)
	payload.VideoID = videoID
	return s.create(ctx, payload.WithMirroredStatistics())
}

// UpdateStats normalizes a body of any supported shape and replaces the
// backend record for videoID.
func (s *VideoStatsService) UpdateStats(ctx context.Context, videoID string, body []byte) (StatsResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.VideoStatsService.UpdateStats")
	defer span.End()

	videoID, err := requireVideoID(videoID)
	if err != nil {
		return StatsResult{}, err
	}

	payload := videostats.NormalizeJSON(body)
	payload.VideoID = videoID
	return s.update(ctx, payload.WithMirroredStatistics())
}

func (s *VideoStatsService) DeleteStats(ctx context.Context, videoID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.VideoStatsService.DeleteStats")
	defer span.End()

	videoID, err := requireVideoID(videoID)
	if err != nil {
		return err
	}

	if err := s.backend.DeleteVideoStats(ctx, videoID); err != nil {
		return fmt.Errorf("delete video stats video_id=%s: %w", videoID, err)
	}

	s.invalidate(ctx, videoID)
	if s.archive != nil {
		err := s.archive.Delete(ctx, rawdata.EntityVideoStats, videoID)
		if err != nil && !errors.Is(err, rawdata.ErrNotFound) {
			s.logger.WarnContext(ctx, "delete archived video stats failed", "video_id", videoID, "error", err)
		}
	}
	return nil
}

// StartManual creates the empty manual-scoring record for a video.
func (s *VideoStatsService) StartManual(ctx context.Context, videoID, sportType string) (StatsResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.VideoStatsService.StartManual")
	defer span.End()

	videoID, err := requireVideoID(videoID)
	if err != nil {
		return StatsResult{}, err
	}

	payload := videostats.NewManual(videoID, videostats.ParseSportType(sportType))
	return s.create(ctx, payload.WithMirroredStatistics())
}

// Generate runs model analysis for analysis models and otherwise stores a
// record tagged with the requested model, updating an existing record when
// there is one.
func (s *VideoStatsService) Generate(ctx context.Context, input GenerateInput) (StatsResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.VideoStatsService.Generate")
	defer span.End()

	videoID, err := requireVideoID(input.VideoID)
	if err != nil {
		return StatsResult{}, err
	}
	model := strings.TrimSpace(input.Model)
	if model == "" {
		return StatsResult{}, fmt.Errorf("%w: model is required", ErrInvalidInput)
	}

	if strings.Contains(strings.ToLower(model), analysisModelMarker) {
		return s.Analyze(ctx, videoID)
	}

	current, exists, err := s.current(ctx, videoID, input.SportType)
	if err != nil {
		return StatsResult{}, err
	}
	current.GeneratedByModel = model
	if strings.TrimSpace(input.SportType) != "" {
		current.SportType = videostats.ParseSportType(input.SportType)
	}

	payload := current.WithMirroredStatistics()
	if exists {
		return s.update(ctx, payload)
	}
	return s.create(ctx, payload)
}

// RecordEvents appends manually recorded events to the video's record and
// recomputes its match statistics from the combined list.
func (s *VideoStatsService) RecordEvents(ctx context.Context, input RecordEventsInput) (StatsResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.VideoStatsService.RecordEvents")
	defer span.End()

	videoID, err := requireVideoID(input.VideoID)
	if err != nil {
		return StatsResult{}, err
	}
	if len(input.Events) == 0 {
		return StatsResult{}, fmt.Errorf("%w: at least one event is required", ErrInvalidInput)
	}

	current, exists, err := s.current(ctx, videoID, input.SportType)
	if err != nil {
		return StatsResult{}, err
	}

	payload := current.AppendEvents(input.Events...)
	if exists {
		return s.update(ctx, payload)
	}
	return s.create(ctx, payload)
}

// Analyze asks the backend to run model analysis on a video.
func (s *VideoStatsService) Analyze(ctx context.Context, videoID string) (StatsResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.VideoStatsService.Analyze")
	defer span.End()

	videoID, err := requireVideoID(videoID)
	if err != nil {
		return StatsResult{}, err
	}

	raw, err := s.backend.AnalyzeVideo(ctx, videoID)
	if err != nil {
		return StatsResult{}, fmt.Errorf("analyze video video_id=%s: %w", videoID, err)
	}
	s.invalidate(ctx, videoID)
	s.archiveBody(ctx, videoID, raw)
	return s.normalize(ctx, videoID, raw), nil
}

// ListFieldVideoStats lists a field's videos with their canonical stats.
// Videos without a stats record carry nil stats.
func (s *VideoStatsService) ListFieldVideoStats(ctx context.Context, fieldID string) ([]FieldVideoStats, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.VideoStatsService.ListFieldVideoStats")
	defer span.End()

	fieldID = strings.TrimSpace(fieldID)
	if fieldID == "" {
		return nil, fmt.Errorf("%w: field id is required", ErrInvalidInput)
	}

	videos, err := s.backend.ListFieldVideos(ctx, fieldID)
	if err != nil {
		return nil, fmt.Errorf("list field videos field_id=%s: %w", fieldID, err)
	}
	out := make([]FieldVideoStats, len(videos))
	if len(videos) == 0 {
		return out, nil
	}

	pool, err := ants.NewPool(min(s.fanoutWorkers, len(videos)))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		workers  sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)
	for idx, video := range videos {
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			out[idx] = FieldVideoStats{Video: video}
			result, err := s.GetStats(ctx, video.ID)
			switch {
			case err == nil:
				stats := result.Stats
				out[idx].Stats = &stats
			case errors.Is(err, ErrNotFound):
			default:
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
			}
		}); err != nil {
			workers.Done()
			workers.Wait()
			return nil, fmt.Errorf("submit task to worker pool: %w", err)
		}
	}
	workers.Wait()

	if firstErr != nil {
		return nil, fmt.Errorf("load stats for field field_id=%s: %w", fieldID, firstErr)
	}
	return out, nil
}

func (s *VideoStatsService) GetLibrary(ctx context.Context, page, limit int) (videolibrary.Page, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.VideoStatsService.GetLibrary")
	defer span.End()

	page, limit = videolibrary.ClampPaging(page, limit)
	raw, err := s.backend.GetVideoLibrary(ctx, page, limit)
	if err != nil {
		return videolibrary.Page{}, fmt.Errorf("get video library page=%d limit=%d: %w", page, limit, err)
	}
	return videolibrary.NormalizePageJSON(raw, page, limit), nil
}

// Normalize runs the normalization routine over body without touching the
// backend.
func (s *VideoStatsService) Normalize(ctx context.Context, body []byte) StatsResult {
	result := videostats.InspectJSON(body)
	s.countReconcile(ctx, result)
	return StatsResult{Stats: result.Stats, Source: result.Source}
}

func (s *VideoStatsService) create(ctx context.Context, payload videostats.VideoStats) (StatsResult, error) {
	raw, err := s.backend.CreateVideoStats(ctx, payload)
	if err != nil {
		return StatsResult{}, fmt.Errorf("create video stats video_id=%s: %w", payload.VideoID, err)
	}
	return s.stored(ctx, payload, raw), nil
}

func (s *VideoStatsService) update(ctx context.Context, payload videostats.VideoStats) (StatsResult, error) {
	raw, err := s.backend.UpdateVideoStats(ctx, payload.VideoID, payload)
	if err != nil {
		return StatsResult{}, fmt.Errorf("update video stats video_id=%s: %w", payload.VideoID, err)
	}
	return s.stored(ctx, payload, raw), nil
}

// stored caches and archives the backend's echo of a write. Backends that
// answer writes without a body are treated as echoing the payload.
func (s *VideoStatsService) stored(ctx context.Context, payload videostats.VideoStats, raw []byte) StatsResult {
	if len(bytes.TrimSpace(raw)) == 0 {
		encoded, err := sonic.Marshal(payload)
		if err != nil {
			s.logger.WarnContext(ctx, "encode written video stats failed", "video_id", payload.VideoID, "error", err)
			return StatsResult{Stats: payload, Source: videostats.SourceDeclared}
		}
		raw = encoded
	}

	s.invalidate(ctx, payload.VideoID)
	if s.cache != nil {
		if err := s.cache.Set(ctx, statsCacheKey(ctx, payload.VideoID), raw); err != nil {
			s.logger.WarnContext(ctx, "cache video stats failed", "video_id", payload.VideoID, "error", err)
		}
	}
	s.archiveBody(ctx, payload.VideoID, raw)
	return s.normalize(ctx, payload.VideoID, raw)
}

// current fetches the live record for a read-modify-write. A missing record
// yields the manual defaults with exists=false.
func (s *VideoStatsService) current(ctx context.Context, videoID, sportType string) (videostats.VideoStats, bool, error) {
	raw, err := s.backend.GetVideoStats(ctx, videoID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return videostats.NewManual(videoID, videostats.ParseSportType(sportType)), false, nil
		}
		return videostats.VideoStats{}, false, fmt.Errorf("get video stats video_id=%s: %w", videoID, err)
	}

	stats := videostats.NormalizeJSON(raw)
	stats.VideoID = videoID
	return stats, true, nil
}

func (s *VideoStatsService) load(ctx context.Context, videoID string) ([]byte, bool, error) {
	fetch := func(ctx context.Context) ([]byte, error) {
		return s.backend.GetVideoStats(ctx, videoID)
	}
	if s.cache == nil {
		raw, err := fetch(ctx)
		return raw, false, err
	}
	return s.cache.GetOrLoad(ctx, statsCacheKey(ctx, videoID), fetch)
}

func (s *VideoStatsService) fromArchive(ctx context.Context, videoID string) (StatsResult, bool) {
	if s.archive == nil {
		return StatsResult{}, false
	}

	item, err := s.archive.Get(ctx, rawdata.EntityVideoStats, videoID)
	if err != nil {
		if !errors.Is(err, rawdata.ErrNotFound) {
			s.logger.WarnContext(ctx, "read archived video stats failed", "video_id", videoID, "error", err)
		}
		return StatsResult{}, false
	}

	s.logger.WarnContext(ctx, "serving archived video stats", "video_id", videoID, "fetched_at", item.FetchedAt)
	result := s.normalize(ctx, videoID, []byte(item.PayloadJSON))
	result.Stale = true
	return result, true
}

func (s *VideoStatsService) archiveBody(ctx context.Context, videoID string, raw []byte) {
	if s.archive == nil || len(raw) == 0 {
		return
	}

	item := rawdata.NewPayload(rawdata.SourceBookingAPI, rawdata.EntityVideoStats, videoID, raw, s.now())
	if err := s.archive.Upsert(ctx, item); err != nil {
		s.logger.WarnContext(ctx, "archive video stats failed", "video_id", videoID, "error", err)
	}
}

func (s *VideoStatsService) normalize(ctx context.Context, videoID string, raw []byte) StatsResult {
	result := videostats.InspectJSON(raw)
	if result.Stats.VideoID == "" {
		result.Stats.VideoID = videoID
	}
	s.countReconcile(ctx, result)

	s.logger.DebugContext(ctx, "normalized video stats",
		"video_id", videoID,
		"shape", result.Shape,
		"stats_source", result.Source,
	)
	return StatsResult{Stats: result.Stats, Source: result.Source}
}

func (s *VideoStatsService) countReconcile(ctx context.Context, result videostats.Normalization) {
	if s.reconciled == nil {
		return
	}
	s.reconciled.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", string(result.Source)),
		attribute.String("shape", string(result.Shape)),
	))
}

func requireVideoID(videoID string) (string, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return "", fmt.Errorf("%w: video id is required", ErrInvalidInput)
	}
	return videoID, nil
}

// invalidate drops the cached record of videoID for every caller.
func (s *VideoStatsService) invalidate(ctx context.Context, videoID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePrefix(ctx, statsCachePrefix(videoID)); err != nil {
		s.logger.WarnContext(ctx, "invalidate video stats cache failed", "video_id", videoID, "error", err)
	}
}

func statsCachePrefix(videoID string) string {
	return "video-stats:" + videoID + ":"
}

// statsCacheKey scopes a cached record to the caller's bearer token.
func statsCacheKey(ctx context.Context, videoID string) string {
	token := AccessTokenFromContext(ctx)
	if token == "" {
		return statsCachePrefix(videoID) + "anonymous"
	}
	sum := sha256.Sum256([]byte(token))
	return statsCachePrefix(videoID) + hex.EncodeToString(sum[:12])
}
