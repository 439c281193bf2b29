package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fieldbook/videostats-gateway/internal/domain/rawdata"
	"github.com/fieldbook/videostats-gateway/internal/domain/videolibrary"
	"github.com/fieldbook/videostats-gateway/internal/domain/videostats"
	rawdatamock "github.com/fieldbook/videostats-gateway/internal/mocks/domain/rawdata"
	usecasemock "github.com/fieldbook/videostats-gateway/internal/mocks/usecase"
	"github.com/fieldbook/videostats-gateway/internal/platform/cache"
	"github.com/fieldbook/videostats-gateway/internal/platform/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const flatStatsBody = `{
	"_id": "rec-1",
	"videoId": "vid-1",
	"sportType": "padel",
	"teamAName": "Reds",
	"teamBName": "Blues",
	"events": [{"id": "e1", "time": 12, "type": "goal", "team": "A"}],
	"matchStats": {"goals": {"total": 1, "teamA": 1, "teamB": 0}},
	"teams": [],
	"generatedByModel": "manual"
}`

func newVideoStatsServiceForTest(t *testing.T, withArchive bool) (*VideoStatsService, *usecasemock.VideoStatsBackend, *rawdatamock.Repository) {
	t.Helper()

	backend := usecasemock.NewVideoStatsBackend(t)
	loader := cache.NewLoader(cache.NewMemoryStore(), time.Minute)

	var archive *rawdatamock.Repository
	var repo rawdata.Repository
	if withArchive {
		archive = rawdatamock.NewRepository(t)
		repo = archive
	}

	service := NewVideoStatsService(backend, loader, repo, logging.NewNop(), 2)
	service.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	return service, backend, archive
}

func TestVideoStatsService_GetStats_CachesAndArchivesFreshBody(t *testing.T) {
	t.Parallel()

	service, backend, archive := newVideoStatsServiceForTest(t, true)
	ctx := context.Background()

	backend.On("GetVideoStats", mock.Anything, "vid-1").Return([]byte(flatStatsBody), nil).Once()
	archive.
		On("Upsert", mock.Anything, mock.MatchedBy(func(item rawdata.Payload) bool {
			return item.EntityType == rawdata.EntityVideoStats &&
				item.EntityKey == "vid-1" &&
				item.PayloadHash == rawdata.Hash([]byte(flatStatsBody))
		})).
		Return(nil).
		Once()

	first, err := service.GetStats(ctx, " vid-1 ")
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, videostats.SourceDeclared, first.Source)
	assert.Equal(t, "Reds", first.Stats.TeamAName)
	assert.Equal(t, videostats.SportPadel, first.Stats.SportType)

	second, err := service.GetStats(ctx, "vid-1")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Stats, second.Stats)
}

func TestVideoStatsService_GetStats_FallsBackToArchiveWhenBackendUnavailable(t *testing.T) {
	t.Parallel()

	service, backend, archive := newVideoStatsServiceForTest(t, true)

	backend.
		On("GetVideoStats", mock.Anything, "vid-1").
		Return(nil, fmt.Errorf("%w: booking backend is temporarily unavailable", ErrDependencyUnavailable)).
		Once()
	archive.
		On("Get", mock.Anything, rawdata.EntityVideoStats, "vid-1").
		Return(rawdata.NewPayload(rawdata.SourceBookingAPI, rawdata.EntityVideoStats, "vid-1", []byte(flatStatsBody), time.Now()), nil).
		Once()

	got, err := service.GetStats(context.Background(), "vid-1")
	require.NoError(t, err)
	assert.True(t, got.Stale)
	assert.Equal(t, "rec-1", got.Stats.ID)
	assert.Equal(t, float64(1), got.Stats.MatchStats.Goals.Total)
}

func TestVideoStatsService_GetStats_ArchiveMissReturnsBackendError(t *testing.T) {
	t.Parallel()

	service, backend, archive := newVideoStatsServiceForTest(t, true)

	backend.On("GetVideoStats", mock.Anything, "vid-1").Return(nil, ErrDependencyUnavailable).Once()
	archive.On("Get", mock.Anything, rawdata.EntityVideoStats, "vid-1").Return(rawdata.Payload{}, rawdata.ErrNotFound).Once()

	_, err := service.GetStats(context.Background(), "vid-1")
	require.ErrorIs(t, err, ErrDependencyUnavailable)
}

func TestVideoStatsService_GetStats_NotFoundSkipsArchive(t *testing.T) {
	t.Parallel()

	service, backend, _ := newVideoStatsServiceForTest(t, true)
	backend.On("GetVideoStats", mock.Anything, "missing").Return(nil, ErrNotFound).Once()

	_, err := service.GetStats(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestVideoStatsService_RequiresVideoID(t *testing.T) {
	t.Parallel()

	service, _, _ := newVideoStatsServiceForTest(t, false)
	ctx := context.Background()

	_, err := service.GetStats(ctx, "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = service.StartManual(ctx, "", "padel")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, service.DeleteStats(ctx, ""), ErrInvalidInput)
}

func TestVideoStatsService_CreateStats_NormalizesAndForcesVideoID(t *testing.T) {
	t.Parallel()

	service, backend, _ := newVideoStatsServiceForTest(t, false)
	ctx := context.Background()

	body := []byte(`{"videoId":"other","statistics":{"sportType":"tennis","events":[{"type":"shot","team":"B","time":3}]}}`)
	backend.
		On("CreateVideoStats", mock.Anything, mock.MatchedBy(func(payload videostats.VideoStats) bool {
			return payload.VideoID == "vid-1" &&
				payload.SportType == videostats.SportTennis &&
				payload.MatchStats.Shots.TeamB == 1 &&
				payload.Statistics != nil &&
				len(payload.Statistics.Events) == 1
		})).
		Return([]byte{}, nil).
		Once()

	created, err := service.CreateStats(ctx, "vid-1", body)
	require.NoError(t, err)
	assert.Equal(t, "vid-1", created.Stats.VideoID)
	assert.Equal(t, float64(1), created.Stats.MatchStats.Shots.TeamB)

	cached, err := service.GetStats(ctx, "vid-1")
	require.NoError(t, err)
	assert.True(t, cached.Cached)
	assert.Equal(t, videostats.SportTennis, cached.Stats.SportType)
}

func TestVideoStatsService_StartManual_CreatesDefaults(t *testing.T) {
	t.Parallel()

	service, backend, _ := newVideoStatsServiceForTest(t, false)

	backend.
		On("CreateVideoStats", mock.Anything, mock.MatchedBy(func(payload videostats.VideoStats) bool {
			return payload.GeneratedByModel == videostats.ManualModel &&
				payload.TeamAName == videostats.DefaultTeamAName &&
				len(payload.Teams) == 2 &&
				payload.Statistics != nil &&
				payload.Statistics.SportType == videostats.SportFootball
		})).
		Return([]byte(`{"_id":"rec-9","videoId":"vid-1","sportType":"football","generatedByModel":"manual"}`), nil).
		Once()

	got, err := service.StartManual(context.Background(), "vid-1", "Football")
	require.NoError(t, err)
	assert.Equal(t, "rec-9", got.Stats.ID)
	assert.Equal(t, videostats.SourceDeclaredEmpty, got.Source)
}

func TestVideoStatsService_Generate(t *testing.T) {
	t.Parallel()

	t.Run("analysis model calls analyze", func(t *testing.T) {
		t.Parallel()

		service, backend, _ := newVideoStatsServiceForTest(t, false)
		backend.
			On("AnalyzeVideo", mock.Anything, "vid-1").
			Return([]byte(`{"videoId":"vid-1","generatedByModel":"gemini-1.5","summary":"close match"}`), nil).
			Once()

		got, err := service.Generate(context.Background(), GenerateInput{VideoID: "vid-1", Model: "Gemini-1.5"})
		require.NoError(t, err)
		assert.Equal(t, "close match", got.Stats.Summary)
	})

	t.Run("existing record is updated", func(t *testing.T) {
		t.Parallel()

		service, backend, _ := newVideoStatsServiceForTest(t, false)
		backend.On("GetVideoStats", mock.Anything, "vid-1").Return([]byte(flatStatsBody), nil).Once()
		backend.
			On("UpdateVideoStats", mock.Anything, "vid-1", mock.MatchedBy(func(payload videostats.VideoStats) bool {
				return payload.GeneratedByModel == "YOLOv8" && payload.TeamAName == "Reds" && len(payload.Events) == 1
			})).
			Return([]byte{}, nil).
			Once()

		got, err := service.Generate(context.Background(), GenerateInput{VideoID: "vid-1", Model: "YOLOv8"})
		require.NoError(t, err)
		assert.Equal(t, "YOLOv8", got.Stats.GeneratedByModel)
	})

	t.Run("missing record is created", func(t *testing.T) {
		t.Parallel()

		service, backend, _ := newVideoStatsServiceForTest(t, false)
		backend.On("GetVideoStats", mock.Anything, "vid-2").Return(nil, ErrNotFound).Once()
		backend.
			On("CreateVideoStats", mock.Anything, mock.MatchedBy(func(payload videostats.VideoStats) bool {
				return payload.VideoID == "vid-2" && payload.GeneratedByModel == "OpenPose" && payload.SportType == videostats.SportPadel
			})).
			Return([]byte{}, nil).
			Once()

		_, err := service.Generate(context.Background(), GenerateInput{VideoID: "vid-2", Model: "OpenPose", SportType: "padel"})
		require.NoError(t, err)
	})

	t.Run("model is required", func(t *testing.T) {
		t.Parallel()

		service, _, _ := newVideoStatsServiceForTest(t, false)
		_, err := service.Generate(context.Background(), GenerateInput{VideoID: "vid-1"})
		require.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestVideoStatsService_RecordEvents_RecomputesMatchStats(t *testing.T) {
	t.Parallel()

	service, backend, _ := newVideoStatsServiceForTest(t, false)
	backend.On("GetVideoStats", mock.Anything, "vid-1").Return([]byte(flatStatsBody), nil).Once()
	backend.
		On("UpdateVideoStats", mock.Anything, "vid-1", mock.MatchedBy(func(payload videostats.VideoStats) bool {
			return len(payload.Events) == 3 &&
				payload.Events[1].ID == "evt-1" &&
				payload.MatchStats.Goals.Total == 1 &&
				payload.MatchStats.Shots.Total == 2 &&
				payload.MatchStats.Fouls.TeamB == 1
		})).
		Return([]byte{}, nil).
		Once()

	got, err := service.RecordEvents(context.Background(), RecordEventsInput{
		VideoID: "vid-1",
		Events: []videostats.ManualEvent{
			{Time: 30, Type: videostats.EventShot, Team: videostats.SideB},
			{ID: "custom", Time: 45, Type: videostats.EventFoul, Team: videostats.SideB},
		},
	})
	require.NoError(t, err)
	assert.Len(t, got.Stats.Events, 3)
	require.NotNil(t, got.Stats.Statistics)
}

func TestVideoStatsService_RecordEvents_StartsFromManualDefaults(t *testing.T) {
	t.Parallel()

	service, backend, _ := newVideoStatsServiceForTest(t, false)
	backend.On("GetVideoStats", mock.Anything, "vid-3").Return(nil, ErrNotFound).Once()
	backend.
		On("CreateVideoStats", mock.Anything, mock.MatchedBy(func(payload videostats.VideoStats) bool {
			return payload.GeneratedByModel == videostats.ManualModel &&
				payload.SportType == videostats.SportBasketball &&
				payload.MatchStats.Passes.TeamA == 1
		})).
		Return([]byte{}, nil).
		Once()

	_, err := service.RecordEvents(context.Background(), RecordEventsInput{
		VideoID:   "vid-3",
		SportType: "basketball",
		Events:    []videostats.ManualEvent{{Type: videostats.EventPass, Team: videostats.SideA}},
	})
	require.NoError(t, err)

	_, err = service.RecordEvents(context.Background(), RecordEventsInput{VideoID: "vid-3"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestVideoStatsService_DeleteStats_DropsCacheAndArchive(t *testing.T) {
	t.Parallel()

	service, backend, archive := newVideoStatsServiceForTest(t, true)
	ctx := context.Background()

	backend.On("GetVideoStats", mock.Anything, "vid-1").Return([]byte(flatStatsBody), nil).Twice()
	backend.On("DeleteVideoStats", mock.Anything, "vid-1").Return(nil).Once()
	archive.On("Upsert", mock.Anything, mock.Anything).Return(nil).Twice()
	archive.On("Delete", mock.Anything, rawdata.EntityVideoStats, "vid-1").Return(rawdata.ErrNotFound).Once()

	_, err := service.GetStats(ctx, "vid-1")
	require.NoError(t, err)
	require.NoError(t, service.DeleteStats(ctx, "vid-1"))

	again, err := service.GetStats(ctx, "vid-1")
	require.NoError(t, err)
	assert.False(t, again.Cached)
}

func TestVideoStatsService_GetStats_CacheIsScopedToAccessToken(t *testing.T) {
	t.Parallel()

	service, backend, _ := newVideoStatsServiceForTest(t, false)
	owner := WithAccessToken(context.Background(), "owner-token")
	other := WithAccessToken(context.Background(), "other-token")
	anonymous := context.Background()

	backend.On("GetVideoStats", mock.MatchedBy(func(ctx context.Context) bool {
		return AccessTokenFromContext(ctx) == "owner-token"
	}), "vid-1").Return([]byte(flatStatsBody), nil).Once()
	backend.On("GetVideoStats", mock.MatchedBy(func(ctx context.Context) bool {
		return AccessTokenFromContext(ctx) != "owner-token"
	}), "vid-1").Return(nil, ErrUnauthorized).Twice()

	first, err := service.GetStats(owner, "vid-1")
	require.NoError(t, err)
	assert.False(t, first.Cached)

	again, err := service.GetStats(owner, "vid-1")
	require.NoError(t, err)
	assert.True(t, again.Cached)

	_, err = service.GetStats(anonymous, "vid-1")
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = service.GetStats(other, "vid-1")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestVideoStatsService_UpdateStats_InvalidatesEveryTokenScope(t *testing.T) {
	t.Parallel()

	service, backend, _ := newVideoStatsServiceForTest(t, false)
	reader := WithAccessToken(context.Background(), "reader-token")
	writer := WithAccessToken(context.Background(), "writer-token")

	backend.On("GetVideoStats", mock.Anything, "vid-1").Return([]byte(flatStatsBody), nil).Twice()
	backend.On("UpdateVideoStats", mock.Anything, "vid-1", mock.Anything).Return([]byte(nil), nil).Once()

	_, err := service.GetStats(reader, "vid-1")
	require.NoError(t, err)

	_, err = service.UpdateStats(writer, "vid-1", []byte(`{"teamAName":"Blues"}`))
	require.NoError(t, err)

	refreshed, err := service.GetStats(reader, "vid-1")
	require.NoError(t, err)
	assert.False(t, refreshed.Cached)
}

func TestVideoStatsService_ListFieldVideoStats(t *testing.T) {
	t.Parallel()

	t.Run("missing stats are nil", func(t *testing.T) {
		t.Parallel()

		service, backend, _ := newVideoStatsServiceForTest(t, false)
		backend.
			On("ListFieldVideos", mock.Anything, "field-1").
			Return([]videolibrary.Video{{ID: "vid-1", FieldID: "field-1"}, {ID: "vid-2", FieldID: "field-1"}, {ID: "vid-3", FieldID: "field-1"}}, nil).
			Once()
		backend.On("GetVideoStats", mock.Anything, "vid-1").Return([]byte(flatStatsBody), nil).Once()
		backend.On("GetVideoStats", mock.Anything, "vid-2").Return(nil, ErrNotFound).Once()
		backend.On("GetVideoStats", mock.Anything, "vid-3").Return([]byte(`{"videoId":"vid-3"}`), nil).Once()

		got, err := service.ListFieldVideoStats(context.Background(), "field-1")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "vid-1", got[0].Video.ID)
		require.NotNil(t, got[0].Stats)
		assert.Equal(t, "Reds", got[0].Stats.TeamAName)
		assert.Nil(t, got[1].Stats)
		require.NotNil(t, got[2].Stats)
		assert.Equal(t, videostats.DefaultTeamAName, got[2].Stats.TeamAName)
	})

	t.Run("backend failure fails the listing", func(t *testing.T) {
		t.Parallel()

		service, backend, _ := newVideoStatsServiceForTest(t, false)
		backend.On("ListFieldVideos", mock.Anything, "field-2").Return([]videolibrary.Video{{ID: "vid-9"}}, nil).Once()
		backend.On("GetVideoStats", mock.Anything, "vid-9").Return(nil, ErrUnauthorized).Once()

		_, err := service.ListFieldVideoStats(context.Background(), "field-2")
		require.True(t, errors.Is(err, ErrUnauthorized), "unexpected error %v", err)
	})

	t.Run("empty listing", func(t *testing.T) {
		t.Parallel()

		service, backend, _ := newVideoStatsServiceForTest(t, false)
		backend.On("ListFieldVideos", mock.Anything, "field-3").Return(nil, nil).Once()

		got, err := service.ListFieldVideoStats(context.Background(), "field-3")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestVideoStatsService_GetLibrary_ClampsPaging(t *testing.T) {
	t.Parallel()

	service, backend, _ := newVideoStatsServiceForTest(t, false)
	backend.
		On("GetVideoLibrary", mock.Anything, 1, videolibrary.MaxLimit).
		Return([]byte(`{"data":[{"_id":"v1","s3Key":"a.mp4"}],"count":250}`), nil).
		Once()

	page, err := service.GetLibrary(context.Background(), 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 250, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "v1", page.Items[0].ID)
}

func TestVideoStatsService_Normalize_IsPure(t *testing.T) {
	t.Parallel()

	service, _, _ := newVideoStatsServiceForTest(t, false)
	got := service.Normalize(context.Background(), []byte(`not json`))
	assert.Equal(t, videostats.DefaultTeamAName, got.Stats.TeamAName)
	assert.Equal(t, videostats.SourceDeclaredEmpty, got.Source)
}
