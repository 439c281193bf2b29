package videolibrary

import "testing"

func TestNormalizePageItemsShape(t *testing.T) {
	t.Parallel()

	page := NormalizePageJSON([]byte(`{
		"items": [{"_id":"v1","s3Key":"a.mp4","playbackUrl":"https://cdn/a"}, "junk"],
		"total": 41,
		"page": 3,
		"limit": 20
	}`), 1, 10)

	if len(page.Items) != 1 || page.Items[0].ID != "v1" || page.Items[0].PlaybackURL != "https://cdn/a" {
		t.Fatalf("unexpected items %+v", page.Items)
	}
	if page.Page != 3 || page.Limit != 20 || page.Total != 41 {
		t.Fatalf("unexpected paging %+v", page)
	}
	if page.TotalPages != 5 {
		t.Fatalf("expected total pages computed from requested limit, got %d", page.TotalPages)
	}
}

func TestNormalizePageDataShapeWithCount(t *testing.T) {
	t.Parallel()

	page := NormalizePageJSON([]byte(`{"data":[{"_id":"v1"},{"_id":"v2"}],"count":2,"totalPages":7}`), 2, 5)
	if len(page.Items) != 2 || page.Total != 2 || page.TotalPages != 7 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Page != 2 || page.Limit != 5 {
		t.Fatalf("expected requested paging, got %+v", page)
	}
}

func TestNormalizePageFallbacks(t *testing.T) {
	t.Parallel()

	page := NormalizePageJSON([]byte(`not json`), 1, 0)
	if page.Items == nil || len(page.Items) != 0 {
		t.Fatalf("expected empty items, got %#v", page.Items)
	}
	if page.Total != 0 || page.TotalPages != 1 {
		t.Fatalf("expected one empty page, got %+v", page)
	}

	page = NormalizePage(map[string]any{"items": []any{map[string]any{"_id": "x"}}, "total": "12"}, 1, 20)
	if page.Total != 1 {
		t.Fatalf("non-numeric total must fall back to item count, got %d", page.Total)
	}
}

func TestParseVideosSkipsEntriesWithoutID(t *testing.T) {
	t.Parallel()

	videos, err := ParseVideos([]byte(`[{"_id":"v1","fieldId":"f1","slotId":"s1"},{"fieldId":"f1"}]`))
	if err != nil {
		t.Fatalf("ParseVideos: %v", err)
	}
	if len(videos) != 1 || videos[0].FieldID != "f1" || videos[0].SlotID != "s1" {
		t.Fatalf("unexpected videos %+v", videos)
	}

	if _, err := ParseVideos([]byte(`{"_id":"v1"}`)); err == nil {
		t.Fatalf("expected error for non-list body")
	}
}

func TestClampPaging(t *testing.T) {
	t.Parallel()

	if page, limit := ClampPaging(0, 0); page != DefaultPage || limit != DefaultLimit {
		t.Fatalf("unexpected defaults %d/%d", page, limit)
	}
	if _, limit := ClampPaging(2, 1000); limit != MaxLimit {
		t.Fatalf("expected limit capped, got %d", limit)
	}
}
