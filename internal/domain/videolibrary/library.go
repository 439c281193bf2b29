package videolibrary

import (
	"math"
	"strings"

	"github.com/bytedance/sonic"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Video is a recording attached to a field slot.
type Video struct {
	ID       string `json:"_id"`
	FieldID  string `json:"fieldId"`
	S3Key    string `json:"s3Key"`
	VideoURL string `json:"videoUrl,omitempty"`
	SlotID   string `json:"slotId"`
}

type Item struct {
	ID          string `json:"_id"`
	S3Key       string `json:"s3Key"`
	VideoURL    string `json:"videoUrl,omitempty"`
	PlaybackURL string `json:"playbackUrl,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

type Page struct {
	Items      []Item `json:"items"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	Total      int    `json:"total"`
	TotalPages int    `json:"totalPages"`
}

// NormalizePageJSON decodes a library listing. Bodies that are not JSON are
// treated as an empty listing.
func NormalizePageJSON(body []byte, page, limit int) Page {
	var raw any
	if err := sonic.Unmarshal(body, &raw); err != nil {
		raw = nil
	}
	return NormalizePage(raw, page, limit)
}

// NormalizePage accepts either {items} or {data} listings and either total or
// count. Pagination fields fall back to the requested values.
func NormalizePage(raw any, page, limit int) Page {
	src, _ := raw.(map[string]any)

	rawItems, ok := src["items"].([]any)
	if !ok {
		rawItems, _ = src["data"].([]any)
	}
	items := make([]Item, 0, len(rawItems))
	for _, rawItem := range rawItems {
		itemSrc, ok := rawItem.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, Item{
			ID:          getString(itemSrc, "_id"),
			S3Key:       getString(itemSrc, "s3Key"),
			VideoURL:    getString(itemSrc, "videoUrl"),
			PlaybackURL: getString(itemSrc, "playbackUrl"),
			CreatedAt:   getString(itemSrc, "createdAt"),
			UpdatedAt:   getString(itemSrc, "updatedAt"),
		})
	}

	total, ok := getInt(src, "total")
	if !ok {
		total, ok = getInt(src, "count")
	}
	if !ok {
		total = len(items)
	}

	totalPages, ok := getInt(src, "totalPages")
	if !ok {
		totalPages = int(math.Max(1, math.Ceil(float64(total)/float64(max(1, limit)))))
	}

	out := Page{
		Items:      items,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
	if value, ok := getInt(src, "page"); ok {
		out.Page = value
	}
	if value, ok := getInt(src, "limit"); ok {
		out.Limit = value
	}
	return out
}

// ParseVideos decodes the field video listing, dropping entries without an id.
func ParseVideos(body []byte) ([]Video, error) {
	var raw []map[string]any
	if err := sonic.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	out := make([]Video, 0, len(raw))
	for _, item := range raw {
		video := Video{
			ID:       getString(item, "_id"),
			FieldID:  getString(item, "fieldId"),
			S3Key:    getString(item, "s3Key"),
			VideoURL: getString(item, "videoUrl"),
			SlotID:   getString(item, "slotId"),
		}
		if video.ID == "" {
			continue
		}
		out = append(out, video)
	}
	return out, nil
}

// ClampPaging applies defaults to out-of-range paging input.
func ClampPaging(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

func getString(src map[string]any, key string) string {
	value, ok := src[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func getInt(src map[string]any, key string) (int, bool) {
	value, ok := src[key].(float64)
	if !ok || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return int(value), true
}
