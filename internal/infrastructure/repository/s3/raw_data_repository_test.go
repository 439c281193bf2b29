package s3

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fieldbook/videostats-gateway/internal/domain/rawdata"
)

type fakeObject struct {
	body   []byte
	header http.Header
}

// fakeS3 serves the path-style object calls the repository makes.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		header := http.Header{}
		for key, values := range r.Header {
			if strings.HasPrefix(strings.ToLower(key), "x-amz-meta-") {
				header[key] = values
			}
		}
		f.objects[r.URL.Path] = fakeObject{body: body, header: header}
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		obj, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		for key, values := range obj.header {
			w.Header()[key] = values
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(obj.body)
	case http.MethodDelete:
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestRepository(t *testing.T) (*RawDataRepository, *fakeS3) {
	t.Helper()

	fake := &fakeS3{objects: map[string]fakeObject{}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	repo, err := NewRawDataRepository(context.Background(), Config{
		Bucket:          "stats-archive",
		Region:          "us-east-1",
		Endpoint:        server.URL,
		Prefix:          "/raw/",
		AccessKeyID:     "test",
		SecretAccessKey: "secret",
	})
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	return repo, fake
}

func TestRawDataRepository_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, fake := newTestRepository(t)

	fetchedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	body := []byte(`{"videoId":"vid-1","teams":[{"teamName":"A","stats":{"zeta":1,"alpha":2}}]}`)
	item := rawdata.NewPayload(rawdata.SourceBookingAPI, rawdata.EntityVideoStats, "vid-1", body, fetchedAt)

	if err := repo.Upsert(ctx, item); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, ok := fake.objects["/stats-archive/raw/video_stats/vid-1.json"]; !ok {
		t.Fatalf("unexpected object keys %v", fake.objects)
	}

	got, err := repo.Get(ctx, rawdata.EntityVideoStats, "vid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PayloadJSON != string(body) {
		t.Fatalf("payload must round-trip byte for byte, got %s", got.PayloadJSON)
	}
	if got.PayloadHash != item.PayloadHash || got.Source != rawdata.SourceBookingAPI || !got.FetchedAt.Equal(fetchedAt) {
		t.Fatalf("unexpected metadata %+v", got)
	}

	if err := repo.Delete(ctx, rawdata.EntityVideoStats, "vid-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, rawdata.EntityVideoStats, "vid-1"); !errors.Is(err, rawdata.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRawDataRepository_ObjectKey(t *testing.T) {
	t.Parallel()

	repo := &RawDataRepository{prefix: ""}
	if got := repo.objectKey(rawdata.EntityVideoStats, "vid-2"); got != "video_stats/vid-2.json" {
		t.Fatalf("unexpected key %q", got)
	}
	repo.prefix = "archive/raw"
	if got := repo.objectKey(rawdata.EntityVideoStats, "vid-2"); got != "archive/raw/video_stats/vid-2.json" {
		t.Fatalf("unexpected key %q", got)
	}
}
