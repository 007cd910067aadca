package webui

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvuorinen/flickrarc/internal/archive"
)

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// fakeArchive is an in-memory Archive for handler tests.
type fakeArchive struct {
	albums  []archive.AlbumSummary
	photos  []archive.PhotoRecord
	details map[string]*archive.PhotoDetail
	failAll bool

	lastQuery archive.PhotoQuery
}

func (f *fakeArchive) ListAlbums(context.Context) ([]archive.AlbumSummary, error) {
	if f.failAll {
		return nil, errors.New("db broken")
	}

	return f.albums, nil
}

func (f *fakeArchive) SearchPhotos(_ context.Context, q archive.PhotoQuery) ([]archive.PhotoRecord, error) {
	if f.failAll {
		return nil, errors.New("db broken")
	}

	f.lastQuery = q

	return f.photos, nil
}

func (f *fakeArchive) GetPhotoDetail(_ context.Context, photoID string) (*archive.PhotoDetail, error) {
	if f.failAll {
		return nil, errors.New("db broken")
	}

	return f.details[photoID], nil
}

func newTestServer(t *testing.T, store *fakeArchive, runSync SyncFunc) *httptest.Server {
	t.Helper()

	srv := NewServer(store, runSync, t.TempDir(), testLogger(t))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return ts
}

func getJSON(t *testing.T, ts *httptest.Server, path string, out any) int {
	t.Helper()

	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}

func TestAlbumsEndpoint(t *testing.T) {
	store := &fakeArchive{albums: []archive.AlbumSummary{
		{ID: "a1", Title: "Trip", PhotoCount: 2},
	}}
	ts := newTestServer(t, store, nil)

	var albums []archive.AlbumSummary
	status := getJSON(t, ts, "/api/albums", &albums)

	assert.Equal(t, http.StatusOK, status)
	require.Len(t, albums, 1)
	assert.Equal(t, "Trip", albums[0].Title)
}

func TestAlbumsEndpointEmptyIsArray(t *testing.T) {
	ts := newTestServer(t, &fakeArchive{}, nil)

	resp, err := http.Get(ts.URL + "/api/albums")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body []json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body)
}

func TestPhotosEndpointQueryMapping(t *testing.T) {
	store := &fakeArchive{}
	ts := newTestServer(t, store, nil)

	status := getJSON(t, ts, "/api/photos?search=sunset&limit=25&offset=50", nil)
	assert.Equal(t, http.StatusOK, status)

	assert.Equal(t, "sunset", store.lastQuery.Search)
	assert.Equal(t, 25, store.lastQuery.Limit)
	assert.Equal(t, 50, store.lastQuery.Offset)

	// Album-scoped listings ignore the limit so album pages are complete,
	// but the offset still applies.
	getJSON(t, ts, "/api/photos?album_id=a1&limit=25&offset=10", nil)
	assert.Equal(t, "a1", store.lastQuery.AlbumID)
	assert.Equal(t, 0, store.lastQuery.Limit)
	assert.Equal(t, 10, store.lastQuery.Offset)

	// Unscoped listings default to a page size.
	getJSON(t, ts, "/api/photos", nil)
	assert.Equal(t, defaultPhotoLimit, store.lastQuery.Limit)
}

func TestPhotoDetailEndpoint(t *testing.T) {
	detail := &archive.PhotoDetail{
		PhotoRecord: archive.PhotoRecord{ID: "p1", Title: "pier"},
		Albums:      []archive.AlbumRef{{ID: "a1", Title: "Trip"}},
		Comments:    []archive.CommentRecord{{ID: "c1", Author: "alice", Text: "nice"}},
	}
	store := &fakeArchive{details: map[string]*archive.PhotoDetail{"p1": detail}}
	ts := newTestServer(t, store, nil)

	var got archive.PhotoDetail
	status := getJSON(t, ts, "/api/photos/p1", &got)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "pier", got.Title)
	require.Len(t, got.Albums, 1)
	require.Len(t, got.Comments, 1)

	status = getJSON(t, ts, "/api/photos/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStoreFailureIs500(t *testing.T) {
	ts := newTestServer(t, &fakeArchive{failAll: true}, nil)

	assert.Equal(t, http.StatusInternalServerError, getJSON(t, ts, "/api/albums", nil))
	assert.Equal(t, http.StatusInternalServerError, getJSON(t, ts, "/api/photos", nil))
	assert.Equal(t, http.StatusInternalServerError, getJSON(t, ts, "/api/photos/p1", nil))
}

func TestSyncTriggerRejectsConcurrentRuns(t *testing.T) {
	release := make(chan struct{})

	var once sync.Once

	runSync := func(context.Context) (*archive.Report, error) {
		<-release
		return &archive.Report{NewPhotos: 3}, nil
	}

	ts := newTestServer(t, &fakeArchive{}, runSync)

	defer once.Do(func() { close(release) })

	resp, err := http.Post(ts.URL+"/api/sync", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	// Second trigger while the first run is blocked.
	resp, err = http.Post(ts.URL+"/api/sync", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	once.Do(func() { close(release) })

	// The run finishes and the status message reflects its report.
	require.Eventually(t, func() bool {
		var status struct {
			Running bool   `json:"running"`
			Message string `json:"message"`
		}

		getJSON(t, ts, "/api/sync/status", &status)

		return !status.Running && status.Message != ""
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSyncTriggerUnavailableWithoutRunner(t *testing.T) {
	ts := newTestServer(t, &fakeArchive{}, nil)

	resp, err := http.Post(ts.URL+"/api/sync", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestIndexAndThumbnails(t *testing.T) {
	thumbDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(thumbDir, "p1.jpg"), []byte("jpeg-bytes"), 0o644))

	srv := NewServer(&fakeArchive{}, nil, thumbDir, testLogger(t))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp, err = http.Get(ts.URL + "/thumbnails/p1.jpg")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
