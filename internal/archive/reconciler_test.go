package archive

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvuorinen/flickrarc/internal/flickr"
)

// fakeSource is an in-memory PhotoSource for reconciler tests.
type fakeSource struct {
	comments  map[string][]flickr.Comment
	infoErr   error
	thumbErr  error
	infoCalls []string
}

func (f *fakeSource) GetPhotoInfo(_ context.Context, photo *flickr.Photo) error {
	f.infoCalls = append(f.infoCalls, photo.ID)
	return f.infoErr
}

func (f *fakeSource) ListComments(_ context.Context, photoID string) ([]flickr.Comment, error) {
	return f.comments[photoID], nil
}

func (f *fakeSource) DownloadThumbnail(_ context.Context, rawurl, _, photoID string) (string, error) {
	if f.thumbErr != nil {
		return "", f.thumbErr
	}

	if rawurl == "" {
		return "", nil
	}

	return photoID + "_t.jpg", nil
}

func streamPhoto(id, title string) *flickr.Photo {
	var p flickr.Photo

	raw := `{"id":"` + id + `","title":"` + title + `","dateupload":"1718000000","url_t":"https://example.test/` + id + `_t.jpg"}`
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		panic(err)
	}

	return &p
}

func newTestReconciler(t *testing.T, source *fakeSource) (*Reconciler, *Store) {
	t.Helper()

	store := newTestStore(t)

	index, err := BuildIndex(context.Background(), store)
	require.NoError(t, err)

	return NewReconciler(source, store, index, t.TempDir(), testLogger(t)), store
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		sweep  Sweep
		exists bool
		linked bool
		want   Action
	}{
		{"photostream new photo", SweepPhotostream, false, false, ActionCreate},
		{"photostream existing photo", SweepPhotostream, true, false, ActionSkip},
		{"album new photo", SweepAlbum, false, false, ActionCreateAndLink},
		{"album existing unlinked photo", SweepAlbum, true, false, ActionLinkOnly},
		{"album existing linked photo", SweepAlbum, true, true, ActionNoop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.sweep, tt.exists, tt.linked))
		})
	}
}

func TestReconcileCreateFromPhotostream(t *testing.T) {
	source := &fakeSource{comments: map[string][]flickr.Comment{
		"p1": {{ID: "c1", Author: "alice", DateCreate: "1718000001"}},
	}}
	reconciler, store := newTestReconciler(t, source)

	ctx := context.Background()
	report := &Report{}

	require.NoError(t, reconciler.Reconcile(ctx, streamPhoto("p1", "pier"), SweepPhotostream, "", report))

	assert.Equal(t, 1, report.NewPhotos)
	assert.Equal(t, 1, report.PhotostreamNew)
	assert.Equal(t, 0, report.NewAssociations)
	assert.Equal(t, []string{"p1"}, source.infoCalls)

	detail, err := store.GetPhotoDetail(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, "pier", detail.Title)
	assert.Equal(t, "p1.jpg", detail.Filename)
	assert.Equal(t, "p1_t.jpg", detail.ThumbnailPath)
	require.Len(t, detail.Comments, 1)

	// Second encounter in the same run is a pure skip: no second detail
	// call and no counter moves, skipped_photos included.
	require.NoError(t, reconciler.Reconcile(ctx, streamPhoto("p1", "pier"), SweepPhotostream, "", report))
	assert.Equal(t, 1, report.NewPhotos)
	assert.Equal(t, 0, report.SkippedPhotos)
	assert.Equal(t, []string{"p1"}, source.infoCalls)
}

func TestReconcileSkipCountsOnlyAlbumNoops(t *testing.T) {
	source := &fakeSource{}
	reconciler, store := newTestReconciler(t, source)

	ctx := context.Background()
	require.NoError(t, store.UpsertAlbum(ctx, testAlbum("a1", "Trip")))

	report := &Report{}
	require.NoError(t, reconciler.Reconcile(ctx, streamPhoto("p1", "one"), SweepAlbum, "a1", report))

	// Re-encounters in the photostream are filtered out silently; only
	// the album already-linked case counts as a skip.
	require.NoError(t, reconciler.Reconcile(ctx, streamPhoto("p1", "one"), SweepPhotostream, "", report))
	assert.Equal(t, 0, report.SkippedPhotos)

	require.NoError(t, reconciler.Reconcile(ctx, streamPhoto("p1", "one"), SweepAlbum, "a1", report))
	assert.Equal(t, 1, report.SkippedPhotos)
}

func TestReconcileCreateAndLink(t *testing.T) {
	source := &fakeSource{}
	reconciler, store := newTestReconciler(t, source)

	ctx := context.Background()
	require.NoError(t, store.UpsertAlbum(ctx, testAlbum("a1", "Trip")))

	report := &Report{}
	require.NoError(t, reconciler.Reconcile(ctx, streamPhoto("p1", "one"), SweepAlbum, "a1", report))

	assert.Equal(t, 1, report.NewPhotos)
	assert.Equal(t, 1, report.NewAssociations)
	assert.Equal(t, 0, report.PhotostreamNew)

	linked, err := store.HasLink(ctx, "p1", "a1")
	require.NoError(t, err)
	assert.True(t, linked)
}

func TestReconcileLinkOnlyAcrossSweeps(t *testing.T) {
	source := &fakeSource{}
	reconciler, store := newTestReconciler(t, source)

	ctx := context.Background()
	require.NoError(t, store.UpsertAlbum(ctx, testAlbum("a1", "Trip")))

	// Seen in the photostream first, then in an album in the same run:
	// the album sweep adds only the association.
	report := &Report{}
	require.NoError(t, reconciler.Reconcile(ctx, streamPhoto("p3", "shared"), SweepPhotostream, "", report))
	require.NoError(t, reconciler.Reconcile(ctx, streamPhoto("p3", "shared"), SweepAlbum, "a1", report))

	assert.Equal(t, 1, report.NewPhotos)
	assert.Equal(t, 1, report.NewAssociations)
	assert.Equal(t, []string{"p3"}, source.infoCalls)

	// Linked already, so a repeat is a no-op counted as a skip.
	require.NoError(t, reconciler.Reconcile(ctx, streamPhoto("p3", "shared"), SweepAlbum, "a1", report))
	assert.Equal(t, 1, report.NewAssociations)
	assert.Equal(t, 1, report.SkippedPhotos)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Links)
}

func TestReconcileDetailFailureSurfaces(t *testing.T) {
	source := &fakeSource{infoErr: errors.New("boom")}
	reconciler, store := newTestReconciler(t, source)

	ctx := context.Background()
	report := &Report{}

	err := reconciler.Reconcile(ctx, streamPhoto("p1", "one"), SweepPhotostream, "", report)
	require.Error(t, err)

	// Nothing committed, nothing indexed.
	assert.Equal(t, 0, report.NewPhotos)

	detail, detailErr := store.GetPhotoDetail(ctx, "p1")
	require.NoError(t, detailErr)
	assert.Nil(t, detail)
}

func TestReconcileThumbnailFailureKeepsPhoto(t *testing.T) {
	source := &fakeSource{thumbErr: errors.New("timeout")}
	reconciler, store := newTestReconciler(t, source)

	ctx := context.Background()
	report := &Report{}

	require.NoError(t, reconciler.Reconcile(ctx, streamPhoto("p1", "one"), SweepPhotostream, "", report))

	assert.Equal(t, 1, report.NewPhotos)

	detail, err := store.GetPhotoDetail(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Empty(t, detail.ThumbnailPath)
}
