package flickr

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testWriter adapts t.Log to io.Writer for slog handlers.
type testWriter struct {
	t *testing.T
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

// testLogger creates a debug-level logger that writes to t.Log.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(&testWriter{t: t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestContentVariants(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain string", `"hello"`, "hello"},
		{"content object", `{"_content": "wrapped"}`, "wrapped"},
		{"empty content object", `{"_content": ""}`, ""},
		{"object without content member", `{"other": "x"}`, ""},
		{"list of strings", `["a", "b", "c"]`, "a, b, c"},
		{"list of content objects", `[{"_content": "x"}, {"_content": "y"}]`, "x, y"},
		{"empty list", `[]`, ""},
		{"null", `null`, ""},
		{"number", `42`, "42"},
		{"boolean", `true`, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Content

			require.NoError(t, json.Unmarshal([]byte(tt.in), &c))
			assert.Equal(t, tt.want, c.Flatten())
		})
	}
}

func TestIntishVariants(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"number", `7`, 7},
		{"numeric string", `"12"`, 12},
		{"empty string", `""`, 0},
		{"garbage string", `"abc"`, 0},
		{"null", `null`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Intish

			require.NoError(t, json.Unmarshal([]byte(tt.in), &n))
			assert.Equal(t, tt.want, n.Int())
		})
	}
}

func TestPhotoDecodeWithVariantFields(t *testing.T) {
	raw := `{
		"id": "p1",
		"title": {"_content": "Sunset"},
		"description": {"_content": "over the bay"},
		"tags": "beach sunset",
		"datetaken": "2024-06-01 19:30:00",
		"dateupload": "1717267800",
		"views": "250",
		"url_t": "https://live.example.com/p1_t.jpg",
		"url_o": "https://live.example.com/p1_o.jpg"
	}`

	var p Photo
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "Sunset", p.Title.Flatten())
	assert.Equal(t, "over the bay", p.Description.Flatten())
	assert.Equal(t, "beach sunset", p.Tags.Flatten())
	assert.Equal(t, 250, p.Views.Int())
	assert.Equal(t, "https://live.example.com/p1_t.jpg", p.URLThumbnail)
}

func TestMergeInfo(t *testing.T) {
	listing := Photo{
		ID:         "p2",
		Title:      Content{value: "listing title"},
		DateTaken:  "2024-01-01 10:00:00",
		DateUpload: "1704100000",
	}

	detail := `{
		"photo": {
			"id": "p2",
			"title": {"_content": "detail title"},
			"description": {"_content": "detail description"},
			"views": "99",
			"tags": {"tag": [{"raw": "one"}, {"raw": "two"}]},
			"dates": {"taken": "2023-12-31 09:00:00", "posted": "1703980800"}
		}
	}`

	var info photoInfo
	require.NoError(t, json.Unmarshal([]byte(detail), &info))

	listing.mergeInfo(&info)

	assert.Equal(t, "detail title", listing.Title.Flatten())
	assert.Equal(t, "detail description", listing.Description.Flatten())
	assert.Equal(t, "one, two", listing.Tags.Flatten())
	assert.Equal(t, 99, listing.Views.Int())
	// Listing-level dates survive when already set.
	assert.Equal(t, "2024-01-01 10:00:00", listing.DateTaken)
}

func TestMergeInfoKeepsListingFieldsWhenDetailEmpty(t *testing.T) {
	listing := Photo{
		ID:    "p3",
		Title: Content{value: "keep me"},
		Tags:  Content{value: "existing"},
	}

	var info photoInfo
	require.NoError(t, json.Unmarshal([]byte(`{"photo": {"id": "p3"}}`), &info))

	listing.mergeInfo(&info)

	assert.Equal(t, "keep me", listing.Title.Flatten())
	assert.Equal(t, "existing", listing.Tags.Flatten())
}
