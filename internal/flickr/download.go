package flickr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
)

// Thumbnail file permissions.
const thumbFilePerms = 0o644

// DownloadThumbnail fetches the image at rawurl and writes it into
// destDir as "<photoID><ext>", taking the extension from the URL path
// (".jpg" when absent). Returns the written filename. Thumbnail URLs are
// pre-signed by the API, so the request is unauthenticated.
func (c *Client) DownloadThumbnail(ctx context.Context, rawurl, destDir, photoID string) (string, error) {
	if rawurl == "" {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return "", fmt.Errorf("flickr: thumbnail request %s: %w", photoID, err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("flickr: downloading thumbnail %s: %w", photoID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("flickr: thumbnail %s: HTTP %d", photoID, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("flickr: reading thumbnail %s: %w", photoID, err)
	}

	filename := photoID + thumbExt(rawurl)

	if err := os.WriteFile(filepath.Join(destDir, filename), data, thumbFilePerms); err != nil {
		return "", fmt.Errorf("flickr: writing thumbnail %s: %w", photoID, err)
	}

	c.logger.Debug("thumbnail saved", "photo_id", photoID, "file", filename, "bytes", len(data))

	return filename, nil
}

// thumbExt extracts the file extension from a thumbnail URL path.
func thumbExt(rawurl string) string {
	parsed, err := url.Parse(rawurl)
	if err != nil {
		return ".jpg"
	}

	if ext := path.Ext(parsed.Path); ext != "" {
		return ext
	}

	return ".jpg"
}
