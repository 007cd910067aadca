package flickr

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Page sizes per operation, matching the per-method maximums the API
// accepts for these calls.
const (
	albumsPerPage      = 500
	albumPhotosPerPage = 100
	streamPerPage      = 500
)

// photoExtras is the extras field requested on listing calls so that the
// reconciliation engine can persist most photos without a detail call.
const photoExtras = "description,date_upload,date_taken,tags,views,url_t,url_o"

// ListAlbums fetches every page of the user's photosets. The returned
// slice is the concatenation of all pages. On a failed page the partial
// results gathered so far are returned alongside the error — previously
// fetched pages are never dropped silently.
func (c *Client) ListAlbums(ctx context.Context, userID string) ([]Album, error) {
	var albums []Album

	err := c.fetchPages(ctx, func(page int) (int, int, error) {
		body, err := c.CallMethod(ctx, "flickr.photosets.getList", map[string]string{
			"user_id":  userID,
			"page":     strconv.Itoa(page),
			"per_page": strconv.Itoa(albumsPerPage),
		})
		if err != nil {
			return 0, 0, err
		}

		var parsed albumPage
		if err := json.Unmarshal(body, &parsed); err != nil {
			return 0, 0, fmt.Errorf("decoding photosets page %d: %w", page, err)
		}

		albums = append(albums, parsed.Photosets.Photoset...)

		return parsed.Photosets.Pages.Int(), len(parsed.Photosets.Photoset), nil
	})
	if err != nil {
		return albums, err
	}

	c.logger.Debug("album listing complete", "albums", len(albums))

	return albums, nil
}

// ListAlbumPhotos fetches every page of one album's photo listing.
func (c *Client) ListAlbumPhotos(ctx context.Context, albumID, userID string) ([]Photo, error) {
	var photos []Photo

	err := c.fetchPages(ctx, func(page int) (int, int, error) {
		body, err := c.CallMethod(ctx, "flickr.photosets.getPhotos", map[string]string{
			"photoset_id": albumID,
			"user_id":     userID,
			"extras":      photoExtras,
			"page":        strconv.Itoa(page),
			"per_page":    strconv.Itoa(albumPhotosPerPage),
		})
		if err != nil {
			return 0, 0, err
		}

		var parsed albumPhotoPage
		if err := json.Unmarshal(body, &parsed); err != nil {
			return 0, 0, fmt.Errorf("decoding photoset page %d: %w", page, err)
		}

		photos = append(photos, parsed.Photoset.Photo...)

		return parsed.Photoset.Pages.Int(), len(parsed.Photoset.Photo), nil
	})
	if err != nil {
		return photos, err
	}

	c.logger.Debug("album photo listing complete", "album_id", albumID, "photos", len(photos))

	return photos, nil
}

// ListPhotostream fetches every page of the user's photostream.
func (c *Client) ListPhotostream(ctx context.Context, userID string) ([]Photo, error) {
	var photos []Photo

	err := c.fetchPages(ctx, func(page int) (int, int, error) {
		body, err := c.CallMethod(ctx, "flickr.people.getPhotos", map[string]string{
			"user_id":  userID,
			"extras":   photoExtras,
			"page":     strconv.Itoa(page),
			"per_page": strconv.Itoa(streamPerPage),
		})
		if err != nil {
			return 0, 0, err
		}

		var parsed streamPage
		if err := json.Unmarshal(body, &parsed); err != nil {
			return 0, 0, fmt.Errorf("decoding photostream page %d: %w", page, err)
		}

		photos = append(photos, parsed.Photos.Photo...)

		return parsed.Photos.Pages.Int(), len(parsed.Photos.Photo), nil
	})
	if err != nil {
		return photos, err
	}

	c.logger.Debug("photostream listing complete", "photos", len(photos))

	return photos, nil
}

// fetchPages drives a page loop: call fetch for page 1, 2, ... until the
// server-reported page count is reached or a page comes back empty. A
// small fixed delay separates consecutive page requests. The sequence is
// finite and not restartable — each call starts over from page 1.
func (c *Client) fetchPages(ctx context.Context, fetch func(page int) (pages, got int, err error)) error {
	for page := 1; ; page++ {
		pages, got, err := fetch(page)
		if err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}

		c.logger.Debug("fetched page", "page", page, "pages", pages, "items", got)

		if got == 0 || page >= pages {
			return nil
		}

		if err := c.sleepFunc(ctx, c.pageDelay); err != nil {
			return fmt.Errorf("page delay: %w", err)
		}
	}
}

// GetPhotoInfo fetches detail for one photo and merges it onto the
// listing-level entry in place.
func (c *Client) GetPhotoInfo(ctx context.Context, photo *Photo) error {
	body, err := c.CallMethod(ctx, "flickr.photos.getInfo", map[string]string{
		"photo_id": photo.ID,
	})
	if err != nil {
		return err
	}

	var parsed photoInfo
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("decoding photo info %s: %w", photo.ID, err)
	}

	photo.mergeInfo(&parsed)

	return nil
}

// ListComments fetches all comments for a photo. Photos without comments
// return an empty slice: the API omits the comments block entirely and
// some error responses for comment-less photos are not worth surfacing.
func (c *Client) ListComments(ctx context.Context, photoID string) ([]Comment, error) {
	body, err := c.CallMethod(ctx, "flickr.photos.comments.getList", map[string]string{
		"photo_id": photoID,
	})
	if err != nil {
		return nil, err
	}

	var parsed commentList
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding comments %s: %w", photoID, err)
	}

	if parsed.Comments == nil {
		return nil, nil
	}

	return parsed.Comments.Comment, nil
}

// TestLogin validates the stored session token with flickr.test.login and
// returns the authenticated username.
func (c *Client) TestLogin(ctx context.Context) (string, error) {
	body, err := c.CallMethod(ctx, "flickr.test.login", nil)
	if err != nil {
		return "", err
	}

	var parsed struct {
		User struct {
			Username Content `json:"username"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decoding test.login: %w", err)
	}

	return parsed.User.Username.Flatten(), nil
}
