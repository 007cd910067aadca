package archive

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tvuorinen/flickrarc/internal/flickr"
)

// PhotoSource is the remote detail surface the reconciler needs for a
// photo it has decided to create. Satisfied by *flickr.Client.
type PhotoSource interface {
	GetPhotoInfo(ctx context.Context, photo *flickr.Photo) error
	ListComments(ctx context.Context, photoID string) ([]flickr.Comment, error)
	DownloadThumbnail(ctx context.Context, rawurl, destDir, photoID string) (string, error)
}

// Reconciler decides and applies the action for each photo an enumeration
// sweep yields. It mutates the index as it creates photos so decisions
// within a run stay consistent across sweeps.
type Reconciler struct {
	source   PhotoSource
	store    *Store
	index    *Index
	thumbDir string
	logger   *slog.Logger
}

// NewReconciler returns a reconciler writing thumbnails under thumbDir.
func NewReconciler(source PhotoSource, store *Store, index *Index, thumbDir string, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		source:   source,
		store:    store,
		index:    index,
		thumbDir: thumbDir,
		logger:   logger,
	}
}

// Classify maps a photo's context to the action to take.
//
// The photostream sweep has no album, so an existing photo is always a
// skip. Album sweeps additionally manage the association: an existing
// photo missing the link gets the link alone, with no photo rewrite.
func Classify(sweep Sweep, exists, linked bool) Action {
	if sweep == SweepPhotostream {
		if exists {
			return ActionSkip
		}

		return ActionCreate
	}

	switch {
	case !exists:
		return ActionCreateAndLink
	case !linked:
		return ActionLinkOnly
	default:
		return ActionNoop
	}
}

// Reconcile processes one photo from a sweep, updating the store, index,
// and counters in the report. albumID is empty for the photostream sweep.
// An error covers this photo only; the caller counts it and moves on.
func (r *Reconciler) Reconcile(ctx context.Context, photo *flickr.Photo, sweep Sweep, albumID string, report *Report) error {
	exists := r.index.Contains(photo.ID)

	linked := false

	if sweep == SweepAlbum && exists {
		var err error

		linked, err = r.index.HasLink(ctx, photo.ID, albumID)
		if err != nil {
			return err
		}
	}

	action := Classify(sweep, exists, linked)

	r.logger.Debug("classified photo",
		"photo_id", photo.ID, "sweep", sweep.String(),
		"album_id", albumID, "action", action.String())

	switch action {
	case ActionSkip:
		// The photostream never creates links; nothing to do and no
		// counter moves.
		return nil

	case ActionNoop:
		report.SkippedPhotos++
		return nil

	case ActionCreate:
		if err := r.createPhoto(ctx, photo); err != nil {
			return err
		}

		report.NewPhotos++
		report.PhotostreamNew++

		return nil

	case ActionCreateAndLink:
		if err := r.createPhoto(ctx, photo); err != nil {
			return err
		}

		report.NewPhotos++

		if err := r.store.InsertLinkIfAbsent(ctx, photo.ID, albumID, false); err != nil {
			return err
		}

		report.NewAssociations++

		return nil

	case ActionLinkOnly:
		if err := r.store.InsertLinkIfAbsent(ctx, photo.ID, albumID, false); err != nil {
			return err
		}

		report.NewAssociations++

		return nil

	default:
		return fmt.Errorf("archive: unknown action %d", action)
	}
}

// createPhoto fetches full detail and comments, downloads the thumbnail,
// and commits the photo row. The photo row is committed before any link
// to it, and the index is updated only after the commit succeeds.
func (r *Reconciler) createPhoto(ctx context.Context, photo *flickr.Photo) error {
	if err := r.source.GetPhotoInfo(ctx, photo); err != nil {
		return fmt.Errorf("fetch info for photo %s: %w", photo.ID, err)
	}

	thumbPath, err := r.source.DownloadThumbnail(ctx, photo.URLThumbnail, r.thumbDir, photo.ID)
	if err != nil {
		// A missing thumbnail is not worth losing the photo record over.
		r.logger.Warn("thumbnail download failed", "photo_id", photo.ID, "error", err)

		thumbPath = ""
	}

	record := photoRecordFrom(photo, thumbPath)

	if err := r.store.UpsertPhoto(ctx, record); err != nil {
		return err
	}

	r.index.Add(photo.ID)

	comments, err := r.source.ListComments(ctx, photo.ID)
	if err != nil {
		// Comments are supplementary; log and keep the photo.
		r.logger.Warn("comment fetch failed", "photo_id", photo.ID, "error", err)

		return nil
	}

	if err := r.store.InsertComments(ctx, photo.ID, commentRecordsFrom(comments)); err != nil {
		return err
	}

	r.logger.Info("archived photo",
		"photo_id", photo.ID, "title", photo.Title.Flatten(), "comments", len(comments))

	return nil
}

func photoRecordFrom(p *flickr.Photo, thumbPath string) *PhotoRecord {
	return &PhotoRecord{
		ID:            p.ID,
		Title:         p.Title.Flatten(),
		Description:   p.Description.Flatten(),
		Filename:      p.ID + ".jpg",
		ThumbnailPath: thumbPath,
		DateTaken:     p.DateTaken,
		DateUploaded:  p.DateUpload,
		Views:         p.Views.Int(),
		Tags:          p.Tags.Flatten(),
		URLOriginal:   p.URLOriginal,
		URLThumbnail:  p.URLThumbnail,
	}
}

func commentRecordsFrom(comments []flickr.Comment) []CommentRecord {
	records := make([]CommentRecord, 0, len(comments))

	for _, c := range comments {
		records = append(records, CommentRecord{
			ID:     c.ID,
			Author: c.Author,
			Text:   c.Text.Flatten(),
			Date:   c.DateCreate,
		})
	}

	return records
}
