package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/tvuorinen/flickrarc/internal/flickr"
)

// Remote is the full remote surface a sync run needs. Satisfied by
// *flickr.Client.
type Remote interface {
	PhotoSource

	HasToken() bool
	TestLogin(ctx context.Context) (string, error)
	ListAlbums(ctx context.Context, userID string) ([]flickr.Album, error)
	ListAlbumPhotos(ctx context.Context, albumID, userID string) ([]flickr.Photo, error)
	ListPhotostream(ctx context.Context, userID string) ([]flickr.Photo, error)
}

var _ Remote = (*flickr.Client)(nil)

// Orchestrator drives one full sync run: validate the session, build the
// existing-state index, sweep the photostream within the lookback window,
// then sweep every album. Errors below sweep level are counted and logged,
// never fatal; a run only aborts on authentication loss or a canceled
// context.
type Orchestrator struct {
	remote       Remote
	store        *Store
	userID       string
	lookbackDays int
	thumbDir     string
	logger       *slog.Logger

	// Injectable for tests.
	now func() time.Time
}

// NewOrchestrator returns an orchestrator for the given user. A
// lookbackDays of zero disables the photostream recency filter.
func NewOrchestrator(remote Remote, store *Store, userID string, lookbackDays int, thumbDir string, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		remote:       remote,
		store:        store,
		userID:       userID,
		lookbackDays: lookbackDays,
		thumbDir:     thumbDir,
		logger:       logger,
		now:          time.Now,
	}
}

// Run executes one sync run and returns its report. A missing or rejected
// session token yields a report with AuthRequired set and no writes; the
// error return is reserved for failures that prevented the run entirely.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	started := o.now()

	report := &Report{}

	if !o.remote.HasToken() {
		o.logger.Warn("no session token, sync requires login")

		report.AuthRequired = true

		return report, nil
	}

	username, err := o.remote.TestLogin(ctx)
	if err != nil {
		if errors.Is(err, flickr.ErrAuthRequired) {
			o.logger.Warn("session token rejected, sync requires login")

			report.AuthRequired = true

			return report, nil
		}

		return nil, fmt.Errorf("archive: validate session: %w", err)
	}

	o.logger.Info("starting sync", "username", username, "lookback_days", o.lookbackDays)

	index, err := BuildIndex(ctx, o.store)
	if err != nil {
		return nil, fmt.Errorf("archive: build index: %w", err)
	}

	o.logger.Info("existing-state index loaded", "photos", index.Len())

	reconciler := NewReconciler(o.remote, o.store, index, o.thumbDir, o.logger)

	if err := o.sweepPhotostream(ctx, reconciler, report); err != nil {
		return report, err
	}

	if err := o.sweepAlbums(ctx, reconciler, report); err != nil {
		return report, err
	}

	report.Elapsed = o.now().Sub(started)

	o.logger.Info("sync complete",
		"outcome", string(report.Outcome()),
		"new_photos", report.NewPhotos,
		"new_associations", report.NewAssociations,
		"skipped", report.SkippedPhotos,
		"photostream_new", report.PhotostreamNew,
		"photo_errors", report.PhotoErrors,
		"elapsed", report.Elapsed)

	return report, nil
}

// sweepPhotostream enumerates the photostream and reconciles every photo
// uploaded within the lookback window. Photos outside the window are not
// counted as skips; they were never candidates.
func (o *Orchestrator) sweepPhotostream(ctx context.Context, reconciler *Reconciler, report *Report) error {
	photos, err := o.remote.ListPhotostream(ctx, o.userID)
	if err != nil {
		if abortErr := o.sweepError(err, "photostream listing failed", report); abortErr != nil {
			return abortErr
		}

		// Continue with whatever pages arrived before the failure.
		report.PhotoErrors++
	}

	cutoff := o.uploadCutoff()

	o.logger.Info("photostream sweep", "photos", len(photos), "cutoff", cutoff)

	for i := range photos {
		photo := &photos[i]

		if !uploadedSince(photo, cutoff) {
			continue
		}

		if err := reconciler.Reconcile(ctx, photo, SweepPhotostream, "", report); err != nil {
			if abortErr := o.photoError(ctx, err, photo.ID, report); abortErr != nil {
				return abortErr
			}
		}
	}

	return nil
}

// sweepAlbums enumerates every album and reconciles its full photo
// listing. One failing album does not stop the others.
func (o *Orchestrator) sweepAlbums(ctx context.Context, reconciler *Reconciler, report *Report) error {
	albums, err := o.remote.ListAlbums(ctx, o.userID)
	if err != nil {
		if abortErr := o.sweepError(err, "album listing failed", report); abortErr != nil {
			return abortErr
		}

		report.AlbumErrors++
	}

	o.logger.Info("album sweep", "albums", len(albums))

	for i := range albums {
		album := &albums[i]

		if err := o.syncAlbum(ctx, reconciler, album, report); err != nil {
			return err
		}
	}

	return nil
}

func (o *Orchestrator) syncAlbum(ctx context.Context, reconciler *Reconciler, album *flickr.Album, report *Report) error {
	logger := o.logger.With("album_id", album.ID, "title", album.Title.Flatten())

	if err := o.store.UpsertAlbum(ctx, albumRecordFrom(album)); err != nil {
		logger.Error("album upsert failed", "error", err)

		report.AlbumErrors++

		return nil
	}

	photos, err := o.remote.ListAlbumPhotos(ctx, album.ID, o.userID)
	if err != nil {
		if abortErr := o.sweepError(err, "album photo listing failed", report); abortErr != nil {
			return abortErr
		}

		report.AlbumErrors++
	}

	logger.Debug("album photos listed", "photos", len(photos))

	for i := range photos {
		photo := &photos[i]

		if err := reconciler.Reconcile(ctx, photo, SweepAlbum, album.ID, report); err != nil {
			if abortErr := o.photoError(ctx, err, photo.ID, report); abortErr != nil {
				return abortErr
			}
		}
	}

	return nil
}

// sweepError maps a sweep-level failure to either a run abort (auth loss,
// canceled context) or nil, in which case the caller records it and
// continues with partial results.
func (o *Orchestrator) sweepError(err error, msg string, report *Report) error {
	if errors.Is(err, flickr.ErrAuthRequired) {
		report.AuthRequired = true

		return fmt.Errorf("archive: %s: %w", msg, err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("archive: %s: %w", msg, err)
	}

	o.logger.Error(msg, "error", err)

	return nil
}

// photoError records a per-photo failure, aborting the run only on auth
// loss or a canceled context.
func (o *Orchestrator) photoError(ctx context.Context, err error, photoID string, report *Report) error {
	if errors.Is(err, flickr.ErrAuthRequired) {
		report.AuthRequired = true

		return fmt.Errorf("archive: photo %s: %w", photoID, err)
	}

	if ctx.Err() != nil {
		return fmt.Errorf("archive: photo %s: %w", photoID, err)
	}

	o.logger.Error("photo reconciliation failed", "photo_id", photoID, "error", err)

	report.PhotoErrors++

	return nil
}

// uploadCutoff returns the earliest upload time the photostream sweep
// considers, or the zero time if the lookback filter is disabled.
func (o *Orchestrator) uploadCutoff() time.Time {
	if o.lookbackDays <= 0 {
		return time.Time{}
	}

	return o.now().AddDate(0, 0, -o.lookbackDays)
}

// uploadedSince reports whether the photo's upload time falls at or after
// the cutoff. Photos with a missing or unparsable upload date pass the
// filter; excluding them would silently drop real photos.
func uploadedSince(photo *flickr.Photo, cutoff time.Time) bool {
	if cutoff.IsZero() {
		return true
	}

	secs, err := strconv.ParseInt(photo.DateUpload, 10, 64)
	if err != nil {
		return true
	}

	return !time.Unix(secs, 0).Before(cutoff)
}

func albumRecordFrom(a *flickr.Album) *AlbumRecord {
	return &AlbumRecord{
		ID:          a.ID,
		Title:       a.Title.Flatten(),
		Description: a.Description.Flatten(),
		PhotoCount:  a.Photos.Int(),
		CreatedDate: a.DateCreate,
		UpdatedDate: a.DateUpdate,
	}
}
