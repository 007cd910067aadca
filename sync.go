package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tvuorinen/flickrarc/internal/archive"
	"github.com/tvuorinen/flickrarc/internal/config"
)

// errAuthRequired signals main() to exit with the dedicated auth exit code.
var errAuthRequired = errors.New("authorization required, run 'flickrarc login'")

var flagLookbackDays int

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the local archive with Flickr",
		Long:  "Sweeps the photostream within the lookback window and every album, archiving new photos, thumbnails, comments, and album associations. Already-archived photos are never re-downloaded.",
		RunE:  runSync,
	}

	cmd.Flags().IntVar(&flagLookbackDays, "lookback-days", -1,
		"photostream lookback window in days, 0 for unlimited (default from config)")

	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := shutdownContext(cmd.Context(), logger)

	client, err := newFlickrClient(logger)
	if err != nil {
		return err
	}

	dataDir := loadedCfg.ResolveDataDir()
	if err := os.MkdirAll(config.ThumbnailsDir(dataDir), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	// One sync per archive at a time; a second invocation fails fast
	// instead of contending for the database.
	unlock, err := acquireLock(archiveLockPath(dataDir))
	if err != nil {
		return err
	}
	defer unlock()

	store, err := archive.NewStore(config.DatabasePath(dataDir), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	lookback := loadedCfg.Sync.LookbackDays
	if flagLookbackDays >= 0 {
		lookback = flagLookbackDays
	}

	orch := archive.NewOrchestrator(client, store, client.UserID(), lookback,
		config.ThumbnailsDir(dataDir), logger)

	report, err := orch.Run(ctx)
	if err != nil {
		if report != nil && report.AuthRequired {
			return errAuthRequired
		}

		return err
	}

	if report.AuthRequired {
		statusf("%s\n", report.Summary())
		return errAuthRequired
	}

	if flagJSON {
		return printSyncJSON(report)
	}

	statusf("%s\n", report.Summary())

	return nil
}

// syncOutput is the JSON schema for `sync --json`.
type syncOutput struct {
	Outcome         string  `json:"outcome"`
	NewPhotos       int     `json:"new_photos"`
	NewAssociations int     `json:"new_associations"`
	SkippedPhotos   int     `json:"skipped_photos"`
	PhotostreamNew  int     `json:"photostream_new"`
	PhotoErrors     int     `json:"photo_errors"`
	AlbumErrors     int     `json:"album_errors"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
}

func printSyncJSON(report *archive.Report) error {
	out := syncOutput{
		Outcome:         string(report.Outcome()),
		NewPhotos:       report.NewPhotos,
		NewAssociations: report.NewAssociations,
		SkippedPhotos:   report.SkippedPhotos,
		PhotostreamNew:  report.PhotostreamNew,
		PhotoErrors:     report.PhotoErrors,
		AlbumErrors:     report.AlbumErrors,
		ElapsedSeconds:  report.Elapsed.Seconds(),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}
