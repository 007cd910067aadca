package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tvuorinen/flickrarc/internal/archive"
	"github.com/tvuorinen/flickrarc/internal/config"
)

var (
	flagExportAlbum  string
	flagExportOutput string
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export archived photo metadata as CSV",
		Long:  "Writes photo metadata to CSV, optionally limited to one album. Use - or omit --output for stdout.",
		RunE:  runExport,
	}

	cmd.Flags().StringVar(&flagExportAlbum, "album", "", "album id to export (default: all photos)")
	cmd.Flags().StringVarP(&flagExportOutput, "output", "o", "", "destination file (default: stdout)")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	dataDir := loadedCfg.ResolveDataDir()

	store, err := archive.NewStore(config.DatabasePath(dataDir), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	photos, err := store.SearchPhotos(ctx, archive.PhotoQuery{AlbumID: flagExportAlbum})
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout

	if flagExportOutput != "" && flagExportOutput != "-" {
		f, createErr := os.Create(flagExportOutput)
		if createErr != nil {
			return fmt.Errorf("creating export file: %w", createErr)
		}
		defer f.Close()

		out = f
	}

	if err := writePhotoCSV(out, photos); err != nil {
		return err
	}

	logger.Info("export complete", "photos", len(photos), "album_id", flagExportAlbum)
	statusf("Exported %d photos.\n", len(photos))

	return nil
}

func writePhotoCSV(out io.Writer, photos []archive.PhotoRecord) error {
	w := csv.NewWriter(out)

	header := []string{
		"id", "title", "description", "date_taken", "date_uploaded",
		"views", "tags", "filename", "url_original",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for i := range photos {
		p := &photos[i]

		row := []string{
			p.ID, p.Title, p.Description, p.DateTaken, p.DateUploaded,
			strconv.Itoa(p.Views), p.Tags, p.Filename, p.URLOriginal,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing CSV: %w", err)
	}

	return nil
}
