package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tvuorinen/flickrarc/internal/archive"
	"github.com/tvuorinen/flickrarc/internal/config"
	"github.com/tvuorinen/flickrarc/internal/flickr"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session state and archive contents",
		RunE:  runStatus,
	}
}

// statusOutput is the JSON schema for `status --json`.
type statusOutput struct {
	LoggedIn bool            `json:"logged_in"`
	Username string          `json:"username,omitempty"`
	Database string          `json:"database"`
	Counts   *archive.Counts `json:"counts,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	out := statusOutput{}

	client, err := newFlickrClient(logger)
	if err != nil {
		logger.Debug("client unavailable", "error", err)
	} else if client.HasToken() {
		username, loginErr := client.TestLogin(ctx)

		switch {
		case loginErr == nil:
			out.LoggedIn = true
			out.Username = username
		case errors.Is(loginErr, flickr.ErrAuthRequired):
			logger.Info("session token rejected")
		default:
			return fmt.Errorf("checking session: %w", loginErr)
		}
	}

	dataDir := loadedCfg.ResolveDataDir()
	out.Database = config.DatabasePath(dataDir)

	if _, statErr := os.Stat(out.Database); statErr == nil {
		store, storeErr := archive.NewStore(out.Database, logger)
		if storeErr != nil {
			return storeErr
		}
		defer store.Close()

		counts, countErr := store.Counts(ctx)
		if countErr != nil {
			return countErr
		}

		out.Counts = counts
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	}

	if out.LoggedIn {
		fmt.Printf("Logged in as %s\n", out.Username)
	} else {
		fmt.Println("Not logged in (run 'flickrarc login')")
	}

	fmt.Printf("Archive: %s\n", out.Database)

	if out.Counts == nil {
		fmt.Println("No archive database yet (run 'flickrarc sync')")
		return nil
	}

	fmt.Printf("  %d albums, %d photos, %d associations, %d comments\n",
		out.Counts.Albums, out.Counts.Photos, out.Counts.Links, out.Counts.Comments)

	return nil
}
