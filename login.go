package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tvuorinen/flickrarc/internal/config"
	"github.com/tvuorinen/flickrarc/internal/flickr"
	"github.com/tvuorinen/flickrarc/internal/tokenfile"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authorize access to your Flickr account",
		Long:  "Runs the out-of-band OAuth flow: prints an authorization URL to open in a browser, then exchanges the verifier code for a session token.",
		RunE:  runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved session token",
		RunE:  runLogout,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	creds, err := ensureCredentials(cmd.InOrStdin())
	if err != nil {
		return err
	}

	client := flickr.NewClient("", flickr.Credentials{
		APIKey:    creds.APIKey,
		APISecret: creds.APISecret,
		UserID:    creds.UserID,
	}, nil, defaultHTTPClient(), logger)

	logger.Info("starting authorization flow")

	if _, err := client.RequestToken(ctx); err != nil {
		return fmt.Errorf("requesting temporary token: %w", err)
	}

	// Authorization prompts must always be visible, not suppressed by --quiet.
	fmt.Fprintf(os.Stderr, "Open this URL in a browser and authorize the app:\n\n  %s\n\n", client.AuthorizeURL())
	fmt.Fprint(os.Stderr, "Enter the verification code shown by Flickr: ")

	verifier, err := readLine(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("reading verification code: %w", err)
	}

	token, err := client.AccessToken(ctx, verifier)
	if err != nil {
		return fmt.Errorf("exchanging verification code: %w", err)
	}

	if err := tokenfile.Save(config.DefaultTokenPath(), token); err != nil {
		return err
	}

	username, err := client.TestLogin(ctx)
	if err != nil {
		return fmt.Errorf("verifying new session: %w", err)
	}

	logger.Info("login successful", "username", username)
	statusf("Logged in as %s.\n", username)

	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	if err := tokenfile.Remove(config.DefaultTokenPath()); err != nil {
		return err
	}

	logger.Info("session token removed")
	statusf("Logged out.\n")

	return nil
}

// ensureCredentials loads the saved API credentials, prompting for and
// saving them on first use.
func ensureCredentials(in io.Reader) (*config.Credentials, error) {
	creds, err := config.LoadCredentials(config.DefaultCredentialsPath())
	if err != nil {
		return nil, err
	}

	if creds != nil {
		return creds, nil
	}

	fmt.Fprintln(os.Stderr, "No API credentials found. Create an API key at https://www.flickr.com/services/apps/create/")

	reader := bufio.NewReader(in)

	creds = &config.Credentials{}

	prompts := []struct {
		label string
		dest  *string
	}{
		{"API key", &creds.APIKey},
		{"API secret", &creds.APISecret},
		{"User ID (e.g. 12345678@N00)", &creds.UserID},
	}

	for _, p := range prompts {
		fmt.Fprintf(os.Stderr, "%s: ", p.label)

		line, err := readLineFrom(reader)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p.label, err)
		}

		*p.dest = line
	}

	if err := config.SaveCredentials(config.DefaultCredentialsPath(), creds); err != nil {
		return nil, err
	}

	statusf("Credentials saved to %s.\n", config.DefaultCredentialsPath())

	return creds, nil
}

func readLine(in io.Reader) (string, error) {
	return readLineFrom(bufio.NewReader(in))
}

func readLineFrom(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}

	return strings.TrimSpace(line), nil
}
