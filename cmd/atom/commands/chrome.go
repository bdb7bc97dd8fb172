package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"atomkit/cmd/atom/globals"
	"atomkit/internal/chrome"

	"github.com/spf13/cobra"
)

var (
	chromeVersion  *string
	chromeHeadless *bool
	chromeURL      *string
)

func init() {
	chromeVersion = chromeCmd.PersistentFlags().String("version", "", "The snapshot revision, defaults to chrome_version or the latest one.")
	chromeHeadless = chromeLaunchCmd.Flags().Bool("headless", false, "Runs chrome without a window.")
	chromeURL = chromeLaunchCmd.Flags().String("url", "", "Navigates the first tab to this url.")
	chromeCmd.AddCommand(chromeDownloadCmd, chromeLaunchCmd)
	rootCmd.AddCommand(chromeCmd)
}

func newChromeDownloader(cmd *cobra.Command) (*chrome.Downloader, error) {
	g := globals.Get(cmd.Context())
	return chrome.NewDownloader(chrome.DownloaderOptions{
		Dir:       filepath.Join(g.Config.Dirs.Data(), "chrome"),
		Version:   g.Config.ChromeVersion,
		UserAgent: g.Config.UserAgent,
		Proxy:     g.Config.ProxyURL,
		Telemetry: g.Telemetry,
	})
}

// resolveChrome returns the executable of the requested version,
// downloading it when it does not exist yet.
func resolveChrome(cmd *cobra.Command, d *chrome.Downloader) (string, error) {
	version := *chromeVersion
	if version == "" {
		version = globals.Get(cmd.Context()).Config.ChromeVersion
	}
	if version == "" {
		latest, err := d.LatestVersion(cmd.Context())
		if err != nil {
			return "", err
		}
		version = latest
	}
	if d.Exist(version) {
		return d.Executable(version), nil
	}
	slog.Info("downloading chrome", "version", version)
	return d.Download(cmd.Context(), version)
}

var chromeCmd = &cobra.Command{
	Use:   "chrome",
	Short: "Commands for chromium snapshot builds.",
}

var chromeDownloadCmd = &cobra.Command{
	Use:   "download [--version rev]",
	Short: "Downloads a chromium snapshot and prints its executable.",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newChromeDownloader(cmd)
		if err != nil {
			return err
		}
		exe, err := resolveChrome(cmd, d)
		if err != nil {
			return err
		}
		fmt.Println(exe)
		return nil
	},
}

var chromeLaunchCmd = &cobra.Command{
	Use:   "launch [--version rev] [--headless] [--url url]",
	Short: "Launches chrome with a devtools connection until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		g := globals.Get(cmd.Context())
		d, err := newChromeDownloader(cmd)
		if err != nil {
			return err
		}
		exe, err := resolveChrome(cmd, d)
		if err != nil {
			return err
		}

		browser, err := chrome.Open(cmd.Context(), chrome.Options{
			Device: chrome.Device{
				Kind:      chrome.Desktop,
				UserAgent: g.Config.UserAgent,
				Proxy:     g.Config.ProxyURL,
			},
			Executable: exe,
			Headless:   *chromeHeadless,
			Telemetry:  g.Telemetry,
		})
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
			defer cancel()
			err := browser.Close(ctx)
			if err != nil {
				slog.Warn("failed to close chrome", "err", err)
			}
			browser.Launcher.CleanupDataDir()
		}()

		if *chromeURL != "" {
			_, _, err = browser.Dev.Domain("Page").Call(cmd.Context(), "navigate", map[string]any{"url": *chromeURL})
			if err != nil {
				return err
			}
		}
		slog.Info("chrome is running, press ctrl+c to stop", "devtools", browser.Launcher.URL())
		<-cmd.Context().Done()
		return nil
	},
}
