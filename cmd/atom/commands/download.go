package commands

import (
	"log/slog"
	"time"

	"atomkit/cmd/atom/globals"
	"atomkit/internal/downloader"

	"github.com/spf13/cobra"
)

var downloadBlockSize *int64

func init() {
	downloadBlockSize = downloadCmd.Flags().Int64("block-size", downloader.DefaultBlockSize, "The size of every ranged request in bytes.")
	rootCmd.AddCommand(downloadCmd)
}

var downloadCmd = &cobra.Command{
	Use:   "download <url> <file>",
	Short: "Downloads a file, in byte ranges when the server supports them.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g := globals.Get(cmd.Context())
		client, err := downloader.New(downloader.Options{
			UserAgent: g.Config.UserAgent,
			Proxy:     g.Config.ProxyURL,
			BlockSize: *downloadBlockSize,
			Telemetry: g.Telemetry,
		})
		if err != nil {
			return err
		}

		start := time.Now()
		err = client.Download(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		slog.Info("downloaded", "file", args[1], "seconds", time.Since(start).Seconds())
		return nil
	},
}
