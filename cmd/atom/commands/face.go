package commands

import (
	"fmt"

	"atomkit/cmd/atom/globals"
	"atomkit/internal/apis/fakeface"

	"github.com/spf13/cobra"
)

var (
	faceGender *string
	faceMinAge *int
	faceMaxAge *int
	faceOut    *string
)

func init() {
	faceGender = faceCmd.Flags().String("gender", "female", "female or male.")
	faceMinAge = faceCmd.Flags().Int("min-age", 18, "The minimum age of the face.")
	faceMaxAge = faceCmd.Flags().Int("max-age", 50, "The maximum age of the face.")
	faceOut = faceCmd.Flags().StringP("out", "o", "", "Downloads the photo to this file.")
	rootCmd.AddCommand(faceCmd)
}

var faceCmd = &cobra.Command{
	Use:   "face [--gender female|male] [--min-age n] [--max-age n] [-o file]",
	Short: "Prints the url of a generated face photo.",
	RunE: func(cmd *cobra.Command, args []string) error {
		g := globals.Get(cmd.Context())
		client, err := fakeface.NewClient(fakeface.Options{
			UserAgent: g.Config.UserAgent,
			Proxy:     g.Config.ProxyURL,
			Telemetry: g.Telemetry,
			Debug:     g.HTTPDebug,
		})
		if err != nil {
			return err
		}

		url, err := client.Face(cmd.Context(), fakeface.Gender(*faceGender), *faceMinAge, *faceMaxAge)
		if err != nil {
			return err
		}
		fmt.Println(url)

		if *faceOut == "" {
			return nil
		}
		return client.Download(cmd.Context(), url, *faceOut)
	},
}
