package commands

import (
	"fmt"

	"atomkit/cmd/atom/globals"
	"atomkit/internal/apis/stock"
	"atomkit/internal/cache"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var stockParams stock.Params

func init() {
	flags := stockCmd.PersistentFlags()
	flags.StringVar(&stockParams.Lang, "lang", "en", "The language of the query.")
	flags.StringVar(&stockParams.Orientation, "orientation", "", "all, horizontal or vertical.")
	flags.StringVar(&stockParams.Category, "category", "", "Only return hits of this category.")
	flags.StringVar(&stockParams.Order, "order", "", "popular or latest.")
	flags.IntVar(&stockParams.Page, "page", 1, "The page of results.")
	flags.IntVar(&stockParams.PerPage, "per-page", 20, "Hits per page, 3 to 200.")
	flags.BoolVar(&stockParams.SafeSearch, "safe", true, "Only return hits suitable for all ages.")

	stockImagesCmd.Flags().StringVar(&stockParams.ImageType, "type", "all", "all, photo, illustration or vector.")
	stockVideosCmd.Flags().StringVar(&stockParams.VideoType, "type", "all", "all, film or animation.")

	stockCmd.AddCommand(stockImagesCmd, stockVideosCmd)
	rootCmd.AddCommand(stockCmd)
}

func newPixabay(cmd *cobra.Command) (*stock.Pixabay, func(), error) {
	g := globals.Get(cmd.Context())
	store, err := cache.Open(g.Config.Cache, "pixabay", g.Telemetry)
	if err != nil {
		return nil, nil, err
	}
	client, err := stock.NewPixabay(stock.Options{
		Key:       g.Config.PixabayKey,
		Cache:     store,
		Telemetry: g.Telemetry,
		Debug:     g.HTTPDebug,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return client, func() { store.Close() }, nil
}

var stockCmd = &cobra.Command{
	Use:   "stock",
	Short: "Searches the pixabay stock library.",
}

var stockImagesCmd = &cobra.Command{
	Use:   "images <query>",
	Short: "Lists the images matching a query.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, done, err := newPixabay(cmd)
		if err != nil {
			return err
		}
		defer done()

		params := stockParams
		params.Q = args[0]
		res, err := client.SearchImages(cmd.Context(), params)
		if err != nil {
			return err
		}
		photos, err := stock.ParseImages(res, stock.LargeImageURL)
		if err != nil {
			return err
		}

		total, totalHits := stock.ParseTotals(res)
		t := newTable()
		t.SetTitle("%d hits (%d accessible)", total, totalHits)
		t.AppendHeader(table.Row{"ID", "Type", "Size", "Tags", "URL"})
		for _, p := range photos {
			t.AppendRow(table.Row{p.ID, p.Type, p.Width * p.Height, p.Tags, p.URL})
		}
		t.Render()
		return nil
	},
}

var stockVideosCmd = &cobra.Command{
	Use:   "videos <query>",
	Short: "Lists the videos matching a query.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, done, err := newPixabay(cmd)
		if err != nil {
			return err
		}
		defer done()

		params := stockParams
		params.Q = args[0]
		res, err := client.SearchVideos(cmd.Context(), params)
		if err != nil {
			return err
		}
		videos, err := stock.ParseVideos(res, "large")
		if err != nil {
			return err
		}

		total, totalHits := stock.ParseTotals(res)
		t := newTable()
		t.SetTitle("%d hits (%d accessible)", total, totalHits)
		t.AppendHeader(table.Row{"ID", "Duration", "Resolution", "Tags", "URL"})
		for _, v := range videos {
			t.AppendRow(table.Row{v.ID, v.Duration, fmt.Sprintf("%dx%d", v.Width, v.Height), v.Tags, v.URL})
		}
		t.Render()
		return nil
	},
}
