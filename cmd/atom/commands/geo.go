package commands

import (
	"fmt"

	"atomkit/cmd/atom/globals"
	"atomkit/internal/geo"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var geoDB *string

func init() {
	geoDB = geoCmd.Flags().String("db", "", "The maxmind city database, defaults to geo_db.")
	rootCmd.AddCommand(geoCmd)
}

var geoCmd = &cobra.Command{
	Use:   "geo <ip>...",
	Short: "Looks up the addresses of ips.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file := *geoDB
		if file == "" {
			file = globals.Get(cmd.Context()).Config.GeoDB
		}
		if file == "" {
			return fmt.Errorf("no geo database, set geo_db or pass --db")
		}
		db, err := geo.Open(file)
		if err != nil {
			return err
		}
		defer db.Close()

		t := newTable()
		t.AppendHeader(table.Row{"IP", "Country", "State", "City", "Zip", "Time zone", "Offset", "Coordinate"})
		for _, ip := range args {
			a, err := db.Lookup(ip)
			if err != nil {
				return err
			}
			t.AppendRow(table.Row{
				a.IP, a.Country, a.State, a.City, a.Zip, a.TimeZone, a.TZOffset,
				fmt.Sprintf("%.4f, %.4f", a.Coordinate.Latitude, a.Coordinate.Longitude),
			})
		}
		t.Render()
		return nil
	},
}
