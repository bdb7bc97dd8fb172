package commands

import (
	"fmt"

	"atomkit/cmd/atom/globals"
	"atomkit/internal/apis/domdetailer"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var metricMode *string

func init() {
	metricMode = metricCheckCmd.Flags().String("mode", "root", "The host majestic stats are computed for: url, root, subdomain or asis.")
	metricCmd.AddCommand(metricBalanceCmd, metricCheckCmd)
	rootCmd.AddCommand(metricCmd)
}

func newMetricClient(cmd *cobra.Command) (*domdetailer.Client, error) {
	g := globals.Get(cmd.Context())
	return domdetailer.NewClient(domdetailer.Options{
		App:       g.Config.DomdetailerApp,
		Key:       g.Config.DomdetailerKey,
		Telemetry: g.Telemetry,
		Debug:     g.HTTPDebug,
	})
}

var metricCmd = &cobra.Command{
	Use:   "metric",
	Short: "Commands for domain metrics (moz, majestic, social).",
}

var metricBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Prints the units left on the account.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newMetricClient(cmd)
		if err != nil {
			return err
		}
		units, err := client.Balance(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(units)
		return nil
	},
}

var metricCheckCmd = &cobra.Command{
	Use:   "check <domain>...",
	Short: "Checks the metrics of domains against the default thresholds.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newMetricClient(cmd)
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"Domain", "DA", "PA", "CF", "TF", "Ref domains", "Pass"})
		thresholds := domdetailer.DefaultThresholds()
		for _, domain := range args {
			data, err := client.Check(cmd.Context(), domain, domdetailer.Mode(*metricMode))
			if err != nil {
				return err
			}
			m := domdetailer.ParseMetrics(data)
			t.AppendRow(table.Row{
				domain, m.MozDA, m.MozPA, m.MajesticCF, m.MajesticTF,
				m.MajesticRefDomains, m.Pass(thresholds),
			})
		}
		t.Render()
		return nil
	},
}
