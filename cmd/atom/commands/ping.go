package commands

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"atomkit/cmd/atom/globals"
	"atomkit/internal/pinger"
	"atomkit/lib/fileio"
	"atomkit/lib/sliceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	pingServices     *string
	pingUserAgents   *string
	pingProxies      *string
	pingIncludeExist *bool
	pingOnlySuccess  *bool
	pingStrict       *bool
)

func init() {
	flags := pingCmd.PersistentFlags()
	pingServices = flags.String("services", "", "The services json file, defaults to <data>/ping_services.json.")
	pingUserAgents = flags.String("user-agents", "", "A file with one user agent per line.")
	pingProxies = flags.String("proxies", "", "A file with one proxy per line.")

	pingIncludeExist = pingCheckCmd.Flags().Bool("include-exist", false, "Checks the known services as well.")
	pingOnlySuccess = pingCheckCmd.Flags().Bool("only-success", false, "Drops dead services from the file.")
	pingStrict = pingSendCmd.Flags().Bool("strict", false, "Succeeds only if every alive service accepts the ping.")

	pingCmd.AddCommand(pingCheckCmd, pingSendCmd, pingListCmd)
	rootCmd.AddCommand(pingCmd)
}

func loadLines(file string) ([]string, error) {
	if file == "" {
		return nil, nil
	}
	lines, err := fileio.LoadLines(file, 1, "")
	if err != nil {
		return nil, err
	}
	return sliceutil.Dedup(lines), nil
}

func newPinger(cmd *cobra.Command) (*pinger.Pinger, error) {
	g := globals.Get(cmd.Context())
	services := *pingServices
	if services == "" {
		services = filepath.Join(g.Config.Dirs.Data(), "ping_services.json")
	}
	uas, err := loadLines(*pingUserAgents)
	if err != nil {
		return nil, err
	}
	if len(uas) == 0 && g.Config.UserAgent != "" {
		uas = []string{g.Config.UserAgent}
	}
	proxies, err := loadLines(*pingProxies)
	if err != nil {
		return nil, err
	}
	return pinger.New(pinger.Options{
		UserAgents: uas,
		Proxies:    proxies,
		File:       services,
		Telemetry:  g.Telemetry,
	})
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Commands for xml-rpc weblog ping services.",
}

var pingCheckCmd = &cobra.Command{
	Use:   "check [url]...",
	Short: "Checks which services are alive, the default services when none are given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPinger(cmd)
		if err != nil {
			return err
		}
		urls := args
		if len(urls) == 0 {
			urls = pinger.DefaultServices
		}
		checked, good, err := p.CheckServices(cmd.Context(), urls, *pingIncludeExist, *pingOnlySuccess)
		if err != nil {
			return err
		}
		slog.Info("services checked", "checked", checked, "good", good)
		return nil
	},
}

var pingSendCmd = &cobra.Command{
	Use:   "send <site name> <home url> [post url]",
	Short: "Pings every alive service.",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPinger(cmd)
		if err != nil {
			return err
		}
		post := ""
		if len(args) == 3 {
			post = args[2]
		}
		ok, ratio := p.Pinging(cmd.Context(), args[0], args[1], post, *pingStrict)
		fmt.Printf("success: %v, ratio: %.2f\n", ok, ratio)
		if !ok {
			return fmt.Errorf("ping failed")
		}
		return nil
	},
}

var pingListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the known services.",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPinger(cmd)
		if err != nil {
			return err
		}
		t := newTable()
		t.AppendHeader(table.Row{"URL", "Geo", "Alive", "Checked", "Response"})
		for _, s := range p.Services() {
			t.AppendRow(table.Row{s.URL, s.Geo, s.Alive, s.Timestamp, s.Err})
		}
		t.Render()
		return nil
	},
}
