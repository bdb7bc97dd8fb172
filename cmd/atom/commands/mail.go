package commands

import (
	"fmt"
	"regexp"
	"time"

	"atomkit/cmd/atom/globals"
	"atomkit/internal/mail"

	"github.com/spf13/cobra"
)

var (
	mailFrom    *string
	mailTo      *string
	mailSubject *string
	mailSince   *time.Duration
	mailRetry   *int
	mailLinks   *bool
)

func init() {
	flags := mailCmd.PersistentFlags()
	mailFrom = flags.String("from", "", "Only mails from this address.")
	mailTo = flags.String("to", "", "Only mails to this address.")
	mailSubject = flags.String("subject", "", "Only mails whose subject contains this.")
	mailSince = flags.Duration("since", time.Hour*24, "Only mails sent within this duration.")
	mailRetry = mailSearchCmd.Flags().Int("retry", 1, "How many times to search, a minute apart.")
	mailLinks = mailListCmd.Flags().Bool("links", false, "Prints the links of html mails.")
	mailCmd.AddCommand(mailSearchCmd, mailListCmd)
	rootCmd.AddCommand(mailCmd)
}

var mailCmd = &cobra.Command{
	Use:   "mail",
	Short: "Commands for the postfix mailbox.",
}

func newMailReader(cmd *cobra.Command) (*mail.PostfixReader, error) {
	g := globals.Get(cmd.Context())
	return mail.NewPostfixReader(mail.ReaderOptions{
		Host:      g.Config.PostfixDomain,
		Port:      g.Config.PostfixPortImap,
		Usr:       g.Config.PostfixUsr,
		Pwd:       g.Config.PostfixPwd,
		SSL:       g.Config.PostfixSSL,
		Telemetry: g.Telemetry,
	})
}

var mailSearchCmd = &cobra.Command{
	Use:   "search <pattern>",
	Short: "Prints the distinct matches of a pattern in the matching mails.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern, err := regexp.Compile(args[0])
		if err != nil {
			return err
		}

		reader, err := newMailReader(cmd)
		if err != nil {
			return err
		}

		results, err := reader.Search(cmd.Context(), mail.SearchOptions{
			From:    *mailFrom,
			To:      *mailTo,
			Subject: *mailSubject,
			Pattern: pattern,
			Since:   time.Now().Add(-*mailSince),
			Retry:   *mailRetry,
		})
		if err != nil {
			return err
		}
		for _, result := range results {
			fmt.Println(result)
		}
		return nil
	},
}

var mailListCmd = &cobra.Command{
	Use:   "list",
	Short: "Prints the mails matching the filters as plain text, newest first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := newMailReader(cmd)
		if err != nil {
			return err
		}
		err = reader.Login(cmd.Context())
		if err != nil {
			return err
		}
		defer reader.Logout()

		since := time.Now().Add(-*mailSince)
		mails, err := reader.Collect(cmd.Context(), mail.DefaultFolder, mail.Criteria{
			From:    *mailFrom,
			To:      *mailTo,
			Subject: *mailSubject,
			Since:   since,
		})
		if err != nil {
			return err
		}
		for _, m := range mail.Filter(mails, since) {
			fmt.Printf("#%d %s %s\n%s\n%s\n", m.UID, m.Date.Format(time.DateTime), m.From, m.Subject, m.Text())
			if *mailLinks {
				for _, link := range m.Links(cmd.Context()) {
					fmt.Printf("  %s <%s>\n", link.Name, link.Href)
				}
			}
			fmt.Println()
		}
		return nil
	},
}
