package commands

import (
	"fmt"
	"path/filepath"

	"atomkit/cmd/atom/globals"
	"atomkit/internal/notify"

	"github.com/spf13/cobra"
)

var (
	notifyFiles   *[]string
	notifyUrgency *int
)

func init() {
	notifyFiles = notifyMailCmd.Flags().StringSliceP("file", "f", nil, "Files to attach.")
	notifyUrgency = notifyCmd.PersistentFlags().IntP("urgency", "u", 0, "The urgency shown in the subject.")
	notifyCmd.AddCommand(notifyMailCmd, notifySmsCmd)
	rootCmd.AddCommand(notifyCmd)
}

func noticeDir(cmd *cobra.Command) string {
	return filepath.Join(globals.Get(cmd.Context()).Config.Dirs.Data(), "notice")
}

func sendNotice(cmd *cobra.Command, sender notify.Sender, to string, notice *notify.Notice) error {
	err := sender.Send(cmd.Context(), notice, to)
	if err != nil {
		return err
	}
	fmt.Printf("%s sent: %s\n", notice.ID, notice.SenderID)
	return nil
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Sends notices by mail or sms, every notice is also saved locally.",
}

var notifyMailCmd = &cobra.Command{
	Use:   "mail <to> <title> <content>",
	Short: "Sends a notice through the postfix server.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		g := globals.Get(cmd.Context())
		sender := notify.NewPostfixSender(notify.PostfixOptions{
			Host:      g.Config.PostfixDomain,
			Port:      g.Config.PostfixPortSmtp,
			Usr:       g.Config.PostfixUsr,
			Pwd:       g.Config.PostfixPwd,
			SSL:       g.Config.PostfixSSL,
			Dir:       noticeDir(cmd),
			Telemetry: g.Telemetry,
		})
		notice := sender.NewNotice(args[1], args[2], *notifyFiles, *notifyUrgency)
		return sendNotice(cmd, sender, args[0], notice)
	},
}

var notifySmsCmd = &cobra.Command{
	Use:   "sms <to> <title> <content>",
	Short: "Sends a notice through twilio, to is a number like +1 23456789.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		g := globals.Get(cmd.Context())
		sender, err := notify.NewTwilioSender(notify.TwilioOptions{
			Sid:       g.Config.TwilioSid,
			Token:     g.Config.TwilioToken,
			Number:    g.Config.TwilioNumber,
			Dir:       noticeDir(cmd),
			Telemetry: g.Telemetry,
		})
		if err != nil {
			return err
		}
		notice := sender.NewNotice(args[1], args[2], nil, *notifyUrgency)
		return sendNotice(cmd, sender, args[0], notice)
	},
}
