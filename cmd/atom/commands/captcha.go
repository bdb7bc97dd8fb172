package commands

import (
	"fmt"
	"os"

	"atomkit/cmd/atom/globals"
	"atomkit/internal/apis/captcha"

	"github.com/spf13/cobra"
)

func init() {
	captchaCmd.AddCommand(captchaBalanceCmd, captchaSolveCmd)
	rootCmd.AddCommand(captchaCmd)
}

func newCaptchaClient(cmd *cobra.Command) (*captcha.Client, error) {
	g := globals.Get(cmd.Context())
	return captcha.NewClient(captcha.Options{
		Key:       g.Config.Key2Captcha,
		Telemetry: g.Telemetry,
		Debug:     g.HTTPDebug,
	})
}

var captchaCmd = &cobra.Command{
	Use:   "captcha",
	Short: "Commands for the 2captcha solving service.",
}

var captchaBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Prints the account balance.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newCaptchaClient(cmd)
		if err != nil {
			return err
		}
		balance, err := client.Balance(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%.4f\n", balance)
		return nil
	},
}

var captchaSolveCmd = &cobra.Command{
	Use:   "solve <image>",
	Short: "Solves an image captcha and prints its text.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		image, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		client, err := newCaptchaClient(cmd)
		if err != nil {
			return err
		}
		text, err := client.SolveNormal(cmd.Context(), image)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}
