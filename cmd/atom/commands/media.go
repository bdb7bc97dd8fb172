package commands

import (
	"fmt"
	"os"

	"atomkit/lib/imgutil"
	"atomkit/lib/markov"

	"github.com/spf13/cobra"
)

var (
	rehashPoints *int
	markovWords  *int
	markovCount  *int
)

func init() {
	rehashPoints = rehashCmd.Flags().Int("points", imgutil.DefaultPoints, "How many pixels to change.")
	markovWords = markovCmd.Flags().IntP("words", "w", 20, "The number of words of every sentence.")
	markovCount = markovCmd.Flags().IntP("count", "n", 1, "The number of sentences.")
	rootCmd.AddCommand(rehashCmd, markovCmd)
}

var rehashCmd = &cobra.Command{
	Use:   "rehash <src> <dst>",
	Short: "Changes a few pixels of an image so its hash changes.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := imgutil.NewRehasher(*rehashPoints).Rehash(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s %s -> %s\n", result.MIME, result.Before, result.After)
		return nil
	},
}

var markovCmd = &cobra.Command{
	Use:   "markov <corpus file>",
	Short: "Generates sentences from a markov chain of the corpus.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		chain, err := markov.New(string(text))
		if err != nil {
			return err
		}
		for range *markovCount {
			fmt.Println(chain.Generate(*markovWords))
		}
		return nil
	},
}
