package commands

import (
	"fmt"

	"atomkit/cmd/atom/globals"

	"github.com/spf13/cobra"
)

func init() {
	dbCmd.AddCommand(dbTablesCmd)
	rootCmd.AddCommand(dbCmd)
}

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Commands for the configured database.",
}

var dbTablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Lists the tables of the database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := globals.Get(cmd.Context()).Config.DB.Open()
		if err != nil {
			return err
		}
		defer db.Close()

		names, err := db.TableNames(cmd.Context())
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}
