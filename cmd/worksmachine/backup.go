package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guilledk/telos-works/database"
	"github.com/guilledk/telos-works/worksmachine"
)

func backupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backup <destination>",
		Short: "Copy the data directory. Run it while the node is stopped.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.FromConfig(worksmachine.MakeOrGetConfig())
			if err != nil {
				return err
			}
			if err := db.Backup(args[0]); err != nil {
				return err
			}
			fmt.Printf("copied %s to %s\n", db.Root(), args[0])
			return nil
		},
	}
}
