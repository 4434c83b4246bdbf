package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guilledk/telos-works/worksmachine"
)

func walletCommand() *cobra.Command {
	showSecret := false
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Print the operator wallet, creating one if there is none",
		Run: func(cmd *cobra.Command, args []string) {
			w := worksmachine.MyWallet()
			fmt.Printf("Account: %s\n", w.Account)
			if showSecret {
				fmt.Printf("Private Key: %s\nSeed Words: %s\n", w.PrivateKey, w.SeedWords)
			}
		},
	}
	cmd.Flags().BoolVar(&showSecret, "show-secret", false, "also print the private key and seed words")
	cmd.AddCommand(&cobra.Command{
		Use:   "restore <seed words>",
		Short: "Replace the operator wallet with one derived from seed words",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := worksmachine.WalletFromSeedWords(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if err := worksmachine.SetWallet(w); err != nil {
				return err
			}
			fmt.Printf("Account: %s\n", w.Account)
			return nil
		},
	})
	return cmd
}
