package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sasha-s/go-deadlock"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/guilledk/telos-works/consensus/policy"
	"github.com/guilledk/telos-works/worksmachine"
)

const programName = "worksmachine"

var globalFlags = struct {
	rootDir  string
	logLevel int
}{}

// loadConfig builds the node configuration. Flags win over the config file.
func loadConfig(cmd *cobra.Command) *viper.Viper {
	// Various aspect of this application require global and local settings. To keep things
	// clean and tidy we put these settings in a Viper configuration.
	conf := viper.New()
	if len(globalFlags.rootDir) > 0 {
		conf.Set("rootDir", globalFlags.rootDir)
	}
	policy.SetDefaults(conf)
	worksmachine.InitConfig(conf)
	if cmd.Flags().Changed("log-level") {
		conf.Set("logLevel", globalFlags.logLevel)
	}
	// make the config accessible globally
	worksmachine.SetConfig(conf)
	return conf
}

func main() {
	deadlock.Opts.DisableLockOrderDetection = true
	deadlock.Opts.DeadlockTimeout = time.Millisecond * 30000

	rootCmd := &cobra.Command{
		Use:   programName,
		Short: "Telos Works treasury, proposals and ballots",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loadConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().
		StringVar(&globalFlags.rootDir, "root-dir", "", "directory holding config.yaml, wallet.dat and the data directory")
	rootCmd.PersistentFlags().
		IntVarP(&globalFlags.logLevel, "log-level", "l", 4, "0 fatal, 1 error, 2 warning, 3 debug, 4 info, 5 trace")

	rootCmd.AddCommand(runCommand())
	rootCmd.AddCommand(walletCommand())
	rootCmd.AddCommand(backupCommand())
	rootCmd.AddCommand(sendCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
