package worksmachine

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

// SetDefaults installs every node setting we rely on. It never touches the disk.
func SetDefaults(config *viper.Viper) {
	config.SetDefault("firstRun", true)
	config.SetDefault("flatFileDir", "data/")
	config.SetDefault("logLevel", 4)
	config.SetDefault("apiAddr", "127.0.0.1:1031")
	config.SetDefault("shutdownGrace", 120*time.Second)
	// account allowed to publish weighted ballot events, empty accepts any signer
	config.SetDefault("voteSource", "")
	// total eligible vote weight used when a ballot event did not carry one
	config.SetDefault("voteSupply", "0.0000 VOTE")
	config.SetDefault("bloomCapacity", 10000)
}

// InitConfig sets up our Viper config object
func InitConfig(config *viper.Viper) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		LogCLI(err.Error(), 0)
	}
	config.SetDefault("rootDir", homeDir+"/worksmachine/")
	config.SetConfigType("yaml")
	config.SetConfigFile(config.GetString("rootDir") + "config.yaml")
	err = config.ReadInConfig()
	if err != nil {
		LogCLI(err.Error(), 4)
	}
	SetDefaults(config)
	// Create our working directory and config file if not exist
	initRootDir(config)
	if err := Touch(config.GetString("rootDir") + "config.yaml"); err != nil {
		LogCLI(err.Error(), 0)
	}
	err = config.WriteConfig()
	if err != nil {
		LogCLI(err.Error(), 0)
	}
}

func initRootDir(conf *viper.Viper) {
	_, err := os.Stat(conf.GetString("rootDir"))
	if os.IsNotExist(err) {
		err = os.MkdirAll(conf.GetString("rootDir"), 0755)
		if err != nil {
			LogCLI(err, 0)
		}
	}
}
