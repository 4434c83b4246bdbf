package worksmachine

import (
	"fmt"
	"os"
	"time"

	"github.com/sasha-s/go-deadlock"
	"github.com/spf13/viper"
)

var conf *viper.Viper
var confMutex = &deadlock.Mutex{}

// MakeOrGetConfig returns the node configuration. If nothing has been loaded yet we hand
// out an in-memory config carrying the defaults so that callers never see nil.
func MakeOrGetConfig() *viper.Viper {
	confMutex.Lock()
	defer confMutex.Unlock()
	if conf == nil {
		conf = viper.New()
		SetDefaults(conf)
	}
	return conf
}

func SetConfig(config *viper.Viper) {
	confMutex.Lock()
	defer confMutex.Unlock()
	conf = config
	SetLogLevel(config.GetInt("logLevel"))
}

var shutdown chan struct{}
var shutdownMutex = &deadlock.Mutex{}

// Shutdown closes the registered shutdown channel. If anything fails to close within the
// grace period the process is killed.
func Shutdown() {
	shutdownMutex.Lock()
	defer shutdownMutex.Unlock()
	if shutdown == nil {
		return
	}
	select {
	case <-shutdown:
		return
	default:
		close(shutdown)
	}
	grace := MakeOrGetConfig().GetDuration("shutdownGrace")
	go func() {
		LogCLI(fmt.Sprintf("Shutting down. If any databases fail to close gracefully within %s they will be abandoned.", grace), 4)
		time.Sleep(grace)
		println("Something didn't shutdown cleanly, the data directory may need to be restored from a backup.")
		os.Exit(1)
	}()
}

func RegisterShutdownChan(c chan struct{}) {
	shutdownMutex.Lock()
	defer shutdownMutex.Unlock()
	shutdown = c
}
