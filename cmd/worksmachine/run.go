package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/guilledk/telos-works/consensus/conductor"
	"github.com/guilledk/telos-works/consensus/policy"
	"github.com/guilledk/telos-works/database"
	"github.com/guilledk/telos-works/messaging/api"
	"github.com/guilledk/telos-works/worksmachine"
)

func runCommand() *cobra.Command {
	keys := true
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the works machine and serve the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(worksmachine.MakeOrGetConfig(), keys)
		},
	}
	cmd.Flags().BoolVar(&keys, "keys", true, "listen for single key commands on the terminal")
	return cmd
}

func printBanner(conf *viper.Viper) {
	if conf.GetBool("firstRun") {
		//Just giving everyone a chance to soak this up on the first run
		scanner := bufio.NewScanner(strings.NewReader(worksmachine.Banner()))
		for scanner.Scan() {
			time.Sleep(time.Millisecond * 127)
			fmt.Println(scanner.Text())
		}
		fmt.Println()
		return
	}
	fmt.Printf("\n%s\n", worksmachine.Banner())
}

func run(conf *viper.Viper, keys bool) error {
	printBanner(conf)
	genesis, err := policy.FromConfig(conf)
	if err != nil {
		return err
	}
	if !policy.IsKey(genesis.Admin) {
		worksmachine.LogCLI(fmt.Sprintf("policy.admin %q cannot sign, the operator wallet is the admin", genesis.Admin), 3)
		genesis = genesis.AdminOr(worksmachine.MyWallet().Account)
	}
	supply, err := worksmachine.ParseAsset(conf.GetString("voteSupply"))
	if err != nil {
		return fmt.Errorf("voteSupply: %w", err)
	}
	db, err := database.FromConfig(conf)
	if err != nil {
		return err
	}

	// the terminator channel blocks until shutdown, anything requiring a clean shutdown should
	// wait on this channel and clean up when it stops blocking.
	terminator := make(chan struct{})
	// anything requiring a clean shutdown (databases etc) need to either directly or
	// by proxy add to this waitgroup and remove from this waitgroup when they
	// have cleanly shut down.
	wg := &sync.WaitGroup{}
	// interrupt is closed by worksmachine.Shutdown, from a key press, a signal or a fatal error.
	interrupt := make(chan struct{})
	worksmachine.RegisterShutdownChan(interrupt)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case s := <-signals:
			worksmachine.LogCLI("received "+s.String(), 4)
			worksmachine.Shutdown()
		case <-interrupt:
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c := conductor.New(db, conductor.Options{
		Genesis:        genesis,
		VoteSource:     conf.GetString("voteSource"),
		FallbackSupply: supply,
		BloomCapacity:  conf.GetUint("bloomCapacity"),
		Registry:       registry,
	})
	c.Start(terminator, wg)
	server := api.New(c, registry)
	if err := server.Start(conf.GetString("apiAddr"), terminator, wg); err != nil {
		close(terminator)
		wg.Wait()
		return err
	}
	if keys {
		go cliListener(c, server)
	}
	worksmachine.LogCLI("Waiting for terminate signal, press q to quit", 4)

	<-interrupt
	signal.Stop(signals)
	conf.Set("firstRun", false)
	if err := conf.WriteConfig(); err != nil {
		worksmachine.LogCLI(err.Error(), 3)
	}
	close(terminator)
	wg.Wait()
	return nil
}
