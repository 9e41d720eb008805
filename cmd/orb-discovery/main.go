package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/netboxlabs/orb-discovery/internal/runner"
	"github.com/projectdiscovery/gologger"
)

func main() {
	options := runner.ParseOptions()

	discoveryRunner, err := runner.NewRunner(options)
	if err != nil {
		gologger.Fatal().Msgf("Could not create runner: %s\n", err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	// Setup close handler
	go func() {
		<-c
		fmt.Println("\r- Ctrl+C pressed in Terminal, Exiting...")
		cancel()
	}()

	err = discoveryRunner.Run(ctx)
	interrupted := ctx.Err() != nil
	cancel()
	if closeErr := discoveryRunner.Close(); closeErr != nil {
		gologger.Warning().Msgf("Could not release sockets: %s\n", closeErr)
	}
	if err != nil && !interrupted {
		gologger.Error().Msgf("Could not run orb-discovery: %s\n", err)
		os.Exit(1)
	}
}
