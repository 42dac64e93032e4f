package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// errFailures ends a run whose outcomes were not all passing. The summary has
// already been printed, so main only sets the exit status.
var errFailures = errors.New("one or more scenarios failed")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "weather-contract-tester",
		Short: "Contract tests for the OpenWeatherMap current weather and forecast APIs",
		Long: `weather-contract-tester runs parametrized scenarios against the weather service,
validates every response against its structural contract and domain rules,
and writes a diagnostic record for each failing scenario.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newContractsCmd(), newTwinCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errFailures) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}
