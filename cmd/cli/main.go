package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "sizer",
		Short: "Least-cost solar + battery sizing for a target service level",
		Long: "sizer sizes solar and battery capacity to serve a fixed load at a target availability,\n" +
			"evaluates fixed capacities, sweeps countries and years, and levelizes the result.\n\n" +
			"notes:\n" +
			"  - dispatch CSVs carry action=CHARGING/IDLE/DISCHARGING per period\n" +
			"  - rank scores each location by the greedy availability of a canonical system",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging to stderr")

	rootCmd.AddCommand(optimizeCmd())
	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(rankCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// newLogger writes warnings (or everything with --verbose) to stderr.
func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}
