package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wyfcoding/heston/internal/simulation/application"
	"github.com/wyfcoding/heston/internal/simulation/infrastructure/publisher"
	"github.com/wyfcoding/heston/pkg/logger"
)

func newRunCmd() *cobra.Command {
	var (
		cmdArgs   application.CreateSimulationCommand
		target    int
		batchSize int
		interval  time.Duration
		asJSON    bool
		withPaths bool
	)
	cmdArgs.SimulationParams = application.SimulationParams{
		S0: 100, V0: 0.04, R: 0.05, Theta: 0.04, Kappa: 2, Xi: 0.3, Rho: -0.7, T: 1, K: 100, N: 252,
	}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a local progressive simulation and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			simCfg := cfg.Simulation
			simCfg.MaxSessions = 1
			simCfg.FrameIntervalMs = int(interval / time.Millisecond)
			if batchSize > simCfg.MaxBatchSize {
				simCfg.MaxBatchSize = batchSize
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc := application.NewSimulationService(simCfg, publisher.NewLogEventPublisher(), nil)
			sim, err := svc.CreateSimulation(ctx, cmdArgs)
			if err != nil {
				return err
			}
			logger.Info(ctx, "simulation started",
				"simulation_id", sim.ID,
				"seed", sim.Seed,
				"black_scholes_price", sim.BlackScholesPrice.String(),
			)

			final, err := svc.RunUntil(ctx, application.RunUntilCommand{ID: sim.ID, Target: target, BatchSize: batchSize},
				func(d *application.SimulationDTO) {
					logger.Info(ctx, "progress",
						"simulation_count", d.SimulationCount,
						"phase", d.Phase,
						"option_price", d.OptionPrice.String(),
						"standard_error", d.StandardError.String(),
					)
				})
			if err != nil && final == nil {
				return err
			}
			if err != nil {
				logger.Warn(ctx, "simulation interrupted", "error", err)
			}

			var paths []*application.PercentilePathDTO
			if withPaths {
				if paths, err = svc.ListPercentilePaths(ctx, sim.ID); err != nil {
					return err
				}
			}
			return printResult(cmd, final, paths, asJSON)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&cmdArgs.S0, "s0", cmdArgs.S0, "initial asset price")
	f.Float64Var(&cmdArgs.V0, "v0", cmdArgs.V0, "initial variance")
	f.Float64Var(&cmdArgs.R, "r", cmdArgs.R, "risk-free rate")
	f.Float64Var(&cmdArgs.Theta, "theta", cmdArgs.Theta, "long-run variance")
	f.Float64Var(&cmdArgs.Kappa, "kappa", cmdArgs.Kappa, "mean-reversion speed")
	f.Float64Var(&cmdArgs.Xi, "xi", cmdArgs.Xi, "volatility of variance")
	f.Float64Var(&cmdArgs.Rho, "rho", cmdArgs.Rho, "price/variance correlation")
	f.Float64Var(&cmdArgs.T, "t", cmdArgs.T, "time to maturity in years")
	f.Float64Var(&cmdArgs.K, "k", cmdArgs.K, "strike price")
	f.IntVar(&cmdArgs.N, "n", cmdArgs.N, "time steps per path")
	f.Uint64Var(&cmdArgs.Seed, "seed", 0, "random seed, 0 derives one from the clock")
	f.StringVar(&cmdArgs.Generator, "generator", application.GeneratorPCG, "uniform generator: pcg or lcg")
	f.IntVar(&target, "paths", 10000, "total number of paths to simulate")
	f.IntVar(&batchSize, "batch", 1000, "paths per batch")
	f.DurationVar(&interval, "interval", 0, "pause between batches")
	f.BoolVar(&asJSON, "json", false, "print the result as JSON")
	f.BoolVar(&withPaths, "percentiles", false, "include percentile paths in the output")
	return cmd
}

func printResult(cmd *cobra.Command, sim *application.SimulationDTO, paths []*application.PercentilePathDTO, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Simulation  *application.SimulationDTO       `json:"simulation"`
			Percentiles []*application.PercentilePathDTO `json:"percentiles,omitempty"`
		}{sim, paths})
	}

	fmt.Fprintf(out, "paths:          %d\n", sim.SimulationCount)
	fmt.Fprintf(out, "phase:          %s\n", sim.Phase)
	fmt.Fprintf(out, "option price:   %s\n", sim.OptionPrice.String())
	fmt.Fprintf(out, "standard error: %s\n", sim.StandardError.String())
	fmt.Fprintf(out, "black-scholes:  %s\n", sim.BlackScholesPrice.String())
	fmt.Fprintf(out, "difference:     %s\n", sim.PriceDifference.String())
	for _, p := range paths {
		fmt.Fprintf(out, "p%-3d final:     %s\n", p.Percentile, p.Final.String())
	}
	if sim.NonFinite {
		fmt.Fprintln(os.Stderr, "warning: non-finite values were reported as zero")
	}
	return nil
}
