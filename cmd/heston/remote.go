package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wyfcoding/heston/internal/simulation/application"
	grpchandler "github.com/wyfcoding/heston/internal/simulation/interfaces/grpc"
	"github.com/wyfcoding/heston/pkg/grpcclient"
	"github.com/wyfcoding/heston/pkg/logger"
)

func newRemoteCmd() *cobra.Command {
	var (
		clientCfg = grpcclient.ClientConfig{ConnTimeout: 5, RequestTimeout: 60, MaxRetries: 3, RetryDelay: 200}
		create    = application.CreateSimulationCommand{SimulationParams: application.SimulationParams{
			S0: 100, V0: 0.04, R: 0.05, Theta: 0.04, Kappa: 2, Xi: 0.3, Rho: -0.7, T: 1, K: 100, N: 252,
		}}
		target     int
		batchSize  int
		percentile int
	)

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Drive a simulation on a running server over gRPC",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			conn, err := grpcclient.NewClient(clientCfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			client := grpchandler.NewSimulationServiceClient(conn)

			created, err := client.CreateSimulation(ctx, &grpchandler.CreateSimulationRequest{CreateSimulationCommand: create})
			if err != nil {
				return err
			}
			sim := created.Simulation
			logger.Info(ctx, "remote simulation created", "simulation_id", sim.ID, "target", clientCfg.Target)

			for sim.SimulationCount < target {
				if err := ctx.Err(); err != nil {
					return err
				}
				resp, err := client.RunBatch(ctx, &grpchandler.RunBatchRequest{
					SimulationID: sim.ID,
					BatchSize:    min(batchSize, target-sim.SimulationCount),
				})
				if err != nil {
					return err
				}
				sim = resp.Simulation
				logger.Info(ctx, "progress", "simulation_count", sim.SimulationCount, "option_price", sim.OptionPrice.String())
			}

			var paths []*application.PercentilePathDTO
			if percentile >= 0 {
				resp, err := client.GetPercentilePath(ctx, &grpchandler.GetPercentilePathRequest{SimulationID: sim.ID, Percentile: percentile})
				if err != nil {
					return fmt.Errorf("percentile %d: %w", percentile, err)
				}
				paths = append(paths, resp.Path)
			}
			return printResult(cmd, sim, paths, false)
		},
	}

	f := cmd.Flags()
	f.StringVar(&clientCfg.Target, "addr", "localhost:50051", "gRPC server address")
	f.IntVar(&clientCfg.MaxRetries, "retries", clientCfg.MaxRetries, "retries for unavailable server")
	f.Float64Var(&create.S0, "s0", create.S0, "initial asset price")
	f.Float64Var(&create.V0, "v0", create.V0, "initial variance")
	f.Float64Var(&create.K, "k", create.K, "strike price")
	f.Float64Var(&create.Rho, "rho", create.Rho, "price/variance correlation")
	f.IntVar(&create.N, "n", create.N, "time steps per path")
	f.Uint64Var(&create.Seed, "seed", 0, "random seed, 0 lets the server choose")
	f.IntVar(&target, "paths", 10000, "total number of paths to simulate")
	f.IntVar(&batchSize, "batch", 1000, "paths per batch")
	f.IntVar(&percentile, "percentile", -1, "print one percentile path final price (0, 25, 50, 75, 100)")
	return cmd
}
