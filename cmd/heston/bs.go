package main

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/wyfcoding/heston/internal/simulation/domain"
)

func newBSCmd() *cobra.Command {
	var s0, k, r, t, v0 float64
	cmd := &cobra.Command{
		Use:   "bs",
		Short: "Print the Black-Scholes call price with sigma = sqrt(v0)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if v0 < 0 {
				return fmt.Errorf("v0 must be non-negative")
			}
			price := domain.BlackScholesCall(s0, k, r, t, math.Sqrt(v0))
			if math.IsNaN(price) || math.IsInf(price, 0) {
				return fmt.Errorf("black-scholes price is not finite")
			}
			fmt.Fprintln(cmd.OutOrStdout(), decimal.NewFromFloat(price).Round(6).String())
			return nil
		},
	}
	cmd.Flags().Float64Var(&s0, "s0", 100, "initial asset price")
	cmd.Flags().Float64Var(&k, "k", 100, "strike price")
	cmd.Flags().Float64Var(&r, "r", 0.05, "risk-free rate")
	cmd.Flags().Float64Var(&t, "t", 1, "time to maturity in years")
	cmd.Flags().Float64Var(&v0, "v0", 0.04, "initial variance")
	return cmd
}
