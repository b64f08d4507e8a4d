// Heston 蒙特卡洛定价服务
// 功能：Heston 随机波动率模型下欧式看涨期权的渐进式蒙特卡洛定价，附 Black-Scholes 基准
// 子命令：serve (HTTP + gRPC)、run (本地渐进模拟)、remote (通过 gRPC 驱动远端会话)、bs (解析基准价)
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wyfcoding/heston/pkg/config"
	"github.com/wyfcoding/heston/pkg/logger"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "heston",
		Short:         "Heston stochastic volatility Monte Carlo pricer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c",
		config.GetEnv("HESTON_CONFIG", "configs/heston/config.toml"), "path to config file")

	root.AddCommand(newServeCmd(), newRunCmd(), newRemoteCmd(), newBSCmd())
	return root
}

// loadConfig 加载配置并初始化日志
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(cfg.Logger); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
