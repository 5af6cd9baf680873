package commands

import (
	"github.com/spf13/cobra"

	"topmovers.com/pkg/config"
	"topmovers.com/pkg/logger"
	"topmovers.com/pkg/topstocks"
)

var (
	// 全局参数
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "topstocks",
	Short: "涨跌幅榜引擎",
	Long: `Top Stocks - 实时维护涨幅榜 / 跌幅榜

报价流入，单写者引擎增量维护前 K 名，榜单变化时发布快照。

Usage:
  go run ./cmd/topstocks [command]

Examples:
  go run ./cmd/topstocks simulate --quotes 1000000 --check-every 10000
  go run ./cmd/topstocks replay ./quotes.csv
  go run ./cmd/topstocks serve`,
	SilenceUsage: true,
}

// Execute 由 main.main 调用
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env 配置文件（默认 .env）")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出 debug 日志")
}

// setup 读取配置并创建 logger
func setup() (*config.Config, *logger.Logger, error) {
	if err := config.LoadFile(configFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, logger.New(cfg), nil
}

// newTops 按配置创建榜单，depth > 0 时覆盖配置
func newTops(cfg config.EngineConfig, depth int, index string) (*topstocks.TopStocks, error) {
	tc := topstocks.Config{
		Depth: cfg.Depth,
		MaxID: uint64(cfg.MaxID),
		Eager: cfg.Eager,
		Index: topstocks.IndexKind(cfg.Index),
	}
	if depth > 0 {
		tc.Depth = depth
	}
	if index != "" {
		tc.Index = topstocks.IndexKind(index)
	}
	return topstocks.New(tc)
}
