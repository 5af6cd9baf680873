package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"topmovers.com/pkg/feed"
	"topmovers.com/pkg/logger"
	"topmovers.com/pkg/market"
	"topmovers.com/pkg/topstocks"
)

var simulateOpts struct {
	quotes     int
	stocks     uint64
	maxChange  float64
	depth      int
	index      string
	checkEvery int
	seed       int64
	print      bool

	gbm      bool
	duration time.Duration
	interval time.Duration
	burst    int
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "随机报价压测 + 正确性校验",
	Long: `用随机报价驱动榜单。

默认模式：标的 ID 在 [1, stocks] 均匀分布，价格 = ID × (1 ± 最多 max-change%)，
每 check-every 笔报价用暴力排序校验一次榜单。

--gbm 模式：几何布朗运动行情经过 feed 引擎，持续 duration。

Example:
  go run ./cmd/topstocks simulate --quotes 1000000 --check-every 10000
  go run ./cmd/topstocks simulate --gbm --duration 10s --print`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		tops, err := newTops(cfg.Engine, simulateOpts.depth, simulateOpts.index)
		if err != nil {
			return err
		}

		if simulateOpts.gbm {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runTicker(ctx, cmd, tops, cfg.Snowflake, log)
		}
		return runRandom(cmd, tops, log)
	},
}

func init() {
	f := simulateCmd.Flags()
	f.IntVar(&simulateOpts.quotes, "quotes", 1_000_000, "报价笔数")
	f.Uint64Var(&simulateOpts.stocks, "stocks", 10000, "标的数量")
	f.Float64Var(&simulateOpts.maxChange, "max-change", 20, "最大涨跌幅（%）")
	f.IntVar(&simulateOpts.depth, "depth", 0, "榜单深度（默认取配置）")
	f.StringVar(&simulateOpts.index, "index", "", "排名索引 skiplist|btree（默认取配置）")
	f.IntVar(&simulateOpts.checkEvery, "check-every", 0, "每 N 笔报价校验一次，0 表示只在结束时校验")
	f.Int64Var(&simulateOpts.seed, "seed", time.Now().UnixNano(), "随机种子")
	f.BoolVar(&simulateOpts.print, "print", false, "榜单变化时输出")

	f.BoolVar(&simulateOpts.gbm, "gbm", false, "使用 GBM 行情 + feed 引擎")
	f.DurationVar(&simulateOpts.duration, "duration", 10*time.Second, "GBM 模式运行时长")
	f.DurationVar(&simulateOpts.interval, "interval", time.Millisecond, "GBM 行情间隔")
	f.IntVar(&simulateOpts.burst, "burst", 100, "GBM 每个间隔的报价数")

	rootCmd.AddCommand(simulateCmd)
}

// runRandom 直接驱动 TopStocks，不经过引擎
func runRandom(cmd *cobra.Command, tops *topstocks.TopStocks, log *logger.Logger) error {
	out := cmd.OutOrStdout()
	if simulateOpts.print {
		tops.SetUpdateCallback(func(t *topstocks.TopStocks, gainers, losers bool) {
			printTops(out, t.Gainers(), t.Losers(), gainers, losers)
		})
	}

	src := market.NewRandomSource(simulateOpts.stocks, simulateOpts.maxChange, simulateOpts.seed)
	log.Infof("simulate: %d quotes over %d stocks, depth=%d, seed=%d",
		simulateOpts.quotes, simulateOpts.stocks, tops.GetDepth(), simulateOpts.seed)

	var elapsed time.Duration
	n := 0
	for q := range src.Quotes(simulateOpts.quotes) {
		start := time.Now()
		if err := tops.OnQuote(q.ID, q.Price); err != nil {
			log.WithError(err).Debug("quote rejected")
		}
		elapsed += time.Since(start)
		n++

		if simulateOpts.checkEvery > 0 && n%simulateOpts.checkEvery == 0 {
			if err := topstocks.Verify(tops); err != nil {
				return fmt.Errorf("verify after %d quotes: %w", n, err)
			}
		}
	}
	if err := topstocks.Verify(tops); err != nil {
		return fmt.Errorf("verify after %d quotes: %w", n, err)
	}

	reportRun(log, tops, n, elapsed)
	printTops(out, tops.Gainers(), tops.Losers(), false, false)
	return nil
}

// runTicker GBM 行情经过 feed 引擎
func runTicker(ctx context.Context, cmd *cobra.Command, tops *topstocks.TopStocks, node int64, log *logger.Logger) error {
	prices := make([]float64, simulateOpts.stocks)
	for i := range prices {
		prices[i] = float64(i + 1)
	}
	ticker, err := market.NewTicker(prices, simulateOpts.interval)
	if err != nil {
		return err
	}
	ticker.Burst = simulateOpts.burst

	ecfg := feed.DefaultEngineConfig()
	ecfg.NodeID = node
	engine, err := feed.NewEngine(ecfg, tops, log)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if simulateOpts.print {
		engine.OnSnapshot(func(s *feed.Snapshot) {
			printTops(out, views(s.Gainers), views(s.Losers), s.GainersChanged, s.LosersChanged)
		})
	}

	engine.Start(ctx)
	defer engine.Stop()

	quotes := ticker.Start()
	defer ticker.Stop()

	timer := time.NewTimer(simulateOpts.duration)
	defer timer.Stop()

	start := time.Now()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-timer.C:
			break loop
		case q := <-quotes:
			engine.Submit(q)
		}
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// 中断时引擎已随 ctx 退出
	interrupted := func(err error) bool {
		return errors.Is(err, feed.ErrStopped) && ctx.Err() != nil
	}
	if err := engine.Flush(flushCtx); err != nil {
		if interrupted(err) {
			log.Warn("gbm simulation interrupted")
			return nil
		}
		return err
	}

	var verr error
	if err := engine.Query(flushCtx, func(t *topstocks.TopStocks) {
		verr = topstocks.Verify(t)
	}); err != nil {
		if interrupted(err) {
			log.Warn("gbm simulation interrupted")
			return nil
		}
		return err
	}
	if verr != nil {
		return verr
	}

	s := engine.Stats()
	log.WithFields(map[string]any{
		"received":  s.QuotesReceived,
		"dropped":   s.QuotesDropped,
		"snapshots": s.Snapshots,
	}).Infof("gbm simulation finished in %v", time.Since(start).Round(time.Millisecond))

	if latest := engine.Latest(); latest != nil {
		printTops(out, views(latest.Gainers), views(latest.Losers), false, false)
	}
	return nil
}

func reportRun(log *logger.Logger, tops *topstocks.TopStocks, n int, elapsed time.Duration) {
	s := tops.Stats()
	var perQuote time.Duration
	if n > 0 {
		perQuote = elapsed / time.Duration(n)
	}
	log.WithFields(map[string]any{
		"quotes":    s.Quotes,
		"rejected":  s.Rejected,
		"unchanged": s.Unchanged,
		"gainers":   s.GainersRecomputed,
		"losers":    s.LosersRecomputed,
		"callbacks": s.Callbacks,
		"stocks":    tops.GetStockCount(),
		"ranked":    tops.Ranked(),
	}).Infof("processed %d quotes in %v (%v/quote)", n, elapsed.Round(time.Microsecond), perQuote)
}

func views(entries []feed.Entry) []topstocks.InstrumentView {
	res := make([]topstocks.InstrumentView, len(entries))
	for i, e := range entries {
		res[i] = e.InstrumentView
	}
	return res
}
