package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"topmovers.com/pkg/feed"
	"topmovers.com/pkg/kafka"
	"topmovers.com/pkg/market"
	"topmovers.com/pkg/snapshot"
	"topmovers.com/pkg/topstocks"
)

var replayOpts struct {
	depth   int
	index   string
	strict  bool
	save    bool
	publish bool
}

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "回放报价文件",
	Long: `按顺序回放 "id,price" 格式的报价文件，输出最终榜单。

--save    最终快照写入 Redis
--publish 报价同时写入 Kafka 报价 topic（给 serve 实例回放）

Example:
  go run ./cmd/topstocks replay ./quotes.csv --depth 5
  go run ./cmd/topstocks replay ./quotes.csv --publish`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReplay(cmd, args[0])
	},
}

func init() {
	f := replayCmd.Flags()
	f.IntVar(&replayOpts.depth, "depth", 0, "榜单深度（默认取配置）")
	f.StringVar(&replayOpts.index, "index", "", "排名索引 skiplist|btree（默认取配置）")
	f.BoolVar(&replayOpts.strict, "strict", false, "遇到错误立即停止")
	f.BoolVar(&replayOpts.save, "save", false, "最终快照写入 Redis")
	f.BoolVar(&replayOpts.publish, "publish", false, "报价写入 Kafka")

	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, path string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	tops, err := newTops(cfg.Engine, replayOpts.depth, replayOpts.index)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	ctx := cmd.Context()

	var producer *kafka.Producer
	if replayOpts.publish {
		producer, err = kafka.NewProducer(kafka.DefaultProducerConfig(cfg.Kafka.Brokers), log)
		if err != nil {
			return err
		}
		defer producer.Close()
	}

	ecfg := feed.DefaultEngineConfig()
	ecfg.NodeID = cfg.Snowflake
	ecfg.QuoteQueueSize = cfg.Engine.QuoteQueueSize
	ecfg.EventQueueSize = cfg.Engine.EventQueueSize
	engine, err := feed.NewEngine(ecfg, tops, log)
	if err != nil {
		return err
	}
	engine.Start(ctx)
	defer engine.Stop()

	var quotes, failed int
	for q, err := range market.ReadQuotes(file) {
		if err == nil {
			quotes++
			err = engine.SubmitWait(ctx, q)
			if err == nil && producer != nil {
				err = producer.Send(kafka.NewQuoteMessage(cfg.Kafka.QuoteTopic, q))
			}
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, feed.ErrStopped) {
				return err
			}
			failed++
			if replayOpts.strict {
				return err
			}
			log.WithError(err).Warn("replay")
		}
	}

	if err := engine.Flush(ctx); err != nil {
		return err
	}

	log.Infof("replayed %d quotes from %s, %d errors", quotes, path, failed)

	var gainers, losers []topstocks.InstrumentView
	if err := engine.Query(ctx, func(t *topstocks.TopStocks) {
		gainers, losers = t.Gainers(), t.Losers()
	}); err != nil {
		return err
	}
	printTops(cmd.OutOrStdout(), gainers, losers, false, false)

	if replayOpts.save {
		latest := engine.Latest()
		if latest == nil {
			return nil
		}
		saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		client, err := snapshot.NewClient(saveCtx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer client.Close()
		if err := snapshot.NewRedisStore(client, "").Save(saveCtx, latest); err != nil {
			return fmt.Errorf("save final snapshot: %w", err)
		}
		log.Infof("snapshot %d saved to redis", latest.ID)
	}
	return nil
}
