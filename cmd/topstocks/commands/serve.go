package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"topmovers.com/pkg/config"
	"topmovers.com/pkg/directory"
	"topmovers.com/pkg/feed"
	"topmovers.com/pkg/kafka"
	"topmovers.com/pkg/logger"
	"topmovers.com/pkg/market"
	"topmovers.com/pkg/nats"
	"topmovers.com/pkg/snapshot"
)

var serveOpts struct {
	demo        bool
	demoStocks  int
	saveTimeout time.Duration
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "常驻服务：订阅报价，发布榜单",
	Long: `从 NATS / Kafka 订阅报价，榜单变化时写入 Redis 并发布到 NATS / Kafka。

各组件由环境变量开关（NATS_ENABLED, KAFKA_ENABLED, REDIS_ENABLED, MYSQL_ENABLED），
--demo 使用内置 GBM 行情代替外部报价源。

Example:
  NATS_ENABLED=true REDIS_ENABLED=true go run ./cmd/topstocks serve
  go run ./cmd/topstocks serve --demo`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg, log)
	},
}

func init() {
	f := serveCmd.Flags()
	f.BoolVar(&serveOpts.demo, "demo", false, "使用内置 GBM 行情")
	f.IntVar(&serveOpts.demoStocks, "demo-stocks", 1000, "demo 标的数量")
	f.DurationVar(&serveOpts.saveTimeout, "save-timeout", 2*time.Second, "Redis 单次保存超时")

	rootCmd.AddCommand(serveCmd)
}

// closer 按注册的逆序关闭
type closers []func()

func (c *closers) add(fn func()) { *c = append(*c, fn) }

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func runServe(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	var cleanup closers
	defer cleanup.run()

	tops, err := newTops(cfg.Engine, 0, "")
	if err != nil {
		return err
	}

	ecfg := feed.EngineConfig{
		QuoteQueueSize: cfg.Engine.QuoteQueueSize,
		EventQueueSize: cfg.Engine.EventQueueSize,
		NodeID:         cfg.Snowflake,
		StatsInterval:  cfg.Engine.StatsInterval,
	}
	engine, err := feed.NewEngine(ecfg, tops, log)
	if err != nil {
		return err
	}

	// 1. 标的目录
	dir := directory.New()
	if cfg.MySQL.Enabled {
		db, err := directory.OpenMySQL(cfg.MySQL.DSN)
		if err != nil {
			return err
		}
		repo := directory.NewMySQLRepository(db)
		if err := repo.AutoMigrate(ctx); err != nil {
			return err
		}
		n, err := dir.Load(ctx, repo)
		if err != nil {
			return err
		}
		log.Infof("directory loaded: %d instruments", n)
	}
	engine.SetLabeler(dir)

	// 2. 下游：每个 sink 独立消费，慢 sink 只丢自己的快照
	fanout := market.NewBroadcaster(cfg.Engine.EventQueueSize)
	engine.OnSnapshot(fanout.Broadcast)
	var sinks sync.WaitGroup
	addSink := func(name string, h feed.SnapshotHandler) {
		ch := fanout.Subscribe()
		sinks.Add(1)
		go func() {
			defer sinks.Done()
			for s := range ch {
				h(s)
			}
		}()
		log.Infof("sink enabled: %s", name)
	}

	if cfg.Redis.Enabled {
		client, err := snapshot.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		cleanup.add(func() { _ = client.Close() })
		addSink("redis", snapshot.NewRedisStore(client, "").Handler(serveOpts.saveTimeout, log))
	}
	if cfg.NATS.Enabled {
		pub, err := nats.NewPublisher(cfg.NATS.URL, log)
		if err != nil {
			return err
		}
		cleanup.add(pub.Close)
		addSink("nats", pub.SnapshotHandler(cfg.NATS.SnapshotSubject))
	}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(kafka.DefaultProducerConfig(cfg.Kafka.Brokers), log)
		if err != nil {
			return err
		}
		cleanup.add(func() { _ = producer.Close() })
		addSink("kafka", producer.SnapshotHandler(""))
	}

	// 引擎先停，再关广播，最后等 sink 处理完
	cleanup.add(func() {
		engine.Stop()
		fanout.Close()
		sinks.Wait()
	})
	engine.Start(ctx)

	// 3. 报价源
	sources := 0
	if cfg.NATS.Enabled {
		sub, err := nats.NewSubscriber(cfg.NATS.URL, nats.QuoteHandler(engine), log)
		if err != nil {
			return err
		}
		if err := sub.Subscribe(cfg.NATS.QuoteSubject); err != nil {
			_ = sub.Close()
			return err
		}
		cleanup.add(func() { _ = sub.Close() })
		sources++
	}
	if cfg.Kafka.Enabled {
		consumer, err := kafka.NewConsumer(
			kafka.DefaultConsumerConfig(cfg.Kafka.Brokers, cfg.Kafka.GroupID, []string{cfg.Kafka.QuoteTopic}),
			kafka.QuoteHandler(engine), log)
		if err != nil {
			return err
		}
		consumer.Start()
		cleanup.add(func() { _ = consumer.Stop() })
		sources++
	}
	if serveOpts.demo {
		if serveOpts.demoStocks <= 0 {
			return fmt.Errorf("--demo-stocks must be positive, got %d", serveOpts.demoStocks)
		}
		prices := make([]float64, serveOpts.demoStocks)
		for i := range prices {
			prices[i] = float64(i + 1)
		}
		ticker, err := market.NewTicker(prices, 10*time.Millisecond)
		if err != nil {
			return err
		}
		ticker.Burst = 10
		quotes := ticker.Start()
		cleanup.add(ticker.Stop)
		go func() {
			for q := range quotes {
				engine.Submit(q)
			}
		}()
		sources++
	}
	if sources == 0 {
		return errors.New("no quote source: enable NATS or Kafka, or use --demo")
	}

	log.Infof("serving, depth=%d, index=%s", tops.GetDepth(), cfg.Engine.Index)
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}
