package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"

	"topmovers.com/pkg/logger"
	"topmovers.com/pkg/topstocks"
)

// =============================================================================
// 报价引擎 (Feed Engine)
// =============================================================================
//
// TopStocks 内部无锁，所有报价必须串行处理，这里用单写者循环保证：
//
//   Submit ──► quoteCh ──► ingestLoop ──► TopStocks.OnQuote
//                                │
//                                ▼ 榜单变化
//                          eventCh ──► dispatchLoop ──► SnapshotHandler...
//
// 报价是可丢弃的（队列满直接拒绝），快照是关键事件（阻塞发送，保证不丢）

// ErrStopped 引擎已停止
var ErrStopped = errors.New("feed engine stopped")

// EngineConfig 引擎配置
type EngineConfig struct {
	QuoteQueueSize int           // 报价队列大小
	EventQueueSize int           // 快照事件队列大小
	NodeID         int64         // 雪花算法节点 ID (0-1023)
	StatsInterval  time.Duration // 统计日志间隔，0 表示不输出
}

// DefaultEngineConfig 默认配置
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		QuoteQueueSize: 10000,
		EventQueueSize: 1024,
		NodeID:         1,
	}
}

// SnapshotHandler 快照处理器
type SnapshotHandler func(*Snapshot)

// Labeler 标的 ID → 代码
type Labeler interface {
	Symbol(id uint64) string
}

// EngineStats 引擎统计
type EngineStats struct {
	QuotesReceived  int64 // 进入队列的报价
	QuotesDropped   int64 // 队列满被拒绝的报价
	QuotesProcessed int64 // 已处理的报价
	QuotesRejected  int64 // 首笔价格非法被拒绝
	Snapshots       int64 // 生成的快照
}

// command 单写者循环的输入
// quote / fn / flush 三选一
type command struct {
	quote Quote
	fn    func(*topstocks.TopStocks)
	flush chan struct{}
	done  chan error
}

// event 分发循环的输入
type event struct {
	snapshot *Snapshot
	flush    chan struct{}
}

// Engine 报价引擎
type Engine struct {
	config  EngineConfig
	tops    *topstocks.TopStocks
	log     *logger.Logger
	node    *snowflake.Node
	labeler Labeler

	quoteCh chan command
	eventCh chan event

	// 回调里生成，OnQuote 返回后再发布
	pending *Snapshot
	latest  atomic.Pointer[Snapshot]

	handlers []SnapshotHandler
	mu       sync.RWMutex

	stopCh   chan struct{}
	exited   chan struct{} // ingestLoop 退出后关闭
	stopOnce sync.Once
	stopped  atomic.Bool
	wg       sync.WaitGroup

	received  atomic.Int64
	dropped   atomic.Int64
	processed atomic.Int64
	rejected  atomic.Int64
	snapshots atomic.Int64
}

// NewEngine 创建引擎，接管 tops 的更新回调
// 之前设置的回调仍会被调用
func NewEngine(cfg EngineConfig, tops *topstocks.TopStocks, log *logger.Logger) (*Engine, error) {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node: %w", err)
	}
	if cfg.QuoteQueueSize <= 0 {
		cfg.QuoteQueueSize = DefaultEngineConfig().QuoteQueueSize
	}
	if cfg.EventQueueSize <= 0 {
		cfg.EventQueueSize = DefaultEngineConfig().EventQueueSize
	}
	if log == nil {
		log = logger.Nop()
	}

	e := &Engine{
		config:  cfg,
		tops:    tops,
		log:     log.WithField("component", "feed"),
		node:    node,
		quoteCh: make(chan command, cfg.QuoteQueueSize),
		eventCh: make(chan event, cfg.EventQueueSize),
		stopCh:  make(chan struct{}),
		exited:  make(chan struct{}),
	}

	var prev topstocks.UpdateFunc
	prev = tops.SetUpdateCallback(func(t *topstocks.TopStocks, gainers, losers bool) {
		e.onUpdate(t, gainers, losers)
		if prev != nil {
			prev(t, gainers, losers)
		}
	})

	return e, nil
}

// SetLabeler 设置代码查询，须在 Start 之前调用
func (e *Engine) SetLabeler(l Labeler) {
	e.labeler = l
}

// =============================================================================
// 生命周期
// =============================================================================

// Start 启动引擎
func (e *Engine) Start(ctx context.Context) {
	e.wg.Add(2)
	go e.ingestLoop(ctx)
	go e.dispatchLoop(ctx)

	if e.config.StatsInterval > 0 {
		e.wg.Add(1)
		go e.statsLoop(ctx)
	}
	e.log.Infof("feed engine started, depth=%d", e.tops.GetDepth())
}

// Stop 停止引擎，队列中未处理的报价被丢弃
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.stopped.Store(true)
		close(e.stopCh)
	})
	e.wg.Wait()
}

// ingestLoop 单写者主循环
// 只有这个 goroutine 会调用 OnQuote
// ctx 取消同样视为停止，之后的提交都返回 ErrStopped
func (e *Engine) ingestLoop(ctx context.Context) {
	defer e.wg.Done()
	defer close(e.exited)
	defer e.stopped.Store(true)

	for {
		select {
		case <-ctx.Done():
			return

		case <-e.stopCh:
			return

		case cmd := <-e.quoteCh:
			e.process(ctx, cmd)
		}
	}
}

// process 处理一条命令
func (e *Engine) process(ctx context.Context, cmd command) {
	switch {
	case cmd.flush != nil:
		// 排在所有已发布快照之后
		e.publishCritical(ctx, event{flush: cmd.flush})

	case cmd.fn != nil:
		cmd.fn(e.tops)
		cmd.done <- nil

	default:
		err := e.tops.OnQuote(cmd.quote.ID, cmd.quote.Price)
		e.processed.Add(1)
		if err != nil {
			e.rejected.Add(1)
			e.log.WithError(err).Debug("quote rejected")
		}

		if snap := e.pending; snap != nil {
			e.pending = nil
			e.latest.Store(snap)
			e.publishCritical(ctx, event{snapshot: snap})
		}

		if cmd.done != nil {
			cmd.done <- err
		}
	}
}

// onUpdate 榜单变化回调（在 OnQuote 内同步执行）
// 只读取榜单生成快照，不做任何阻塞操作
func (e *Engine) onUpdate(t *topstocks.TopStocks, gainers, losers bool) {
	e.snapshots.Add(1)
	e.pending = &Snapshot{
		ID:             e.node.Generate().Int64(),
		Timestamp:      time.Now().UnixNano(),
		GainersChanged: gainers,
		LosersChanged:  losers,
		Gainers:        e.entries(t.Gainers()),
		Losers:         e.entries(t.Losers()),
	}
}

func (e *Engine) entries(views []topstocks.InstrumentView) []Entry {
	res := make([]Entry, len(views))
	for i, v := range views {
		res[i].InstrumentView = v
		if e.labeler != nil {
			res[i].Symbol = e.labeler.Symbol(v.ID)
		}
	}
	return res
}

// =============================================================================
// 提交接口
// =============================================================================

// Submit 异步提交报价
// 队列满或引擎已停止时返回 false
func (e *Engine) Submit(q Quote) bool {
	if e.stopped.Load() {
		return false
	}
	select {
	case e.quoteCh <- command{quote: q}:
		e.received.Add(1)
		return true
	default:
		e.dropped.Add(1)
		return false
	}
}

// SubmitWait 同步提交报价，等待处理完成并返回 OnQuote 的结果
// 用于回放等不允许丢报价的场景
func (e *Engine) SubmitWait(ctx context.Context, q Quote) error {
	done := make(chan error, 1)
	if err := e.enqueue(ctx, command{quote: q, done: done}); err != nil {
		return err
	}
	e.received.Add(1)
	return e.wait(ctx, done)
}

// Query 在单写者循环中执行 fn，fn 可以安全读取榜单
func (e *Engine) Query(ctx context.Context, fn func(*topstocks.TopStocks)) error {
	done := make(chan error, 1)
	if err := e.enqueue(ctx, command{fn: fn, done: done}); err != nil {
		return err
	}
	return e.wait(ctx, done)
}

// Flush 等待之前提交的报价全部处理完，且其快照全部分发完
func (e *Engine) Flush(ctx context.Context) error {
	flushed := make(chan struct{})
	if err := e.enqueue(ctx, command{flush: flushed}); err != nil {
		return err
	}
	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopCh:
		return ErrStopped
	case <-e.exited:
		// dispatchLoop 可能已经处理了 flush
		select {
		case <-flushed:
			return nil
		default:
			return ErrStopped
		}
	}
}

func (e *Engine) enqueue(ctx context.Context, cmd command) error {
	if e.stopped.Load() {
		return ErrStopped
	}
	select {
	case e.quoteCh <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopCh:
		return ErrStopped
	case <-e.exited:
		return ErrStopped
	}
}

func (e *Engine) wait(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopCh:
		return ErrStopped
	case <-e.exited:
		// 退出前可能已经处理完
		select {
		case err := <-done:
			return err
		default:
			return ErrStopped
		}
	}
}

// =============================================================================
// 快照分发
// =============================================================================

// OnSnapshot 注册快照处理器，支持多个
func (e *Engine) OnSnapshot(handler SnapshotHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
}

// publishCritical 阻塞发送，只有停止时才放弃
func (e *Engine) publishCritical(ctx context.Context, ev event) {
	if len(e.eventCh) > cap(e.eventCh)*8/10 {
		e.log.Warnf("event queue high watermark: %d/%d", len(e.eventCh), cap(e.eventCh))
	}
	select {
	case e.eventCh <- ev:
	case <-ctx.Done():
	case <-e.stopCh:
	}
}

// dispatchLoop 快照分发循环（独立 goroutine）
func (e *Engine) dispatchLoop(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case <-e.stopCh:
			return

		case ev := <-e.eventCh:
			if ev.flush != nil {
				close(ev.flush)
				continue
			}
			e.dispatch(ev.snapshot)
		}
	}
}

func (e *Engine) dispatch(snap *Snapshot) {
	e.mu.RLock()
	handlers := e.handlers
	e.mu.RUnlock()

	for _, h := range handlers {
		h(snap)
	}
}

// =============================================================================
// 查询
// =============================================================================

// Latest 最新快照，无锁读取；还没有任何变化时为 nil
func (e *Engine) Latest() *Snapshot {
	return e.latest.Load()
}

// Stats 引擎统计
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		QuotesReceived:  e.received.Load(),
		QuotesDropped:   e.dropped.Load(),
		QuotesProcessed: e.processed.Load(),
		QuotesRejected:  e.rejected.Load(),
		Snapshots:       e.snapshots.Load(),
	}
}

func (e *Engine) statsLoop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		case <-ticker.C:
			s := e.Stats()
			e.log.WithFields(map[string]any{
				"received":  s.QuotesReceived,
				"dropped":   s.QuotesDropped,
				"processed": s.QuotesProcessed,
				"rejected":  s.QuotesRejected,
				"snapshots": s.Snapshots,
			}).Info("feed stats")
		}
	}
}
