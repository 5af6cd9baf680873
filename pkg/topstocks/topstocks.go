package topstocks

import (
	"fmt"
	"iter"
	"math"
)

// =============================================================================
// 涨跌幅榜 (Top Stocks)
// =============================================================================
//
// 报价处理流程：
//
//   OnQuote(id, price)
//     → Store      取出或创建标的
//     → RankIndex  摘下旧 key，挂上新 key（一次 Rekey）
//     → Tracker    阈值判定 + 按需 O(K) 重算
//     → callback   任一榜单可能变化时通知
//
// 【并发模型】单线程、同步，内部无锁
// 多个生产者必须在外部串行化（见 pkg/feed 的单写者循环）

const (
	// DefaultDepth 默认榜单深度
	DefaultDepth = 10

	// DefaultMaxID 默认预分配的最大标的 ID
	DefaultMaxID = 10000
)

// Config 榜单配置
type Config struct {
	Depth int       // 榜单深度 K
	MaxID uint64    // 预估最大标的 ID（预分配用）
	Eager bool      // 是否预先分配 [0, MaxID] 全部标的
	Index IndexKind // 排名索引实现
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Depth: DefaultDepth,
		MaxID: DefaultMaxID,
		Index: IndexSkipList,
	}
}

// UpdateFunc 榜单变化回调
//
// 在 OnQuote 内部同步调用，只能读取榜单（GetGainers/GetLosers 等），
// 禁止在回调里对同一个实例调用 OnQuote，重入修改的行为未定义
type UpdateFunc func(t *TopStocks, gainersChanged, losersChanged bool)

// Stats 处理统计
type Stats struct {
	Quotes            int64 // 收到的报价
	Rejected          int64 // 被拒绝的报价（首笔价格非法）
	Opened            int64 // 首笔报价（确定开盘价）
	Unchanged         int64 // 价格或涨跌幅未变化
	GainersRecomputed int64 // 涨幅榜重算次数
	LosersRecomputed  int64 // 跌幅榜重算次数
	Callbacks         int64 // 回调次数
}

// TopStocks 涨跌幅榜
type TopStocks struct {
	depth   int
	store   *Store
	index   RankIndex
	tracker *TopKTracker
	fn      UpdateFunc
	stats   Stats
}

// New 按配置创建榜单
func New(cfg Config) (*TopStocks, error) {
	index, err := NewRankIndex(cfg.Index)
	if err != nil {
		return nil, err
	}
	return NewWithIndex(cfg, index), nil
}

// NewWithIndex 使用指定的排名索引创建榜单
func NewWithIndex(cfg Config, index RankIndex) *TopStocks {
	depth := cfg.Depth
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &TopStocks{
		depth:   depth,
		store:   NewStore(cfg.MaxID, cfg.Eager),
		index:   index,
		tracker: NewTopKTracker(index),
	}
}

// SetUpdateCallback 设置回调，返回之前的回调（方便链式调用或恢复）
func (t *TopStocks) SetUpdateCallback(fn UpdateFunc) UpdateFunc {
	prev := t.fn
	t.fn = fn
	return prev
}

// =============================================================================
// 报价处理
// =============================================================================

// OnQuote 处理一笔报价
// 首笔报价价格 <= 0、或任意报价为 NaN/Inf 时返回 ErrInvalidPrice，此时任何状态都不改变
func (t *TopStocks) OnQuote(id uint64, price float64) error {
	t.stats.Quotes++

	if math.IsNaN(price) || math.IsInf(price, 0) {
		t.stats.Rejected++
		return fmt.Errorf("%w: stock %d quote %v", ErrInvalidPrice, id, price)
	}

	// 1. 首笔报价：先校验再分配，拒绝时不留下任何痕迹
	ref, ok := t.store.Lookup(id)
	if !ok || !t.store.At(ref).initialized() {
		if !(price > 0) {
			t.stats.Rejected++
			return fmt.Errorf("%w: stock %d first quote %v", ErrInvalidPrice, id, price)
		}
		if !ok {
			ref = t.store.GetOrCreate(id)
		}
		t.store.At(ref).open(price)
		t.stats.Opened++
		return nil
	}

	stock := t.store.At(ref)

	// 2. 价格没变
	if price == stock.Last {
		t.stats.Unchanged++
		return nil
	}

	// 3. 涨跌幅没变（精度 0.01%）
	change := ComputeChange(stock.Open, price)
	if change == stock.Change {
		t.stats.Unchanged++
		return nil
	}

	prev := stock.Change
	stock.Last = price
	stock.Change = change

	// 4. 更新排名索引
	t.rerank(stock, ref)

	// 5. 阈值判定
	gainers, losers := t.tracker.Update(t.depth, prev, change)
	if gainers {
		t.stats.GainersRecomputed++
	}
	if losers {
		t.stats.LosersRecomputed++
	}

	// 6. 通知
	if (gainers || losers) && t.fn != nil {
		t.stats.Callbacks++
		t.fn(t, gainers, losers)
	}
	return nil
}

// rerank 维护不变式：有句柄 ⇔ Change != 0
func (t *TopStocks) rerank(stock *Instrument, ref Ref) {
	switch {
	case stock.rank != NoHandle && stock.Change != 0:
		stock.rank = t.index.Rekey(stock.rank, stock.Change)
	case stock.rank != NoHandle:
		t.index.Remove(stock.rank)
		stock.rank = NoHandle
	case stock.Change != 0:
		stock.rank = t.index.Insert(stock.Change, ref)
	}
}

// =============================================================================
// 查询
// =============================================================================

// GetGainers 涨幅榜：涨幅从大到小，最多 depth 个，只包含上涨标的
func (t *TopStocks) GetGainers(depth int) []InstrumentView {
	return t.collect(t.index.Descending(), depth, isGainer)
}

// GetLosers 跌幅榜：跌幅从大到小（涨跌幅升序），最多 depth 个，只包含下跌标的
func (t *TopStocks) GetLosers(depth int) []InstrumentView {
	return t.collect(t.index.Ascending(), depth, isLoser)
}

// Gainers 按配置深度返回涨幅榜
func (t *TopStocks) Gainers() []InstrumentView {
	return t.GetGainers(t.depth)
}

// Losers 按配置深度返回跌幅榜
func (t *TopStocks) Losers() []InstrumentView {
	return t.GetLosers(t.depth)
}

func (t *TopStocks) collect(seq iter.Seq2[int64, Ref], depth int, keep func(int64) bool) []InstrumentView {
	if depth <= 0 {
		return nil
	}
	res := make([]InstrumentView, 0, min(depth, t.index.Len()))
	for key, ref := range seq {
		if len(res) >= depth || !keep(key) {
			break
		}
		res = append(res, t.store.View(ref))
	}
	return res
}

// Get 查询单个标的
func (t *TopStocks) Get(id uint64) (InstrumentView, bool) {
	ref, ok := t.store.Lookup(id)
	if !ok {
		return InstrumentView{}, false
	}
	return t.store.View(ref), true
}

// GetStocks 所有已分配的标的
func (t *TopStocks) GetStocks() []InstrumentView {
	res := make([]InstrumentView, 0, t.store.Len())
	for v := range t.store.All() {
		res = append(res, v)
	}
	return res
}

// GetStockCount 已分配的标的数量
func (t *TopStocks) GetStockCount() int {
	return t.store.Len()
}

// GetDepth 配置的榜单深度 K
func (t *TopStocks) GetDepth() int {
	return t.depth
}

// Ranked 排名索引中的标的数量（涨跌幅非 0）
func (t *TopStocks) Ranked() int {
	return t.index.Len()
}

// Thresholds 当前榜单阈值
func (t *TopStocks) Thresholds() (gainers, losers int64) {
	return t.tracker.Thresholds()
}

// Stats 处理统计
func (t *TopStocks) Stats() Stats {
	return t.stats
}
