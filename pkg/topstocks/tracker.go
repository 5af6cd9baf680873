package topstocks

import "iter"

// =============================================================================
// Top-K 阈值跟踪 (TopK Tracker)
// =============================================================================
//
// 核心思路：缓存榜单边界（第 K 名的涨跌幅），大部分报价不需要重算
//
//   gainers 阈值 = 当前第 K 名涨幅；不足 K 个上涨标的时为 0
//   losers  阈值 = 当前第 K 名跌幅；不足 K 个下跌标的时为 0
//
// 判定规则（以涨幅榜为例）：
//   prev >= 阈值 || next >= 阈值 → 可能影响榜单，重算
//   否则新旧值都在边界之下，榜单的成员和顺序都不可能变化
//
// 阈值为 0 时（榜单未满）条件恒成立，每次都重算，直到榜单填满
// 相等时也触发：可能多算一次，但绝不会漏算
//
// 重算：从索引一端最多走 K 步，复杂度 O(K)，与标的总数无关

// TopKTracker 榜单阈值跟踪器
// 阈值是实例字段，多个实例互不影响
type TopKTracker struct {
	index   RankIndex
	gainers int64 // 第 K 名涨幅，0 表示榜单未满
	losers  int64 // 第 K 名跌幅，0 表示榜单未满
}

// NewTopKTracker 创建跟踪器
func NewTopKTracker(index RankIndex) *TopKTracker {
	return &TopKTracker{index: index}
}

// Update 单个标的涨跌幅从 prev 变为 next 之后调用（索引已更新）
// 返回两个榜单是否可能发生变化
func (t *TopKTracker) Update(depth int, prev, next int64) (gainersChanged, losersChanged bool) {
	gainersChanged = prev >= t.gainers || next >= t.gainers
	losersChanged = prev <= t.losers || next <= t.losers

	if gainersChanged {
		t.gainers = boundary(t.index.Descending(), depth, isGainer)
	}
	if losersChanged {
		t.losers = boundary(t.index.Ascending(), depth, isLoser)
	}
	return gainersChanged, losersChanged
}

// Thresholds 当前阈值
func (t *TopKTracker) Thresholds() (gainers, losers int64) {
	return t.gainers, t.losers
}

// boundary 沿索引走最多 depth 步，返回第 depth 名的 key
// 符合条件的不足 depth 个时返回 0
func boundary(seq iter.Seq2[int64, Ref], depth int, keep func(int64) bool) int64 {
	var last int64
	n := 0
	for key := range seq {
		if n >= depth || !keep(key) {
			break
		}
		last = key
		n++
	}
	if n < depth {
		return 0
	}
	return last
}
