package market

import (
	"iter"
	"math/rand"

	"topmovers.com/pkg/feed"
)

// RandomSource 均匀随机报价源
// ID 在 [1, Stocks] 内均匀分布，价格 = ID × (1 ± 最多 MaxChange%)
// 相当于每个标的的"参考价"就是它的 ID
type RandomSource struct {
	Stocks    uint64
	MaxChange float64 // 百分比，如 20 表示 ±20%

	r *rand.Rand
}

// NewRandomSource 创建随机报价源，相同 seed 生成相同序列
func NewRandomSource(stocks uint64, maxChange float64, seed int64) *RandomSource {
	if stocks == 0 {
		stocks = 1
	}
	return &RandomSource{
		Stocks:    stocks,
		MaxChange: maxChange,
		r:         rand.New(rand.NewSource(seed)),
	}
}

// Next 生成下一笔报价
func (s *RandomSource) Next() feed.Quote {
	id := uint64(s.r.Int63n(int64(s.Stocks))) + 1
	change := (s.r.Float64()*2 - 1) * s.MaxChange
	base := float64(id)
	return feed.Quote{ID: id, Price: base + base*change/100.0}
}

// Quotes 连续生成 n 笔报价
func (s *RandomSource) Quotes(n int) iter.Seq[feed.Quote] {
	return func(yield func(feed.Quote) bool) {
		for range n {
			if !yield(s.Next()) {
				return
			}
		}
	}
}
