package topstocks

import (
	"fmt"
	"math"
)

// =============================================================================
// 标的 (Instrument)
// =============================================================================
//
// 涨跌幅用定点整数表示：万分比（0.01%），避免浮点比较带来的排序抖动
//
//   Change = round((Last - Open) / Open * 10000)
//
// 例如 Open=100, Last=110 → Change=1000 → 10.00%

// Instrument 标的记录（由 Store 持有）
type Instrument struct {
	ID     uint64  // 标的 ID，外部分配，不可变
	Open   float64 // 开盘价（首笔报价确定，之后不变；0 表示未初始化）
	Last   float64 // 最新价
	Change int64   // 涨跌幅，单位 0.01%

	// rank 在 RankIndex 中的句柄
	// 不变式：rank != NoHandle 当且仅当 Change != 0
	rank Handle
}

// initialized 是否已收到首笔报价
func (s *Instrument) initialized() bool {
	return s.Open != 0
}

// open 用首笔报价初始化
func (s *Instrument) open(price float64) {
	s.Open = price
	s.Last = price
	s.Change = 0
}

// Ranked 是否在排名索引中
func (s *Instrument) Ranked() bool {
	return s.rank != NoHandle
}

// View 生成只读视图
func (s *Instrument) View() InstrumentView {
	return InstrumentView{
		ID:     s.ID,
		Open:   s.Open,
		Last:   s.Last,
		Change: s.Change,
	}
}

// ComputeChange 计算涨跌幅（万分比，四舍五入，远离零）
func ComputeChange(open, price float64) int64 {
	return int64(math.Round(100.0 * (price - open) / open * 100.0))
}

// =============================================================================
// 只读视图
// =============================================================================

// InstrumentView 标的只读快照
// 查询接口返回值拷贝，调用方拿不到 Store 内部记录
type InstrumentView struct {
	ID     uint64  `json:"id"`
	Open   float64 `json:"open"`
	Last   float64 `json:"last"`
	Change int64   `json:"change"` // 0.01%
}

// ChangePercent 涨跌幅百分比（两位小数精度）
func (v InstrumentView) ChangePercent() float64 {
	return float64(v.Change) / 100.0
}

// IsGainer 是否上涨
func (v InstrumentView) IsGainer() bool {
	return v.Change > 0
}

// IsLoser 是否下跌
func (v InstrumentView) IsLoser() bool {
	return v.Change < 0
}

func (v InstrumentView) String() string {
	return fmt.Sprintf("%6d %9.2f %9.2f %6.2f%%", v.ID, v.Open, v.Last, v.ChangePercent())
}

func isGainer(change int64) bool { return change > 0 }
func isLoser(change int64) bool  { return change < 0 }
