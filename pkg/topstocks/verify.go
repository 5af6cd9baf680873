package topstocks

import (
	"fmt"
	"slices"
)

// Verify 暴力校验榜单
//
// 把所有非 0 涨跌幅全量排序，和增量维护的结果逐项对比：
//   - 涨幅榜 / 跌幅榜的涨跌幅序列
//   - 两个阈值
//   - 有句柄 ⇔ Change != 0
//
// O(N log N)，只用于测试和模拟
func Verify(t *TopStocks) error {
	changes := make([]int64, 0, t.index.Len())
	for i := range t.store.records {
		s := &t.store.records[i]
		if s.Ranked() != (s.Change != 0) {
			return fmt.Errorf("stock %d: change %d but ranked=%v", s.ID, s.Change, s.Ranked())
		}
		if s.Change != 0 {
			changes = append(changes, s.Change)
		}
	}
	if len(changes) != t.index.Len() {
		return fmt.Errorf("index holds %d entries, want %d", t.index.Len(), len(changes))
	}
	slices.Sort(changes)

	var losers, gainers []int64
	for _, c := range changes {
		if c < 0 {
			losers = append(losers, c)
		}
	}
	for i := len(changes) - 1; i >= 0 && changes[i] > 0; i-- {
		gainers = append(gainers, changes[i])
	}

	if err := compareSide("gainers", t.Gainers(), gainers, t.depth); err != nil {
		return err
	}
	if err := compareSide("losers", t.Losers(), losers, t.depth); err != nil {
		return err
	}

	gt, lt := t.Thresholds()
	if want := kth(gainers, t.depth); gt != want {
		return fmt.Errorf("gainers threshold %d, want %d", gt, want)
	}
	if want := kth(losers, t.depth); lt != want {
		return fmt.Errorf("losers threshold %d, want %d", lt, want)
	}
	return nil
}

func compareSide(side string, got []InstrumentView, want []int64, depth int) error {
	n := min(len(want), depth)
	if len(got) != n {
		return fmt.Errorf("%s: got %d entries, want %d", side, len(got), n)
	}
	for i, v := range got {
		if v.Change != want[i] {
			return fmt.Errorf("%s[%d]: got change %d (stock %d), want %d", side, i, v.Change, v.ID, want[i])
		}
	}
	return nil
}

func kth(sorted []int64, depth int) int64 {
	if len(sorted) < depth {
		return 0
	}
	return sorted[depth-1]
}
