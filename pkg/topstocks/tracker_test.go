package topstocks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopKTracker_FillsWindow(t *testing.T) {
	idx := NewSkipList()
	tr := NewTopKTracker(idx)

	// 榜单未满，阈值为 0，每次都重算
	idx.Insert(300, 1)
	g, l := tr.Update(2, 0, 300)
	assert.True(t, g)
	assert.True(t, l)
	gt, lt := tr.Thresholds()
	assert.Equal(t, int64(0), gt)
	assert.Equal(t, int64(0), lt)

	idx.Insert(500, 2)
	tr.Update(2, 0, 500)
	gt, _ = tr.Thresholds()
	assert.Equal(t, int64(300), gt)
}

func TestTopKTracker_SkipsBelowBoundary(t *testing.T) {
	idx := NewSkipList()
	tr := NewTopKTracker(idx)

	for i, c := range []int64{1000, 500, 100, -100, -500, -1000} {
		idx.Insert(c, Ref(i))
		tr.Update(2, 0, c)
	}
	gt, lt := tr.Thresholds()
	assert.Equal(t, int64(500), gt)
	assert.Equal(t, int64(-500), lt)

	// 100 → 200：新旧值都低于涨幅阈值，也高于跌幅阈值
	h := findHandle(idx, 100)
	idx.Rekey(h, 200)
	g, l := tr.Update(2, 100, 200)
	assert.False(t, g)
	assert.False(t, l)

	// 相等也触发
	idx.Rekey(h, 500)
	g, l = tr.Update(2, 200, 500)
	assert.True(t, g)
	assert.False(t, l)
	gt, _ = tr.Thresholds()
	assert.Equal(t, int64(500), gt)
}

func TestTopKTracker_Zero(t *testing.T) {
	idx := NewSkipList()
	tr := NewTopKTracker(idx)

	idx.Insert(-20, 1)
	tr.Update(1, 0, -20)
	_, lt := tr.Thresholds()
	assert.Equal(t, int64(-20), lt)

	// 没有上涨标的，涨幅阈值保持 0
	gt, _ := tr.Thresholds()
	assert.Equal(t, int64(0), gt)
}

func TestBoundary(t *testing.T) {
	idx := NewSkipList()
	for i, c := range []int64{-3, -2, -1, 1, 2} {
		idx.Insert(c, Ref(i))
	}

	assert.Equal(t, int64(1), boundary(idx.Descending(), 2, isGainer))
	assert.Equal(t, int64(0), boundary(idx.Descending(), 3, isGainer), "only two gainers")
	assert.Equal(t, int64(-1), boundary(idx.Ascending(), 3, isLoser))
	assert.Equal(t, int64(0), boundary(idx.Ascending(), 4, isLoser))
	assert.Equal(t, int64(0), boundary(idx.Ascending(), 0, isLoser))
}

func findHandle(sl *SkipList, key int64) Handle {
	node, _ := sl.findWithPath(key)
	return node.head
}
