package topstocks

import (
	"iter"

	"github.com/google/btree"
)

// DefaultBTreeDegree B 树默认阶数
const DefaultBTreeDegree = 32

// btreeItem B 树元素
// (key, seq) 唯一：相同涨跌幅按挂入顺序区分
type btreeItem struct {
	key int64
	seq uint64
	ref Ref
}

func lessItem(a, b btreeItem) bool {
	if a.key != b.key {
		return a.key < b.key
	}
	return a.seq < b.seq
}

// BTreeIndex 基于 google/btree 的排名索引
type BTreeIndex struct {
	tree *btree.BTreeG[btreeItem]
	pool entryPool
	seq  uint64
}

var _ RankIndex = (*BTreeIndex)(nil)

// NewBTreeIndex 创建 B 树索引
func NewBTreeIndex(degree int) *BTreeIndex {
	return &BTreeIndex{
		tree: btree.NewG(degree, lessItem),
	}
}

func (b *BTreeIndex) item(h Handle) btreeItem {
	e := b.pool.at(h)
	return btreeItem{key: e.key, seq: e.seq, ref: e.ref}
}

func (b *BTreeIndex) attach(h Handle) {
	b.seq++
	b.pool.at(h).seq = b.seq
	b.tree.ReplaceOrInsert(b.item(h))
}

// Insert 插入条目
func (b *BTreeIndex) Insert(key int64, ref Ref) Handle {
	h := b.pool.alloc(key, ref)
	b.attach(h)
	return h
}

// Remove 删除条目
func (b *BTreeIndex) Remove(h Handle) {
	b.tree.Delete(b.item(h))
	b.pool.release(h)
}

// Rekey 修改 key（删除旧元素后立即插入新元素，句柄不变）
func (b *BTreeIndex) Rekey(h Handle, key int64) Handle {
	e := b.pool.at(h)
	if e.key == key {
		return h
	}
	b.tree.Delete(b.item(h))
	e.key = key
	b.attach(h)
	return h
}

// Key 条目当前 key
func (b *BTreeIndex) Key(h Handle) int64 {
	return b.pool.at(h).key
}

// Len 条目数量
func (b *BTreeIndex) Len() int {
	return b.tree.Len()
}

// Ascending 从小到大遍历
func (b *BTreeIndex) Ascending() iter.Seq2[int64, Ref] {
	return func(yield func(int64, Ref) bool) {
		b.tree.Ascend(func(it btreeItem) bool {
			return yield(it.key, it.ref)
		})
	}
}

// Descending 从大到小遍历
func (b *BTreeIndex) Descending() iter.Seq2[int64, Ref] {
	return func(yield func(int64, Ref) bool) {
		b.tree.Descend(func(it btreeItem) bool {
			return yield(it.key, it.ref)
		})
	}
}
