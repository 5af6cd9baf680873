package topstocks

import (
	"fmt"
	"iter"
)

// =============================================================================
// 排名索引接口 (Rank Index Interface)
// =============================================================================
//
// 按涨跌幅排序的多值有序结构（同一个 key 可以挂多个标的）
//
// 当前实现：
//   - SkipList  跳表（默认）
//   - BTreeIndex B 树（google/btree）
//
// 条目只保存 Ref（arena 下标），不持有标的记录

// Handle 条目句柄（条目池下标）
type Handle int32

// NoHandle 空句柄
const NoHandle Handle = -1

// RankIndex 排名索引
type RankIndex interface {
	// Insert 插入条目，返回句柄
	Insert(key int64, ref Ref) Handle

	// Remove 删除条目
	Remove(h Handle)

	// Rekey 修改条目的 key
	// 一次完成摘下 + 挂回，调用方看不到条目缺失的中间状态
	Rekey(h Handle, key int64) Handle

	// Key 条目当前的 key
	Key(h Handle) int64

	// Descending 从大到小遍历，恰好是 Ascending 的逆序
	Descending() iter.Seq2[int64, Ref]

	// Ascending 从小到大遍历，相同 key 按挂入先后
	Ascending() iter.Seq2[int64, Ref]

	// Len 条目数量
	Len() int
}

// IndexKind 索引实现类型
type IndexKind string

const (
	IndexSkipList IndexKind = "skiplist"
	IndexBTree    IndexKind = "btree"
)

// NewRankIndex 按类型创建索引
func NewRankIndex(kind IndexKind) (RankIndex, error) {
	switch kind {
	case IndexSkipList, "":
		return NewSkipList(), nil
	case IndexBTree:
		return NewBTreeIndex(DefaultBTreeDegree), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownIndex, kind)
	}
}

// =============================================================================
// 条目池
// =============================================================================
//
// 两种实现共用：句柄就是池下标，删除的槽位进空闲链表复用

type entry struct {
	key  int64
	ref  Ref
	seq  uint64 // 挂入顺序（B 树用来区分相同 key）
	prev Handle // 同 key 链表（跳表用）
	next Handle
}

type entryPool struct {
	entries []entry
	free    []Handle
	live    int
}

func (p *entryPool) alloc(key int64, ref Ref) Handle {
	p.live++
	e := entry{key: key, ref: ref, prev: NoHandle, next: NoHandle}
	if n := len(p.free); n > 0 {
		h := p.free[n-1]
		p.free = p.free[:n-1]
		p.entries[h] = e
		return h
	}
	p.entries = append(p.entries, e)
	return Handle(len(p.entries) - 1)
}

func (p *entryPool) release(h Handle) {
	p.live--
	p.entries[h] = entry{prev: NoHandle, next: NoHandle}
	p.free = append(p.free, h)
}

func (p *entryPool) at(h Handle) *entry {
	return &p.entries[h]
}
