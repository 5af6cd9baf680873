package topstocks

import (
	"iter"
	"math/rand"
)

// =============================================================================
// 跳表 (Skip List) - 实现 RankIndex 接口
// =============================================================================
//
// 和 Redis ZSet 一样：前向多层指针 + 第 0 层后向指针，支持双向遍历
//
// Level 2:  Head ──────────────► -150 ─────────────────────► +800 ──► nil
// Level 1:  Head ──► -420 ─────► -150 ──────► +230 ────────► +800 ──► nil
// Level 0:  Head ──► -420 ◄────► -150 ◄─────► +230 ◄──────► +800 ◄── Tail
//                      │                        │
//                    [A]                     [B, C]     ← 同 key 的条目 FIFO 链
//
// 每个不同的涨跌幅一个节点，相同涨跌幅的标的挂在节点的条目链上

const (
	// MaxLevel 跳表最大层数
	MaxLevel = 32

	// SkipListP 节点晋升概率
	SkipListP = 0.25
)

// skipNode 跳表节点（一个涨跌幅值）
type skipNode struct {
	key  int64
	head Handle // 条目链表头
	tail Handle // 条目链表尾
	prev *skipNode
	next []*skipNode
}

func newSkipNode(key int64, height int) *skipNode {
	return &skipNode{
		key:  key,
		head: NoHandle,
		tail: NoHandle,
		next: make([]*skipNode, height),
	}
}

// SkipList 跳表（升序存储）
type SkipList struct {
	head   *skipNode // 头节点（哨兵）
	tail   *skipNode // 最大 key 节点，降序遍历起点
	height int       // 当前最大层数
	nodes  int       // 节点数量（不同 key 的数量）
	pool   entryPool
}

// 编译时检查：确保 SkipList 实现了 RankIndex 接口
var _ RankIndex = (*SkipList)(nil)

// NewSkipList 创建跳表
func NewSkipList() *SkipList {
	return &SkipList{
		head:   newSkipNode(0, MaxLevel),
		height: 1,
	}
}

// =============================================================================
// 内部方法
// =============================================================================

// randomHeight 随机生成节点层数
func randomHeight() int {
	h := 1
	for rand.Float64() < SkipListP && h < MaxLevel {
		h++
	}
	return h
}

// findWithPath 查找节点，同时记录每层的前驱节点
func (sl *SkipList) findWithPath(key int64) (*skipNode, [MaxLevel]*skipNode) {
	var path [MaxLevel]*skipNode
	curr := sl.head

	for i := sl.height - 1; i >= 0; i-- {
		for curr.next[i] != nil && curr.next[i].key < key {
			curr = curr.next[i]
		}
		path[i] = curr
	}

	target := curr.next[0]
	if target != nil && target.key == key {
		return target, path
	}
	return nil, path
}

// attach 把条目挂到 key 对应的节点尾部（节点不存在则创建）
func (sl *SkipList) attach(h Handle) {
	e := sl.pool.at(h)
	node, path := sl.findWithPath(e.key)

	if node == nil {
		height := randomHeight()
		if height > sl.height {
			for i := sl.height; i < height; i++ {
				path[i] = sl.head
			}
			sl.height = height
		}

		node = newSkipNode(e.key, height)
		for i := 0; i < height; i++ {
			node.next[i] = path[i].next[i]
			path[i].next[i] = node
		}

		// 第 0 层后向指针
		if path[0] != sl.head {
			node.prev = path[0]
		}
		if node.next[0] != nil {
			node.next[0].prev = node
		} else {
			sl.tail = node
		}
		sl.nodes++
	}

	e.prev = node.tail
	e.next = NoHandle
	if node.tail != NoHandle {
		sl.pool.at(node.tail).next = h
	} else {
		node.head = h
	}
	node.tail = h
}

// detach 把条目从节点上摘下（节点空了就删除），不释放条目
func (sl *SkipList) detach(h Handle) {
	e := sl.pool.at(h)
	node, path := sl.findWithPath(e.key)
	if node == nil {
		return
	}

	if e.prev != NoHandle {
		sl.pool.at(e.prev).next = e.next
	} else {
		node.head = e.next
	}
	if e.next != NoHandle {
		sl.pool.at(e.next).prev = e.prev
	} else {
		node.tail = e.prev
	}
	e.prev, e.next = NoHandle, NoHandle

	if node.head != NoHandle {
		return
	}

	// 节点空了，从每层删除
	for i := 0; i < sl.height; i++ {
		if path[i].next[i] != node {
			break
		}
		path[i].next[i] = node.next[i]
	}
	if node.next[0] != nil {
		node.next[0].prev = node.prev
	} else {
		sl.tail = node.prev
	}

	for sl.height > 1 && sl.head.next[sl.height-1] == nil {
		sl.height--
	}
	sl.nodes--
}

// =============================================================================
// RankIndex 接口实现
// =============================================================================

// Insert 插入条目
func (sl *SkipList) Insert(key int64, ref Ref) Handle {
	h := sl.pool.alloc(key, ref)
	sl.attach(h)
	return h
}

// Remove 删除条目
func (sl *SkipList) Remove(h Handle) {
	sl.detach(h)
	sl.pool.release(h)
}

// Rekey 修改 key，复用同一个条目槽位
func (sl *SkipList) Rekey(h Handle, key int64) Handle {
	e := sl.pool.at(h)
	if e.key == key {
		return h
	}
	sl.detach(h)
	e.key = key
	sl.attach(h)
	return h
}

// Key 条目当前 key
func (sl *SkipList) Key(h Handle) int64 {
	return sl.pool.at(h).key
}

// Len 条目数量
func (sl *SkipList) Len() int {
	return sl.pool.live
}

// Levels 不同 key 的数量
func (sl *SkipList) Levels() int {
	return sl.nodes
}

// Ascending 从小到大遍历
func (sl *SkipList) Ascending() iter.Seq2[int64, Ref] {
	return func(yield func(int64, Ref) bool) {
		for n := sl.head.next[0]; n != nil; n = n.next[0] {
			if !sl.yieldNode(n, yield) {
				return
			}
		}
	}
}

// Descending 从大到小遍历（沿后向指针）
// 同 key 条目从链尾往回走，整体是 Ascending 的逆序
func (sl *SkipList) Descending() iter.Seq2[int64, Ref] {
	return func(yield func(int64, Ref) bool) {
		for n := sl.tail; n != nil; n = n.prev {
			if !sl.yieldNodeReverse(n, yield) {
				return
			}
		}
	}
}

func (sl *SkipList) yieldNode(n *skipNode, yield func(int64, Ref) bool) bool {
	for h := n.head; h != NoHandle; {
		e := sl.pool.at(h)
		next := e.next
		if !yield(n.key, e.ref) {
			return false
		}
		h = next
	}
	return true
}

func (sl *SkipList) yieldNodeReverse(n *skipNode, yield func(int64, Ref) bool) bool {
	for h := n.tail; h != NoHandle; {
		e := sl.pool.at(h)
		prev := e.prev
		if !yield(n.key, e.ref) {
			return false
		}
		h = prev
	}
	return true
}
