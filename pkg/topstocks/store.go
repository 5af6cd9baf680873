package topstocks

import "iter"

// =============================================================================
// 标的存储 (Instrument Store)
// =============================================================================
//
// Arena 设计：
//   records  []Instrument   连续存放，按分配顺序追加
//   dense    []int32        id → ref+1（0 表示未分配），小 id 直接寻址
//   sparse   map[id]Ref     超出 dense 上限的稀疏 id
//
// 排名索引里只存 Ref（arena 下标），不存指针：
// records 扩容后旧地址失效，但下标永远有效

// DenseLimit dense 表的最大长度，超过的 id 走 map
const DenseLimit = 1 << 20

// Ref 标的在 arena 中的下标
type Ref int32

// Store 标的存储
type Store struct {
	records []Instrument
	dense   []int32
	sparse  map[uint64]Ref
}

// NewStore 创建存储
// maxID: 预估最大 id，用于预分配
// eager: 是否一次性分配 [0, maxID] 全部记录，最多 DenseLimit 条
func NewStore(maxID uint64, eager bool) *Store {
	n := uint64(DenseLimit)
	if maxID < DenseLimit {
		n = maxID + 1
	}

	s := &Store{
		records: make([]Instrument, 0, n),
		dense:   make([]int32, n),
	}

	if eager {
		for id := uint64(0); id < n; id++ {
			s.GetOrCreate(id)
		}
	}
	return s
}

// Lookup 查找已分配的记录，不分配
func (s *Store) Lookup(id uint64) (Ref, bool) {
	if id < uint64(len(s.dense)) {
		slot := s.dense[id]
		return Ref(slot - 1), slot != 0
	}
	if id < DenseLimit || s.sparse == nil {
		return 0, false
	}
	ref, ok := s.sparse[id]
	return ref, ok
}

// GetOrCreate 返回已有记录，或分配一条未初始化的新记录
func (s *Store) GetOrCreate(id uint64) Ref {
	if ref, ok := s.Lookup(id); ok {
		return ref
	}

	ref := Ref(len(s.records))
	s.records = append(s.records, Instrument{ID: id, rank: NoHandle})

	if id < DenseLimit {
		s.growDense(id)
		s.dense[id] = int32(ref) + 1
	} else {
		if s.sparse == nil {
			s.sparse = make(map[uint64]Ref)
		}
		s.sparse[id] = ref
	}
	return ref
}

// growDense 翻倍扩容，直到能容纳 id
func (s *Store) growDense(id uint64) {
	if id < uint64(len(s.dense)) {
		return
	}
	n := uint64(len(s.dense)) * 2
	if n <= id {
		n = id + 1
	}
	if n > DenseLimit {
		n = DenseLimit
	}
	dense := make([]int32, n)
	copy(dense, s.dense)
	s.dense = dense
}

// At 返回记录指针
// 只能在单次调用内临时使用，不能跨 GetOrCreate 持有
func (s *Store) At(ref Ref) *Instrument {
	return &s.records[ref]
}

// View 返回记录的只读视图
func (s *Store) View(ref Ref) InstrumentView {
	return s.records[ref].View()
}

// Len 已分配的记录数
func (s *Store) Len() int {
	return len(s.records)
}

// All 遍历所有已分配记录（顺序无保证）
func (s *Store) All() iter.Seq[InstrumentView] {
	return func(yield func(InstrumentView) bool) {
		for i := range s.records {
			if !yield(s.records[i].View()) {
				return
			}
		}
	}
}
