// 文件: pkg/directory/repository.go
package directory

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

type Repository interface {
	Upsert(ctx context.Context, items ...*Instrument) error
	List(ctx context.Context) ([]*Instrument, error)
}

// MemoryRepository 内存实现，测试和单机模式用
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[uint64]Instrument
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[uint64]Instrument)}
}

func (r *MemoryRepository) Upsert(_ context.Context, items ...*Instrument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range items {
		r.items[it.ID] = *it
	}
	return nil
}

func (r *MemoryRepository) List(_ context.Context) ([]*Instrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]*Instrument, 0, len(r.items))
	for _, it := range r.items {
		res = append(res, &it)
	}
	slices.SortFunc(res, func(a, b *Instrument) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return res, nil
}
