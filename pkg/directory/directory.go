// 文件: pkg/directory/directory.go
package directory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// Directory 标的 ID → 代码 的内存缓存
// 启动时从 Repository 加载，给发布的快照打标签
type Directory struct {
	mu      sync.RWMutex
	symbols map[uint64]string
}

func New() *Directory {
	return &Directory{symbols: make(map[uint64]string)}
}

// Load 从仓库全量加载，返回加载条数
func (d *Directory) Load(ctx context.Context, repo Repository) (int, error) {
	items, err := repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("load directory: %w", err)
	}

	symbols := make(map[uint64]string, len(items))
	for _, it := range items {
		symbols[it.ID] = it.Symbol
	}

	d.mu.Lock()
	d.symbols = symbols
	d.mu.Unlock()
	return len(items), nil
}

// Set 设置单个代码
func (d *Directory) Set(id uint64, symbol string) {
	d.mu.Lock()
	d.symbols[id] = symbol
	d.mu.Unlock()
}

// Symbol 查询代码，未知标的返回 "#id"
func (d *Directory) Symbol(id uint64) string {
	d.mu.RLock()
	s, ok := d.symbols[id]
	d.mu.RUnlock()
	if ok {
		return s
	}
	return "#" + strconv.FormatUint(id, 10)
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.symbols)
}
