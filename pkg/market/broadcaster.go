package market

import (
	"sync"
	"sync/atomic"

	"topmovers.com/pkg/feed"
)

// Broadcaster 榜单快照广播器（Fan-out）
//
//	      feed.Engine
//	            |
//	     [Broadcaster]
//	       /    |    \
//	   Redis   NATS   Kafka ...
//
// 慢订阅者只会丢自己的快照，不影响其他订阅者
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers []chan *feed.Snapshot
	bufSize     int
	dropped     atomic.Int64
}

// NewBroadcaster 创建广播器，bufSize 为每个订阅者的缓冲
func NewBroadcaster(bufSize int) *Broadcaster {
	if bufSize <= 0 {
		bufSize = 1024
	}
	return &Broadcaster{
		subscribers: make([]chan *feed.Snapshot, 0),
		bufSize:     bufSize,
	}
}

// Subscribe 订阅快照
func (b *Broadcaster) Subscribe() <-chan *feed.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *feed.Snapshot, b.bufSize)
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Broadcast 广播快照（非阻塞）
// 签名与 feed.SnapshotHandler 一致，可直接注册到引擎
func (b *Broadcaster) Broadcast(s *feed.Snapshot) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- s:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped 因订阅者过慢丢弃的快照数
func (b *Broadcaster) Dropped() int64 {
	return b.dropped.Load()
}

// Close 关闭所有订阅者的通道
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}
