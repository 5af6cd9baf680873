package feed

import (
	"encoding/json"
	"strconv"

	"topmovers.com/pkg/topstocks"
)

// SnapshotTopic 快照默认 topic / subject
const SnapshotTopic = "topstocks.snapshots"

// Quote 一笔报价
type Quote struct {
	ID    uint64  `json:"id"`
	Price float64 `json:"price"`
}

// Entry 榜单条目（带代码）
type Entry struct {
	topstocks.InstrumentView
	Symbol string `json:"symbol,omitempty"`
}

// Snapshot 榜单变化快照
// 只在至少一侧可能变化时生成，ID 由雪花算法分配，单调递增
type Snapshot struct {
	ID             int64   `json:"id"`
	Timestamp      int64   `json:"ts"`
	GainersChanged bool    `json:"gainers_changed"`
	LosersChanged  bool    `json:"losers_changed"`
	Gainers        []Entry `json:"gainers"`
	Losers         []Entry `json:"losers"`
}

// Topic 实现 kafka.Message
func (s *Snapshot) Topic() string {
	return SnapshotTopic
}

// Key 实现 kafka.Message
func (s *Snapshot) Key() string {
	return strconv.FormatInt(s.ID, 10)
}

// Value 实现 kafka.Message
func (s *Snapshot) Value() ([]byte, error) {
	return json.Marshal(s)
}
