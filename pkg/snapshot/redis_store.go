package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"topmovers.com/pkg/feed"
	"topmovers.com/pkg/logger"
)

// =============================================================================
// 榜单快照存储 (Redis)
// =============================================================================
//
// Key 布局（prefix 默认 "tops:"）：
//
//   tops:gainers  ZSET  member=标的ID score=涨跌幅(0.01%)
//   tops:losers   ZSET  member=标的ID score=涨跌幅(0.01%)
//   tops:meta     HASH  id=快照ID ts=快照时间(ns)
//
// 每次保存整体替换（MULTI/EXEC），读方不会看到半新半旧的榜单

// DefaultPrefix 默认 key 前缀
const DefaultPrefix = "tops:"

// Side 榜单方向
type Side string

const (
	Gainers Side = "gainers"
	Losers  Side = "losers"
)

// ErrUnknownSide 未知方向
var ErrUnknownSide = errors.New("unknown side")

// Ranked 存储中的一条排名
type Ranked struct {
	ID     uint64
	Change int64
}

// Meta 最近一次保存的快照信息
type Meta struct {
	ID        int64
	Timestamp int64
}

// RedisStore 基于 Redis ZSet 的快照存储
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore 创建存储
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// NewClient 按地址创建 Redis 客户端并检查连通性
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	return rdb, nil
}

func (s *RedisStore) key(name string) string {
	return s.prefix + name
}

// Save 整体替换两个榜单和元信息
func (s *RedisStore) Save(ctx context.Context, snap *feed.Snapshot) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		replace(ctx, pipe, s.key(string(Gainers)), snap.Gainers)
		replace(ctx, pipe, s.key(string(Losers)), snap.Losers)
		pipe.HSet(ctx, s.key("meta"),
			"id", snap.ID,
			"ts", snap.Timestamp,
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save snapshot %d: %w", snap.ID, err)
	}
	return nil
}

func replace(ctx context.Context, pipe redis.Pipeliner, key string, entries []feed.Entry) {
	pipe.Del(ctx, key)
	if len(entries) == 0 {
		return
	}
	members := make([]redis.Z, len(entries))
	for i, e := range entries {
		members[i] = redis.Z{
			Score:  float64(e.Change),
			Member: strconv.FormatUint(e.ID, 10),
		}
	}
	pipe.ZAdd(ctx, key, members...)
}

// Load 读取一侧榜单，按涨跌幅排序
// 涨跌幅相同时 Redis 按成员字符串排序，不保留榜单里的先后顺序
// depth <= 0 表示全部
func (s *RedisStore) Load(ctx context.Context, side Side, depth int) ([]Ranked, error) {
	stop := int64(depth) - 1
	if depth <= 0 {
		stop = -1
	}

	var cmd *redis.ZSliceCmd
	switch side {
	case Gainers:
		cmd = s.client.ZRevRangeWithScores(ctx, s.key(string(side)), 0, stop)
	case Losers:
		cmd = s.client.ZRangeWithScores(ctx, s.key(string(side)), 0, stop)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSide, side)
	}

	zs, err := cmd.Result()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", side, err)
	}

	res := make([]Ranked, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		id, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("load %s: bad member %q", side, member)
		}
		res = append(res, Ranked{ID: id, Change: int64(z.Score)})
	}
	return res, nil
}

// Meta 读取最近一次保存的快照信息，没有时返回 redis.Nil
func (s *RedisStore) Meta(ctx context.Context) (Meta, error) {
	vals, err := s.client.HGetAll(ctx, s.key("meta")).Result()
	if err != nil {
		return Meta{}, fmt.Errorf("load meta: %w", err)
	}
	if len(vals) == 0 {
		return Meta{}, redis.Nil
	}
	id, _ := strconv.ParseInt(vals["id"], 10, 64)
	ts, _ := strconv.ParseInt(vals["ts"], 10, 64)
	return Meta{ID: id, Timestamp: ts}, nil
}

// Clear 删除所有 key
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key(string(Gainers)), s.key(string(Losers)), s.key("meta")).Err()
}

// Handler 作为 feed.SnapshotHandler 使用，每次保存有独立超时
// 保存失败只记录日志
func (s *RedisStore) Handler(timeout time.Duration, log *logger.Logger) feed.SnapshotHandler {
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithField("component", "snapshot")
	return func(snap *feed.Snapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.Save(ctx, snap); err != nil {
			log.WithError(err).Warn("save snapshot failed")
		}
	}
}
