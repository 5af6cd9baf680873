package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topmovers.com/pkg/feed"
	"topmovers.com/pkg/topstocks"
)

func setupStore(t *testing.T) *RedisStore {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	client, err := NewClient(ctx, "localhost:6379", "", 0)
	if err != nil {
		t.Skipf("skipping test; redis not available: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, "test:tops:"+time.Now().Format("150405.000000")+":")
	t.Cleanup(func() { _ = store.Clear(context.Background()) })
	return store
}

func entry(id uint64, change int64) feed.Entry {
	return feed.Entry{InstrumentView: topstocks.InstrumentView{ID: id, Change: change}}
}

func TestRedisStore_SaveLoad(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	snap := &feed.Snapshot{
		ID:        100,
		Timestamp: 12345,
		Gainers:   []feed.Entry{entry(34, 995), entry(235, 725), entry(9722, 185)},
		Losers:    []feed.Entry{entry(523, -10000), entry(1093, -1160)},
	}
	require.NoError(t, store.Save(ctx, snap))

	gainers, err := store.Load(ctx, Gainers, 0)
	require.NoError(t, err)
	assert.Equal(t, []Ranked{{34, 995}, {235, 725}, {9722, 185}}, gainers)

	top2, err := store.Load(ctx, Gainers, 2)
	require.NoError(t, err)
	assert.Len(t, top2, 2)

	losers, err := store.Load(ctx, Losers, 10)
	require.NoError(t, err)
	assert.Equal(t, []Ranked{{523, -10000}, {1093, -1160}}, losers)

	meta, err := store.Meta(ctx)
	require.NoError(t, err)
	assert.Equal(t, Meta{ID: 100, Timestamp: 12345}, meta)
}

func TestRedisStore_Replace(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &feed.Snapshot{ID: 1, Gainers: []feed.Entry{entry(1, 10), entry(2, 20)}}))
	require.NoError(t, store.Save(ctx, &feed.Snapshot{ID: 2, Gainers: []feed.Entry{entry(3, 5)}}))

	gainers, err := store.Load(ctx, Gainers, 0)
	require.NoError(t, err)
	assert.Equal(t, []Ranked{{3, 5}}, gainers)

	losers, err := store.Load(ctx, Losers, 0)
	require.NoError(t, err)
	assert.Empty(t, losers)
}

func TestRedisStore_Handler(t *testing.T) {
	store := setupStore(t)

	store.Handler(time.Second, nil)(&feed.Snapshot{ID: 7, Losers: []feed.Entry{entry(5, -42)}})

	losers, err := store.Load(context.Background(), Losers, 1)
	require.NoError(t, err)
	assert.Equal(t, []Ranked{{5, -42}}, losers)
}

func TestRedisStore_Errors(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.Load(ctx, Side("sideways"), 1)
	assert.ErrorIs(t, err, ErrUnknownSide)

	_, err = store.Meta(ctx)
	assert.ErrorIs(t, err, redis.Nil)
}

// 涨跌幅相同的按成员字符串排序，与写入顺序无关
func TestRedisStore_TiesByMember(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &feed.Snapshot{
		ID:      1,
		Gainers: []feed.Entry{entry(12, 10), entry(3, 10), entry(2, 10)},
		Losers:  []feed.Entry{entry(5, -10), entry(40, -10)},
	}))

	gainers, err := store.Load(ctx, Gainers, 0)
	require.NoError(t, err)
	assert.Equal(t, []Ranked{{3, 10}, {2, 10}, {12, 10}}, gainers)

	losers, err := store.Load(ctx, Losers, 0)
	require.NoError(t, err)
	assert.Equal(t, []Ranked{{40, -10}, {5, -10}}, losers)
}
