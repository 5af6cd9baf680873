package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topmovers.com/pkg/logger"
	"topmovers.com/pkg/topstocks"
)

type symbols map[uint64]string

func (s symbols) Symbol(id uint64) string {
	if sym, ok := s[id]; ok {
		return sym
	}
	return fmt.Sprintf("#%d", id)
}

func newTestEngine(t *testing.T, depth int, before ...func(*Engine)) (*Engine, *topstocks.TopStocks) {
	t.Helper()
	cfg := topstocks.DefaultConfig()
	cfg.Depth = depth
	tops, err := topstocks.New(cfg)
	require.NoError(t, err)

	e, err := NewEngine(DefaultEngineConfig(), tops, logger.Nop())
	require.NoError(t, err)

	for _, fn := range before {
		fn(e)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		e.Stop()
	})
	e.Start(ctx)
	return e, tops
}

func ctxTimeout(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestEngine_SubmitWait(t *testing.T) {
	e, _ := newTestEngine(t, 3)
	ctx := ctxTimeout(t)

	assert.ErrorIs(t, e.SubmitWait(ctx, Quote{ID: 1, Price: 0}), topstocks.ErrInvalidPrice)
	require.NoError(t, e.SubmitWait(ctx, Quote{ID: 1, Price: 100}))
	assert.Nil(t, e.Latest(), "opening quote changes nothing")

	require.NoError(t, e.SubmitWait(ctx, Quote{ID: 1, Price: 110}))
	snap := e.Latest()
	require.NotNil(t, snap)
	assert.True(t, snap.GainersChanged)
	assert.True(t, snap.LosersChanged, "losers side not full, threshold is 0")
	require.Len(t, snap.Gainers, 1)
	assert.Equal(t, uint64(1), snap.Gainers[0].ID)
	assert.Equal(t, int64(1000), snap.Gainers[0].Change)
	assert.Empty(t, snap.Losers)

	stats := e.Stats()
	assert.Equal(t, int64(3), stats.QuotesReceived)
	assert.Equal(t, int64(3), stats.QuotesProcessed)
	assert.Equal(t, int64(1), stats.QuotesRejected)
	assert.Equal(t, int64(1), stats.Snapshots)
}

func TestEngine_SnapshotHandlers(t *testing.T) {
	var mu sync.Mutex
	var got []*Snapshot
	e, _ := newTestEngine(t, 2, func(e *Engine) {
		e.SetLabeler(symbols{2: "BBB"})
		e.OnSnapshot(func(s *Snapshot) {
			mu.Lock()
			got = append(got, s)
			mu.Unlock()
		})
	})
	ctx := ctxTimeout(t)

	quotes := []Quote{
		{1, 100}, {2, 100}, {3, 100},
		{1, 101}, {2, 98}, {3, 105},
	}
	for _, q := range quotes {
		require.True(t, e.Submit(q))
	}
	require.NoError(t, e.Flush(ctx))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i].ID, got[i-1].ID, "snapshot ids increase")
	}

	last := got[len(got)-1]
	assert.Same(t, e.Latest(), last)
	require.Len(t, last.Gainers, 2)
	assert.Equal(t, uint64(3), last.Gainers[0].ID)
	assert.Equal(t, "#3", last.Gainers[0].Symbol)
	require.Len(t, last.Losers, 1)
	assert.Equal(t, "BBB", last.Losers[0].Symbol)
}

func TestEngine_PreviousCallbackKept(t *testing.T) {
	tops, err := topstocks.New(topstocks.DefaultConfig())
	require.NoError(t, err)

	calls := 0
	tops.SetUpdateCallback(func(*topstocks.TopStocks, bool, bool) { calls++ })

	e, err := NewEngine(DefaultEngineConfig(), tops, nil)
	require.NoError(t, err)
	e.Start(context.Background())
	defer e.Stop()

	ctx := ctxTimeout(t)
	require.NoError(t, e.SubmitWait(ctx, Quote{ID: 7, Price: 10}))
	require.NoError(t, e.SubmitWait(ctx, Quote{ID: 7, Price: 9}))

	require.NoError(t, e.Query(ctx, func(*topstocks.TopStocks) {}))
	assert.Equal(t, 1, calls)
	assert.NotNil(t, e.Latest())
}

func TestEngine_Query(t *testing.T) {
	e, _ := newTestEngine(t, 10)
	ctx := ctxTimeout(t)

	for id := uint64(1); id <= 50; id++ {
		require.True(t, e.Submit(Quote{ID: id, Price: float64(id)}))
		require.True(t, e.Submit(Quote{ID: id, Price: float64(id) * 1.01}))
	}

	var count, ranked int
	require.NoError(t, e.Query(ctx, func(t *topstocks.TopStocks) {
		count = t.GetStockCount()
		ranked = t.Ranked()
	}))
	assert.Equal(t, 50, count)
	assert.Equal(t, 50, ranked)
}

func TestEngine_SubmitQueueFull(t *testing.T) {
	tops, err := topstocks.New(topstocks.DefaultConfig())
	require.NoError(t, err)

	cfg := DefaultEngineConfig()
	cfg.QuoteQueueSize = 2
	e, err := NewEngine(cfg, tops, nil)
	require.NoError(t, err)

	// 未启动，队列不会被消费
	assert.True(t, e.Submit(Quote{ID: 1, Price: 1}))
	assert.True(t, e.Submit(Quote{ID: 2, Price: 1}))
	assert.False(t, e.Submit(Quote{ID: 3, Price: 1}))

	stats := e.Stats()
	assert.Equal(t, int64(2), stats.QuotesReceived)
	assert.Equal(t, int64(1), stats.QuotesDropped)
}

func TestEngine_Stopped(t *testing.T) {
	tops, err := topstocks.New(topstocks.DefaultConfig())
	require.NoError(t, err)
	e, err := NewEngine(DefaultEngineConfig(), tops, nil)
	require.NoError(t, err)

	e.Start(context.Background())
	e.Stop()
	e.Stop()

	assert.False(t, e.Submit(Quote{ID: 1, Price: 1}))
	assert.ErrorIs(t, e.SubmitWait(context.Background(), Quote{ID: 1, Price: 1}), ErrStopped)
	assert.ErrorIs(t, e.Flush(context.Background()), ErrStopped)
}

func TestEngine_ContextCanceled(t *testing.T) {
	tops, err := topstocks.New(topstocks.DefaultConfig())
	require.NoError(t, err)
	e, err := NewEngine(DefaultEngineConfig(), tops, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	e.Start(ctx)
	defer e.Stop()

	require.NoError(t, e.SubmitWait(ctxTimeout(t), Quote{ID: 1, Price: 10}))
	cancel()

	// 不需要等到调用方自己的 ctx 超时
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	start := time.Now()
	require.Eventually(t, func() bool {
		return errors.Is(e.Flush(flushCtx), ErrStopped)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.ErrorIs(t, e.SubmitWait(flushCtx, Quote{ID: 1, Price: 11}), ErrStopped)
	assert.ErrorIs(t, e.Query(flushCtx, func(*topstocks.TopStocks) {}), ErrStopped)

	before := e.Stats().QuotesReceived
	assert.False(t, e.Submit(Quote{ID: 2, Price: 1}))
	assert.Equal(t, before, e.Stats().QuotesReceived)
}

func TestNewEngine_InvalidNode(t *testing.T) {
	tops, err := topstocks.New(topstocks.DefaultConfig())
	require.NoError(t, err)

	cfg := DefaultEngineConfig()
	cfg.NodeID = 5000
	_, err = NewEngine(cfg, tops, nil)
	assert.Error(t, err)
}

func TestSnapshot_Message(t *testing.T) {
	s := &Snapshot{
		ID:             42,
		GainersChanged: true,
		Gainers: []Entry{{
			InstrumentView: topstocks.InstrumentView{ID: 1, Open: 100, Last: 110, Change: 1000},
			Symbol:         "AAA",
		}},
	}
	assert.Equal(t, SnapshotTopic, s.Topic())
	assert.Equal(t, "42", s.Key())

	data, err := s.Value()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	gainers := decoded["gainers"].([]any)
	first := gainers[0].(map[string]any)
	assert.Equal(t, "AAA", first["symbol"])
	assert.Equal(t, float64(1000), first["change"])
}
