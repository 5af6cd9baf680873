package market

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"topmovers.com/pkg/feed"
)

// Ticker 模拟多标的行情生成器
// 每个周期随机挑选 Burst 个标的，用几何布朗运动 (GBM) 推进价格
type Ticker struct {
	Interval   time.Duration // 生成频率
	Burst      int           // 每个周期生成的报价数
	Volatility float64       // 年化波动率（如 0.5 代表 50%）

	prices      []float64 // 下标 i 对应标的 ID i+1
	stopChan    chan struct{}
	outChan     chan feed.Quote
	lastUpdated time.Time
	r           *rand.Rand
}

// ErrNoInstruments 没有可生成行情的标的
var ErrNoInstruments = errors.New("ticker: no instruments")

// ErrBadInterval 生成周期必须为正
var ErrBadInterval = errors.New("ticker: interval must be positive")

// NewTicker 创建行情生成器
// 标的 ID 为 1..len(startPrices)
func NewTicker(startPrices []float64, interval time.Duration) (*Ticker, error) {
	if len(startPrices) == 0 {
		return nil, ErrNoInstruments
	}
	if interval <= 0 {
		return nil, ErrBadInterval
	}
	prices := make([]float64, len(startPrices))
	copy(prices, startPrices)
	return &Ticker{
		Interval:    interval,
		Burst:       1,
		Volatility:  0.5,
		prices:      prices,
		stopChan:    make(chan struct{}),
		outChan:     make(chan feed.Quote, 1024),
		lastUpdated: time.Now(),
		r:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Start 启动生成器，返回只读报价通道
// 停止后通道会被关闭
func (t *Ticker) Start() <-chan feed.Quote {
	go t.loop()
	return t.outChan
}

// Stop 停止生成器
func (t *Ticker) Stop() {
	close(t.stopChan)
}

func (t *Ticker) loop() {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()
	defer close(t.outChan)

	for {
		select {
		case <-t.stopChan:
			return

		case now := <-ticker.C:
			// dt 单位是年
			dt := now.Sub(t.lastUpdated).Hours() / 24 / 365
			if dt <= 0 {
				dt = 1e-9
			}
			t.lastUpdated = now

			for range max(t.Burst, 1) {
				q := t.step(dt)

				// 下游慢就丢，旧报价没有价值
				select {
				case t.outChan <- q:
				default:
				}
			}
		}
	}
}

// step 随机推进一个标的的价格
// S_new = S * exp(-0.5*σ²*dt + σ*sqrt(dt)*Z)，保证价格始终为正
func (t *Ticker) step(dt float64) feed.Quote {
	i := t.r.Intn(len(t.prices))
	sigma := t.Volatility
	z := t.r.NormFloat64()
	t.prices[i] *= math.Exp(-0.5*sigma*sigma*dt + sigma*math.Sqrt(dt)*z)
	return feed.Quote{ID: uint64(i + 1), Price: t.prices[i]}
}
