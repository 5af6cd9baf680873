package nats

import (
	"errors"
	"fmt"

	"topmovers.com/pkg/feed"
)

// ErrQueueFull 引擎报价队列已满
var ErrQueueFull = errors.New("quote queue full")

// QuoteSink 报价接收方（feed.Engine）
type QuoteSink interface {
	Submit(q feed.Quote) bool
}

// QuoteHandler 把 {"id":..,"price":..} 消息转成报价提交给引擎
func QuoteHandler(sink QuoteSink) MessageHandler {
	return func(subject string, data []byte) error {
		q, err := UnmarshalJSON[feed.Quote](data)
		if err != nil {
			return fmt.Errorf("decode quote: %w", err)
		}
		if !sink.Submit(*q) {
			return fmt.Errorf("%w: stock %d", ErrQueueFull, q.ID)
		}
		return nil
	}
}
