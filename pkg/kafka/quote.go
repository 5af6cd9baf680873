package kafka

import (
	"encoding/json"
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

// QuoteHandler 解码 JSON 报价并提交给引擎
// 生产端应以标的 ID 作为 key，保证同一标的的报价有序
func QuoteHandler(sink QuoteSink) MessageHandler {
	return func(topic string, partition int32, offset int64, key, value []byte) error {
		var q feed.Quote
		if err := json.Unmarshal(value, &q); err != nil {
			return fmt.Errorf("decode quote at %s/%d@%d: %w", topic, partition, offset, err)
		}
		if !sink.Submit(q) {
			return fmt.Errorf("%w: stock %d", ErrQueueFull, q.ID)
		}
		return nil
	}
}

// QuoteMessage 报价消息，回放/压测时写入报价 topic
type QuoteMessage struct {
	feed.Quote
	topic string
}

// NewQuoteMessage 创建报价消息
func NewQuoteMessage(topic string, q feed.Quote) QuoteMessage {
	return QuoteMessage{Quote: q, topic: topic}
}

func (m QuoteMessage) Topic() string { return m.topic }

func (m QuoteMessage) Key() string { return fmt.Sprint(m.ID) }

func (m QuoteMessage) Value() ([]byte, error) { return json.Marshal(m.Quote) }
