// 文件: pkg/nats/subscriber.go
// NATS 消息订阅者

package nats

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"topmovers.com/pkg/logger"
)

// MessageHandler 消息处理函数
type MessageHandler func(subject string, data []byte) error

// Subscriber NATS 订阅者
type Subscriber struct {
	conn    *nats.Conn
	subs    []*nats.Subscription
	handler MessageHandler
	log     *logger.Logger
}

// NewSubscriber 创建订阅者
func NewSubscriber(url string, handler MessageHandler, log *logger.Logger) (*Subscriber, error) {
	conn, err := nats.Connect(url, nats.Name("topstocks-subscriber"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Subscriber{
		conn:    conn,
		handler: handler,
		log:     log.WithField("component", "nats"),
	}, nil
}

// Subscribe 订阅主题
func (s *Subscriber) Subscribe(subjects ...string) error {
	for _, subject := range subjects {
		sub, err := s.conn.Subscribe(subject, s.onMessage)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		s.subs = append(s.subs, sub)
	}
	return nil
}

// SubscribeQueue 队列订阅 (负载均衡)
// 注意：同一标的的报价必须进同一个引擎，多实例时要按标的分 subject
func (s *Subscriber) SubscribeQueue(subject, queue string) error {
	sub, err := s.conn.QueueSubscribe(subject, queue, s.onMessage)
	if err != nil {
		return fmt.Errorf("queue subscribe %s: %w", subject, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *Subscriber) onMessage(msg *nats.Msg) {
	if err := s.handler(msg.Subject, msg.Data); err != nil {
		s.log.WithError(err).Warnf("handle message on %s failed", msg.Subject)
	}
}

// Close 关闭
func (s *Subscriber) Close() error {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.conn.Close()
	return nil
}

// =============================================================================
// 便捷方法
// =============================================================================

// UnmarshalJSON 反序列化 JSON
func UnmarshalJSON[T any](data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
