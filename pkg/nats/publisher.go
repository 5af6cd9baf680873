// 文件: pkg/nats/publisher.go
// NATS 消息发布者
// 榜单快照的轻量级下游，适合本地开发

package nats

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"topmovers.com/pkg/feed"
	"topmovers.com/pkg/logger"
)

// Publisher NATS 发布者
type Publisher struct {
	conn *nats.Conn
	log  *logger.Logger
}

// NewPublisher 创建发布者
func NewPublisher(url string, log *logger.Logger) (*Publisher, error) {
	conn, err := nats.Connect(url, nats.Name("topstocks-publisher"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{conn: conn, log: log.WithField("component", "nats")}, nil
}

// Publish 发布消息（JSON）
func (p *Publisher) Publish(subject string, data any) error {
	bytes, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return p.conn.Publish(subject, bytes)
}

// PublishRaw 发布原始消息
func (p *Publisher) PublishRaw(subject string, data []byte) error {
	return p.conn.Publish(subject, data)
}

// SnapshotHandler 把榜单快照发布到 subject，可直接注册到 feed.Engine
// 发布失败只记录日志
func (p *Publisher) SnapshotHandler(subject string) feed.SnapshotHandler {
	return func(s *feed.Snapshot) {
		if err := p.Publish(subject, s); err != nil {
			p.log.WithError(err).Warnf("publish snapshot %d to %s failed", s.ID, subject)
		}
	}
}

// Close 关闭连接，先把缓冲的消息刷出去
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
