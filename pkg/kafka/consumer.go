// 文件: pkg/kafka/consumer.go
// Kafka 消费者：从报价 topic 读取行情
// 消费者组 + 优雅关闭，处理失败只记录日志，不中断消费

package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/IBM/sarama"

	"topmovers.com/pkg/logger"
)

// =============================================================================
// Consumer 配置
// =============================================================================

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Brokers       []string // Kafka broker 地址列表
	GroupID       string   // 消费者组 ID
	Topics        []string // 订阅的 topics
	OffsetInitial int64    // 初始 offset: -1=newest, -2=oldest
	AutoCommit    bool     // 是否自动提交 offset
}

// DefaultConsumerConfig 默认配置
func DefaultConsumerConfig(brokers []string, groupID string, topics []string) ConsumerConfig {
	return ConsumerConfig{
		Brokers:       brokers,
		GroupID:       groupID,
		Topics:        topics,
		OffsetInitial: sarama.OffsetNewest,
		AutoCommit:    true,
	}
}

// =============================================================================
// MessageHandler 消息处理器
// =============================================================================

// MessageHandler 消息处理函数
type MessageHandler func(topic string, partition int32, offset int64, key, value []byte) error

// =============================================================================
// Consumer 消费者
// =============================================================================

// Consumer 通用 Kafka 消费者
type Consumer struct {
	client  sarama.ConsumerGroup
	config  ConsumerConfig
	handler MessageHandler
	log     *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConsumer 创建消费者
func NewConsumer(cfg ConsumerConfig, handler MessageHandler, log *logger.Logger) (*Consumer, error) {
	// 构建 Sarama 配置
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	saramaConfig.Consumer.Offsets.Initial = cfg.OffsetInitial
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = cfg.AutoCommit

	// 创建消费者组
	client, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		client:  client,
		config:  cfg,
		handler: handler,
		log:     log.WithField("component", "kafka-consumer"),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start 启动消费
func (c *Consumer) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			// 加入消费者组
			handler := &consumerGroupHandler{handler: c.handler, log: c.log}
			if err := c.client.Consume(c.ctx, c.config.Topics, handler); err != nil {
				c.log.WithError(err).Error("consume failed")
			}

			// 检查是否应该退出
			if c.ctx.Err() != nil {
				return
			}
		}
	}()
}

// Stop 停止消费
func (c *Consumer) Stop() error {
	c.cancel()
	c.wg.Wait()
	return c.client.Close()
}

// =============================================================================
// Sarama ConsumerGroupHandler 实现
// =============================================================================

type consumerGroupHandler struct {
	handler MessageHandler
	log     *logger.Logger
}

func (h *consumerGroupHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerGroupHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.handler(msg.Topic, msg.Partition, msg.Offset, msg.Key, msg.Value); err != nil {
			h.log.WithError(err).Warnf("handle %s/%d@%d failed", msg.Topic, msg.Partition, msg.Offset)
		}
		session.MarkMessage(msg, "")
	}
	return nil
}
