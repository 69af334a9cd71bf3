package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Transition 一次已提交的状态转移事件
type Transition struct {
	Workflow  string    `json:"workflow"`
	RequestID uint      `json:"request_id"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	At        time.Time `json:"at"`
	TraceID   string    `json:"trace_id,omitempty"` // 触发转移的 HTTP 请求
}

// Publisher 转移事件发布接口
type Publisher interface {
	PublishTransition(ctx context.Context, ev Transition) error
	Close() error
}

// KafkaPublisher 基于 kafka-go 的发布实现
// 以 workflow:request_id 作为分区键，保证同一申请的事件有序
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaPublisher 创建 Kafka 发布者
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka 发布者至少需要一个 broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic 不能为空")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		topic: topic,
	}, nil
}

// PublishTransition 发布转移事件
func (p *KafkaPublisher) PublishTransition(ctx context.Context, ev Transition) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(PartitionKey(ev)),
		Value: payload,
		Time:  ev.At.UTC(),
	})
}

// Close 关闭 writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// PartitionKey 事件分区键
func PartitionKey(ev Transition) string {
	return fmt.Sprintf("%s:%d", ev.Workflow, ev.RequestID)
}

// NopPublisher 未配置 broker 时使用
type NopPublisher struct{}

// PublishTransition 不做任何事
func (NopPublisher) PublishTransition(context.Context, Transition) error { return nil }

// Close 不做任何事
func (NopPublisher) Close() error { return nil }
