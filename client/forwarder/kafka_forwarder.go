/*
 * @module client/forwarder/kafka_forwarder
 * @description Kafka结果转发器，将验证结果副本发送到Kafka主题供下游订阅
 * @architecture 适配器模式 - 实现queue.ResultSink接口
 * @documentReference dev_docs/queue_pipeline_requirements.md
 * @stateFlow 结果产生 -> JSON序列化 -> 按消息ID分区写入Kafka
 * @rules 转发失败只记录日志，输出队列仍是权威结果通道
 * @dependencies github.com/segmentio/kafka-go, encoding/json
 * @refs service/queue/sink.go, service/init.go
 */

package forwarder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"dataquality-service/service/models"
)

// KafkaForwarder 验证结果的Kafka转发器
type KafkaForwarder struct {
	mutex  sync.RWMutex
	writer *kafka.Writer
	topic  string
	logger *slog.Logger

	producedCount int64
	errorCount    int64
}

// KafkaConfig Kafka转发配置
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// NewKafkaForwarder 创建Kafka结果转发器
func NewKafkaForwarder(config *KafkaConfig, logger *slog.Logger) *KafkaForwarder {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 100 * time.Millisecond,
	}

	return &KafkaForwarder{
		writer: writer,
		topic:  config.Topic,
		logger: logger,
	}
}

// Record 将验证结果发送到Kafka主题，实现queue.ResultSink接口
// 按消息ID作为分区键，同一消息的结果落在同一分区
func (f *KafkaForwarder) Record(ctx context.Context, response *models.QueueValidationResponse) error {
	value, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("结果序列化失败: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(response.MessageID),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "status", Value: []byte(response.Status)},
		},
	}

	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		f.mutex.Lock()
		f.errorCount++
		f.mutex.Unlock()
		return fmt.Errorf("Kafka写入失败: %w", err)
	}

	f.mutex.Lock()
	f.producedCount++
	f.mutex.Unlock()
	return nil
}

// GetStatistics 返回转发统计信息
func (f *KafkaForwarder) GetStatistics() map[string]interface{} {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return map[string]interface{}{
		"topic":          f.topic,
		"produced_count": f.producedCount,
		"error_count":    f.errorCount,
	}
}

// Close 关闭Kafka写入器
func (f *KafkaForwarder) Close() error {
	return f.writer.Close()
}
