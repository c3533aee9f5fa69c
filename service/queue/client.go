/*
 * @module service/queue/client
 * @description 队列客户端，封装消息的收取、删除、可见性调整、发送和队列属性查询
 * @architecture 适配器模式 - Client接口隔离具体队列实现，便于测试替换
 * @documentReference dev_docs/queue_pipeline_requirements.md
 * @stateFlow 连接建立 -> 长轮询收取 -> 处理期间可见性调整 -> 删除或重新入队
 * @rules 发送操作在删除原消息之前执行，保证消息不丢失；瞬时错误带短退避重试
 * @dependencies github.com/aws/aws-sdk-go-v2
 * @refs service/queue/worker.go, service/queue/manager.go
 */

package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/spf13/cast"

	"dataquality-service/service/models"
)

// Client 队列客户端接口，工作器通过该接口与队列交互
type Client interface {
	// ReceiveBatch 长轮询收取一批消息
	ReceiveBatch(ctx context.Context) ([]models.RawMessage, error)
	// DeleteMessage 从输入队列删除消息
	DeleteMessage(ctx context.Context, receiptHandle string) error
	// ChangeVisibility 调整消息的可见性超时
	ChangeVisibility(ctx context.Context, receiptHandle string, seconds int) error
	// SendMessage 向指定队列发送消息，delaySeconds大于0时延迟投递
	SendMessage(ctx context.Context, queueURL string, body []byte, delaySeconds int) error
	// GetQueueStats 查询队列的消息数量属性
	GetQueueStats(ctx context.Context, queueURL string) (*models.QueueStats, error)
	// HealthCheck 检查各队列的连通性
	HealthCheck(ctx context.Context) *models.QueueHealth
}

// sqsAPI SDK调用面，测试中可替换
type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
}

// SQSClient 基于AWS SDK的队列客户端实现
type SQSClient struct {
	api      sqsAPI
	settings *Settings
	logger   *slog.Logger
}

// NewSQSClient 创建队列客户端，建立SDK连接
func NewSQSClient(ctx context.Context, settings *Settings, logger *slog.Logger) (*SQSClient, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(settings.Region),
	}
	if settings.AccessKeyID != "" && settings.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(settings.AccessKeyID, settings.SecretAccessKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("加载AWS配置失败: %w", err)
	}

	api := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if settings.EndpointURL != "" {
			o.BaseEndpoint = aws.String(settings.EndpointURL)
		}
	})

	return &SQSClient{
		api:      api,
		settings: settings,
		logger:   logger,
	}, nil
}

// withRetry 对瞬时错误做短退避重试，最多3次
func (c *SQSClient) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for i := 0; i < 3; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		c.logger.Warn("队列操作瞬时失败，准备重试", "op", op, "attempt", i+1, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 500 * time.Millisecond):
		}
	}
	return &TransientIOError{Op: op, Cause: err}
}

// ReceiveBatch 长轮询收取一批消息
func (c *SQSClient) ReceiveBatch(ctx context.Context) ([]models.RawMessage, error) {
	out, err := c.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(c.settings.InputQueueURL),
		MaxNumberOfMessages:   int32(c.settings.MaxMessagesPerPoll),
		WaitTimeSeconds:       int32(c.settings.WaitTimeSeconds),
		VisibilityTimeout:     int32(c.settings.VisibilityTimeout),
		MessageAttributeNames: []string{"All"},
		AttributeNames:        []sqstypes.QueueAttributeName{sqstypes.QueueAttributeNameAll},
	})
	if err != nil {
		return nil, &TransientIOError{Op: "receive", Cause: err}
	}

	messages := make([]models.RawMessage, 0, len(out.Messages))
	for _, msg := range out.Messages {
		attrs := make(map[string]string, len(msg.Attributes))
		for k, v := range msg.Attributes {
			attrs[k] = v
		}
		messages = append(messages, models.RawMessage{
			MessageID:     aws.ToString(msg.MessageId),
			ReceiptHandle: aws.ToString(msg.ReceiptHandle),
			Body:          []byte(aws.ToString(msg.Body)),
			Attributes:    attrs,
			ReceiveCount:  cast.ToInt(attrs[string(sqstypes.MessageSystemAttributeNameApproximateReceiveCount)]),
		})
	}
	return messages, nil
}

// DeleteMessage 从输入队列删除消息
func (c *SQSClient) DeleteMessage(ctx context.Context, receiptHandle string) error {
	return c.withRetry(ctx, "delete", func() error {
		_, err := c.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(c.settings.InputQueueURL),
			ReceiptHandle: aws.String(receiptHandle),
		})
		return err
	})
}

// ChangeVisibility 调整消息的可见性超时
func (c *SQSClient) ChangeVisibility(ctx context.Context, receiptHandle string, seconds int) error {
	return c.withRetry(ctx, "change_visibility", func() error {
		_, err := c.api.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
			QueueUrl:          aws.String(c.settings.InputQueueURL),
			ReceiptHandle:     aws.String(receiptHandle),
			VisibilityTimeout: int32(seconds),
		})
		return err
	})
}

// SendMessage 向指定队列发送消息
func (c *SQSClient) SendMessage(ctx context.Context, queueURL string, body []byte, delaySeconds int) error {
	if queueURL == "" {
		return &ConfigError{Field: "queue_url", Reason: "目标队列地址为空"}
	}
	if delaySeconds < 0 {
		delaySeconds = 0
	}
	if delaySeconds > 900 {
		delaySeconds = 900
	}
	return c.withRetry(ctx, "send", func() error {
		_, err := c.api.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:     aws.String(queueURL),
			MessageBody:  aws.String(string(body)),
			DelaySeconds: int32(delaySeconds),
		})
		return err
	})
}

// GetQueueStats 查询队列的消息数量属性
func (c *SQSClient) GetQueueStats(ctx context.Context, queueURL string) (*models.QueueStats, error) {
	out, err := c.api.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl: aws.String(queueURL),
		AttributeNames: []sqstypes.QueueAttributeName{
			sqstypes.QueueAttributeNameApproximateNumberOfMessages,
			sqstypes.QueueAttributeNameApproximateNumberOfMessagesNotVisible,
			sqstypes.QueueAttributeNameApproximateNumberOfMessagesDelayed,
		},
	})
	if err != nil {
		return nil, &TransientIOError{Op: "get_queue_attributes", Cause: err}
	}

	return &models.QueueStats{
		Visible:  cast.ToInt64(out.Attributes[string(sqstypes.QueueAttributeNameApproximateNumberOfMessages)]),
		InFlight: cast.ToInt64(out.Attributes[string(sqstypes.QueueAttributeNameApproximateNumberOfMessagesNotVisible)]),
		Delayed:  cast.ToInt64(out.Attributes[string(sqstypes.QueueAttributeNameApproximateNumberOfMessagesDelayed)]),
	}, nil
}

// HealthCheck 检查各队列的连通性，任一队列不可达不影响其余检查
func (c *SQSClient) HealthCheck(ctx context.Context) *models.QueueHealth {
	health := &models.QueueHealth{Timestamp: time.Now()}

	check := func(queueURL string) bool {
		if queueURL == "" {
			return false
		}
		_, err := c.api.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
			QueueUrl:       aws.String(queueURL),
			AttributeNames: []sqstypes.QueueAttributeName{sqstypes.QueueAttributeNameApproximateNumberOfMessages},
		})
		if err != nil && health.Error == "" {
			health.Error = err.Error()
		}
		return err == nil
	}

	health.InputQueue = check(c.settings.InputQueueURL)
	health.OutputQueue = check(c.settings.OutputQueueURL)
	health.DLQ = check(c.settings.DLQURL)
	health.Connection = health.InputQueue
	return health
}
