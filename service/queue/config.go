/*
 * @module service/queue/config
 * @description 队列处理配置，从环境变量加载队列地址、工作器数量、重试与退避参数
 * @architecture 分层架构 - 配置层
 * @documentReference dev_docs/queue_pipeline_requirements.md
 * @rules 配置在进程启动时加载一次，运行期间只读；缺失必填项在启动阶段报错而不是处理阶段
 * @dependencies github.com/spf13/cast, os
 * @refs service/queue/manager.go, service/init.go
 */

package queue

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cast"
)

// Settings 队列处理配置
type Settings struct {
	// 队列连接
	Region          string
	EndpointURL     string // 本地开发时指向LocalStack等模拟端点
	AccessKeyID     string
	SecretAccessKey string

	// 队列地址
	InputQueueURL  string
	OutputQueueURL string
	DLQURL         string

	// 工作器池
	WorkerCount         int
	MaxMessagesPerPoll  int
	WaitTimeSeconds     int
	VisibilityTimeout   int
	PollIntervalSeconds int

	// 重试与退避
	MaxRetries         int
	RetryBaseSeconds   int
	RetryCapSeconds    int
	ProcessingTimeout  time.Duration
	VisibilityExtender bool

	// 生命周期
	AutoStartWorkers     bool
	ShutdownGraceSeconds int

	// 结果归档保留天数，清理任务使用
	ArchiveRetentionDays int
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 获取整数环境变量，不存在或无法解析时返回默认值
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := cast.ToIntE(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvBool 获取布尔环境变量，不存在或无法解析时返回默认值
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := cast.ToBoolE(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// LoadSettings 从环境变量加载队列配置
func LoadSettings() *Settings {
	return &Settings{
		Region:          getEnvWithDefault("AWS_REGION", "us-east-1"),
		EndpointURL:     os.Getenv("SQS_ENDPOINT_URL"),
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),

		InputQueueURL:  os.Getenv("SQS_INPUT_QUEUE_URL"),
		OutputQueueURL: os.Getenv("SQS_OUTPUT_QUEUE_URL"),
		DLQURL:         os.Getenv("SQS_DLQ_URL"),

		WorkerCount:         getEnvInt("SQS_WORKER_COUNT", 4),
		MaxMessagesPerPoll:  getEnvInt("SQS_MAX_MESSAGES_PER_POLL", 10),
		WaitTimeSeconds:     getEnvInt("SQS_WAIT_TIME_SECONDS", 20),
		VisibilityTimeout:   getEnvInt("SQS_VISIBILITY_TIMEOUT", 300),
		PollIntervalSeconds: getEnvInt("SQS_POLL_INTERVAL_SECONDS", 5),

		MaxRetries:         getEnvInt("SQS_MAX_RETRIES", 3),
		RetryBaseSeconds:   getEnvInt("SQS_RETRY_BASE_SECONDS", 30),
		RetryCapSeconds:    getEnvInt("SQS_RETRY_CAP_SECONDS", 900),
		ProcessingTimeout:  time.Duration(getEnvInt("SQS_PROCESSING_TIMEOUT_SECONDS", 120)) * time.Second,
		VisibilityExtender: getEnvBool("SQS_VISIBILITY_EXTENDER", true),

		AutoStartWorkers:     getEnvBool("SQS_AUTO_START_WORKERS", false),
		ShutdownGraceSeconds: getEnvInt("SQS_SHUTDOWN_GRACE_SECONDS", 30),

		ArchiveRetentionDays: getEnvInt("ARCHIVE_RETENTION_DAYS", 30),
	}
}

// Validate 校验配置完整性，必填项缺失时返回错误
func (s *Settings) Validate() error {
	if s.InputQueueURL == "" {
		return &ConfigError{Field: "SQS_INPUT_QUEUE_URL", Reason: "输入队列地址未配置"}
	}
	if s.WorkerCount <= 0 {
		return &ConfigError{Field: "SQS_WORKER_COUNT", Reason: "工作器数量必须大于0"}
	}
	if s.MaxMessagesPerPoll < 1 || s.MaxMessagesPerPoll > 10 {
		return &ConfigError{Field: "SQS_MAX_MESSAGES_PER_POLL", Reason: "单次拉取数量必须在1到10之间"}
	}
	if s.WaitTimeSeconds < 0 || s.WaitTimeSeconds > 20 {
		return &ConfigError{Field: "SQS_WAIT_TIME_SECONDS", Reason: "长轮询等待时间必须在0到20秒之间"}
	}
	if s.VisibilityTimeout <= 0 {
		return &ConfigError{Field: "SQS_VISIBILITY_TIMEOUT", Reason: "可见性超时必须大于0"}
	}
	if s.MaxRetries < 0 {
		return &ConfigError{Field: "SQS_MAX_RETRIES", Reason: "最大重试次数不能为负数"}
	}
	if s.RetryBaseSeconds <= 0 || s.RetryCapSeconds < s.RetryBaseSeconds {
		return &ConfigError{Field: "SQS_RETRY_BASE_SECONDS", Reason: "退避参数无效"}
	}
	return nil
}

// BackoffDelay 计算第attempt次尝试失败后的重新入队延迟
// 指数增长：base * 2^(attempt-1)，上限为RetryCapSeconds
func (s *Settings) BackoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := int64(s.RetryBaseSeconds)
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= int64(s.RetryCapSeconds) {
			delay = int64(s.RetryCapSeconds)
			break
		}
	}
	if delay > int64(s.RetryCapSeconds) {
		delay = int64(s.RetryCapSeconds)
	}
	return time.Duration(delay) * time.Second
}

// String 返回脱敏后的配置摘要，用于启动日志
func (s *Settings) String() string {
	return fmt.Sprintf("region=%s workers=%d maxPoll=%d wait=%ds visibility=%ds maxRetries=%d backoff=%ds..%ds",
		s.Region, s.WorkerCount, s.MaxMessagesPerPoll, s.WaitTimeSeconds, s.VisibilityTimeout,
		s.MaxRetries, s.RetryBaseSeconds, s.RetryCapSeconds)
}
