/*
 * @module service/models/queue
 * @description 队列处理模型，定义队列验证请求/响应、消息包装、死信消息、处理结果和工作器统计等结构
 * @architecture 分层架构 - 数据模型层
 * @documentReference dev_docs/queue_pipeline_requirements.md
 * @stateFlow 消息接收 -> 解码 -> 验证处理 -> {输出队列 | 退避重试 | 死信队列}
 * @rules attempt字段只增不减，消息体为处理结果的权威来源；响应对象构造后不再修改
 * @dependencies encoding/json, time
 * @refs service/queue, api/controllers
 */

package models

import (
	"encoding/json"
	"time"
)

// PoolState 工作器池状态
type PoolState string

const (
	PoolStopped  PoolState = "stopped"
	PoolStarting PoolState = "starting"
	PoolRunning  PoolState = "running"
	PoolStopping PoolState = "stopping"
)

// WorkerState 单个工作器的运行子状态，用于健康上报
type WorkerState string

const (
	WorkerIdle       WorkerState = "idle"
	WorkerPolling    WorkerState = "polling"
	WorkerProcessing WorkerState = "processing"
	WorkerBackingOff WorkerState = "backing-off"
)

// QueueValidationRequest 队列验证请求消息体
type QueueValidationRequest struct {
	// 消息元数据
	MessageID     string    `json:"message_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp,omitempty"`
	Source        string    `json:"source,omitempty"`

	// 验证数据
	Rows  []map[string]interface{} `json:"rows"`
	Rules []ValidationRule         `json:"rules"`

	// 处理选项
	BatchID     string `json:"batch_id,omitempty"`
	Priority    int    `json:"priority,omitempty"` // 仅作参考，不影响队列投递顺序
	CallbackURL string `json:"callback_url,omitempty"`

	// 重试配置：attempt从1开始，每次重新入队递增
	Attempt    int  `json:"attempt"`
	MaxRetries *int `json:"max_retries,omitempty"`
}

// queueValidationRequestAlias 兼容旧字段名的解码结构
// 旧版消息使用 data/validation_rules/retry_count 字段
type queueValidationRequestAlias struct {
	MessageID     string                   `json:"message_id"`
	CorrelationID string                   `json:"correlation_id"`
	Timestamp     time.Time                `json:"timestamp"`
	Source        string                   `json:"source"`
	Rows          []map[string]interface{} `json:"rows"`
	Data          []map[string]interface{} `json:"data"`
	Rules         []ValidationRule         `json:"rules"`
	LegacyRules   []ValidationRule         `json:"validation_rules"`
	BatchID       string                   `json:"batch_id"`
	Priority      int                      `json:"priority"`
	CallbackURL   string                   `json:"callback_url"`
	Attempt       int                      `json:"attempt"`
	RetryCount    *int                     `json:"retry_count"`
	MaxRetries    *int                     `json:"max_retries"`
}

// UnmarshalJSON 解码消息体，容忍旧版字段别名 data->rows、validation_rules->rules、retry_count->attempt
func (q *QueueValidationRequest) UnmarshalJSON(b []byte) error {
	var alias queueValidationRequestAlias
	if err := json.Unmarshal(b, &alias); err != nil {
		return err
	}

	q.MessageID = alias.MessageID
	q.CorrelationID = alias.CorrelationID
	q.Timestamp = alias.Timestamp
	q.Source = alias.Source
	q.BatchID = alias.BatchID
	q.Priority = alias.Priority
	q.CallbackURL = alias.CallbackURL
	q.MaxRetries = alias.MaxRetries

	q.Rows = alias.Rows
	if q.Rows == nil {
		q.Rows = alias.Data
	}
	q.Rules = alias.Rules
	if q.Rules == nil {
		q.Rules = alias.LegacyRules
	}

	q.Attempt = alias.Attempt
	if q.Attempt <= 0 {
		if alias.RetryCount != nil {
			q.Attempt = *alias.RetryCount + 1
		} else {
			q.Attempt = 1
		}
	}
	return nil
}

// EffectiveMaxRetries 返回消息生效的最大重试次数，消息体未指定时使用配置默认值
func (q *QueueValidationRequest) EffectiveMaxRetries(defaultMax int) int {
	if q.MaxRetries != nil && *q.MaxRetries >= 0 {
		return *q.MaxRetries
	}
	return defaultMax
}

// QueueValidationResponse 队列验证响应消息体（输出队列格式）
type QueueValidationResponse struct {
	// 消息元数据
	MessageID        string    `json:"message_id"`
	CorrelationID    string    `json:"correlation_id,omitempty"`
	ProcessedAt      time.Time `json:"processed_at"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`

	// 处理状态
	Status   MessageStatus `json:"status"`
	WorkerID string        `json:"worker_id,omitempty"`

	// 验证结果
	Results []ValidationResultDetail `json:"validation_results"`
	Summary ValidationSummary        `json:"summary"`

	// 错误信息
	ErrorMessage string `json:"error_message,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`

	// 透传元数据
	BatchID string `json:"batch_id,omitempty"`
	Source  string `json:"source,omitempty"`

	// 旧版消费者兼容字段（顶层平铺）
	TotalRules      int `json:"total_rules"`
	SuccessfulRules int `json:"successful_rules"`
	FailedRules     int `json:"failed_rules"`
}

// RawMessage 从队列收到的原始消息
type RawMessage struct {
	MessageID     string
	ReceiptHandle string
	Body          []byte
	Attributes    map[string]string
	ReceiveCount  int // 队列侧近似接收次数，仅作诊断参考
}

// MessageWrapper 解码后的消息包装
type MessageWrapper struct {
	Raw        RawMessage
	Request    *QueueValidationRequest
	ReceivedAt time.Time
}

// DLQMessage 死信队列消息格式：原始消息体加失败原因与尝试次数。
// FailureReason固定为错误码，便于下游按类别统计；具体描述放FailureDetail
type DLQMessage struct {
	OriginalMessageID string          `json:"original_message_id"`
	OriginalBody      json.RawMessage `json:"original_body"`
	FailureReason     string          `json:"failure_reason"`
	FailureDetail     string          `json:"failure_detail,omitempty"`
	FailedAt          time.Time       `json:"failed_at"`
	Attempts          int             `json:"attempts"`
}

// ProcessingResult 单次消息处理的结果与后续动作判定
type ProcessingResult struct {
	Success          bool
	MessageID        string
	ProcessingTimeMs int64
	Response         *QueueValidationResponse
	Error            string
	ErrorCode        string

	// 后续队列动作
	ShouldDelete bool
	ShouldRetry  bool
	SendToDLQ    bool
}

// WorkerStatsSnapshot 工作器统计快照，由工作器独占写入、读取方只读
type WorkerStatsSnapshot struct {
	WorkerID       string      `json:"worker_id"`
	State          WorkerState `json:"state"`
	IsRunning      bool        `json:"is_running"`
	ProcessedCount int64       `json:"processed_count"`
	SuccessCount   int64       `json:"success_count"`
	ErrorCount     int64       `json:"error_count"`
	RetryCount     int64       `json:"retry_count"`
	DLQCount       int64       `json:"dlq_count"`
	SuccessRate    float64     `json:"success_rate"`
	AvgLatencyMs   float64     `json:"avg_latency_ms"`
	LastActivity   time.Time   `json:"last_activity"`
}

// QueueStats 单个队列的消息数量统计
type QueueStats struct {
	Visible  int64 `json:"visible"`
	InFlight int64 `json:"in_flight"`
	Delayed  int64 `json:"delayed"`
}

// QueueHealth 队列连接健康信息
type QueueHealth struct {
	Connection  bool      `json:"connection"`
	InputQueue  bool      `json:"input_queue"`
	OutputQueue bool      `json:"output_queue"`
	DLQ         bool      `json:"dlq"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// PoolStatus 工作器池聚合状态
type PoolStatus struct {
	State          PoolState             `json:"state"`
	StartTime      *time.Time            `json:"start_time,omitempty"`
	UptimeSeconds  float64               `json:"uptime_seconds,omitempty"`
	WorkerCount    int                   `json:"worker_count"`
	ActiveWorkers  int                   `json:"active_workers"`
	TotalProcessed int64                 `json:"total_processed"`
	TotalSucceeded int64                 `json:"total_succeeded"`
	TotalErrors    int64                 `json:"total_errors"`
	TotalRetried   int64                 `json:"total_retried"`
	TotalDLQ       int64                 `json:"total_dlq"`
	SuccessRate    float64               `json:"success_rate"`
	AvgLatencyMs   float64               `json:"avg_latency_ms"`
	Workers        []WorkerStatsSnapshot `json:"workers"`
}
