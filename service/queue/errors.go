/*
 * @module service/queue/errors
 * @description 队列处理错误分类：解码错误、规则故障、瞬时IO错误、处理超时、重试耗尽、配置错误
 * @architecture 错误分类模式 - 按错误类别决定消息的后续动作
 * @documentReference dev_docs/queue_pipeline_requirements.md
 * @rules 解码错误直接进死信队列不消耗重试；瞬时IO错误和处理超时走退避重试；配置错误在启动阶段暴露
 * @dependencies errors, github.com/aws/aws-sdk-go-v2/service/sqs/types
 * @refs service/queue/worker.go, service/queue/processor.go
 */

package queue

import (
	"context"
	"errors"
	"fmt"

	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// 错误码常量，写入输出消息与死信消息的error_code字段
const (
	ErrCodeDecode            = "decode_error"
	ErrCodeRuleFault         = "rule_fault"
	ErrCodeTransientIO       = "transient_io"
	ErrCodeProcessingTimeout = "processing_timeout"
	ErrCodeExhaustedRetries  = "exhausted_retries"
)

// DecodeError 消息体无法解码为验证请求，属于不可恢复错误
type DecodeError struct {
	MessageID string
	Cause     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("消息解码失败 message_id=%s: %v", e.MessageID, e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// RuleFault 单条规则评估故障，已被引擎转化为失败结果，不会中断整批处理
type RuleFault struct {
	RuleName string
	Cause    error
}

func (e *RuleFault) Error() string {
	return fmt.Sprintf("规则评估故障 rule=%s: %v", e.RuleName, e.Cause)
}

func (e *RuleFault) Unwrap() error { return e.Cause }

// TransientIOError 队列或下游的瞬时IO错误，可通过退避重试恢复
type TransientIOError struct {
	Op    string
	Cause error
}

func (e *TransientIOError) Error() string {
	return fmt.Sprintf("瞬时IO错误 op=%s: %v", e.Op, e.Cause)
}

func (e *TransientIOError) Unwrap() error { return e.Cause }

// ProcessingTimeoutError 单条消息处理超过配置的时间上限
type ProcessingTimeoutError struct {
	MessageID string
	Timeout   string
}

func (e *ProcessingTimeoutError) Error() string {
	return fmt.Sprintf("消息处理超时 message_id=%s timeout=%s", e.MessageID, e.Timeout)
}

// ExhaustedRetriesError 消息的尝试次数已超过最大重试上限
type ExhaustedRetriesError struct {
	MessageID string
	Attempts  int
	LastError string
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("重试次数耗尽 message_id=%s attempts=%d last_error=%s", e.MessageID, e.Attempts, e.LastError)
}

// ConfigError 配置缺失或无效
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置错误 %s: %s", e.Field, e.Reason)
}

// IsTransient 判断错误是否属于可重试的瞬时错误
// 队列不存在、认证失败等配置类错误不可重试
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var notExist *sqstypes.QueueDoesNotExist
	if errors.As(err, &notExist) {
		return false
	}
	var invalidHandle *sqstypes.ReceiptHandleIsInvalid
	if errors.As(err, &invalidHandle) {
		return false
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return false
	}

	// 上下文取消来自关停流程，不作为瞬时错误重试
	if errors.Is(err, context.Canceled) {
		return false
	}

	// 其余错误（TransientIOError、超时、限流、网络抖动等）一律归为瞬时错误，
	// 宁可多重投一次也不静默丢弃
	return true
}
