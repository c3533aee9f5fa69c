/*
 * @module service/queue/worker
 * @description 队列工作器，负责消息的拉取、可见性维持、处理调用和队列动作执行
 * @architecture 工作器模式 - 每个工作器独立轮询，统计只由自身写入
 * @documentReference dev_docs/queue_pipeline_requirements.md
 * @stateFlow idle -> polling -> processing -> {删除 | 延迟重入队 | 死信} -> polling
 * @rules 一律先发送后删除：输出、重入队、死信消息发送成功之前不删除原消息；发送失败时原消息留在队列等待可见性超时后重新投递
 * @dependencies sync/atomic, dataquality-service/service/models
 * @refs service/queue/manager.go, service/queue/processor.go
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"dataquality-service/service/models"
)

// Worker 单个队列工作器
type Worker struct {
	id        string
	client    Client
	processor *Processor
	settings  *Settings
	logger    *slog.Logger
	stats     *StatsCollector

	sinks       []ResultSink
	idempotency IdempotencyStore
	callback    CallbackNotifier

	// 统计计数，只由本工作器写入
	processedCount atomic.Int64
	successCount   atomic.Int64
	errorCount     atomic.Int64
	retryCount     atomic.Int64
	dlqCount       atomic.Int64
	totalLatencyMs atomic.Int64

	state        atomic.Value // models.WorkerState
	lastActivity atomic.Int64 // unix纳秒
	running      atomic.Bool
}

// NewWorker 创建工作器
func NewWorker(id string, client Client, processor *Processor, settings *Settings, logger *slog.Logger, stats *StatsCollector) *Worker {
	w := &Worker{
		id:        id,
		client:    client,
		processor: processor,
		settings:  settings,
		logger:    logger.With("worker_id", id),
		stats:     stats,
	}
	w.state.Store(models.WorkerIdle)
	w.lastActivity.Store(time.Now().UnixNano())
	return w
}

// SetSinks 设置结果落地方
func (w *Worker) SetSinks(sinks []ResultSink) { w.sinks = sinks }

// SetIdempotencyStore 设置幂等存储
func (w *Worker) SetIdempotencyStore(store IdempotencyStore) { w.idempotency = store }

// SetCallbackNotifier 设置回调通知器
func (w *Worker) SetCallbackNotifier(notifier CallbackNotifier) { w.callback = notifier }

// Run 工作器主循环，ctx取消后处理完当前消息再退出
func (w *Worker) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	w.running.Store(true)
	defer func() {
		w.running.Store(false)
		w.setState(models.WorkerIdle)
	}()

	w.logger.Info("工作器启动")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("工作器退出",
				"processed", w.processedCount.Load(),
				"succeeded", w.successCount.Load(),
				"errors", w.errorCount.Load())
			return
		default:
		}

		w.setState(models.WorkerPolling)
		messages, err := w.client.ReceiveBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error("拉取消息失败", "error", err)
			w.setState(models.WorkerBackingOff)
			select {
			case <-ctx.Done():
			case <-time.After(time.Duration(w.settings.PollIntervalSeconds) * time.Second):
			}
			continue
		}

		if len(messages) == 0 {
			// 空批次回到idle，等待轮询间隔后再拉取，避免短长轮询配置下空转
			w.setState(models.WorkerIdle)
			select {
			case <-ctx.Done():
			case <-time.After(time.Duration(w.settings.PollIntervalSeconds) * time.Second):
			}
			continue
		}

		for i := range messages {
			select {
			case <-ctx.Done():
				// 未处理的消息留在队列，可见性超时后重新投递
				return
			default:
			}
			w.handleMessage(ctx, messages[i])
		}
	}
}

// handleMessage 处理单条消息的完整生命周期
func (w *Worker) handleMessage(ctx context.Context, raw models.RawMessage) {
	w.setState(models.WorkerProcessing)
	w.touch()
	defer w.setState(models.WorkerPolling)

	wrapper, err := w.processor.Decode(raw)
	if err != nil {
		// 解码失败不可恢复，直接进死信队列，不消耗重试
		w.logger.Error("消息解码失败，送入死信队列", "message_id", raw.MessageID, "error", err)
		w.processedCount.Add(1)
		w.errorCount.Add(1)
		w.stats.RecordDecodeError()
		w.escalateToDLQ(ctx, raw, 0, ErrCodeDecode, err.Error())
		return
	}

	request := wrapper.Request
	w.logger.Info("开始处理消息",
		"message_id", request.MessageID,
		"attempt", request.Attempt,
		"rules", len(request.Rules),
		"rows", len(request.Rows))

	// 已处理过的消息直接删除，避免重复产出
	if w.idempotency != nil {
		if seen, serr := w.idempotency.Seen(ctx, request.MessageID); serr == nil && seen {
			w.logger.Info("消息已处理过，跳过", "message_id", request.MessageID)
			w.deleteOriginal(ctx, raw)
			return
		}
	}

	// 处理耗时可能超过收取时的可见性超时，先延长可见性再处理
	if w.settings.VisibilityExtender {
		needed := int(w.settings.ProcessingTimeout.Seconds()) + 60
		if needed > w.settings.VisibilityTimeout {
			if verr := w.client.ChangeVisibility(ctx, raw.ReceiptHandle, needed); verr != nil {
				w.logger.Warn("延长消息可见性失败", "message_id", request.MessageID, "error", verr)
			}
		}
	}

	result := w.processor.Process(wrapper, w.id)
	w.processedCount.Add(1)
	w.totalLatencyMs.Add(result.ProcessingTimeMs)
	w.stats.RecordProcessed(result)

	switch {
	case result.ShouldRetry:
		w.retryMessage(ctx, wrapper, result)
	case result.SendToDLQ:
		w.errorCount.Add(1)
		w.escalateToDLQ(ctx, raw, request.Attempt, result.ErrorCode, result.Error)
	default:
		w.completeMessage(ctx, wrapper, result)
	}
}

// completeMessage 处理完成（成功或规则失败）：发送输出 -> 落地 -> 删除原消息
func (w *Worker) completeMessage(ctx context.Context, wrapper *models.MessageWrapper, result *models.ProcessingResult) {
	if result.Success {
		w.successCount.Add(1)
	} else {
		w.errorCount.Add(1)
	}

	response := result.Response
	if w.settings.OutputQueueURL != "" && response != nil {
		body, err := json.Marshal(response)
		if err != nil {
			w.logger.Error("输出消息序列化失败", "message_id", result.MessageID, "error", err)
			return
		}
		if err := w.client.SendMessage(ctx, w.settings.OutputQueueURL, body, 0); err != nil {
			// 发送失败时不删除原消息，等待可见性超时后重新处理
			w.logger.Error("输出消息发送失败，保留原消息待重投", "message_id", result.MessageID, "error", err)
			return
		}
	}

	w.recordResult(ctx, response)
	w.notifyCallback(ctx, wrapper.Request.CallbackURL, response)

	if w.idempotency != nil {
		if err := w.idempotency.Mark(ctx, result.MessageID); err != nil {
			w.logger.Warn("幂等标记失败", "message_id", result.MessageID, "error", err)
		}
	}

	w.deleteOriginal(ctx, wrapper.Raw)
	w.logger.Info("消息处理完成",
		"message_id", result.MessageID,
		"success", result.Success,
		"elapsed_ms", result.ProcessingTimeMs)
}

// retryMessage 失败重试：发送带递增attempt的副本并设置延迟投递，再删除原消息
func (w *Worker) retryMessage(ctx context.Context, wrapper *models.MessageWrapper, result *models.ProcessingResult) {
	retry := *wrapper.Request
	retry.Attempt = wrapper.Request.Attempt + 1
	delay := w.settings.BackoffDelay(wrapper.Request.Attempt)

	body, err := json.Marshal(&retry)
	if err != nil {
		w.logger.Error("重试消息序列化失败", "message_id", result.MessageID, "error", err)
		return
	}

	if err := w.client.SendMessage(ctx, w.settings.InputQueueURL, body, int(delay.Seconds())); err != nil {
		w.logger.Error("重试消息发送失败，保留原消息待重投", "message_id", result.MessageID, "error", err)
		return
	}

	// 重试副本确认发出后才计数，发送失败走原消息重投不算重试
	w.retryCount.Add(1)
	w.deleteOriginal(ctx, wrapper.Raw)
	w.logger.Warn("消息已安排重试",
		"message_id", result.MessageID,
		"next_attempt", retry.Attempt,
		"delay_seconds", int(delay.Seconds()),
		"error_code", result.ErrorCode,
		"error", result.Error)
}

// escalateToDLQ 将消息送入死信队列：先发送死信信封再删除原消息。
// reason为机器可读的错误码，detail携带具体的失败描述。
func (w *Worker) escalateToDLQ(ctx context.Context, raw models.RawMessage, attempts int, reason, detail string) {
	if w.settings.DLQURL == "" {
		// 未配置死信队列时保留原消息，避免静默丢失
		w.logger.Error("死信队列未配置，保留原消息", "message_id", raw.MessageID, "reason", reason)
		return
	}

	dlq := models.DLQMessage{
		OriginalMessageID: raw.MessageID,
		OriginalBody:      json.RawMessage(raw.Body),
		FailureReason:     reason,
		FailureDetail:     detail,
		FailedAt:          time.Now(),
		Attempts:          attempts,
	}
	body, err := json.Marshal(&dlq)
	if err != nil {
		// 原始消息体不是合法JSON时降级为字符串包装
		dlq.OriginalBody, _ = json.Marshal(string(raw.Body))
		body, err = json.Marshal(&dlq)
		if err != nil {
			w.logger.Error("死信消息序列化失败", "message_id", raw.MessageID, "error", err)
			return
		}
	}

	if err := w.client.SendMessage(ctx, w.settings.DLQURL, body, 0); err != nil {
		w.logger.Error("死信消息发送失败，保留原消息待重投", "message_id", raw.MessageID, "error", err)
		return
	}

	w.dlqCount.Add(1)
	w.stats.RecordDLQ()
	w.deleteOriginal(ctx, raw)
	w.logger.Error("消息已送入死信队列",
		"message_id", raw.MessageID,
		"attempts", attempts,
		"reason", reason,
		"detail", detail)
}

// deleteOriginal 删除原消息，失败只记录日志（消息会被重新投递，由幂等存储兜底）
func (w *Worker) deleteOriginal(ctx context.Context, raw models.RawMessage) {
	if err := w.client.DeleteMessage(ctx, raw.ReceiptHandle); err != nil {
		w.logger.Error("删除消息失败", "message_id", raw.MessageID, "error", err)
	}
}

// recordResult 将处理结果通知全部落地方
func (w *Worker) recordResult(ctx context.Context, response *models.QueueValidationResponse) {
	if response == nil {
		return
	}
	for _, sink := range w.sinks {
		if err := sink.Record(ctx, response); err != nil {
			w.logger.Warn("处理结果落地失败", "message_id", response.MessageID, "error", err)
		}
	}
}

// notifyCallback 回调通知，失败只记录日志
func (w *Worker) notifyCallback(ctx context.Context, url string, response *models.QueueValidationResponse) {
	if w.callback == nil || url == "" || response == nil {
		return
	}
	if err := w.callback.Notify(ctx, url, response); err != nil {
		w.logger.Warn("回调通知失败", "message_id", response.MessageID, "url", url, "error", err)
	}
}

// setState 更新工作器状态
func (w *Worker) setState(state models.WorkerState) {
	w.state.Store(state)
	w.touch()
}

// touch 更新最后活动时间
func (w *Worker) touch() {
	w.lastActivity.Store(time.Now().UnixNano())
}

// Snapshot 生成统计快照，读取方只读不阻塞
func (w *Worker) Snapshot() models.WorkerStatsSnapshot {
	processed := w.processedCount.Load()
	succeeded := w.successCount.Load()

	snapshot := models.WorkerStatsSnapshot{
		WorkerID:       w.id,
		State:          w.state.Load().(models.WorkerState),
		IsRunning:      w.running.Load(),
		ProcessedCount: processed,
		SuccessCount:   succeeded,
		ErrorCount:     w.errorCount.Load(),
		RetryCount:     w.retryCount.Load(),
		DLQCount:       w.dlqCount.Load(),
		LastActivity:   time.Unix(0, w.lastActivity.Load()),
	}
	if processed > 0 {
		snapshot.SuccessRate = float64(succeeded) / float64(processed)
		snapshot.AvgLatencyMs = float64(w.totalLatencyMs.Load()) / float64(processed)
	}
	return snapshot
}

// workerID 生成工作器标识
func workerID(index int) string {
	return fmt.Sprintf("worker-%d", index)
}
