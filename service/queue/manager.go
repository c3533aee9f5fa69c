/*
 * @module service/queue/manager
 * @description 工作器池管理器，负责池的幂等启动、优雅停止、状态快照和测试消息发送
 * @architecture 管理器模式 - 统一管理工作器生命周期，对外提供聚合视图
 * @documentReference dev_docs/queue_pipeline_requirements.md
 * @stateFlow stopped -> starting -> running -> stopping -> stopped
 * @rules Start幂等，重复调用不创建新工作器；Stop在宽限期内等待工作器退出，超时则放弃等待并记录日志；Snapshot不持有处理路径上的锁
 * @dependencies context, sync, dataquality-service/service/models
 * @refs service/init.go, api/controllers/queue_controller.go
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"dataquality-service/service/models"
)

// Manager 工作器池管理器
type Manager struct {
	mu       sync.Mutex
	client   Client
	settings *Settings
	logger   *slog.Logger
	stats    *StatsCollector

	processor *Processor
	workers   []*Worker
	wg        *sync.WaitGroup
	cancel    context.CancelFunc

	state     models.PoolState
	startTime *time.Time

	sinks       []ResultSink
	idempotency IdempotencyStore
	callback    CallbackNotifier
}

// NewManager 创建工作器池管理器
func NewManager(client Client, processor *Processor, settings *Settings, logger *slog.Logger, stats *StatsCollector) *Manager {
	return &Manager{
		client:    client,
		processor: processor,
		settings:  settings,
		logger:    logger,
		stats:     stats,
		state:     models.PoolStopped,
	}
}

// AddSink 注册结果落地方，须在Start之前调用
func (m *Manager) AddSink(sink ResultSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, sink)
}

// SetIdempotencyStore 设置幂等存储，须在Start之前调用
func (m *Manager) SetIdempotencyStore(store IdempotencyStore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idempotency = store
}

// SetCallbackNotifier 设置回调通知器，须在Start之前调用
func (m *Manager) SetCallbackNotifier(notifier CallbackNotifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callback = notifier
}

// Start 启动工作器池，重复调用直接返回当前状态
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == models.PoolRunning || m.state == models.PoolStarting {
		m.logger.Info("工作器池已在运行，忽略重复启动")
		return nil
	}
	if m.state == models.PoolStopping {
		return fmt.Errorf("工作器池正在停止，不能启动")
	}

	if err := m.settings.Validate(); err != nil {
		return err
	}

	m.state = models.PoolStarting
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg = &sync.WaitGroup{}
	m.workers = make([]*Worker, 0, m.settings.WorkerCount)

	for i := 0; i < m.settings.WorkerCount; i++ {
		worker := NewWorker(workerID(i), m.client, m.processor, m.settings, m.logger, m.stats)
		worker.SetSinks(m.sinks)
		worker.SetIdempotencyStore(m.idempotency)
		worker.SetCallbackNotifier(m.callback)
		m.workers = append(m.workers, worker)

		m.wg.Add(1)
		go worker.Run(ctx, m.wg)
	}

	// 等全部工作器完成首次状态上报后才对外宣告running
	deadline := time.Now().Add(2 * time.Second)
	for _, worker := range m.workers {
		for !worker.Snapshot().IsRunning && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
	}

	now := time.Now()
	m.startTime = &now
	m.state = models.PoolRunning
	m.logger.Info("工作器池已启动", "workers", m.settings.WorkerCount, "config", m.settings.String())
	return nil
}

// Stop 优雅停止工作器池，在宽限期内等待工作器处理完当前消息
// 宽限期结束后放弃等待，未删除的消息在可见性超时后由队列重新投递
func (m *Manager) Stop(grace time.Duration) error {
	m.mu.Lock()
	if m.state != models.PoolRunning {
		m.mu.Unlock()
		m.logger.Info("工作器池未在运行，忽略停止请求")
		return nil
	}
	m.state = models.PoolStopping
	cancel := m.cancel
	wg := m.wg
	m.mu.Unlock()

	m.logger.Info("开始停止工作器池", "grace", grace.String())
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var timedOut bool
	select {
	case <-done:
	case <-time.After(grace):
		timedOut = true
	}

	m.mu.Lock()
	m.state = models.PoolStopped
	m.startTime = nil
	m.cancel = nil
	m.mu.Unlock()

	if timedOut {
		m.logger.Warn("停止宽限期已过，放弃等待未退出的工作器")
		return fmt.Errorf("停止超时: 宽限期%s内仍有工作器未退出", grace)
	}
	m.logger.Info("工作器池已停止")
	return nil
}

// Snapshot 生成池状态快照，不阻塞处理路径
func (m *Manager) Snapshot() *models.PoolStatus {
	m.mu.Lock()
	state := m.state
	startTime := m.startTime
	workers := m.workers
	m.mu.Unlock()

	status := &models.PoolStatus{
		State:       state,
		StartTime:   startTime,
		WorkerCount: len(workers),
	}
	if startTime != nil {
		status.UptimeSeconds = time.Since(*startTime).Seconds()
	}

	var totalLatencyMs float64
	for _, worker := range workers {
		snapshot := worker.Snapshot()
		status.Workers = append(status.Workers, snapshot)
		if snapshot.IsRunning {
			status.ActiveWorkers++
		}
		status.TotalProcessed += snapshot.ProcessedCount
		status.TotalSucceeded += snapshot.SuccessCount
		status.TotalErrors += snapshot.ErrorCount
		status.TotalRetried += snapshot.RetryCount
		status.TotalDLQ += snapshot.DLQCount
		totalLatencyMs += snapshot.AvgLatencyMs * float64(snapshot.ProcessedCount)
	}
	if status.TotalProcessed > 0 {
		status.SuccessRate = float64(status.TotalSucceeded) / float64(status.TotalProcessed)
		status.AvgLatencyMs = totalLatencyMs / float64(status.TotalProcessed)
	}
	return status
}

// State 返回当前池状态
func (m *Manager) State() models.PoolState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SendTestMessage 向输入队列发送一条测试消息，返回消息ID
func (m *Manager) SendTestMessage(ctx context.Context, request *models.QueueValidationRequest) (string, error) {
	if request.MessageID == "" {
		request.MessageID = uuid.New().String()
	}
	if request.Attempt <= 0 {
		request.Attempt = 1
	}
	if request.Timestamp.IsZero() {
		request.Timestamp = time.Now()
	}

	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("测试消息序列化失败: %w", err)
	}
	if err := m.client.SendMessage(ctx, m.settings.InputQueueURL, body, 0); err != nil {
		return "", err
	}

	m.logger.Info("测试消息已发送", "message_id", request.MessageID)
	return request.MessageID, nil
}

// GetQueueStats 查询输入、输出、死信队列的消息数量
func (m *Manager) GetQueueStats(ctx context.Context) (map[string]*models.QueueStats, error) {
	stats := make(map[string]*models.QueueStats)

	queues := map[string]string{
		"input":  m.settings.InputQueueURL,
		"output": m.settings.OutputQueueURL,
		"dlq":    m.settings.DLQURL,
	}
	for name, url := range queues {
		if url == "" {
			continue
		}
		qs, err := m.client.GetQueueStats(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("查询队列%s属性失败: %w", name, err)
		}
		stats[name] = qs
	}
	return stats, nil
}

// GetHealth 查询队列连接健康状态
func (m *Manager) GetHealth(ctx context.Context) *models.QueueHealth {
	return m.client.HealthCheck(ctx)
}

// Settings 返回池配置
func (m *Manager) Settings() *Settings {
	return m.settings
}
