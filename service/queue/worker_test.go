/*
 * @module service/queue/worker_test
 * @description 队列工作器单元测试：先发送后删除不变量、重试重入队、死信升级、可见性延长
 * @architecture 测试层
 * @documentReference dev_docs/queue_pipeline_requirements.md
 * @refs service/queue/worker.go
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataquality-service/service/models"
	"dataquality-service/service/validation"
)

// sentMessage 记录一次消息发送
type sentMessage struct {
	QueueURL     string
	Body         []byte
	DelaySeconds int
}

// visibilityChange 记录一次可见性调整
type visibilityChange struct {
	ReceiptHandle string
	Seconds       int
}

// fakeClient 内存队列客户端，记录全部调用顺序供断言
type fakeClient struct {
	mu         sync.Mutex
	pending    []models.RawMessage
	sent       []sentMessage
	deleted    []string
	visibility []visibilityChange
	calls      []string

	failSendTo map[string]error
	receiveErr error
}

func newFakeClient(messages ...models.RawMessage) *fakeClient {
	return &fakeClient{
		pending:    messages,
		failSendTo: make(map[string]error),
	}
}

func (f *fakeClient) ReceiveBatch(ctx context.Context) ([]models.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "receive")
	if f.receiveErr != nil {
		err := f.receiveErr
		f.mu.Unlock()
		return nil, err
	}
	batch := f.pending
	f.pending = nil
	f.mu.Unlock()

	// 空队列时模拟长轮询等待
	if len(batch) == 0 {
		select {
		case <-ctx.Done():
		case <-time.After(10 * time.Millisecond):
		}
	}
	return batch, nil
}

func (f *fakeClient) DeleteMessage(ctx context.Context, receiptHandle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete")
	f.deleted = append(f.deleted, receiptHandle)
	return nil
}

func (f *fakeClient) ChangeVisibility(ctx context.Context, receiptHandle string, seconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "visibility")
	f.visibility = append(f.visibility, visibilityChange{ReceiptHandle: receiptHandle, Seconds: seconds})
	return nil
}

func (f *fakeClient) SendMessage(ctx context.Context, queueURL string, body []byte, delaySeconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failSendTo[queueURL]; ok {
		f.calls = append(f.calls, "send-failed")
		return err
	}
	f.calls = append(f.calls, "send")
	f.sent = append(f.sent, sentMessage{QueueURL: queueURL, Body: body, DelaySeconds: delaySeconds})
	return nil
}

func (f *fakeClient) GetQueueStats(ctx context.Context, queueURL string) (*models.QueueStats, error) {
	return &models.QueueStats{Visible: int64(len(f.pending))}, nil
}

func (f *fakeClient) HealthCheck(ctx context.Context) *models.QueueHealth {
	return &models.QueueHealth{
		Connection:  true,
		InputQueue:  true,
		OutputQueue: true,
		DLQ:         true,
		Timestamp:   time.Now(),
	}
}

func (f *fakeClient) sentTo(queueURL string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []sentMessage
	for _, m := range f.sent {
		if m.QueueURL == queueURL {
			matched = append(matched, m)
		}
	}
	return matched
}

func (f *fakeClient) deletedHandles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func (f *fakeClient) callOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestWorker(client Client, settings *Settings) *Worker {
	if settings == nil {
		settings = validSettings()
	}
	processor := NewProcessor(validation.NewEngine(), settings, testLogger())
	stats := NewStatsCollector(prometheus.NewRegistry())
	return NewWorker("worker-0", client, processor, settings, testLogger(), stats)
}

func rawQueueMessage(handle string, body []byte) models.RawMessage {
	return models.RawMessage{
		MessageID:     "sqs-" + handle,
		ReceiptHandle: handle,
		Body:          body,
	}
}

func TestWorkerCompletesSuccessfulMessage(t *testing.T) {
	settings := validSettings()
	client := newFakeClient()
	w := newTestWorker(client, settings)

	w.handleMessage(context.Background(), rawQueueMessage("h-1", queueRequestBody()))

	// 输出消息在删除之前发送
	outputs := client.sentTo(settings.OutputQueueURL)
	require.Len(t, outputs, 1)
	assert.Equal(t, []string{"h-1"}, client.deletedHandles())

	var response models.QueueValidationResponse
	require.NoError(t, json.Unmarshal(outputs[0].Body, &response))
	assert.Equal(t, "msg-001", response.MessageID)
	assert.Equal(t, models.StatusSuccess, response.Status)

	snapshot := w.Snapshot()
	assert.Equal(t, int64(1), snapshot.ProcessedCount)
	assert.Equal(t, int64(1), snapshot.SuccessCount)
}

func TestWorkerOutputSendFailureKeepsMessage(t *testing.T) {
	settings := validSettings()
	client := newFakeClient()
	client.failSendTo[settings.OutputQueueURL] = fmt.Errorf("队列不可达")
	w := newTestWorker(client, settings)

	w.handleMessage(context.Background(), rawQueueMessage("h-1", queueRequestBody()))

	// 发送失败时原消息不删除，等待可见性超时重投
	assert.Empty(t, client.deletedHandles())
}

func TestWorkerRetriesTimedOutMessage(t *testing.T) {
	settings := validSettings()
	settings.ProcessingTimeout = 10 * time.Millisecond
	settings.VisibilityExtender = false
	client := newFakeClient()

	processor := NewProcessor(&slowEvaluator{delay: 200 * time.Millisecond}, settings, testLogger())
	w := NewWorker("worker-0", client, processor, settings, testLogger(), NewStatsCollector(prometheus.NewRegistry()))

	body := []byte(`{
		"message_id": "msg-retry",
		"rows": [{"age": 25}],
		"rules": [{"rule_name": "expect_column_to_exist", "column_name": "age"}],
		"attempt": 2
	}`)
	w.handleMessage(context.Background(), rawQueueMessage("h-retry", body))

	// 重试副本发往输入队列，attempt递增、延迟按原attempt计算
	retries := client.sentTo(settings.InputQueueURL)
	require.Len(t, retries, 1)

	var retry models.QueueValidationRequest
	require.NoError(t, json.Unmarshal(retries[0].Body, &retry))
	assert.Equal(t, 3, retry.Attempt)
	assert.Equal(t, 60, retries[0].DelaySeconds)

	// 副本发送成功后原消息才被删除
	assert.Equal(t, []string{"h-retry"}, client.deletedHandles())
	assert.Empty(t, client.sentTo(settings.DLQURL))

	snapshot := w.Snapshot()
	assert.Equal(t, int64(1), snapshot.RetryCount)
}

func TestWorkerRetrySendFailureKeepsMessage(t *testing.T) {
	settings := validSettings()
	settings.ProcessingTimeout = 10 * time.Millisecond
	settings.VisibilityExtender = false
	client := newFakeClient()
	client.failSendTo[settings.InputQueueURL] = fmt.Errorf("队列不可达")

	processor := NewProcessor(&slowEvaluator{delay: 200 * time.Millisecond}, settings, testLogger())
	w := NewWorker("worker-0", client, processor, settings, testLogger(), NewStatsCollector(prometheus.NewRegistry()))

	w.handleMessage(context.Background(), rawQueueMessage("h-1", queueRequestBody()))

	assert.Empty(t, client.deletedHandles())
	// 副本未发出不计入重试
	assert.Equal(t, int64(0), w.Snapshot().RetryCount)
}

func TestWorkerEscalatesExhaustedMessageToDLQ(t *testing.T) {
	settings := validSettings()
	settings.ProcessingTimeout = 10 * time.Millisecond
	settings.VisibilityExtender = false
	client := newFakeClient()

	processor := NewProcessor(&slowEvaluator{delay: 200 * time.Millisecond}, settings, testLogger())
	w := NewWorker("worker-0", client, processor, settings, testLogger(), NewStatsCollector(prometheus.NewRegistry()))

	body := []byte(`{
		"message_id": "msg-dead",
		"rows": [{"age": 25}],
		"rules": [{"rule_name": "expect_column_to_exist", "column_name": "age"}],
		"attempt": 4
	}`)
	w.handleMessage(context.Background(), rawQueueMessage("h-dead", body))

	dead := client.sentTo(settings.DLQURL)
	require.Len(t, dead, 1)

	var dlq models.DLQMessage
	require.NoError(t, json.Unmarshal(dead[0].Body, &dlq))
	assert.Equal(t, "sqs-h-dead", dlq.OriginalMessageID)
	assert.Equal(t, 4, dlq.Attempts)
	assert.Equal(t, ErrCodeExhaustedRetries, dlq.FailureReason)
	assert.Contains(t, dlq.FailureDetail, "重试次数耗尽")

	assert.Equal(t, []string{"h-dead"}, client.deletedHandles())
	assert.Equal(t, int64(1), w.Snapshot().DLQCount)
}

func TestWorkerSendsDecodeErrorToDLQ(t *testing.T) {
	settings := validSettings()
	client := newFakeClient()
	w := newTestWorker(client, settings)

	raw := rawQueueMessage("h-garbled", []byte("this is not json"))
	w.handleMessage(context.Background(), raw)

	// 解码失败不消耗重试，直接进死信队列
	dead := client.sentTo(settings.DLQURL)
	require.Len(t, dead, 1)

	var dlq models.DLQMessage
	require.NoError(t, json.Unmarshal(dead[0].Body, &dlq))
	assert.Equal(t, 0, dlq.Attempts)

	// 失败原因固定为错误码，具体描述在detail里
	assert.Equal(t, ErrCodeDecode, dlq.FailureReason)
	assert.NotEmpty(t, dlq.FailureDetail)

	// 非JSON消息体被降级为字符串包装保留
	var original string
	require.NoError(t, json.Unmarshal(dlq.OriginalBody, &original))
	assert.Equal(t, "this is not json", original)

	assert.Equal(t, []string{"h-garbled"}, client.deletedHandles())
	assert.Equal(t, int64(1), w.Snapshot().DLQCount)
}

func TestWorkerDLQSendFailureKeepsMessage(t *testing.T) {
	settings := validSettings()
	client := newFakeClient()
	client.failSendTo[settings.DLQURL] = fmt.Errorf("队列不可达")
	w := newTestWorker(client, settings)

	w.handleMessage(context.Background(), rawQueueMessage("h-1", []byte("not json")))

	assert.Empty(t, client.deletedHandles())
	// 死信信封未发出不计入死信数
	assert.Equal(t, int64(0), w.Snapshot().DLQCount)
}

func TestWorkerKeepsMessageWithoutDLQ(t *testing.T) {
	settings := validSettings()
	settings.DLQURL = ""
	client := newFakeClient()
	w := newTestWorker(client, settings)

	w.handleMessage(context.Background(), rawQueueMessage("h-1", []byte("not json")))

	// 未配置死信队列时不删除消息，避免静默丢失
	assert.Empty(t, client.deletedHandles())
	assert.Empty(t, client.sentTo(settings.OutputQueueURL))
}

func TestWorkerExtendsVisibilityBeforeProcessing(t *testing.T) {
	settings := validSettings()
	settings.VisibilityExtender = true
	settings.VisibilityTimeout = 60
	settings.ProcessingTimeout = 120 * time.Second
	client := newFakeClient()
	w := newTestWorker(client, settings)

	w.handleMessage(context.Background(), rawQueueMessage("h-1", queueRequestBody()))

	require.Len(t, client.visibility, 1)
	assert.Equal(t, "h-1", client.visibility[0].ReceiptHandle)
	assert.Equal(t, 180, client.visibility[0].Seconds)

	// 可见性延长发生在发送和删除之前
	order := client.callOrder()
	require.GreaterOrEqual(t, len(order), 3)
	assert.Equal(t, "visibility", order[0])
}

func TestWorkerSkipsVisibilityExtensionWhenSufficient(t *testing.T) {
	settings := validSettings()
	settings.VisibilityExtender = true
	settings.VisibilityTimeout = 300
	settings.ProcessingTimeout = 120 * time.Second
	client := newFakeClient()
	w := newTestWorker(client, settings)

	w.handleMessage(context.Background(), rawQueueMessage("h-1", queueRequestBody()))

	// 120s+60s缓冲未超过300s可见性，无需延长
	assert.Empty(t, client.visibility)
}

func (f *fakeClient) receiveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, call := range f.calls {
		if call == "receive" {
			count++
		}
	}
	return count
}

func TestWorkerWaitsBetweenEmptyPolls(t *testing.T) {
	settings := validSettings()
	settings.PollIntervalSeconds = 1
	client := newFakeClient()
	w := newTestWorker(client, settings)

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go w.Run(ctx, wg)

	time.Sleep(150 * time.Millisecond)
	cancel()
	wg.Wait()

	// 空批次后等待轮询间隔再拉取，150ms内最多完成一次完整间隔
	assert.LessOrEqual(t, client.receiveCount(), 2)
}

// memorySink 内存结果落地，记录收到的响应
type memorySink struct {
	mu        sync.Mutex
	responses []*models.QueueValidationResponse
}

func (m *memorySink) Record(ctx context.Context, response *models.QueueValidationResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, response)
	return nil
}

// memoryIdempotency 内存幂等存储
type memoryIdempotency struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{seen: make(map[string]bool)}
}

func (m *memoryIdempotency) Seen(ctx context.Context, messageID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[messageID], nil
}

func (m *memoryIdempotency) Mark(ctx context.Context, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[messageID] = true
	return nil
}

func TestWorkerRecordsResultToSinks(t *testing.T) {
	settings := validSettings()
	client := newFakeClient()
	w := newTestWorker(client, settings)

	sink := &memorySink{}
	w.SetSinks([]ResultSink{sink})

	w.handleMessage(context.Background(), rawQueueMessage("h-1", queueRequestBody()))

	require.Len(t, sink.responses, 1)
	assert.Equal(t, "msg-001", sink.responses[0].MessageID)
}

func TestWorkerSkipsSeenMessage(t *testing.T) {
	settings := validSettings()
	client := newFakeClient()
	w := newTestWorker(client, settings)

	store := newMemoryIdempotency()
	require.NoError(t, store.Mark(context.Background(), "msg-001"))
	w.SetIdempotencyStore(store)

	w.handleMessage(context.Background(), rawQueueMessage("h-1", queueRequestBody()))

	// 已处理过的消息只删除，不产出新的输出
	assert.Empty(t, client.sentTo(settings.OutputQueueURL))
	assert.Equal(t, []string{"h-1"}, client.deletedHandles())
}

func TestWorkerMarksProcessedMessage(t *testing.T) {
	settings := validSettings()
	client := newFakeClient()
	w := newTestWorker(client, settings)

	store := newMemoryIdempotency()
	w.SetIdempotencyStore(store)

	w.handleMessage(context.Background(), rawQueueMessage("h-1", queueRequestBody()))

	seen, err := store.Seen(context.Background(), "msg-001")
	require.NoError(t, err)
	assert.True(t, seen)
}
