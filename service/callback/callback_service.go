/*
 * @module service/callback/callback_service
 * @description 回调通知服务，消息处理完成后向请求方指定的URL推送验证结果
 * @architecture 适配器模式 - 实现queue.CallbackNotifier接口
 * @documentReference dev_docs/queue_pipeline_requirements.md
 * @stateFlow 处理完成 -> POST回调URL -> 非2xx视为失败
 * @rules 回调是尽力而为的通知，失败不触发消息重试；回调URL必须是http/https
 * @dependencies net/http, encoding/json
 * @refs service/queue/sink.go
 */

package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"dataquality-service/service/models"
)

// Notifier 回调通知器
type Notifier struct {
	client *http.Client
	logger *slog.Logger
}

// NewNotifier 创建回调通知器
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Notify 将验证结果POST到回调URL
func (n *Notifier) Notify(ctx context.Context, callbackURL string, response *models.QueueValidationResponse) error {
	parsed, err := url.Parse(callbackURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("回调URL无效: %s", callbackURL)
	}

	body, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("回调内容序列化失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("构造回调请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("回调请求失败: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("回调返回非成功状态: %d", resp.StatusCode)
	}
	return nil
}
