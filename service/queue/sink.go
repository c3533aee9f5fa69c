/*
 * @module service/queue/sink
 * @description 处理结果的下游接口：结果落地、幂等存储、回调通知
 * @architecture 观察者模式 - 工作器完成处理后逐个通知结果落地方
 * @documentReference dev_docs/queue_pipeline_requirements.md
 * @rules 结果落地失败只记录日志，不影响消息的队列动作判定
 * @refs service/archive, service/idempotency, service/callback
 */

package queue

import (
	"context"

	"dataquality-service/service/models"
)

// ResultSink 处理结果落地接口，归档存储和消息转发器都实现该接口
type ResultSink interface {
	Record(ctx context.Context, response *models.QueueValidationResponse) error
}

// IdempotencyStore 幂等存储接口，防止同一消息被重复处理
type IdempotencyStore interface {
	// Seen 判断消息是否已处理过
	Seen(ctx context.Context, messageID string) (bool, error)
	// Mark 标记消息已处理
	Mark(ctx context.Context, messageID string) error
}

// CallbackNotifier 回调通知接口，消息带callback_url时处理完成后回调
type CallbackNotifier interface {
	Notify(ctx context.Context, url string, response *models.QueueValidationResponse) error
}
