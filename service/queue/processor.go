/*
 * @module service/queue/processor
 * @description 消息处理器，负责消息解码、规则评估调用、处理超时控制和后续动作判定
 * @architecture 分层架构 - 处理核心层，与队列收发逻辑解耦
 * @documentReference dev_docs/queue_pipeline_requirements.md
 * @stateFlow 解码 -> 规则评估（带超时）-> 按严重级别汇总 -> 判定删除/重试/死信
 * @rules 解码失败的消息直接进死信队列不消耗重试；severity为warning/info的规则失败不影响消息成功判定
 * @dependencies dataquality-service/service/validation, dataquality-service/service/utils
 * @refs service/queue/worker.go
 */

package queue

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dataquality-service/service/models"
	"dataquality-service/service/utils"
	"dataquality-service/service/validation"
)

// Processor 消息处理器
type Processor struct {
	evaluator validation.RuleEvaluator
	settings  *Settings
	logger    *slog.Logger
}

// NewProcessor 创建消息处理器
func NewProcessor(evaluator validation.RuleEvaluator, settings *Settings, logger *slog.Logger) *Processor {
	return &Processor{
		evaluator: evaluator,
		settings:  settings,
		logger:    logger,
	}
}

// Decode 将原始消息解码为验证请求
// 先做UTF-8归一化（兼容GBK编码的旧消息），再按JSON解码
func (p *Processor) Decode(raw models.RawMessage) (*models.MessageWrapper, error) {
	body, err := utils.EnsureUTF8(raw.Body)
	if err != nil {
		return nil, &DecodeError{MessageID: raw.MessageID, Cause: err}
	}

	var request models.QueueValidationRequest
	if err := json.Unmarshal(body, &request); err != nil {
		return nil, &DecodeError{MessageID: raw.MessageID, Cause: err}
	}
	if len(request.Rules) == 0 {
		return nil, &DecodeError{MessageID: raw.MessageID, Cause: fmt.Errorf("消息体缺少验证规则")}
	}
	if request.MessageID == "" {
		request.MessageID = raw.MessageID
	}
	if request.MessageID == "" {
		request.MessageID = uuid.New().String()
	}

	return &models.MessageWrapper{
		Raw:        raw,
		Request:    &request,
		ReceivedAt: time.Now(),
	}, nil
}

// Process 执行验证并判定后续动作
func (p *Processor) Process(wrapper *models.MessageWrapper, workerID string) *models.ProcessingResult {
	request := wrapper.Request
	start := time.Now()

	response, timedOut := p.evaluateWithTimeout(request)
	elapsed := time.Since(start)

	if timedOut {
		p.logger.Warn("消息处理超时",
			"message_id", request.MessageID,
			"attempt", request.Attempt,
			"timeout", p.settings.ProcessingTimeout.String())
		timeoutErr := &ProcessingTimeoutError{
			MessageID: request.MessageID,
			Timeout:   p.settings.ProcessingTimeout.String(),
		}
		return p.failureResult(wrapper, elapsed, workerID, timeoutErr.Error(), ErrCodeProcessingTimeout)
	}

	// 只有severity为error的规则失败才导致消息失败
	blocking := blockingFailures(response.Results, request.Rules)
	success := blocking == 0

	out := &models.QueueValidationResponse{
		MessageID:        request.MessageID,
		CorrelationID:    request.CorrelationID,
		ProcessedAt:      time.Now(),
		ProcessingTimeMs: elapsed.Milliseconds(),
		WorkerID:         workerID,
		Results:          response.Results,
		Summary:          response.Summary,
		BatchID:          request.BatchID,
		Source:           request.Source,
		TotalRules:       response.Summary.TotalRules,
		SuccessfulRules:  response.Summary.SuccessfulRules,
		FailedRules:      response.Summary.FailedRules,
	}
	if success {
		out.Status = models.StatusSuccess
	} else {
		out.Status = models.StatusFailed
		out.ErrorCode = ErrCodeRuleFault
		out.ErrorMessage = fmt.Sprintf("%d条阻断级规则未通过", blocking)
	}

	result := &models.ProcessingResult{
		Success:          success,
		MessageID:        request.MessageID,
		ProcessingTimeMs: elapsed.Milliseconds(),
		Response:         out,
		ShouldDelete:     true,
	}
	if !success {
		result.Error = out.ErrorMessage
		result.ErrorCode = out.ErrorCode
	}
	return result
}

// evaluateWithTimeout 在超时限制内执行规则评估
// 超时后评估goroutine继续运行至自然结束，结果被丢弃
func (p *Processor) evaluateWithTimeout(request *models.QueueValidationRequest) (*models.ValidationResponse, bool) {
	done := make(chan *models.ValidationResponse, 1)
	go func() {
		done <- p.evaluator.Validate(&models.ValidationRequest{
			Rules:   request.Rules,
			Dataset: request.Rows,
		})
	}()

	timer := time.NewTimer(p.settings.ProcessingTimeout)
	defer timer.Stop()

	select {
	case response := <-done:
		return response, false
	case <-timer.C:
		return nil, true
	}
}

// failureResult 构造处理失败的结果，按重试次数判定重新入队或进入死信队列
func (p *Processor) failureResult(wrapper *models.MessageWrapper, elapsed time.Duration, workerID, errMsg, errCode string) *models.ProcessingResult {
	request := wrapper.Request
	maxRetries := request.EffectiveMaxRetries(p.settings.MaxRetries)

	result := &models.ProcessingResult{
		Success:          false,
		MessageID:        request.MessageID,
		ProcessingTimeMs: elapsed.Milliseconds(),
		Error:            errMsg,
		ErrorCode:        errCode,
	}

	if request.Attempt <= maxRetries {
		result.ShouldRetry = true
	} else {
		result.SendToDLQ = true
		result.ErrorCode = ErrCodeExhaustedRetries
		result.Error = (&ExhaustedRetriesError{
			MessageID: request.MessageID,
			Attempts:  request.Attempt,
			LastError: errMsg,
		}).Error()
	}
	return result
}

// blockingFailures 统计severity为error的失败规则数量
// 规则未指定severity时按error处理
func blockingFailures(results []models.ValidationResultDetail, rules []models.ValidationRule) int {
	severityByIndex := make([]models.RuleSeverity, len(rules))
	for i := range rules {
		severityByIndex[i] = rules[i].EffectiveSeverity()
	}

	blocking := 0
	for i := range results {
		if results[i].Success {
			continue
		}
		severity := models.SeverityError
		if i < len(severityByIndex) {
			severity = severityByIndex[i]
		}
		if severity == models.SeverityError {
			blocking++
		}
	}
	return blocking
}
