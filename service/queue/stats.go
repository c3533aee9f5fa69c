/*
 * @module service/queue/stats
 * @description 队列处理指标收集器，基于Prometheus暴露处理量、结果分布和耗时分布
 * @architecture 分层架构 - 可观测层
 * @documentReference dev_docs/queue_pipeline_requirements.md
 * @rules 指标注册在进程内只执行一次；收集器方法可被多个工作器并发调用
 * @dependencies github.com/prometheus/client_golang
 * @refs service/queue/worker.go, main.go
 */

package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"dataquality-service/service/models"
)

// StatsCollector 处理指标收集器
type StatsCollector struct {
	processedTotal *prometheus.CounterVec
	decodeErrors   prometheus.Counter
	dlqTotal       prometheus.Counter
	processingTime prometheus.Histogram
	rulesEvaluated prometheus.Counter
	rulesFailed    prometheus.Counter
}

// NewStatsCollector 创建指标收集器并注册到指定Registry
// registry为nil时使用默认Registry
func NewStatsCollector(registry prometheus.Registerer) *StatsCollector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &StatsCollector{
		processedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dataquality_messages_processed_total",
			Help: "已处理消息总数，按结果分类",
		}, []string{"outcome"}),
		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "dataquality_decode_errors_total",
			Help: "消息解码失败总数",
		}),
		dlqTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "dataquality_dlq_messages_total",
			Help: "送入死信队列的消息总数",
		}),
		processingTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dataquality_processing_duration_seconds",
			Help:    "单条消息处理耗时分布",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		rulesEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Name: "dataquality_rules_evaluated_total",
			Help: "已评估规则总数",
		}),
		rulesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "dataquality_rules_failed_total",
			Help: "评估未通过的规则总数",
		}),
	}
}

// RecordProcessed 记录一次消息处理结果
func (s *StatsCollector) RecordProcessed(result *models.ProcessingResult) {
	outcome := "success"
	switch {
	case result.ShouldRetry:
		outcome = "retry"
	case result.SendToDLQ:
		outcome = "dlq"
	case !result.Success:
		outcome = "failed"
	}
	s.processedTotal.WithLabelValues(outcome).Inc()
	s.processingTime.Observe(float64(result.ProcessingTimeMs) / 1000.0)

	if result.Response != nil {
		s.rulesEvaluated.Add(float64(result.Response.Summary.TotalRules))
		s.rulesFailed.Add(float64(result.Response.Summary.FailedRules))
	}
}

// RecordDecodeError 记录一次解码失败
func (s *StatsCollector) RecordDecodeError() {
	s.decodeErrors.Inc()
	s.processedTotal.WithLabelValues("decode_error").Inc()
}

// RecordDLQ 记录一次死信投递
func (s *StatsCollector) RecordDLQ() {
	s.dlqTotal.Inc()
}
