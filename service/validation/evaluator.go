/*
 * @module service/validation/evaluator
 * @description 规则评估引擎，按顺序执行验证规则并隔离单条规则的评估故障
 * @architecture 分层架构 - 规则评估层，显式注册表替代运行时反射
 * @documentReference dev_docs/validation_requirements.md
 * @stateFlow 请求接收 -> 规则逐条查找与执行 -> 故障隔离 -> 汇总统计
 * @rules 单条规则评估失败或崩溃只影响该规则的结果，不中断整批验证；引擎可被多个工作器并发调用
 * @dependencies dataquality-service/service/models
 * @refs service/validation/registry.go, service/queue/processor.go
 */

package validation

import (
	"fmt"
	"sort"
	"time"

	"dataquality-service/service/models"
)

// ValidatorFunc 单条规则的验证函数
type ValidatorFunc func(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail

// RuleEvaluator 规则评估器接口，队列处理核心通过该接口调用规则评估
type RuleEvaluator interface {
	Validate(request *models.ValidationRequest) *models.ValidationResponse
	AvailableRules() []string
}

// Engine 基于显式注册表的规则评估引擎
// 注册表在构造后只读，可安全地被多个工作器并发使用
type Engine struct {
	validators map[string]ValidatorFunc
}

// NewEngine 创建规则评估引擎并注册全部内置验证器
func NewEngine() *Engine {
	e := &Engine{
		validators: make(map[string]ValidatorFunc),
	}
	registerBuiltins(e)
	return e
}

// Register 注册验证器，同时注册旧版驼峰别名
func (e *Engine) Register(name string, fn ValidatorFunc) {
	e.validators[name] = fn
	if alias := legacyAlias(name); alias != name {
		e.validators[alias] = fn
	}
}

// lookup 查找验证器
func (e *Engine) lookup(name string) (ValidatorFunc, bool) {
	fn, ok := e.validators[name]
	return fn, ok
}

// Validate 按顺序执行请求中的全部规则并生成汇总
// 未知规则、参数错误或验证器崩溃都转化为该规则的失败结果
func (e *Engine) Validate(request *models.ValidationRequest) *models.ValidationResponse {
	start := time.Now()

	results := make([]models.ValidationResultDetail, 0, len(request.Rules))
	successful := 0

	for i := range request.Rules {
		rule := &request.Rules[i]
		detail := e.evaluateRule(request.Dataset, rule)
		results = append(results, *detail)
		if detail.Success {
			successful++
		}
	}

	totalColumns := 0
	if len(request.Dataset) > 0 {
		totalColumns = len(request.Dataset[0])
	}

	summary := models.ValidationSummary{
		TotalRules:       len(request.Rules),
		SuccessfulRules:  successful,
		FailedRules:      len(request.Rules) - successful,
		TotalRows:        len(request.Dataset),
		TotalColumns:     totalColumns,
		ExecutionTimeMs:  time.Since(start).Milliseconds(),
		ValidationEngine: "rules_engine",
	}
	if summary.TotalRules > 0 {
		summary.SuccessRate = float64(successful) / float64(summary.TotalRules)
	}

	return &models.ValidationResponse{Results: results, Summary: summary}
}

// evaluateRule 执行单条规则，崩溃转化为失败结果
func (e *Engine) evaluateRule(data []map[string]interface{}, rule *models.ValidationRule) (detail *models.ValidationResultDetail) {
	defer func() {
		if r := recover(); r != nil {
			detail = &models.ValidationResultDetail{
				RuleName:   rule.RuleName,
				ColumnName: rule.ColumnName,
				Success:    false,
				Message:    fmt.Sprintf("规则评估崩溃: %v", r),
			}
		}
	}()

	fn, ok := e.lookup(rule.RuleName)
	if !ok {
		return &models.ValidationResultDetail{
			RuleName:   rule.RuleName,
			ColumnName: rule.ColumnName,
			Success:    false,
			Message:    fmt.Sprintf("未找到规则对应的验证器: %s", rule.RuleName),
		}
	}

	return fn(data, rule)
}

// AvailableRules 返回全部可用的规则名称（按字典序）
func (e *Engine) AvailableRules() []string {
	names := make([]string, 0, len(e.validators))
	for name := range e.validators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
