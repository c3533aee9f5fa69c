/*
 * @module service/models/validation
 * @description 数据验证核心模型，定义验证规则、验证结果明细和汇总统计等结构
 * @architecture 分层架构 - 数据模型层
 * @documentReference dev_docs/validation_requirements.md
 * @stateFlow 请求接收 -> 规则逐条验证 -> 结果明细生成 -> 汇总统计
 * @rules 规则顺序和数据集在接收后不可变，结果对象构造后不再修改
 * @dependencies 无外部依赖
 * @refs service/validation, service/queue
 */

package models

// RuleSeverity 验证规则严重级别
type RuleSeverity string

const (
	SeverityError   RuleSeverity = "error"
	SeverityWarning RuleSeverity = "warning"
	SeverityInfo    RuleSeverity = "info"
)

// MessageStatus 消息处理状态
type MessageStatus string

const (
	StatusPending    MessageStatus = "pending"
	StatusProcessing MessageStatus = "processing"
	StatusSuccess    MessageStatus = "success"
	StatusFailed     MessageStatus = "failed"
	StatusRetry      MessageStatus = "retry"
	StatusDLQ        MessageStatus = "dlq"
)

// ValidationRule 验证规则定义
type ValidationRule struct {
	RuleName        string       `json:"rule_name" example:"expect_column_values_to_be_between"`
	ColumnName      string       `json:"column_name,omitempty" example:"age"`
	Value           interface{}  `json:"value,omitempty"` // 规则参数（min/max、regex、集合等）
	RuleDescription string       `json:"rule_description,omitempty"`
	Severity        RuleSeverity `json:"severity,omitempty" example:"error"`
}

// EffectiveSeverity 返回规则的有效严重级别，未指定时默认error
func (r *ValidationRule) EffectiveSeverity() RuleSeverity {
	if r.Severity == "" {
		return SeverityError
	}
	return r.Severity
}

// ValidationResultDetail 单条规则的验证结果明细
type ValidationResultDetail struct {
	RuleName   string      `json:"rule_name"`
	ColumnName string      `json:"column_name,omitempty"`
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Expected   interface{} `json:"expected,omitempty"`
	Actual     interface{} `json:"actual,omitempty"`

	Details map[string]interface{} `json:"details,omitempty"`

	// 统计信息
	ElementCount      int     `json:"element_count,omitempty"`
	UnexpectedCount   int     `json:"unexpected_count,omitempty"`
	UnexpectedPercent float64 `json:"unexpected_percent,omitempty"`
}

// ValidationSummary 验证结果汇总统计
type ValidationSummary struct {
	TotalRules      int     `json:"total_rules"`
	SuccessfulRules int     `json:"successful_rules"`
	FailedRules     int     `json:"failed_rules"`
	SuccessRate     float64 `json:"success_rate"`

	TotalRows    int `json:"total_rows"`
	TotalColumns int `json:"total_columns"`

	ExecutionTimeMs  int64  `json:"execution_time_ms"`
	ValidationEngine string `json:"validation_engine,omitempty" example:"rules_engine"`
}

// ValidationRequest 同步验证请求
type ValidationRequest struct {
	Rules   []ValidationRule         `json:"rules"`
	Dataset []map[string]interface{} `json:"dataset"`
}

// ValidationResponse 同步验证响应
type ValidationResponse struct {
	Results []ValidationResultDetail `json:"results"`
	Summary ValidationSummary        `json:"summary"`
}
