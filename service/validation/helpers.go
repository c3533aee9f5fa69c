/*
 * @module service/validation/helpers
 * @description 验证器公共辅助函数：列取值、参数解析、统计信息计算
 * @architecture 工具函数模式
 * @dependencies github.com/spf13/cast, dataquality-service/service/models
 * @refs service/validation
 */

package validation

import (
	"fmt"

	"github.com/spf13/cast"

	"dataquality-service/service/models"
)

// newDetail 构造规则结果基础结构
func newDetail(rule *models.ValidationRule) *models.ValidationResultDetail {
	return &models.ValidationResultDetail{
		RuleName:   rule.RuleName,
		ColumnName: rule.ColumnName,
	}
}

// failDetail 构造失败结果
func failDetail(rule *models.ValidationRule, format string, args ...interface{}) *models.ValidationResultDetail {
	d := newDetail(rule)
	d.Success = false
	d.Message = fmt.Sprintf(format, args...)
	return d
}

// columnExists 判断列是否存在于数据集
func columnExists(data []map[string]interface{}, column string) bool {
	for _, row := range data {
		if _, ok := row[column]; ok {
			return true
		}
	}
	return false
}

// columnValues 提取指定列的全部取值（包括nil）
func columnValues(data []map[string]interface{}, column string) []interface{} {
	values := make([]interface{}, 0, len(data))
	for _, row := range data {
		values = append(values, row[column])
	}
	return values
}

// requireColumn 校验规则的目标列：列名必须指定且存在于数据集
// 返回非nil时表示前置校验失败
func requireColumn(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	if rule.ColumnName == "" {
		return failDetail(rule, "规则必须指定column_name")
	}
	if !columnExists(data, rule.ColumnName) {
		return failDetail(rule, "数据集中不存在列: %s", rule.ColumnName)
	}
	return nil
}

// applyStats 计算并填充统计信息：元素总数、不符合数量、不符合比例
func applyStats(d *models.ValidationResultDetail, elementCount, unexpectedCount int) {
	d.ElementCount = elementCount
	d.UnexpectedCount = unexpectedCount
	if elementCount > 0 {
		d.UnexpectedPercent = float64(unexpectedCount) / float64(elementCount) * 100.0
	}
	d.Success = unexpectedCount == 0
	if d.Success {
		d.Message = fmt.Sprintf("全部 %d 个元素符合预期", elementCount)
	} else {
		d.Message = fmt.Sprintf("%d/%d 个元素不符合预期 (%.1f%%)", unexpectedCount, elementCount, d.UnexpectedPercent)
	}
}

// ruleParams 解析规则参数为映射
func ruleParams(rule *models.ValidationRule) (map[string]interface{}, error) {
	if rule.Value == nil {
		return nil, fmt.Errorf("规则缺少参数")
	}
	params, err := cast.ToStringMapE(rule.Value)
	if err != nil {
		return nil, fmt.Errorf("规则参数格式错误: %w", err)
	}
	return params, nil
}

// paramFloat 按候选键依次查找数值参数（兼容 min/min_value 等新旧键名）
func paramFloat(params map[string]interface{}, keys ...string) (float64, bool, error) {
	for _, key := range keys {
		if raw, ok := params[key]; ok && raw != nil {
			v, err := cast.ToFloat64E(raw)
			if err != nil {
				return 0, true, fmt.Errorf("参数 %s 无法转换为数值: %w", key, err)
			}
			return v, true, nil
		}
	}
	return 0, false, nil
}

// paramString 按候选键依次查找字符串参数
func paramString(params map[string]interface{}, keys ...string) (string, bool) {
	for _, key := range keys {
		if raw, ok := params[key]; ok && raw != nil {
			if s, err := cast.ToStringE(raw); err == nil && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// ruleSet 将规则参数解释为取值集合
// 参数可以是直接的数组，也可以是 {value_set: [...]} 形式
func ruleSet(rule *models.ValidationRule) ([]interface{}, error) {
	if rule.Value == nil {
		return nil, fmt.Errorf("规则缺少集合参数")
	}
	if direct, err := cast.ToSliceE(rule.Value); err == nil {
		return direct, nil
	}
	params, err := ruleParams(rule)
	if err != nil {
		return nil, err
	}
	for _, key := range []string{"value_set", "values", "set"} {
		if raw, ok := params[key]; ok {
			return cast.ToSliceE(raw)
		}
	}
	return nil, fmt.Errorf("规则缺少集合参数")
}

// normalizeSetValue 将集合元素归一化为可比较的字符串键
// 数值统一按浮点表示，避免 1 和 1.0 被视为不同值
func normalizeSetValue(v interface{}) string {
	if v == nil {
		return "<nil>"
	}
	if f, err := cast.ToFloat64E(v); err == nil {
		return fmt.Sprintf("num:%g", f)
	}
	return "str:" + cast.ToString(v)
}

// boundCheck 判断数值是否落在[min,max]闭区间内，未指定的边界不参与判断
func boundCheck(v float64, min, max float64, hasMin, hasMax bool) bool {
	if hasMin && v < min {
		return false
	}
	if hasMax && v > max {
		return false
	}
	return true
}

// rangeParams 解析 min/max 边界参数（兼容 min_value/max_value 旧键名）
func rangeParams(rule *models.ValidationRule) (min, max float64, hasMin, hasMax bool, err error) {
	params, perr := ruleParams(rule)
	if perr != nil {
		return 0, 0, false, false, perr
	}
	min, hasMin, err = paramFloat(params, "min", "min_value")
	if err != nil {
		return 0, 0, false, false, err
	}
	max, hasMax, err = paramFloat(params, "max", "max_value")
	if err != nil {
		return 0, 0, false, false, err
	}
	if !hasMin && !hasMax {
		return 0, 0, false, false, fmt.Errorf("规则至少需要指定min或max参数")
	}
	return min, max, hasMin, hasMax, nil
}

// numericColumn 提取列的数值取值，nil值跳过，非数值返回错误下标
func numericColumn(data []map[string]interface{}, column string) ([]float64, error) {
	values := make([]float64, 0, len(data))
	for i, row := range data {
		raw := row[column]
		if raw == nil {
			continue
		}
		v, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, fmt.Errorf("第%d行的值无法转换为数值: %v", i, raw)
		}
		values = append(values, v)
	}
	return values, nil
}
