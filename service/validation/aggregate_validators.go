/*
 * @module service/validation/aggregate_validators
 * @description 聚合验证器：均值/最小/最大/总和区间、类型检查
 * @architecture 分层架构 - 规则评估层
 * @documentReference dev_docs/validation_requirements.md
 * @stateFlow 列取值提取 -> 聚合计算 -> 区间判定
 * @dependencies github.com/spf13/cast, dataquality-service/service/models
 * @refs service/validation/registry.go
 */

package validation

import (
	"fmt"

	"github.com/spf13/cast"

	"dataquality-service/service/models"
)

// validateColumnMeanToBeBetween 验证列均值落在[min,max]区间内
func validateColumnMeanToBeBetween(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	return aggregateColumnValues(data, rule, "均值", func(values []float64) (float64, error) {
		if len(values) == 0 {
			return 0, fmt.Errorf("列没有可计算的数值")
		}
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values)), nil
	})
}

// validateColumnMinToBeBetween 验证列最小值落在[min,max]区间内
func validateColumnMinToBeBetween(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	return aggregateColumnValues(data, rule, "最小值", func(values []float64) (float64, error) {
		if len(values) == 0 {
			return 0, fmt.Errorf("列没有可计算的数值")
		}
		min := values[0]
		for _, v := range values[1:] {
			if v < min {
				min = v
			}
		}
		return min, nil
	})
}

// validateColumnMaxToBeBetween 验证列最大值落在[min,max]区间内
func validateColumnMaxToBeBetween(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	return aggregateColumnValues(data, rule, "最大值", func(values []float64) (float64, error) {
		if len(values) == 0 {
			return 0, fmt.Errorf("列没有可计算的数值")
		}
		max := values[0]
		for _, v := range values[1:] {
			if v > max {
				max = v
			}
		}
		return max, nil
	})
}

// validateColumnSumToBeBetween 验证列总和落在[min,max]区间内
func validateColumnSumToBeBetween(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	return aggregateColumnValues(data, rule, "总和", func(values []float64) (float64, error) {
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum, nil
	})
}

// aggregateColumnValues 计算列的聚合值并判定是否落在区间内
func aggregateColumnValues(data []map[string]interface{}, rule *models.ValidationRule, label string, aggregate func([]float64) (float64, error)) *models.ValidationResultDetail {
	if d := requireColumn(data, rule); d != nil {
		return d
	}
	min, max, hasMin, hasMax, err := rangeParams(rule)
	if err != nil {
		return failDetail(rule, "%v", err)
	}
	values, err := numericColumn(data, rule.ColumnName)
	if err != nil {
		return failDetail(rule, "%v", err)
	}
	actual, err := aggregate(values)
	if err != nil {
		return failDetail(rule, "%v", err)
	}

	d := newDetail(rule)
	d.Expected = rule.Value
	d.Actual = actual
	d.ElementCount = len(values)
	d.Success = boundCheck(actual, min, max, hasMin, hasMax)
	if d.Success {
		d.Message = fmt.Sprintf("列%s %.4f 在预期区间内", label, actual)
	} else {
		d.Message = fmt.Sprintf("列%s %.4f 超出预期区间", label, actual)
	}
	return d
}

// typeMatches 判定取值是否属于指定类型名
func typeMatches(raw interface{}, typeName string) bool {
	switch typeName {
	case "string", "str":
		_, ok := raw.(string)
		return ok
	case "boolean", "bool":
		_, ok := raw.(bool)
		return ok
	case "int", "integer":
		// JSON解码的数值是float64，按是否为整数判定
		v, err := cast.ToFloat64E(raw)
		if err != nil {
			return false
		}
		if _, isStr := raw.(string); isStr {
			return false
		}
		if _, isBool := raw.(bool); isBool {
			return false
		}
		return v == float64(int64(v))
	case "float", "double", "number", "numeric":
		if _, isStr := raw.(string); isStr {
			return false
		}
		if _, isBool := raw.(bool); isBool {
			return false
		}
		_, err := cast.ToFloat64E(raw)
		return err == nil
	case "null", "none":
		return raw == nil
	default:
		return false
	}
}

// validateColumnValuesToBeOfType 验证列取值为指定类型
func validateColumnValuesToBeOfType(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	if d := requireColumn(data, rule); d != nil {
		return d
	}

	var typeName string
	if s, err := cast.ToStringE(rule.Value); err == nil && s != "" {
		typeName = s
	} else {
		params, perr := ruleParams(rule)
		if perr != nil {
			return failDetail(rule, "%v", perr)
		}
		var ok bool
		typeName, ok = paramString(params, "type", "type_")
		if !ok {
			return failDetail(rule, "规则缺少type参数")
		}
	}

	d := newDetail(rule)
	d.Expected = typeName
	unexpected := 0
	values := columnValues(data, rule.ColumnName)
	for _, raw := range values {
		if !typeMatches(raw, typeName) {
			unexpected++
		}
	}
	applyStats(d, len(values), unexpected)
	return d
}

// validateColumnValuesToBeInTypeList 验证列取值属于类型列表之一
func validateColumnValuesToBeInTypeList(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	if d := requireColumn(data, rule); d != nil {
		return d
	}

	var typeNames []string
	if direct, err := cast.ToStringSliceE(rule.Value); err == nil && len(direct) > 0 {
		typeNames = direct
	} else {
		params, perr := ruleParams(rule)
		if perr != nil {
			return failDetail(rule, "%v", perr)
		}
		raw, ok := params["type_list"]
		if !ok {
			return failDetail(rule, "规则缺少type_list参数")
		}
		typeNames, err = cast.ToStringSliceE(raw)
		if err != nil || len(typeNames) == 0 {
			return failDetail(rule, "type_list参数格式错误")
		}
	}

	d := newDetail(rule)
	d.Expected = typeNames
	unexpected := 0
	values := columnValues(data, rule.ColumnName)
	for _, raw := range values {
		matched := false
		for _, typeName := range typeNames {
			if typeMatches(raw, typeName) {
				matched = true
				break
			}
		}
		if !matched {
			unexpected++
		}
	}
	applyStats(d, len(values), unexpected)
	return d
}
