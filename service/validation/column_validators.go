/*
 * @module service/validation/column_validators
 * @description 列级验证器：存在性、取值区间、空值、集合、唯一性、大小比较、单调性、列对比较等
 * @architecture 分层架构 - 规则评估层
 * @documentReference dev_docs/validation_requirements.md
 * @stateFlow 列取值提取 -> 逐元素判定 -> 统计信息生成
 * @rules 每个验证器都是纯函数：相同输入产生相同结果
 * @dependencies github.com/spf13/cast, dataquality-service/service/models
 * @refs service/validation/registry.go
 */

package validation

import (
	"fmt"
	"reflect"

	"github.com/spf13/cast"

	"dataquality-service/service/models"
)

// validateColumnToExist 验证指定列存在于数据集
func validateColumnToExist(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	if rule.ColumnName == "" {
		return failDetail(rule, "规则必须指定column_name")
	}

	d := newDetail(rule)
	d.ElementCount = len(data)
	d.Expected = rule.ColumnName
	if columnExists(data, rule.ColumnName) {
		d.Success = true
		d.Message = fmt.Sprintf("列 %s 存在", rule.ColumnName)
	} else {
		d.Success = false
		d.Message = fmt.Sprintf("数据集中不存在列: %s", rule.ColumnName)
	}
	return d
}

// validateColumnValuesToBeBetween 验证列取值落在[min,max]区间内
func validateColumnValuesToBeBetween(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	if d := requireColumn(data, rule); d != nil {
		return d
	}
	min, max, hasMin, hasMax, err := rangeParams(rule)
	if err != nil {
		return failDetail(rule, "%v", err)
	}

	d := newDetail(rule)
	d.Expected = rule.Value
	unexpected := 0
	values := columnValues(data, rule.ColumnName)
	for _, raw := range values {
		if raw == nil {
			unexpected++
			continue
		}
		v, cerr := cast.ToFloat64E(raw)
		if cerr != nil || !boundCheck(v, min, max, hasMin, hasMax) {
			unexpected++
		}
	}
	applyStats(d, len(values), unexpected)
	return d
}

// validateColumnValuesToNotBeNone 验证列取值非空
func validateColumnValuesToNotBeNone(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	if d := requireColumn(data, rule); d != nil {
		return d
	}

	d := newDetail(rule)
	unexpected := 0
	values := columnValues(data, rule.ColumnName)
	for _, raw := range values {
		if raw == nil {
			unexpected++
		}
	}
	applyStats(d, len(values), unexpected)
	return d
}

// validateColumnValuesToBeNone 验证列取值全部为空
func validateColumnValuesToBeNone(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	if d := requireColumn(data, rule); d != nil {
		return d
	}

	d := newDetail(rule)
	unexpected := 0
	values := columnValues(data, rule.ColumnName)
	for _, raw := range values {
		if raw != nil {
			unexpected++
		}
	}
	applyStats(d, len(values), unexpected)
	return d
}

// validateColumnValuesToBeInSet 验证列取值属于给定集合
func validateColumnValuesToBeInSet(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	if d := requireColumn(data, rule); d != nil {
		return d
	}
	set, err := ruleSet(rule)
	if err != nil {
		return failDetail(rule, "%v", err)
	}

	allowed := make(map[string]struct{}, len(set))
	for _, v := range set {
		allowed[normalizeSetValue(v)] = struct{}{}
	}

	d := newDetail(rule)
	d.Expected = set
	unexpected := 0
	values := columnValues(data, rule.ColumnName)
	for _, raw := range values {
		if _, ok := allowed[normalizeSetValue(raw)]; !ok {
			unexpected++
		}
	}
	applyStats(d, len(values), unexpected)
	return d
}

// validateColumnValuesToNotBeInSet 验证列取值不属于给定集合
func validateColumnValuesToNotBeInSet(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	if d := requireColumn(data, rule); d != nil {
		return d
	}
	set, err := ruleSet(rule)
	if err != nil {
		return failDetail(rule, "%v", err)
	}

	forbidden := make(map[string]struct{}, len(set))
	for _, v := range set {
		forbidden[normalizeSetValue(v)] = struct{}{}
	}

	d := newDetail(rule)
	d.Expected = set
	unexpected := 0
	values := columnValues(data, rule.ColumnName)
	for _, raw := range values {
		if _, ok := forbidden[normalizeSetValue(raw)]; ok {
			unexpected++
		}
	}
	applyStats(d, len(values), unexpected)
	return d
}

// validateColumnDistinctValuesToBeInSet 验证列的去重取值集合是给定集合的子集
func validateColumnDistinctValuesToBeInSet(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	if d := requireColumn(data, rule); d != nil {
		return d
	}
	set, err := ruleSet(rule)
	if err != nil {
		return failDetail(rule, "%v", err)
	}

	allowed := make(map[string]struct{}, len(set))
	for _, v := range set {
		allowed[normalizeSetValue(v)] = struct{}{}
	}

	distinct := make(map[string]interface{})
	for _, raw := range columnValues(data, rule.ColumnName) {
		distinct[normalizeSetValue(raw)] = raw
	}

	d := newDetail(rule)
	d.Expected = set
	var outside []interface{}
	for key, raw := range distinct {
		if _, ok := allowed[key]; !ok {
			outside = append(outside, raw)
		}
	}
	d.Actual = outside
	applyStats(d, len(distinct), len(outside))
	return d
}

// validateColumnValuesToBeUnique 验证列取值唯一
func validateColumnValuesToBeUnique(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	if d := requireColumn(data, rule); d != nil {
		return d
	}

	d := newDetail(rule)
	seen := make(map[string]int)
	values := columnValues(data, rule.ColumnName)
	for _, raw := range values {
		seen[normalizeSetValue(raw)]++
	}
	unexpected := 0
	for _, count := range seen {
		if count > 1 {
			unexpected += count
		}
	}
	applyStats(d, len(values), unexpected)
	return d
}

// validateCompoundColumnsToBeUnique 验证多列组合取值唯一
func validateCompoundColumnsToBeUnique(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	params, err := ruleParams(rule)
	if err != nil {
		return failDetail(rule, "%v", err)
	}
	rawList, ok := params["column_list"]
	if !ok {
		return failDetail(rule, "规则缺少column_list参数")
	}
	columns, err := cast.ToStringSliceE(rawList)
	if err != nil || len(columns) == 0 {
		return failDetail(rule, "column_list参数格式错误")
	}

	d := newDetail(rule)
	d.Expected = columns
	seen := make(map[string]int)
	for _, row := range data {
		key := ""
		for _, col := range columns {
			key += normalizeSetValue(row[col]) + "|"
		}
		seen[key]++
	}
	unexpected := 0
	for _, count := range seen {
		if count > 1 {
			unexpected += count
		}
	}
	applyStats(d, len(data), unexpected)
	return d
}

// validateColumnValuesToBeGreaterThan 验证列取值大于阈值
func validateColumnValuesToBeGreaterThan(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	return compareColumnValues(data, rule, func(v, threshold float64) bool { return v > threshold })
}

// validateColumnValuesToBeLessThan 验证列取值小于阈值
func validateColumnValuesToBeLessThan(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	return compareColumnValues(data, rule, func(v, threshold float64) bool { return v < threshold })
}

// compareColumnValues 按给定比较函数逐元素判定列取值
func compareColumnValues(data []map[string]interface{}, rule *models.ValidationRule, cmp func(v, threshold float64) bool) *models.ValidationResultDetail {
	if d := requireColumn(data, rule); d != nil {
		return d
	}

	var threshold float64
	var err error
	if direct, cerr := cast.ToFloat64E(rule.Value); cerr == nil {
		threshold = direct
	} else {
		params, perr := ruleParams(rule)
		if perr != nil {
			return failDetail(rule, "%v", perr)
		}
		var has bool
		threshold, has, err = paramFloat(params, "value", "threshold")
		if err != nil {
			return failDetail(rule, "%v", err)
		}
		if !has {
			return failDetail(rule, "规则缺少比较阈值参数")
		}
	}

	d := newDetail(rule)
	d.Expected = threshold
	unexpected := 0
	values := columnValues(data, rule.ColumnName)
	for _, raw := range values {
		if raw == nil {
			unexpected++
			continue
		}
		v, cerr := cast.ToFloat64E(raw)
		if cerr != nil || !cmp(v, threshold) {
			unexpected++
		}
	}
	applyStats(d, len(values), unexpected)
	return d
}

// validateColumnValuesToBePositive 验证列取值为正数
func validateColumnValuesToBePositive(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	if d := requireColumn(data, rule); d != nil {
		return d
	}

	d := newDetail(rule)
	unexpected := 0
	values := columnValues(data, rule.ColumnName)
	for _, raw := range values {
		if raw == nil {
			unexpected++
			continue
		}
		v, err := cast.ToFloat64E(raw)
		if err != nil || v <= 0 {
			unexpected++
		}
	}
	applyStats(d, len(values), unexpected)
	return d
}

// validateColumnValuesToBeBoolean 验证列取值为布尔值
func validateColumnValuesToBeBoolean(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	if d := requireColumn(data, rule); d != nil {
		return d
	}

	d := newDetail(rule)
	unexpected := 0
	values := columnValues(data, rule.ColumnName)
	for _, raw := range values {
		if _, ok := raw.(bool); !ok {
			unexpected++
		}
	}
	applyStats(d, len(values), unexpected)
	return d
}

// validateColumnValuesToBeIncreasing 验证列取值单调不减
func validateColumnValuesToBeIncreasing(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	return monotonicColumnValues(data, rule, func(prev, cur float64) bool { return cur >= prev })
}

// validateColumnValuesToBeDecreasing 验证列取值单调不增
func validateColumnValuesToBeDecreasing(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	return monotonicColumnValues(data, rule, func(prev, cur float64) bool { return cur <= prev })
}

// monotonicColumnValues 按给定序关系逐对判定相邻取值
func monotonicColumnValues(data []map[string]interface{}, rule *models.ValidationRule, ordered func(prev, cur float64) bool) *models.ValidationResultDetail {
	if d := requireColumn(data, rule); d != nil {
		return d
	}
	values, err := numericColumn(data, rule.ColumnName)
	if err != nil {
		return failDetail(rule, "%v", err)
	}

	d := newDetail(rule)
	unexpected := 0
	for i := 1; i < len(values); i++ {
		if !ordered(values[i-1], values[i]) {
			unexpected++
		}
	}
	applyStats(d, len(values), unexpected)
	return d
}

// validateColumnPairValuesToBeEqual 验证两列取值逐行相等
func validateColumnPairValuesToBeEqual(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	colA, colB, d := pairColumns(data, rule)
	if d != nil {
		return d
	}

	d = newDetail(rule)
	d.Expected = fmt.Sprintf("%s == %s", colA, colB)
	unexpected := 0
	for _, row := range data {
		if !reflect.DeepEqual(row[colA], row[colB]) &&
			normalizeSetValue(row[colA]) != normalizeSetValue(row[colB]) {
			unexpected++
		}
	}
	applyStats(d, len(data), unexpected)
	return d
}

// validateColumnPairValuesAToBeGreaterThanB 验证A列取值逐行大于B列
func validateColumnPairValuesAToBeGreaterThanB(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	colA, colB, d := pairColumns(data, rule)
	if d != nil {
		return d
	}

	d = newDetail(rule)
	d.Expected = fmt.Sprintf("%s > %s", colA, colB)
	unexpected := 0
	for _, row := range data {
		a, errA := cast.ToFloat64E(row[colA])
		b, errB := cast.ToFloat64E(row[colB])
		if errA != nil || errB != nil || a <= b {
			unexpected++
		}
	}
	applyStats(d, len(data), unexpected)
	return d
}

// pairColumns 解析列对规则的column_a/column_b参数
func pairColumns(data []map[string]interface{}, rule *models.ValidationRule) (string, string, *models.ValidationResultDetail) {
	params, err := ruleParams(rule)
	if err != nil {
		return "", "", failDetail(rule, "%v", err)
	}
	colA, okA := paramString(params, "column_a", "column_A")
	colB, okB := paramString(params, "column_b", "column_B")
	if !okA || !okB {
		return "", "", failDetail(rule, "规则缺少column_a/column_b参数")
	}
	if !columnExists(data, colA) {
		return "", "", failDetail(rule, "数据集中不存在列: %s", colA)
	}
	if !columnExists(data, colB) {
		return "", "", failDetail(rule, "数据集中不存在列: %s", colB)
	}
	return colA, colB, nil
}
