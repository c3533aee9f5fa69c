/*
 * @module service/validation/table_validators
 * @description 表级验证器：行数、列数、列名顺序
 * @architecture 分层架构 - 规则评估层
 * @documentReference dev_docs/validation_requirements.md
 * @dependencies github.com/spf13/cast, dataquality-service/service/models
 * @refs service/validation/registry.go
 */

package validation

import (
	"fmt"
	"sort"

	"github.com/spf13/cast"

	"dataquality-service/service/models"
)

// validateTableRowCountToEqual 验证数据集行数等于指定值
func validateTableRowCountToEqual(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	var expected float64
	if direct, err := cast.ToFloat64E(rule.Value); err == nil {
		expected = direct
	} else {
		params, perr := ruleParams(rule)
		if perr != nil {
			return failDetail(rule, "%v", perr)
		}
		v, has, ferr := paramFloat(params, "value", "row_count")
		if ferr != nil {
			return failDetail(rule, "%v", ferr)
		}
		if !has {
			return failDetail(rule, "规则缺少行数参数")
		}
		expected = v
	}

	d := newDetail(rule)
	d.Expected = expected
	d.Actual = len(data)
	d.ElementCount = len(data)
	d.Success = float64(len(data)) == expected
	if d.Success {
		d.Message = fmt.Sprintf("行数 %d 符合预期", len(data))
	} else {
		d.Message = fmt.Sprintf("行数 %d 不等于预期 %g", len(data), expected)
	}
	return d
}

// validateTableRowCountToBeBetween 验证数据集行数落在[min,max]区间内
func validateTableRowCountToBeBetween(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	min, max, hasMin, hasMax, err := rangeParams(rule)
	if err != nil {
		return failDetail(rule, "%v", err)
	}

	d := newDetail(rule)
	d.Expected = rule.Value
	d.Actual = len(data)
	d.ElementCount = len(data)
	d.Success = boundCheck(float64(len(data)), min, max, hasMin, hasMax)
	if d.Success {
		d.Message = fmt.Sprintf("行数 %d 在预期区间内", len(data))
	} else {
		d.Message = fmt.Sprintf("行数 %d 超出预期区间", len(data))
	}
	return d
}

// tableColumns 返回数据集的列名集合（排序后）
func tableColumns(data []map[string]interface{}) []string {
	seen := make(map[string]struct{})
	for _, row := range data {
		for col := range row {
			seen[col] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for col := range seen {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}

// validateTableColumnCountToBeBetween 验证数据集列数落在[min,max]区间内
func validateTableColumnCountToBeBetween(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	min, max, hasMin, hasMax, err := rangeParams(rule)
	if err != nil {
		return failDetail(rule, "%v", err)
	}

	columns := tableColumns(data)
	d := newDetail(rule)
	d.Expected = rule.Value
	d.Actual = len(columns)
	d.ElementCount = len(columns)
	d.Success = boundCheck(float64(len(columns)), min, max, hasMin, hasMax)
	if d.Success {
		d.Message = fmt.Sprintf("列数 %d 在预期区间内", len(columns))
	} else {
		d.Message = fmt.Sprintf("列数 %d 超出预期区间", len(columns))
	}
	return d
}

// validateTableColumnsToMatchOrderedList 验证数据集列名集合与给定列表一致
// 数据行是无序映射，这里按集合语义比较列名并报告差异
func validateTableColumnsToMatchOrderedList(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	var expected []string
	if direct, err := cast.ToStringSliceE(rule.Value); err == nil && len(direct) > 0 {
		expected = direct
	} else {
		params, perr := ruleParams(rule)
		if perr != nil {
			return failDetail(rule, "%v", perr)
		}
		raw, ok := params["column_list"]
		if !ok {
			return failDetail(rule, "规则缺少column_list参数")
		}
		expected, err = cast.ToStringSliceE(raw)
		if err != nil || len(expected) == 0 {
			return failDetail(rule, "column_list参数格式错误")
		}
	}

	actual := tableColumns(data)
	expectedSorted := append([]string(nil), expected...)
	sort.Strings(expectedSorted)

	d := newDetail(rule)
	d.Expected = expected
	d.Actual = actual
	d.ElementCount = len(expected)

	missing := diffColumns(expectedSorted, actual)
	extra := diffColumns(actual, expectedSorted)
	d.UnexpectedCount = len(missing) + len(extra)
	d.Success = d.UnexpectedCount == 0
	if d.Success {
		d.Message = "列名与预期一致"
	} else {
		d.Message = fmt.Sprintf("列名不一致: 缺少%v, 多余%v", missing, extra)
		d.Details = map[string]interface{}{"missing": missing, "extra": extra}
	}
	return d
}

// diffColumns 返回a中存在而b中不存在的列名，a/b均已排序
func diffColumns(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, col := range b {
		inB[col] = struct{}{}
	}
	diff := []string{}
	for _, col := range a {
		if _, ok := inB[col]; !ok {
			diff = append(diff, col)
		}
	}
	return diff
}
