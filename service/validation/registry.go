/*
 * @module service/validation/registry
 * @description 验证器注册表，负责内置验证器的显式注册和旧版驼峰规则名的别名映射
 * @architecture 分层架构 - 规则评估层
 * @documentReference dev_docs/validation_requirements.md
 * @stateFlow 引擎构造时一次性注册，之后只读
 * @rules 规则名规范使用snake_case，同时容忍旧版驼峰命名
 * @dependencies strings
 * @refs service/validation/evaluator.go
 */

package validation

import "strings"

// aliasOverrides 按通用规则无法生成的旧版别名
var aliasOverrides = map[string]string{
	"expect_column_values_to_be_valid_ipv4": "ExpectColumnValuesToBeValidIPv4",
}

// legacyAlias 由snake_case规则名生成旧版驼峰别名
func legacyAlias(name string) string {
	if override, ok := aliasOverrides[name]; ok {
		return override
	}

	parts := strings.Split(name, "_")
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

// registerBuiltins 注册全部内置验证器
func registerBuiltins(e *Engine) {
	// 列级验证
	e.Register("expect_column_to_exist", validateColumnToExist)
	e.Register("expect_column_values_to_be_between", validateColumnValuesToBeBetween)
	e.Register("expect_column_values_to_not_be_none", validateColumnValuesToNotBeNone)
	e.Register("expect_column_values_to_be_none", validateColumnValuesToBeNone)
	e.Register("expect_column_values_to_be_in_set", validateColumnValuesToBeInSet)
	e.Register("expect_column_values_to_not_be_in_set", validateColumnValuesToNotBeInSet)
	e.Register("expect_column_distinct_values_to_be_in_set", validateColumnDistinctValuesToBeInSet)
	e.Register("expect_column_values_to_be_unique", validateColumnValuesToBeUnique)
	e.Register("expect_compound_columns_to_be_unique", validateCompoundColumnsToBeUnique)
	e.Register("expect_column_values_to_be_greater_than", validateColumnValuesToBeGreaterThan)
	e.Register("expect_column_values_to_be_less_than", validateColumnValuesToBeLessThan)
	e.Register("expect_column_values_to_be_positive", validateColumnValuesToBePositive)
	e.Register("expect_column_values_to_be_boolean", validateColumnValuesToBeBoolean)
	e.Register("expect_column_values_to_be_increasing", validateColumnValuesToBeIncreasing)
	e.Register("expect_column_values_to_be_decreasing", validateColumnValuesToBeDecreasing)
	e.Register("expect_column_pair_values_to_be_equal", validateColumnPairValuesToBeEqual)
	e.Register("expect_column_pair_values_a_to_be_greater_than_b", validateColumnPairValuesAToBeGreaterThanB)

	// 字符串与格式验证
	e.Register("expect_column_values_to_match_regex", validateColumnValuesToMatchRegex)
	e.Register("expect_column_values_to_not_match_regex", validateColumnValuesToNotMatchRegex)
	e.Register("expect_column_value_lengths_to_be_between", validateColumnValueLengthsToBeBetween)
	e.Register("expect_column_value_lengths_to_equal", validateColumnValueLengthsToEqual)
	e.Register("expect_column_values_to_be_valid_email", validateColumnValuesToBeValidEmail)
	e.Register("expect_column_values_to_be_valid_url", validateColumnValuesToBeValidURL)
	e.Register("expect_column_values_to_be_valid_ipv4", validateColumnValuesToBeValidIPv4)
	e.Register("expect_column_values_to_be_valid_credit_card_number", validateColumnValuesToBeValidCreditCardNumber)

	// 聚合验证
	e.Register("expect_column_mean_to_be_between", validateColumnMeanToBeBetween)
	e.Register("expect_column_min_to_be_between", validateColumnMinToBeBetween)
	e.Register("expect_column_max_to_be_between", validateColumnMaxToBeBetween)
	e.Register("expect_column_sum_to_be_between", validateColumnSumToBeBetween)
	e.Register("expect_column_values_to_be_of_type", validateColumnValuesToBeOfType)
	e.Register("expect_column_values_to_be_in_type_list", validateColumnValuesToBeInTypeList)

	// 日期时间验证
	e.Register("expect_column_values_to_match_strftime_format", validateColumnValuesToMatchStrftimeFormat)
	e.Register("expect_column_values_to_be_after", validateColumnValuesToBeAfter)
	e.Register("expect_column_values_to_be_before", validateColumnValuesToBeBefore)
	e.Register("expect_column_values_to_be_between_dates", validateColumnValuesToBeBetweenDates)

	// 表级验证
	e.Register("expect_table_row_count_to_equal", validateTableRowCountToEqual)
	e.Register("expect_table_row_count_to_be_between", validateTableRowCountToBeBetween)
	e.Register("expect_table_column_count_to_be_between", validateTableColumnCountToBeBetween)
	e.Register("expect_table_columns_to_match_ordered_list", validateTableColumnsToMatchOrderedList)

	// 自定义表达式验证（yaegi解释执行）
	e.Register("expect_column_values_to_satisfy_expression", newExpressionValidator().validate)
}
