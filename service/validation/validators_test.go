/*
 * @module service/validation/validators_test
 * @description 内置验证器单元测试
 * @architecture 测试层
 * @documentReference dev_docs/validation_requirements.md
 * @refs service/validation
 */

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataquality-service/service/models"
)

func sampleData() []map[string]interface{} {
	return []map[string]interface{}{
		{"id": float64(1), "name": "alice", "age": float64(25), "email": "alice@example.com"},
		{"id": float64(2), "name": "bob", "age": float64(30), "email": "bob@example.com"},
		{"id": float64(3), "name": "carol", "age": float64(35), "email": "carol@example.com"},
	}
}

func TestValidateColumnToExist(t *testing.T) {
	data := sampleData()

	detail := validateColumnToExist(data, &models.ValidationRule{
		RuleName:   "expect_column_to_exist",
		ColumnName: "name",
	})
	assert.True(t, detail.Success)
	assert.Equal(t, 3, detail.ElementCount)

	// 列不存在时失败，元素总数为数据行数
	detail = validateColumnToExist(data, &models.ValidationRule{
		RuleName:   "expect_column_to_exist",
		ColumnName: "missing_column",
	})
	assert.False(t, detail.Success)
	assert.Equal(t, 3, detail.ElementCount)
}

func TestValidateColumnValuesToBeBetween(t *testing.T) {
	data := sampleData()

	detail := validateColumnValuesToBeBetween(data, &models.ValidationRule{
		RuleName:   "expect_column_values_to_be_between",
		ColumnName: "age",
		Value:      map[string]interface{}{"min": 20, "max": 40},
	})
	assert.True(t, detail.Success)
	assert.Equal(t, 3, detail.ElementCount)
	assert.Equal(t, 0, detail.UnexpectedCount)

	// 超出区间的值计入不符合数量
	detail = validateColumnValuesToBeBetween(data, &models.ValidationRule{
		RuleName:   "expect_column_values_to_be_between",
		ColumnName: "age",
		Value:      map[string]interface{}{"min": 28, "max": 40},
	})
	assert.False(t, detail.Success)
	assert.Equal(t, 1, detail.UnexpectedCount)
}

func TestValidateColumnValuesToBeBetweenWithNulls(t *testing.T) {
	data := []map[string]interface{}{
		{"score": float64(50)},
		{"score": nil},
		{"score": "abc"},
	}

	detail := validateColumnValuesToBeBetween(data, &models.ValidationRule{
		RuleName:   "expect_column_values_to_be_between",
		ColumnName: "score",
		Value:      map[string]interface{}{"min": 0, "max": 100},
	})
	// nil和无法转换的值都计入不符合数量
	assert.False(t, detail.Success)
	assert.Equal(t, 3, detail.ElementCount)
	assert.Equal(t, 2, detail.UnexpectedCount)
	assert.InDelta(t, 66.7, detail.UnexpectedPercent, 0.1)
}

func TestValidateColumnValuesToNotBeNone(t *testing.T) {
	data := []map[string]interface{}{
		{"name": "alice"},
		{"name": nil},
		{"name": "carol"},
	}

	detail := validateColumnValuesToNotBeNone(data, &models.ValidationRule{
		RuleName:   "expect_column_values_to_not_be_none",
		ColumnName: "name",
	})
	assert.False(t, detail.Success)
	assert.Equal(t, 1, detail.UnexpectedCount)
}

func TestValidateColumnValuesToBeInSet(t *testing.T) {
	data := []map[string]interface{}{
		{"status": "active"},
		{"status": "inactive"},
		{"status": "unknown"},
	}

	detail := validateColumnValuesToBeInSet(data, &models.ValidationRule{
		RuleName:   "expect_column_values_to_be_in_set",
		ColumnName: "status",
		Value:      map[string]interface{}{"value_set": []interface{}{"active", "inactive"}},
	})
	assert.False(t, detail.Success)
	assert.Equal(t, 1, detail.UnexpectedCount)

	// 集合也可以直接作为规则参数
	detail = validateColumnValuesToBeInSet(data, &models.ValidationRule{
		RuleName:   "expect_column_values_to_be_in_set",
		ColumnName: "status",
		Value:      []interface{}{"active", "inactive", "unknown"},
	})
	assert.True(t, detail.Success)
}

func TestValidateColumnValuesToBeUnique(t *testing.T) {
	data := []map[string]interface{}{
		{"id": float64(1)},
		{"id": float64(2)},
		{"id": float64(1)},
	}

	detail := validateColumnValuesToBeUnique(data, &models.ValidationRule{
		RuleName:   "expect_column_values_to_be_unique",
		ColumnName: "id",
	})
	assert.False(t, detail.Success)
	assert.True(t, detail.UnexpectedCount > 0)
}

func TestValidateColumnValuesToMatchRegex(t *testing.T) {
	data := sampleData()

	detail := validateColumnValuesToMatchRegex(data, &models.ValidationRule{
		RuleName:   "expect_column_values_to_match_regex",
		ColumnName: "name",
		Value:      map[string]interface{}{"regex": "^[a-z]+$"},
	})
	assert.True(t, detail.Success)

	detail = validateColumnValuesToMatchRegex(data, &models.ValidationRule{
		RuleName:   "expect_column_values_to_match_regex",
		ColumnName: "name",
		Value:      map[string]interface{}{"regex": "^[0-9]+$"},
	})
	assert.False(t, detail.Success)
	assert.Equal(t, 3, detail.UnexpectedCount)

	// 非法正则返回失败而不是崩溃
	detail = validateColumnValuesToMatchRegex(data, &models.ValidationRule{
		RuleName:   "expect_column_values_to_match_regex",
		ColumnName: "name",
		Value:      map[string]interface{}{"regex": "[invalid"},
	})
	assert.False(t, detail.Success)
}

func TestValidateColumnValuesToBeValidEmail(t *testing.T) {
	data := []map[string]interface{}{
		{"email": "alice@example.com"},
		{"email": "not-an-email"},
	}

	detail := validateColumnValuesToBeValidEmail(data, &models.ValidationRule{
		RuleName:   "expect_column_values_to_be_valid_email",
		ColumnName: "email",
	})
	assert.False(t, detail.Success)
	assert.Equal(t, 1, detail.UnexpectedCount)
}

func TestValidateColumnValueLengthsToBeBetween(t *testing.T) {
	data := []map[string]interface{}{
		{"code": "ab"},
		{"code": "abcde"},
		{"code": "abcdefghij"},
	}

	detail := validateColumnValueLengthsToBeBetween(data, &models.ValidationRule{
		RuleName:   "expect_column_value_lengths_to_be_between",
		ColumnName: "code",
		Value:      map[string]interface{}{"min": 2, "max": 5},
	})
	assert.False(t, detail.Success)
	assert.Equal(t, 1, detail.UnexpectedCount)
}

func TestValidateColumnMeanToBeBetween(t *testing.T) {
	data := sampleData()

	detail := validateColumnMeanToBeBetween(data, &models.ValidationRule{
		RuleName:   "expect_column_mean_to_be_between",
		ColumnName: "age",
		Value:      map[string]interface{}{"min": 25, "max": 35},
	})
	assert.True(t, detail.Success)
	assert.Equal(t, float64(30), detail.Actual)

	detail = validateColumnMeanToBeBetween(data, &models.ValidationRule{
		RuleName:   "expect_column_mean_to_be_between",
		ColumnName: "age",
		Value:      map[string]interface{}{"min": 40},
	})
	assert.False(t, detail.Success)
}

func TestValidateColumnValuesToBeOfType(t *testing.T) {
	data := sampleData()

	detail := validateColumnValuesToBeOfType(data, &models.ValidationRule{
		RuleName:   "expect_column_values_to_be_of_type",
		ColumnName: "name",
		Value:      map[string]interface{}{"type": "string"},
	})
	assert.True(t, detail.Success)

	// JSON解码的整数是float64，按int类型检查整值浮点
	detail = validateColumnValuesToBeOfType(data, &models.ValidationRule{
		RuleName:   "expect_column_values_to_be_of_type",
		ColumnName: "id",
		Value:      map[string]interface{}{"type": "int"},
	})
	assert.True(t, detail.Success)
}

func TestValidateColumnValuesToMatchStrftimeFormat(t *testing.T) {
	data := []map[string]interface{}{
		{"date": "2026-01-15"},
		{"date": "2026/01/15"},
	}

	detail := validateColumnValuesToMatchStrftimeFormat(data, &models.ValidationRule{
		RuleName:   "expect_column_values_to_match_strftime_format",
		ColumnName: "date",
		Value:      map[string]interface{}{"strftime_format": "%Y-%m-%d"},
	})
	assert.False(t, detail.Success)
	assert.Equal(t, 1, detail.UnexpectedCount)
}

func TestValidateColumnPairValuesAToBeGreaterThanB(t *testing.T) {
	data := []map[string]interface{}{
		{"end": float64(10), "start": float64(5)},
		{"end": float64(3), "start": float64(8)},
	}

	detail := validateColumnPairValuesAToBeGreaterThanB(data, &models.ValidationRule{
		RuleName: "expect_column_pair_values_a_to_be_greater_than_b",
		Value:    map[string]interface{}{"column_a": "end", "column_b": "start"},
	})
	assert.False(t, detail.Success)
	assert.Equal(t, 1, detail.UnexpectedCount)
}

func TestValidateTableRowCountToEqual(t *testing.T) {
	data := sampleData()

	detail := validateTableRowCountToEqual(data, &models.ValidationRule{
		RuleName: "expect_table_row_count_to_equal",
		Value:    3,
	})
	assert.True(t, detail.Success)

	detail = validateTableRowCountToEqual(data, &models.ValidationRule{
		RuleName: "expect_table_row_count_to_equal",
		Value:    map[string]interface{}{"value": 5},
	})
	assert.False(t, detail.Success)
}

func TestValidateTableColumnsToMatchOrderedList(t *testing.T) {
	data := sampleData()

	detail := validateTableColumnsToMatchOrderedList(data, &models.ValidationRule{
		RuleName: "expect_table_columns_to_match_ordered_list",
		Value:    []interface{}{"id", "name", "age", "email"},
	})
	assert.True(t, detail.Success)

	detail = validateTableColumnsToMatchOrderedList(data, &models.ValidationRule{
		RuleName: "expect_table_columns_to_match_ordered_list",
		Value:    []interface{}{"id", "name", "phone"},
	})
	require.False(t, detail.Success)
	assert.True(t, detail.UnexpectedCount > 0)
}

func TestValidateColumnValuesToBeIncreasing(t *testing.T) {
	increasing := []map[string]interface{}{
		{"seq": float64(1)}, {"seq": float64(2)}, {"seq": float64(5)},
	}
	detail := validateColumnValuesToBeIncreasing(increasing, &models.ValidationRule{
		RuleName:   "expect_column_values_to_be_increasing",
		ColumnName: "seq",
	})
	assert.True(t, detail.Success)

	broken := []map[string]interface{}{
		{"seq": float64(1)}, {"seq": float64(3)}, {"seq": float64(2)},
	}
	detail = validateColumnValuesToBeIncreasing(broken, &models.ValidationRule{
		RuleName:   "expect_column_values_to_be_increasing",
		ColumnName: "seq",
	})
	assert.False(t, detail.Success)
}

func TestValidateColumnValuesToBeValidIPv4(t *testing.T) {
	data := []map[string]interface{}{
		{"ip": "192.168.1.1"},
		{"ip": "999.1.1.1"},
		{"ip": "::1"},
	}

	detail := validateColumnValuesToBeValidIPv4(data, &models.ValidationRule{
		RuleName:   "expect_column_values_to_be_valid_ipv4",
		ColumnName: "ip",
	})
	assert.False(t, detail.Success)
	assert.Equal(t, 2, detail.UnexpectedCount)
}
