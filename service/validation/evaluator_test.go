/*
 * @module service/validation/evaluator_test
 * @description 规则评估引擎单元测试：故障隔离、别名解析、汇总统计
 * @architecture 测试层
 * @documentReference dev_docs/validation_requirements.md
 * @refs service/validation/evaluator.go
 */

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataquality-service/service/models"
)

func TestEngineValidateSummary(t *testing.T) {
	engine := NewEngine()

	response := engine.Validate(&models.ValidationRequest{
		Dataset: sampleData(),
		Rules: []models.ValidationRule{
			{RuleName: "expect_column_to_exist", ColumnName: "name"},
			{RuleName: "expect_column_values_to_be_between", ColumnName: "age",
				Value: map[string]interface{}{"min": 20, "max": 40}},
			{RuleName: "expect_column_to_exist", ColumnName: "missing"},
		},
	})

	require.Len(t, response.Results, 3)
	assert.Equal(t, 3, response.Summary.TotalRules)
	assert.Equal(t, 2, response.Summary.SuccessfulRules)
	assert.Equal(t, 1, response.Summary.FailedRules)
	assert.InDelta(t, 2.0/3.0, response.Summary.SuccessRate, 0.001)
	assert.Equal(t, 3, response.Summary.TotalRows)
}

func TestEngineUnknownRule(t *testing.T) {
	engine := NewEngine()

	response := engine.Validate(&models.ValidationRequest{
		Dataset: sampleData(),
		Rules: []models.ValidationRule{
			{RuleName: "expect_nothing_at_all", ColumnName: "name"},
		},
	})

	require.Len(t, response.Results, 1)
	assert.False(t, response.Results[0].Success)
	assert.Contains(t, response.Results[0].Message, "expect_nothing_at_all")
}

func TestEnginePanicIsolation(t *testing.T) {
	engine := NewEngine()
	engine.Register("always_panics", func(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
		panic("boom")
	})

	response := engine.Validate(&models.ValidationRequest{
		Dataset: sampleData(),
		Rules: []models.ValidationRule{
			{RuleName: "always_panics"},
			{RuleName: "expect_column_to_exist", ColumnName: "name"},
		},
	})

	// 崩溃的规则转化为失败结果，后续规则正常执行
	require.Len(t, response.Results, 2)
	assert.False(t, response.Results[0].Success)
	assert.True(t, response.Results[1].Success)
}

func TestEngineLegacyAlias(t *testing.T) {
	engine := NewEngine()

	// 旧版驼峰规则名与snake_case等价
	response := engine.Validate(&models.ValidationRequest{
		Dataset: sampleData(),
		Rules: []models.ValidationRule{
			{RuleName: "ExpectColumnToExist", ColumnName: "name"},
			{RuleName: "ExpectColumnValuesToBeValidIPv4", ColumnName: "name"},
		},
	})

	require.Len(t, response.Results, 2)
	assert.True(t, response.Results[0].Success)
	// IPv4验证找到了验证器（结果失败是因为name列不是IP）
	assert.NotContains(t, response.Results[1].Message, "未找到")
}

func TestEngineValidateIdempotent(t *testing.T) {
	engine := NewEngine()
	request := &models.ValidationRequest{
		Dataset: sampleData(),
		Rules: []models.ValidationRule{
			{RuleName: "expect_column_values_to_be_unique", ColumnName: "id"},
		},
	}

	first := engine.Validate(request)
	second := engine.Validate(request)
	assert.Equal(t, first.Summary.SuccessfulRules, second.Summary.SuccessfulRules)
	assert.Equal(t, first.Results[0].Success, second.Results[0].Success)
}

func TestAvailableRulesSorted(t *testing.T) {
	engine := NewEngine()
	rules := engine.AvailableRules()

	require.NotEmpty(t, rules)
	assert.Contains(t, rules, "expect_column_to_exist")
	assert.Contains(t, rules, "ExpectColumnToExist")
	for i := 1; i < len(rules); i++ {
		assert.LessOrEqual(t, rules[i-1], rules[i])
	}
}

func TestLegacyAliasGeneration(t *testing.T) {
	assert.Equal(t, "ExpectColumnToExist", legacyAlias("expect_column_to_exist"))
	assert.Equal(t, "ExpectColumnValuesToBeValidIPv4", legacyAlias("expect_column_values_to_be_valid_ipv4"))
	assert.Equal(t, "ExpectTableRowCountToEqual", legacyAlias("expect_table_row_count_to_equal"))
}
