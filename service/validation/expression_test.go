/*
 * @module service/validation/expression_test
 * @description 自定义表达式验证器单元测试：求值、编译失败处理、编译缓存
 * @architecture 测试层
 * @documentReference dev_docs/validation_requirements.md
 * @refs service/validation/expression.go
 */

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataquality-service/service/models"
)

func expressionRule(column, expr string) *models.ValidationRule {
	return &models.ValidationRule{
		RuleName:   "expect_column_values_to_satisfy_expression",
		ColumnName: column,
		Value:      map[string]interface{}{"expression": expr},
	}
}

func TestExpressionValidatorPass(t *testing.T) {
	x := newExpressionValidator()

	detail := x.validate(sampleData(), expressionRule("age", "value != nil"))
	require.True(t, detail.Success, detail.Message)
	assert.Equal(t, 0, detail.UnexpectedCount)
	assert.Equal(t, 3, detail.ElementCount)
}

func TestExpressionValidatorRowAccess(t *testing.T) {
	x := newExpressionValidator()

	// 表达式可通过row访问整行
	detail := x.validate(sampleData(), expressionRule("age", `row["name"] != nil && value != nil`))
	assert.True(t, detail.Success, detail.Message)
}

func TestExpressionValidatorFailures(t *testing.T) {
	x := newExpressionValidator()

	detail := x.validate(sampleData(), expressionRule("name", `fmt.Sprint(value) == "alice"`))
	require.False(t, detail.Success)
	assert.Equal(t, 2, detail.UnexpectedCount)
}

func TestExpressionValidatorCompileError(t *testing.T) {
	x := newExpressionValidator()

	detail := x.validate(sampleData(), expressionRule("age", "value >"))
	require.False(t, detail.Success)
	assert.Contains(t, detail.Message, "编译失败")
}

func TestExpressionValidatorMissingParam(t *testing.T) {
	x := newExpressionValidator()

	detail := x.validate(sampleData(), &models.ValidationRule{
		RuleName:   "expect_column_values_to_satisfy_expression",
		ColumnName: "age",
		Value:      map[string]interface{}{"other": "value != nil"},
	})
	require.False(t, detail.Success)
	assert.Contains(t, detail.Message, "expression")
}

func TestExpressionValidatorCache(t *testing.T) {
	x := newExpressionValidator()
	rule := expressionRule("age", "value != nil")

	x.validate(sampleData(), rule)
	x.validate(sampleData(), rule)
	assert.Equal(t, 1, x.CacheSize())

	x.validate(sampleData(), expressionRule("age", `value == nil`))
	assert.Equal(t, 2, x.CacheSize())
}
