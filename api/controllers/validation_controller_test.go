/*
 * @module api/controllers/validation_controller_test
 * @description 验证控制器单元测试
 * @architecture 测试层
 * @documentReference dev_docs/validation_requirements.md
 * @stateFlow 测试准备 -> 请求构建 -> 响应验证
 * @dependencies testing, net/http/httptest, stretchr/testify
 */

package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataquality-service/service/models"
	"dataquality-service/service/validation"
)

func validateRequestBody(t *testing.T, request *models.ValidationRequest) *bytes.Buffer {
	body, err := json.Marshal(request)
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

// TestValidate 测试同步验证接口
func TestValidate(t *testing.T) {
	controller := NewValidationController(validation.NewEngine())

	request := &models.ValidationRequest{
		Dataset: []map[string]interface{}{
			{"age": float64(25)},
			{"age": float64(30)},
		},
		Rules: []models.ValidationRule{
			{RuleName: "expect_column_to_exist", ColumnName: "age"},
			{RuleName: "expect_column_values_to_be_between", ColumnName: "age",
				Value: map[string]interface{}{"min": 20, "max": 40}},
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/validate", validateRequestBody(t, request))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	controller.Validate(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response APIResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, 0, response.Status)

	data, ok := response.Data.(map[string]interface{})
	require.True(t, ok, "响应数据应该是map类型")
	summary, ok := data["summary"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), summary["total_rules"])
	assert.Equal(t, float64(2), summary["successful_rules"])
}

// TestValidateEmptyRules 测试缺少规则的请求
func TestValidateEmptyRules(t *testing.T) {
	controller := NewValidationController(validation.NewEngine())

	request := &models.ValidationRequest{
		Dataset: []map[string]interface{}{{"age": float64(25)}},
	}
	req := httptest.NewRequest(http.MethodPost, "/validate", validateRequestBody(t, request))
	w := httptest.NewRecorder()

	controller.Validate(w, req)

	var response APIResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, 400, response.Status)
}

// TestValidateInvalidBody 测试非法请求体
func TestValidateInvalidBody(t *testing.T) {
	controller := NewValidationController(validation.NewEngine())

	req := httptest.NewRequest(http.MethodPost, "/validate", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()

	controller.Validate(w, req)

	var response APIResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, 400, response.Status)
}

// TestGetRules 测试获取规则列表
func TestGetRules(t *testing.T) {
	controller := NewValidationController(validation.NewEngine())

	req := httptest.NewRequest(http.MethodGet, "/rules", nil)
	w := httptest.NewRecorder()

	controller.GetRules(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response APIResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, 0, response.Status)

	rules, ok := response.Data.([]interface{})
	require.True(t, ok)
	assert.Contains(t, rules, "expect_column_to_exist")
	assert.Contains(t, rules, "expect_column_values_to_be_between")
}
