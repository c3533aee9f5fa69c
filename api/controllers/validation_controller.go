/*
 * @module api/controllers/validation_controller
 * @description 验证控制器，提供同步验证接口和可用规则查询
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/validation_requirements.md
 * @stateFlow 请求接收 -> 规则评估 -> 响应返回
 * @rules 同步验证走与队列处理相同的规则引擎，保证两条路径结果一致
 * @dependencies net/http, github.com/go-chi/render
 * @refs service/validation/evaluator.go
 */

package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"

	"dataquality-service/service/models"
	"dataquality-service/service/validation"
)

// ValidationController 验证控制器
type ValidationController struct {
	evaluator validation.RuleEvaluator
}

// NewValidationController 创建验证控制器实例
func NewValidationController(evaluator validation.RuleEvaluator) *ValidationController {
	return &ValidationController{evaluator: evaluator}
}

// Validate 同步执行数据验证
// @Summary 同步数据验证
// @Description 对请求中的数据集执行验证规则并立即返回结果
// @Tags 数据验证
// @Accept json
// @Produce json
// @Param request body models.ValidationRequest true "验证请求"
// @Success 200 {object} APIResponse{data=models.ValidationResponse}
// @Failure 400 {object} APIResponse
// @Router /validate [post]
func (c *ValidationController) Validate(w http.ResponseWriter, r *http.Request) {
	var request models.ValidationRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}
	if len(request.Rules) == 0 {
		render.JSON(w, r, BadRequestResponse("验证规则不能为空", nil))
		return
	}

	response := c.evaluator.Validate(&request)
	render.JSON(w, r, SuccessResponse("数据验证完成", response))
}

// GetRules 获取可用验证规则列表
// @Summary 获取可用验证规则
// @Description 返回引擎支持的全部验证规则名称
// @Tags 数据验证
// @Produce json
// @Success 200 {object} APIResponse{data=[]string}
// @Router /rules [get]
func (c *ValidationController) GetRules(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, SuccessResponse("获取验证规则列表成功", c.evaluator.AvailableRules()))
}
