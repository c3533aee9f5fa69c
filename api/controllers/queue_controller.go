/*
 * @module api/controllers/queue_controller
 * @description 队列管理控制器，提供工作器池启停、状态查询、队列统计和测试消息发送
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/queue_pipeline_requirements.md
 * @stateFlow 请求接收 -> 池管理器调用 -> 响应返回
 * @rules 状态查询不阻塞处理路径；停止操作带宽限期参数
 * @dependencies net/http, github.com/go-chi/render
 * @refs service/queue/manager.go, service/archive/archive_service.go
 */

package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"gorm.io/gorm"

	"dataquality-service/service/archive"
	"dataquality-service/service/models"
	"dataquality-service/service/queue"
)

// QueueController 队列管理控制器
type QueueController struct {
	manager *queue.Manager
	archive *archive.Service // 未配置数据库时为nil
}

// NewQueueController 创建队列管理控制器实例
func NewQueueController(manager *queue.Manager, archiveService *archive.Service) *QueueController {
	return &QueueController{manager: manager, archive: archiveService}
}

// Start 启动工作器池
// @Summary 启动队列工作器池
// @Description 启动消息消费，重复调用不产生副作用
// @Tags 队列管理
// @Produce json
// @Success 200 {object} APIResponse{data=models.PoolStatus}
// @Failure 500 {object} APIResponse
// @Router /queue/start [post]
func (c *QueueController) Start(w http.ResponseWriter, r *http.Request) {
	if err := c.manager.Start(); err != nil {
		render.JSON(w, r, InternalErrorResponse("工作器池启动失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("工作器池已启动", c.manager.Snapshot()))
}

// Stop 停止工作器池
// @Summary 停止队列工作器池
// @Description 优雅停止消息消费，grace_seconds指定等待宽限期
// @Tags 队列管理
// @Produce json
// @Param grace_seconds query int false "停止宽限期（秒）" default(30)
// @Success 200 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /queue/stop [post]
func (c *QueueController) Stop(w http.ResponseWriter, r *http.Request) {
	grace := c.manager.Settings().ShutdownGraceSeconds
	if raw := r.URL.Query().Get("grace_seconds"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			grace = n
		}
	}

	if err := c.manager.Stop(time.Duration(grace) * time.Second); err != nil {
		render.JSON(w, r, InternalErrorResponse("工作器池停止失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("工作器池已停止", nil))
}

// Status 查询工作器池状态
// @Summary 查询工作器池状态
// @Description 返回池状态、运行时长和聚合处理统计
// @Tags 队列管理
// @Produce json
// @Success 200 {object} APIResponse{data=models.PoolStatus}
// @Router /queue/status [get]
func (c *QueueController) Status(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, SuccessResponse("获取工作器池状态成功", c.manager.Snapshot()))
}

// Workers 查询各工作器统计
// @Summary 查询各工作器统计
// @Description 返回每个工作器的状态与处理计数
// @Tags 队列管理
// @Produce json
// @Success 200 {object} APIResponse{data=[]models.WorkerStatsSnapshot}
// @Router /queue/workers [get]
func (c *QueueController) Workers(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, SuccessResponse("获取工作器统计成功", c.manager.Snapshot().Workers))
}

// Health 查询队列连接健康状态
// @Summary 查询队列连接健康状态
// @Description 检查输入、输出、死信队列的连通性
// @Tags 队列管理
// @Produce json
// @Success 200 {object} APIResponse{data=models.QueueHealth}
// @Router /queue/health [get]
func (c *QueueController) Health(w http.ResponseWriter, r *http.Request) {
	health := c.manager.GetHealth(r.Context())
	render.JSON(w, r, SuccessResponse("获取队列健康状态成功", health))
}

// QueueStats 查询各队列消息数量
// @Summary 查询队列消息数量
// @Description 返回输入、输出、死信队列的可见/在途/延迟消息数
// @Tags 队列管理
// @Produce json
// @Success 200 {object} APIResponse{data=map[string]models.QueueStats}
// @Failure 500 {object} APIResponse
// @Router /queue/queue-stats [get]
func (c *QueueController) QueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.manager.GetQueueStats(r.Context())
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("查询队列统计失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("获取队列统计成功", stats))
}

// SendMessage 发送测试消息
// @Summary 发送测试验证消息
// @Description 向输入队列发送一条验证请求消息
// @Tags 队列管理
// @Accept json
// @Produce json
// @Param request body models.QueueValidationRequest true "验证请求消息"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /queue/send-message [post]
func (c *QueueController) SendMessage(w http.ResponseWriter, r *http.Request) {
	var request models.QueueValidationRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}
	if len(request.Rules) == 0 {
		render.JSON(w, r, BadRequestResponse("验证规则不能为空", nil))
		return
	}

	messageID, err := c.manager.SendTestMessage(r.Context(), &request)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("测试消息发送失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("测试消息发送成功", map[string]string{"message_id": messageID}))
}

// ListRecords 分页查询归档记录
// @Summary 查询验证结果归档
// @Description 分页查询已处理消息的归档记录，支持按消息ID和状态筛选
// @Tags 队列管理
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页大小" default(20)
// @Param message_id query string false "消息ID"
// @Param status query string false "处理状态" Enums(success,failed)
// @Success 200 {object} PaginatedResponse{data=[]models.ValidationRecord}
// @Failure 500 {object} APIResponse
// @Router /queue/records [get]
func (c *QueueController) ListRecords(w http.ResponseWriter, r *http.Request) {
	if c.archive == nil {
		render.JSON(w, r, InternalErrorResponse("归档功能未启用", nil))
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	query := archive.ListQuery{
		MessageID: r.URL.Query().Get("message_id"),
		Status:    r.URL.Query().Get("status"),
		Page:      page,
		PageSize:  size,
	}

	records, total, err := c.archive.List(r.Context(), query)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("查询归档记录失败", err))
		return
	}
	render.JSON(w, r, &PaginatedResponse{
		Status: 0,
		Msg:    "查询归档记录成功",
		Data:   records,
		Total:  total,
		Page:   query.Page,
		Size:   query.PageSize,
	})
}

// GetRecord 按消息ID查询归档记录
// @Summary 查询单条归档记录
// @Description 按消息ID查询最新一条归档记录
// @Tags 队列管理
// @Produce json
// @Param message_id path string true "消息ID"
// @Success 200 {object} APIResponse{data=models.ValidationRecord}
// @Failure 404 {object} APIResponse
// @Router /queue/records/{message_id} [get]
func (c *QueueController) GetRecord(w http.ResponseWriter, r *http.Request) {
	if c.archive == nil {
		render.JSON(w, r, InternalErrorResponse("归档功能未启用", nil))
		return
	}

	messageID := chi.URLParam(r, "message_id")
	record, err := c.archive.GetByMessageID(r.Context(), messageID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			render.JSON(w, r, &APIResponse{Status: 404, Msg: "归档记录不存在"})
			return
		}
		render.JSON(w, r, InternalErrorResponse("查询归档记录失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("查询归档记录成功", record))
}
