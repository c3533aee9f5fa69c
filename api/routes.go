/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference dev_docs/queue_pipeline_requirements.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers
 */

package api

import (
	"dataquality-service/api/controllers"
	"dataquality-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// 同步验证
	validationController := controllers.NewValidationController(service.GlobalEngine)
	r.Post("/validate", validationController.Validate)
	r.Get("/rules", validationController.GetRules)

	// 队列管理
	r.Route("/queue", func(r chi.Router) {
		queueController := controllers.NewQueueController(service.GlobalQueueManager, service.GlobalArchiveService)

		r.Post("/start", queueController.Start)
		r.Post("/stop", queueController.Stop)
		r.Get("/status", queueController.Status)
		r.Get("/workers", queueController.Workers)
		r.Get("/health", queueController.Health)
		r.Get("/queue-stats", queueController.QueueStats)
		r.Post("/send-message", queueController.SendMessage)

		// 归档查询
		r.Get("/records", queueController.ListRecords)
		r.Get("/records/{message_id}", queueController.GetRecord)
	})
}
