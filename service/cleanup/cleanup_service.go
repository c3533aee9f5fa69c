/*
 * @module service/cleanup/cleanup_service
 * @description 归档清理服务，按cron计划定期删除超过保留期的归档记录
 * @architecture 调度器模式 - 基于cron的周期任务
 * @documentReference dev_docs/queue_pipeline_requirements.md
 * @stateFlow 服务启动 -> 注册清理任务 -> 周期执行 -> 服务停止
 * @rules 清理任务串行执行，单次失败不影响后续执行
 * @dependencies github.com/robfig/cron/v3
 * @refs service/archive/archive_service.go, service/init.go
 */

package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"dataquality-service/service/archive"
)

// 每天凌晨3点执行清理
const defaultSchedule = "0 0 3 * * *"

// Service 归档清理服务
type Service struct {
	cron          *cron.Cron
	archive       *archive.Service
	logger        *slog.Logger
	retentionDays int
	schedule      string
}

// NewService 创建清理服务
func NewService(archiveService *archive.Service, retentionDays int, logger *slog.Logger) *Service {
	return &Service{
		cron:          cron.New(cron.WithSeconds()),
		archive:       archiveService,
		logger:        logger,
		retentionDays: retentionDays,
		schedule:      defaultSchedule,
	}
}

// Start 注册清理任务并启动调度
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.runOnce)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("归档清理任务已启动", "schedule", s.schedule, "retention_days", s.retentionDays)
	return nil
}

// Stop 停止调度，等待正在执行的任务完成
func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("归档清理任务已停止")
}

// runOnce 执行一次清理
func (s *Service) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	deleted, err := s.archive.PurgeBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("归档清理执行失败", "error", err)
		return
	}
	s.logger.Info("归档清理执行完成", "deleted", deleted, "cutoff", cutoff)
}
